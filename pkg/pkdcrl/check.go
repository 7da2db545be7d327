package pkdcrl

import (
	"strings"
	"time"

	"github.com/iland112/icao-pkd-core/pkg/pkdcert"
)

// Status is a revocation check's outcome.
type Status string

const (
	StatusValid          Status = "VALID"
	StatusRevoked        Status = "REVOKED"
	StatusCrlUnavailable Status = "CRL_UNAVAILABLE"
	StatusCrlExpired     Status = "CRL_EXPIRED"
	StatusCrlInvalid     Status = "CRL_INVALID"
	StatusNotChecked     Status = "NOT_CHECKED"
)

// CheckResult is the outcome of checking one certificate against its
// issuing country's CRL.
type CheckResult struct {
	Status           Status
	ThisUpdate       time.Time
	NextUpdate       time.Time
	RevocationReason string
}

// Provider is the capability the checker depends on: looking up the
// current CRL for an issuing country, if one is on file.
type Provider interface {
	FindCrlByCountry(countryCode string) (CRL, bool, error)
}

// Check looks up cert's serial number in its issuing country's CRL and
// reports whether it is revoked, not checked, or the CRL itself could not
// be consulted.
func Check(cert pkdcert.Certificate, countryCode string, provider Provider) CheckResult {
	if cert.Fingerprint == "" || strings.TrimSpace(countryCode) == "" {
		return CheckResult{Status: StatusNotChecked}
	}

	crl, found, err := provider.FindCrlByCountry(countryCode)
	if err != nil {
		return CheckResult{Status: StatusCrlInvalid}
	}
	if !found {
		return CheckResult{Status: StatusCrlUnavailable}
	}

	result := CheckResult{ThisUpdate: crl.ThisUpdate, NextUpdate: crl.NextUpdate}

	if IsExpired(crl, timeNow()) {
		result.Status = StatusCrlExpired
		return result
	}

	entry, revoked := Lookup(crl, cert.SerialNumberHex)
	if !revoked {
		result.Status = StatusValid
		return result
	}

	result.Status = StatusRevoked
	result.RevocationReason = ReasonName(entry.ReasonCode)
	return result
}

func timeNow() time.Time {
	return time.Now().UTC()
}
