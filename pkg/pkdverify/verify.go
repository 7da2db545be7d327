// Package pkdverify composes the rest of the core into the canonical
// 8-step passive-authentication sequence: parse the SOD, extract and
// chain the DSC, verify its signature and the SOD's own signature, hash
// the presented Data Groups, check revocation, and register the DSC.
// Per-step structured logging uses sirupsen/logrus, and verification IDs
// use google/uuid.
package pkdverify

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iland112/icao-pkd-core/pkg/pkdcert"
	"github.com/iland112/icao-pkd-core/pkg/pkdchain"
	"github.com/iland112/icao-pkd-core/pkg/pkdcms"
	"github.com/iland112/icao-pkd-core/pkg/pkdcrl"
)

// StepStatus is one step result's outcome.
type StepStatus string

const (
	StepOK      StepStatus = "OK"
	StepFailed  StepStatus = "FAILED"
	StepWarning StepStatus = "WARNING"
	StepSkipped StepStatus = "SKIPPED"
)

// StepResult is one sequence step's {status, message, detail} outcome.
type StepResult struct {
	Name    string
	Status  StepStatus
	Message string
	Detail  interface{}
}

// OverallStatus is the Verification Report's top-level outcome.
type OverallStatus string

const (
	OverallValid   OverallStatus = "VALID"
	OverallInvalid OverallStatus = "INVALID"
	OverallWarning OverallStatus = "WARNING"
	OverallError   OverallStatus = "ERROR"
)

// Report is the outcome of one passive-authentication run.
type Report struct {
	VerificationID string
	Timestamp      time.Time
	LeafIdentity   string
	IssuingCountry string
	OverallStatus  OverallStatus
	Duration       time.Duration
	Steps          []StepResult
}

// DscRegistry is the step-8 capability: an idempotent upsert of a DSC
// into the local store. alreadyPresent reports whether the DSC already existed.
type DscRegistry interface {
	RegisterDsc(cert pkdcert.Certificate) (alreadyPresent bool, err error)
}

// VerifySOD runs the 8-step passive-authentication sequence against
// sodDER and the Data Groups the passport presents (keyed by DG number,
// raw bytes). logger may be nil.
func VerifySOD(
	sodDER []byte,
	dataGroups map[int][]byte,
	countryCode string,
	cscaProvider pkdchain.CscaProvider,
	crlProvider pkdcrl.Provider,
	registry DscRegistry,
	logger *logrus.Entry,
) Report {
	start := timeNow()
	report := Report{
		VerificationID: uuid.NewString(),
		Timestamp:      start,
		IssuingCountry: countryCode,
	}
	log := logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = logrus.NewEntry(discard)
	}
	log = log.WithField("verification_id", report.VerificationID)

	hardFailed := false
	var dsc pkdcert.Certificate
	var haveDsc bool
	var chainResult pkdchain.TrustChainResult
	var haveChain bool

	step := func(name string, status StepStatus, message string, detail interface{}) {
		report.Steps = append(report.Steps, StepResult{Name: name, Status: status, Message: message, Detail: detail})
		log.WithFields(logrus.Fields{"step": name, "status": status}).Debug(message)
	}

	// Step 1: Parse SOD.
	sod, err := pkdcms.ParseSod(sodDER)
	if err != nil {
		step("Parse SOD", StepFailed, err.Error(), nil)
		hardFailed = true
	} else {
		step("Parse SOD", StepOK, fmt.Sprintf("hashAlgorithm=%s, %d data group hashes", sod.HashAlgorithm, len(sod.DataGroupHashes)), sod.HashAlgorithm)
	}

	// Step 2: Extract DSC.
	if !hardFailed {
		if len(sod.EmbeddedCertificates) == 0 {
			step("Extract DSC", StepFailed, "SOD envelope carries no embedded certificates", nil)
			hardFailed = true
		} else {
			dsc = selectDsc(sod.EmbeddedCertificates)
			haveDsc = true
			report.LeafIdentity = dsc.SubjectString
			step("Extract DSC", StepOK, dsc.SubjectString, dsc.Fingerprint)
		}
	} else {
		step("Extract DSC", StepSkipped, "SOD parsing failed", nil)
	}

	// Step 3: Build trust chain.
	if haveDsc {
		chainResult = pkdchain.Build(dsc, cscaProvider, 0)
		haveChain = true
		if chainResult.Valid {
			step("Build trust chain", StepOK, chainResult.PathString, chainResult.PathString)
		} else {
			step("Build trust chain", StepFailed, chainResult.FailureReason, nil)
			hardFailed = true
		}
	} else {
		step("Build trust chain", StepSkipped, "no DSC extracted", nil)
	}

	// Step 4: Locate CSCA (chain-dependent; skipped on step 3 hard failure).
	if haveChain && chainResult.Valid {
		root := chainResult.Chain[len(chainResult.Chain)-1]
		step("Locate CSCA", StepOK, root.SubjectString, root.Fingerprint)
	} else {
		step("Locate CSCA", StepSkipped, "trust chain not available", nil)
	}

	// Step 5: Verify SOD signature.
	if !haveDsc {
		step("Verify SOD signature", StepSkipped, "no DSC extracted", nil)
	} else if sod.SignatureVerified {
		step("Verify SOD signature", StepOK, "CMS signed-attributes verification succeeded", nil)
	} else {
		step("Verify SOD signature", StepFailed, "CMS signed-attributes verification failed", nil)
		hardFailed = true
	}

	// Step 6: Verify DG hashes. Always runs over every presented DG, even
	// once an earlier step has already driven the report to INVALID.
	dgMismatch := false
	if sod.HashAlgorithm == "" {
		step("Verify DG hashes", StepSkipped, "no SOD hash data available", nil)
	} else {
		var mismatches []int
		for dgNum, presented := range dataGroups {
			expected, ok := sod.DataGroupHashes[dgNum]
			if !ok {
				mismatches = append(mismatches, dgNum)
				continue
			}
			if !bytes.Equal(hashWith(sod.HashAlgorithm, presented), expected) {
				mismatches = append(mismatches, dgNum)
			}
		}
		if len(mismatches) == 0 {
			step("Verify DG hashes", StepOK, fmt.Sprintf("%d data groups verified", len(dataGroups)), nil)
		} else {
			dgMismatch = true
			step("Verify DG hashes", StepFailed, fmt.Sprintf("hash mismatch for data groups %v", mismatches), mismatches)
		}
	}

	// Step 7: Check revocation. Always runs when a DSC was extracted.
	crlWarning := false
	if !haveDsc {
		step("Check revocation", StepSkipped, "no DSC extracted", nil)
	} else {
		crlResult := pkdcrl.Check(dsc, countryCode, crlProvider)
		switch crlResult.Status {
		case pkdcrl.StatusValid:
			step("Check revocation", StepOK, "not revoked", crlResult.Status)
		case pkdcrl.StatusRevoked:
			step("Check revocation", StepFailed, "revoked: "+crlResult.RevocationReason, crlResult)
			hardFailed = true
		case pkdcrl.StatusCrlUnavailable, pkdcrl.StatusNotChecked:
			crlWarning = true
			step("Check revocation", StepWarning, string(crlResult.Status), crlResult)
		case pkdcrl.StatusCrlExpired, pkdcrl.StatusCrlInvalid:
			crlWarning = true
			step("Check revocation", StepWarning, string(crlResult.Status), crlResult)
		}
	}

	// Step 8: Register DSC. Runs whenever a DSC was extracted, independent
	// of hard failures elsewhere in the sequence.
	if !haveDsc {
		step("Register DSC", StepSkipped, "no DSC extracted", nil)
	} else if registry == nil {
		step("Register DSC", StepSkipped, "no registry configured", nil)
	} else {
		alreadyPresent, err := registry.RegisterDsc(dsc)
		if err != nil {
			step("Register DSC", StepFailed, err.Error(), nil)
		} else if alreadyPresent {
			step("Register DSC", StepOK, "DSC already present", nil)
		} else {
			step("Register DSC", StepOK, "DSC registered", nil)
		}
	}

	cscaExpiredWarning := haveChain && chainResult.Valid && chainResult.CscaExpired

	switch {
	case hardFailed || dgMismatch:
		report.OverallStatus = OverallInvalid
	case crlWarning || cscaExpiredWarning:
		report.OverallStatus = OverallWarning
	default:
		report.OverallStatus = OverallValid
	}

	report.Duration = timeNow().Sub(start)
	return report
}

// selectDsc prefers a certificate already classified DSC or DSC_NC; falls
// back to the first embedded certificate otherwise.
func selectDsc(certs []pkdcert.Certificate) pkdcert.Certificate {
	for _, c := range certs {
		if c.Classification == pkdcert.ClassDSC || c.Classification == pkdcert.ClassDSCNC {
			return c
		}
	}
	return certs[0]
}

func hashWith(algorithmName string, data []byte) []byte {
	var h hash.Hash
	switch strings.ToUpper(algorithmName) {
	case "SHA-384":
		h = sha512.New384()
	case "SHA-512":
		h = sha512.New()
	default:
		h = sha256.New()
	}
	h.Write(data)
	return h.Sum(nil)
}

func timeNow() time.Time {
	return time.Now().UTC()
}
