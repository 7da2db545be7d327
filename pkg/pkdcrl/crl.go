// Package pkdcrl models X.509 Certificate Revocation Lists and implements
// the revocation checker a PKD node runs against a document signer
// certificate, recognising the full RFC 5280 §5.3.1 CRLReason table.
package pkdcrl

import (
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/iland112/icao-pkd-core/internal/oid"
	"github.com/iland112/icao-pkd-core/pkg/pkddn"
)

// RevokedEntry is one serial-number -> (revocationDate, reasonCode) pair
// from a CRL's revoked-entry set.
type RevokedEntry struct {
	SerialNumberHex string
	RevocationTime  time.Time
	ReasonCode      int
}

// CRL is a decoded X.509 CRL value.
type CRL struct {
	DER         []byte
	Fingerprint string

	IssuerString string
	CountryCode  string
	ThisUpdate   time.Time
	NextUpdate   time.Time

	Entries map[string]RevokedEntry // keyed by canonical serial hex

	// IsDeltaCRL recognises the delta-CRL indicator extension (RFC 5280
	// §5.2.4) without processing it; PKD nodes are full-CRL consumers and
	// should reject a delta CRL where a full CRL is required.
	IsDeltaCRL bool

	// IsPartitioned recognises the issuing distribution point extension
	// (RFC 5280 §5.2.5): a CRL issuer may split revocation data for one
	// country across several partial CRLs, each scoped by this extension.
	IsPartitioned bool

	// HasFreshestCRL recognises the freshest-CRL extension (RFC 5280
	// §5.2.6) pointing consumers at this CRL's delta.
	HasFreshestCRL bool
}

// ParseError reports a structurally invalid CRL.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "pkdcrl: " + e.Reason }

// ParsePEM decodes the first "X509 CRL" PEM block found in data.
func ParsePEM(data []byte) (CRL, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return CRL{}, &ParseError{Reason: "no X509 CRL PEM block found"}
		}
		if block.Type == "X509 CRL" {
			return ParseDER(block.Bytes)
		}
	}
}

// ParseDER decodes a raw DER-encoded CertificateList.
func ParseDER(der []byte) (CRL, error) {
	rl, err := x509.ParseRevocationList(der)
	if err != nil {
		return CRL{}, errors.Wrap(err, "pkdcrl: parsing CRL")
	}
	return FromX509(rl, der), nil
}

// FromX509 derives a CRL value from a parsed *x509.RevocationList.
func FromX509(rl *x509.RevocationList, der []byte) CRL {
	fp := computeFingerprint(der)

	entries := make(map[string]RevokedEntry, len(rl.RevokedCertificateEntries))
	for _, e := range rl.RevokedCertificateEntries {
		key := canonicalSerialHex(e.SerialNumber)
		entries[key] = RevokedEntry{
			SerialNumberHex: key,
			RevocationTime:  e.RevocationTime,
			ReasonCode:      e.ReasonCode,
		}
	}

	var name pkix.Name
	name.FillFromRDNSequence(rdnSequence(rl.RawIssuer))

	var countryCode string
	if len(name.Country) > 0 {
		countryCode = pkddn.NormalizeCountryCode(name.Country[0])
	}

	return CRL{
		DER:            der,
		Fingerprint:    fp,
		IssuerString:   name.String(),
		CountryCode:    countryCode,
		ThisUpdate:     rl.ThisUpdate,
		NextUpdate:     rl.NextUpdate,
		Entries:        entries,
		IsDeltaCRL:     hasExtension(rl.Extensions, oid.ExtDeltaCRLIndicator),
		IsPartitioned:  hasExtension(rl.Extensions, oid.ExtIssuingDistributionPoint),
		HasFreshestCRL: hasExtension(rl.Extensions, oid.ExtFreshestCRL),
	}
}

func rdnSequence(raw []byte) *pkix.RDNSequence {
	var rdns pkix.RDNSequence
	if _, err := asn1.Unmarshal(raw, &rdns); err != nil {
		return &pkix.RDNSequence{}
	}
	return &rdns
}

func hasExtension(exts []pkix.Extension, id asn1.ObjectIdentifier) bool {
	for _, e := range exts {
		if e.Id.Equal(id) {
			return true
		}
	}
	return false
}

// canonicalSerialHex renders a serial number as lowercase hex with leading
// zeros stripped, so the same serial always compares equal regardless of
// how its source encoded it.
func canonicalSerialHex(n *big.Int) string {
	return strings.ToLower(n.Text(16))
}

func computeFingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])
}

// IsExpired reports whether asOf is after the CRL's NextUpdate.
func IsExpired(c CRL, asOf time.Time) bool {
	return asOf.After(c.NextUpdate)
}

// Lookup finds a revoked entry by a certificate's canonical serial hex.
func Lookup(c CRL, serialNumberHex string) (RevokedEntry, bool) {
	entry, ok := c.Entries[strings.ToLower(serialNumberHex)]
	return entry, ok
}

// ReasonName maps an RFC 5280 §5.3.1 CRLReason code to its display name.
func ReasonName(code int) string {
	if name, ok := reasonNames[code]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", code)
}

var reasonNames = map[int]string{
	0:  "unspecified",
	1:  "keyCompromise",
	2:  "cACompromise",
	3:  "affiliationChanged",
	4:  "superseded",
	5:  "cessationOfOperation",
	6:  "certificateHold",
	8:  "removeFromCRL",
	9:  "privilegeWithdrawn",
	10: "aACompromise",
}
