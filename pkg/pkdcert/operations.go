package pkdcert

import (
	"crypto/x509"
	"time"

	"github.com/pkg/errors"

	"github.com/iland112/icao-pkd-core/pkg/pkddn"
)

// VerifySignature reports whether child's signature verifies against
// parent's public key. Both sides are re-parsed from their stored DER
// bytes so this stays a pure function of the two Certificate values,
// with no cached native handle to go stale.
func VerifySignature(child, parent Certificate) (bool, error) {
	childX509, err := x509.ParseCertificate(child.DER)
	if err != nil {
		return false, errors.Wrap(err, "pkdcert: VerifySignature: re-parsing child")
	}
	parentX509, err := x509.ParseCertificate(parent.DER)
	if err != nil {
		return false, errors.Wrap(err, "pkdcert: VerifySignature: re-parsing parent")
	}
	if err := childX509.CheckSignatureFrom(parentX509); err != nil {
		return false, nil
	}
	return true, nil
}

// IsExpired reports whether asOf is after c's NotAfter. Expiration is
// treated as informational by this engine, never a hard trust failure.
func IsExpired(c Certificate, asOf time.Time) bool {
	return asOf.After(c.NotAfter)
}

// IsNotYetValid reports whether asOf precedes c's NotBefore.
func IsNotYetValid(c Certificate, asOf time.Time) bool {
	return asOf.Before(c.NotBefore)
}

// IsSelfSigned reports whether c's subject and issuer DNs compare equal
// under DN normalisation. Equivalent to reading c.SelfSigned, exposed as
// a function for parity with the other certificate operations.
func IsSelfSigned(c Certificate) bool {
	return pkddn.NormalizeDnForComparison(c.SubjectString) == pkddn.NormalizeDnForComparison(c.IssuerString)
}

// IsLinkCertificate reports whether c is classified as a CSCA link
// certificate (a CA certificate that is not self-signed).
func IsLinkCertificate(c Certificate) bool {
	return c.Classification == ClassLinkCert
}

// GetSubjectDn returns c's subject DN in RFC 2253 form.
func GetSubjectDn(c Certificate) string {
	return c.SubjectString
}

// GetIssuerDn returns c's issuer DN in RFC 2253 form.
func GetIssuerDn(c Certificate) string {
	return c.IssuerString
}

// GetCertificateFingerprint returns c's precomputed SHA-256 fingerprint.
func GetCertificateFingerprint(c Certificate) string {
	return c.Fingerprint
}

// Reclassify returns a copy of c with its Classification replaced. Used by
// ingestion when a Deviation List entry demotes a DSC to DSC_NC; the
// extractor itself never assigns DSC_NC directly.
func Reclassify(c Certificate, tag Classification) Certificate {
	c.Classification = tag
	return c
}
