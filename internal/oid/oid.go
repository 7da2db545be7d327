// Package oid collects the ASN.1 object identifiers this engine needs to
// recognise: ICAO Doc 9303 content and extended-key-usage OIDs, PKCS#7/CMS
// structural OIDs, and the RFC 5280 extension and signature-algorithm OIDs
// referenced by the compliance checks in pkg/pkdcompliance.
package oid

import "encoding/asn1"

// ICAO Doc 9303 Part 12 content types and extended key usages.
var (
	MasterListContentType    = asn1.ObjectIdentifier{2, 23, 136, 1, 1, 2}
	DeviationListContentType = asn1.ObjectIdentifier{2, 23, 136, 1, 1, 7}

	MLSCExtKeyUsage     = asn1.ObjectIdentifier{2, 23, 136, 1, 1, 1}
	DLSignerExtKeyUsage = asn1.ObjectIdentifier{2, 23, 136, 1, 1, 10}

	// Deviation defect category sub-arcs.
	DeviationCertOrKeyArc = asn1.ObjectIdentifier{2, 23, 136, 1, 1, 7, 1, 1}
	DeviationLDSArc       = asn1.ObjectIdentifier{2, 23, 136, 1, 1, 7, 1, 2}
	DeviationMRZArc       = asn1.ObjectIdentifier{2, 23, 136, 1, 1, 7, 1, 3}
	DeviationChipArc      = asn1.ObjectIdentifier{2, 23, 136, 1, 1, 7, 1, 4}
)

// PKCS#7 / CMS (RFC 5652) structural OIDs.
var (
	SignedData      = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
	Data            = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	ContentType     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	MessageDigest   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
	SigningTime     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 5}
)

// RFC 5280 extension OIDs recognised for the ICAO critical-extension
// allow-list.
var (
	ExtBasicConstraints     = asn1.ObjectIdentifier{2, 5, 29, 19}
	ExtKeyUsage             = asn1.ObjectIdentifier{2, 5, 29, 15}
	ExtCertificatePolicies  = asn1.ObjectIdentifier{2, 5, 29, 32}
	ExtSubjectKeyId         = asn1.ObjectIdentifier{2, 5, 29, 14}
	ExtAuthorityKeyId       = asn1.ObjectIdentifier{2, 5, 29, 35}
	ExtNameConstraints      = asn1.ObjectIdentifier{2, 5, 29, 30}
	ExtPolicyConstraints    = asn1.ObjectIdentifier{2, 5, 29, 36}
	ExtInhibitAnyPolicy     = asn1.ObjectIdentifier{2, 5, 29, 54}
	ExtSubjectAltName       = asn1.ObjectIdentifier{2, 5, 29, 17}
	ExtIssuerAltName        = asn1.ObjectIdentifier{2, 5, 29, 18}
	ExtCRLDistributionPoint = asn1.ObjectIdentifier{2, 5, 29, 31}
	ExtExtKeyUsage          = asn1.ObjectIdentifier{2, 5, 29, 37}

	// CRL entry/CRL extensions. ExtCRLReasonCode is not walked directly;
	// crypto/x509 already decodes the reasonCode CRL entry extension into
	// RevocationListEntry.ReasonCode, which pkdcrl reads from there.
	ExtCRLReasonCode            = asn1.ObjectIdentifier{2, 5, 29, 21}
	ExtIssuingDistributionPoint = asn1.ObjectIdentifier{2, 5, 29, 28}
	ExtDeltaCRLIndicator        = asn1.ObjectIdentifier{2, 5, 29, 27}
	ExtFreshestCRL              = asn1.ObjectIdentifier{2, 5, 29, 46}
)

// ICAORecognizedCriticalExtensions is the closed allow-list for critical
// extensions on ICAO-scoped certificates.
var ICAORecognizedCriticalExtensions = []asn1.ObjectIdentifier{
	ExtBasicConstraints,
	ExtKeyUsage,
	ExtCertificatePolicies,
	ExtSubjectKeyId,
	ExtAuthorityKeyId,
	ExtNameConstraints,
	ExtPolicyConstraints,
	ExtInhibitAnyPolicy,
	ExtSubjectAltName,
	ExtIssuerAltName,
	ExtCRLDistributionPoint,
	ExtExtKeyUsage,
}

// Signature algorithm OIDs for the approved/deprecated tables below.
var (
	SHA256WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	SHA384WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}
	SHA512WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}
	RSASSAPSS       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 10}
	ECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	ECDSAWithSHA384 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	ECDSAWithSHA512 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}
	SHA1WithRSA     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5}
	ECDSAWithSHA1   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 1}
)

// ApprovedSignatureAlgorithms carries no compliance warning.
var ApprovedSignatureAlgorithms = []asn1.ObjectIdentifier{
	SHA256WithRSA, SHA384WithRSA, SHA512WithRSA, RSASSAPSS,
	ECDSAWithSHA256, ECDSAWithSHA384, ECDSAWithSHA512,
}

// DeprecatedSignatureAlgorithms are compliant but warn.
var DeprecatedSignatureAlgorithms = []asn1.ObjectIdentifier{
	SHA1WithRSA, ECDSAWithSHA1,
}

// Contains reports whether oid appears in set.
func Contains(set []asn1.ObjectIdentifier, id asn1.ObjectIdentifier) bool {
	for _, candidate := range set {
		if candidate.Equal(id) {
			return true
		}
	}
	return false
}
