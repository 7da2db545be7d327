// Package pkdcompliance implements the algorithm and extension
// compliance checks ICAO document signer and CSCA certificates are held
// to: classifying a certificate's signature algorithm against the
// ICAO-approved/deprecated sets, and validating that critical extensions
// and required key-usage bits are present for the certificate's role.
package pkdcompliance

import (
	"crypto/x509"
	"encoding/asn1"
	"fmt"

	"github.com/iland112/icao-pkd-core/internal/oid"
	"github.com/iland112/icao-pkd-core/pkg/pkdcert"
)

// Role is the certificate role validateExtensions checks against.
type Role string

const (
	RoleDSC  Role = "DSC"
	RoleCSCA Role = "CSCA"
	RoleMLSC Role = "MLSC"
)

// AlgorithmStatus is the outcome of validateAlgorithmCompliance.
type AlgorithmStatus string

const (
	AlgorithmApproved     AlgorithmStatus = "APPROVED"
	AlgorithmDeprecated   AlgorithmStatus = "DEPRECATED"
	AlgorithmNonCompliant AlgorithmStatus = "NON_COMPLIANT"
)

// AlgorithmComplianceResult is the outcome of validateAlgorithmCompliance.
type AlgorithmComplianceResult struct {
	Status   AlgorithmStatus
	Warnings []string
}

const minRSAKeySizeBits = 2048

func oidStringIn(set []asn1.ObjectIdentifier, oidStr string) bool {
	for _, id := range set {
		if id.String() == oidStr {
			return true
		}
	}
	return false
}

// ValidateAlgorithmCompliance classifies cert's signature algorithm
// against the ICAO-approved/deprecated/non-compliant sets and flags an
// undersized RSA key.
func ValidateAlgorithmCompliance(cert pkdcert.Certificate) AlgorithmComplianceResult {
	result := AlgorithmComplianceResult{Status: AlgorithmApproved}

	switch {
	case oidStringIn(oid.ApprovedSignatureAlgorithms, cert.SignatureAlgorithmOID):
		result.Status = AlgorithmApproved
	case oidStringIn(oid.DeprecatedSignatureAlgorithms, cert.SignatureAlgorithmOID):
		result.Status = AlgorithmDeprecated
		result.Warnings = append(result.Warnings, "SHA-1 algorithm is deprecated")
	default:
		result.Status = AlgorithmNonCompliant
		result.Warnings = append(result.Warnings, fmt.Sprintf("Unknown signature algorithm: %s", cert.SignatureAlgorithmOID))
	}

	if cert.PublicKeyAlgorithm == pkdcert.PubKeyRSA && cert.KeySizeBits > 0 && cert.KeySizeBits < minRSAKeySizeBits {
		result.Warnings = append(result.Warnings, fmt.Sprintf("RSA key size %d bits is below ICAO minimum of %d bits", cert.KeySizeBits, minRSAKeySizeBits))
	}

	return result
}

// ExtensionComplianceResult is the outcome of validateExtensions.
type ExtensionComplianceResult struct {
	Valid    bool
	Warnings []string
}

// ValidateExtensions checks cert's critical extensions against the
// ICAO-recognised allow-list and checks role-required key-usage bits.
func ValidateExtensions(cert pkdcert.Certificate, role Role) ExtensionComplianceResult {
	var warnings []string

	for _, ext := range cert.CriticalExtensionOIDs {
		if !oid.Contains(oid.ICAORecognizedCriticalExtensions, ext) {
			warnings = append(warnings, fmt.Sprintf("Unknown critical extension: %s", ext.String()))
		}
	}

	if role == RoleDSC && cert.HasKeyUsageExtension && cert.KeyUsage&x509.KeyUsageDigitalSignature == 0 {
		warnings = append(warnings, "DSC missing required digitalSignature key usage")
	}
	if role == RoleCSCA && cert.HasKeyUsageExtension && cert.KeyUsage&x509.KeyUsageCertSign == 0 {
		warnings = append(warnings, "CSCA missing required keyCertSign key usage")
	}

	return ExtensionComplianceResult{Valid: len(warnings) == 0, Warnings: warnings}
}
