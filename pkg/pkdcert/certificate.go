// Package pkdcert implements the X.509 parser, metadata extractor, and
// pure certificate operations this engine runs over ICAO document signer
// and CSCA certificates. Certificate is a value type: parsing allocates
// it once from DER bytes and every derived field is computed eagerly at
// parse time, so repeated reads are bit-identical and a Certificate can
// be freely copied and dropped without any backing native handle to
// release.
package pkdcert

import (
	"crypto/dsa" //nolint:staticcheck // DSA certificates still appear in legacy ICAO issuer chains.
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/hex"
	"encoding/pem"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/iland112/icao-pkd-core/internal/oid"
	"github.com/iland112/icao-pkd-core/pkg/pkddn"
	"github.com/iland112/icao-pkd-core/pkg/pkdformat"
)

// Classification is the role tag assigned to a parsed Certificate.
type Classification string

const (
	ClassCSCA      Classification = "CSCA"
	ClassDSC       Classification = "DSC"
	ClassDSCNC     Classification = "DSC_NC"
	ClassMLSC      Classification = "MLSC"
	ClassLinkCert  Classification = "LINK_CERT"
	ClassDLSigner  Classification = "DL_SIGNER"
	ClassUnknown   Classification = "UNKNOWN"
)

// PublicKeyAlgorithm is the coarse public-key-type tag.
type PublicKeyAlgorithm string

const (
	PubKeyRSA     PublicKeyAlgorithm = "RSA"
	PubKeyECDSA   PublicKeyAlgorithm = "ECDSA"
	PubKeyDSA     PublicKeyAlgorithm = "DSA"
	PubKeyEd25519 PublicKeyAlgorithm = "Ed25519"
	PubKeyOther   PublicKeyAlgorithm = "Other"
)

// Certificate is the in-memory decoded form of one X.509 certificate.
type Certificate struct {
	DER         []byte
	Fingerprint string // lowercase hex SHA-256 of DER, 64 chars

	SerialNumberHex string
	Version         int // 0|1|2 for v1/v2/v3

	Subject       pkddn.Components
	SubjectString string // canonical RFC-2253-derived string, pre-normalisation
	Issuer        pkddn.Components
	IssuerString  string

	NotBefore time.Time
	NotAfter  time.Time

	PublicKeyAlgorithm PublicKeyAlgorithm
	KeySizeBits         int
	Curve               string // EC curve name, empty otherwise

	SignatureAlgorithmOID  string
	SignatureAlgorithmName string
	HashAlgorithm          string

	KeyUsage          x509.KeyUsage
	ExtKeyUsageOIDs   []asn1.ObjectIdentifier
	IsCA              bool
	MaxPathLen        int
	MaxPathLenPresent bool

	SubjectKeyIdHex   string
	AuthorityKeyIdHex string

	CRLDistributionPoints []string
	OCSPServers           []string

	CriticalExtensionOIDs []asn1.ObjectIdentifier
	HasKeyUsageExtension  bool

	Classification Classification
	CountryCode    string
	SelfSigned     bool
}

// ParseError reports that input bytes could not be decoded, carrying a
// byte-offset hint.
type ParseError struct {
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return "pkdcert: parse error at offset " + strconv.Itoa(e.Offset) + ": " + e.Reason
}

// FromX509 builds a Certificate value from an already-parsed *x509.Certificate,
// computing every derived field eagerly.
func FromX509(cert *x509.Certificate) Certificate {
	fingerprint := sha256.Sum256(cert.Raw)

	c := Certificate{
		DER:             append([]byte(nil), cert.Raw...),
		Fingerprint:     hex.EncodeToString(fingerprint[:]),
		SerialNumberHex: strings.ToLower(cert.SerialNumber.Text(16)),
		Version:         cert.Version - 1,
		Subject:         pkddn.ExtractComponents(cert.Subject),
		SubjectString:   cert.Subject.String(),
		Issuer:          pkddn.ExtractComponents(cert.Issuer),
		IssuerString:    cert.Issuer.String(),
		NotBefore:       cert.NotBefore,
		NotAfter:        cert.NotAfter,
		KeyUsage:        cert.KeyUsage,
		IsCA:            cert.IsCA,
		MaxPathLen:        cert.MaxPathLen,
		MaxPathLenPresent: cert.MaxPathLenZero || cert.MaxPathLen > 0,

		SubjectKeyIdHex:       hex.EncodeToString(cert.SubjectKeyId),
		AuthorityKeyIdHex:     hex.EncodeToString(cert.AuthorityKeyId),
		CRLDistributionPoints: append([]string(nil), cert.CRLDistributionPoints...),
		OCSPServers:           append([]string(nil), cert.OCSPServer...),
	}

	c.PublicKeyAlgorithm, c.KeySizeBits, c.Curve = classifyPublicKey(cert.PublicKey)
	c.SignatureAlgorithmOID, c.SignatureAlgorithmName, c.HashAlgorithm = classifySignatureAlgorithm(cert)
	c.ExtKeyUsageOIDs = extKeyUsageOIDs(cert)
	c.CriticalExtensionOIDs = criticalExtensionOIDs(cert)
	c.HasKeyUsageExtension = hasExplicitKeyUsageExtension(cert)

	c.SelfSigned = pkddn.NormalizeDnForComparison(c.SubjectString) == pkddn.NormalizeDnForComparison(c.IssuerString)
	c.CountryCode = pkddn.NormalizeCountryCode(c.Subject.Country)
	c.Classification = classify(c, cert)

	return c
}

func classifyPublicKey(pub interface{}) (PublicKeyAlgorithm, int, string) {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return PubKeyRSA, k.N.BitLen(), ""
	case *ecdsa.PublicKey:
		return PubKeyECDSA, k.Curve.Params().BitSize, k.Curve.Params().Name
	case *dsa.PublicKey:
		return PubKeyDSA, k.P.BitLen(), ""
	case ed25519.PublicKey:
		return PubKeyEd25519, 256, ""
	default:
		return PubKeyOther, 0, ""
	}
}

// signatureAlgorithmOIDs maps Go's x509.SignatureAlgorithm enum back to its
// ASN.1 OID; the stdlib does not expose this mapping, so it is built here
// from RFC 3279/4055/5758/8410's well-known algorithm OIDs.
var signatureAlgorithmOIDs = map[x509.SignatureAlgorithm]asn1.ObjectIdentifier{
	x509.SHA1WithRSA:        oid.SHA1WithRSA,
	x509.SHA256WithRSA:      oid.SHA256WithRSA,
	x509.SHA384WithRSA:      oid.SHA384WithRSA,
	x509.SHA512WithRSA:      oid.SHA512WithRSA,
	x509.SHA256WithRSAPSS:   oid.RSASSAPSS,
	x509.SHA384WithRSAPSS:   oid.RSASSAPSS,
	x509.SHA512WithRSAPSS:   oid.RSASSAPSS,
	x509.ECDSAWithSHA1:      oid.ECDSAWithSHA1,
	x509.ECDSAWithSHA256:    oid.ECDSAWithSHA256,
	x509.ECDSAWithSHA384:    oid.ECDSAWithSHA384,
	x509.ECDSAWithSHA512:    oid.ECDSAWithSHA512,
}

func classifySignatureAlgorithm(cert *x509.Certificate) (oidStr, name, hashName string) {
	algOID, ok := signatureAlgorithmOIDs[cert.SignatureAlgorithm]
	if ok {
		oidStr = algOID.String()
	}
	name = cert.SignatureAlgorithm.String()
	switch cert.SignatureAlgorithm {
	case x509.SHA1WithRSA, x509.ECDSAWithSHA1, x509.DSAWithSHA1:
		hashName = "SHA-1"
	case x509.SHA256WithRSA, x509.ECDSAWithSHA256, x509.DSAWithSHA256, x509.SHA256WithRSAPSS:
		hashName = "SHA-256"
	case x509.SHA384WithRSA, x509.ECDSAWithSHA384, x509.SHA384WithRSAPSS:
		hashName = "SHA-384"
	case x509.SHA512WithRSA, x509.ECDSAWithSHA512, x509.SHA512WithRSAPSS:
		hashName = "SHA-512"
	case x509.PureEd25519:
		hashName = "SHA-512" // Ed25519 uses SHA-512 internally, no separate hash OID
	default:
		hashName = "Unknown"
	}
	return oidStr, name, hashName
}

// ekuReverseMap covers the extended key usages Go's x509 package
// recognises, so ExtKeyUsageOIDs carries the OID form for both known and
// unknown EKUs uniformly.
var ekuReverseMap = map[x509.ExtKeyUsage]asn1.ObjectIdentifier{
	x509.ExtKeyUsageServerAuth:      {1, 3, 6, 1, 5, 5, 7, 3, 1},
	x509.ExtKeyUsageClientAuth:      {1, 3, 6, 1, 5, 5, 7, 3, 2},
	x509.ExtKeyUsageCodeSigning:     {1, 3, 6, 1, 5, 5, 7, 3, 3},
	x509.ExtKeyUsageEmailProtection: {1, 3, 6, 1, 5, 5, 7, 3, 4},
	x509.ExtKeyUsageTimeStamping:    {1, 3, 6, 1, 5, 5, 7, 3, 8},
	x509.ExtKeyUsageOCSPSigning:     {1, 3, 6, 1, 5, 5, 7, 3, 9},
	x509.ExtKeyUsageAny:             {2, 5, 29, 37, 0},
}

func extKeyUsageOIDs(cert *x509.Certificate) []asn1.ObjectIdentifier {
	var out []asn1.ObjectIdentifier
	for _, eku := range cert.ExtKeyUsage {
		if known, ok := ekuReverseMap[eku]; ok {
			out = append(out, known)
		}
	}
	out = append(out, cert.UnknownExtKeyUsage...)
	return out
}

func hasEKU(c Certificate, target asn1.ObjectIdentifier) bool {
	for _, candidate := range c.ExtKeyUsageOIDs {
		if candidate.Equal(target) {
			return true
		}
	}
	return false
}

// classify derives a Certificate's role from its basic constraints, key
// usage, and extended key usage.
func classify(c Certificate, cert *x509.Certificate) Classification {
	hasKeyUsage := cert.KeyUsage != 0 || hasExplicitKeyUsageExtension(cert)

	switch {
	case hasEKU(c, oid.MLSCExtKeyUsage):
		return ClassMLSC
	case hasEKU(c, oid.DLSignerExtKeyUsage):
		return ClassDLSigner
	case c.IsCA && hasKeyUsage && c.KeyUsage&x509.KeyUsageCertSign != 0:
		if c.SelfSigned {
			return ClassCSCA
		}
		return ClassLinkCert
	case !c.IsCA && hasKeyUsage && c.KeyUsage&x509.KeyUsageDigitalSignature != 0:
		return ClassDSC
	default:
		return ClassUnknown
	}
}

// hasExplicitKeyUsageExtension reports whether the keyUsage extension is
// present at all, distinguishing "absent" from "present with zero bits"
// for classification purposes; Go's x509.Certificate.KeyUsage is 0 in
// both cases.
func hasExplicitKeyUsageExtension(cert *x509.Certificate) bool {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(oid.ExtKeyUsage) {
			return true
		}
	}
	return false
}

// criticalExtensionOIDs collects the OIDs of every extension marked
// critical, for the extension-compliance check.
func criticalExtensionOIDs(cert *x509.Certificate) []asn1.ObjectIdentifier {
	var out []asn1.ObjectIdentifier
	for _, ext := range cert.Extensions {
		if ext.Critical {
			out = append(out, ext.Id)
		}
	}
	return out
}

// ParsePEM decodes one or more PEM CERTIFICATE blocks in file order,
// skipping other PEM block types. Fails only when no CERTIFICATE block
// decodes.
func ParsePEM(data []byte) ([]Certificate, error) {
	var certs []Certificate
	rest := data
	offset := 0
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		consumed := len(data) - len(rest) - len(block.Bytes)
		if block.Type != "CERTIFICATE" {
			offset = consumed
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, errors.Wrapf(&ParseError{Offset: offset, Reason: err.Error()}, "pkdcert: ParsePEM")
		}
		certs = append(certs, FromX509(cert))
	}
	if len(certs) == 0 {
		return nil, &ParseError{Offset: 0, Reason: "no CERTIFICATE block decoded"}
	}
	return certs, nil
}

// ParseAuto detects data's format via pkg/pkdformat and dispatches to
// ParsePEM or ParseDER, returning the first decoded certificate. Used by
// callers that receive an arbitrary file without knowing its encoding in
// advance.
func ParseAuto(filenameHint string, data []byte) (Certificate, error) {
	switch pkdformat.DetectFormat(filenameHint, data) {
	case pkdformat.PEM:
		certs, err := ParsePEM(data)
		if err != nil {
			return Certificate{}, err
		}
		return certs[0], nil
	case pkdformat.DER, pkdformat.CER, pkdformat.BIN, pkdformat.UNKNOWN:
		return ParseDER(data)
	default:
		return Certificate{}, &ParseError{Offset: 0, Reason: "input is not a bare certificate (CMS/CRL/LDIF container)"}
	}
}

// ParseDER decodes exactly one certificate from DER bytes. Trailing bytes
// that are not whitespace are a failure.
func ParseDER(data []byte) (Certificate, error) {
	// x509.ParseCertificate rejects any trailing data, so the certificate's
	// own TLV is split off first and only the remainder is checked.
	var raw asn1.RawValue
	trailing, err := asn1.Unmarshal(data, &raw)
	if err != nil {
		return Certificate{}, errors.Wrapf(&ParseError{Offset: 0, Reason: err.Error()}, "pkdcert: ParseDER")
	}
	if len(strings.TrimSpace(string(trailing))) != 0 {
		return Certificate{}, &ParseError{Offset: len(raw.FullBytes), Reason: "trailing non-whitespace bytes after certificate"}
	}
	cert, err := x509.ParseCertificate(raw.FullBytes)
	if err != nil {
		return Certificate{}, errors.Wrapf(&ParseError{Offset: 0, Reason: err.Error()}, "pkdcert: ParseDER")
	}
	return FromX509(cert), nil
}

// ToPEM round-trips a Certificate back to PEM (RFC 7468): a CERTIFICATE
// block with 64-character base64 lines and a trailing newline, exactly
// what encoding/pem already produces.
func ToPEM(c Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.DER})
}

// ToDER returns the canonical DER bytes backing c.
func ToDER(c Certificate) []byte {
	return append([]byte(nil), c.DER...)
}

// ComputeFingerprint returns the lowercase hex SHA-256 of c's DER bytes.
// A pure function of DER bytes.
func ComputeFingerprint(c Certificate) string {
	sum := sha256.Sum256(c.DER)
	return hex.EncodeToString(sum[:])
}

// ValidateStructure reports whether c has the minimum fields a usable
// certificate requires: a non-empty subject DN, non-empty issuer DN, a
// serial number, and a validity period.
func ValidateStructure(c Certificate) bool {
	if c.SubjectString == "" || c.IssuerString == "" {
		return false
	}
	if c.SerialNumberHex == "" {
		return false
	}
	if c.NotBefore.IsZero() || c.NotAfter.IsZero() {
		return false
	}
	return true
}
