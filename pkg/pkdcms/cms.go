// Package pkdcms implements a CMS SignedData extractor: parsing ICAO
// Master List and Deviation List envelopes and generic PKCS #7 bundles,
// and verifying the envelope signature over the RFC 5652 §5.4
// signed-attributes digest path when signed attributes are present. The
// ASN.1 structures here (contentInfo/signedData/signerInfo/attribute)
// follow RFC 5652's PKCS7 SignedData shape, extended with the ICAO
// eContentType OIDs this engine cares about.
package pkdcms

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/cryptobyte"
	casn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/iland112/icao-pkd-core/internal/oid"
	"github.com/iland112/icao-pkd-core/pkg/pkdcert"
)

// WrongContentTypeError reports that an envelope's eContentType did not
// match the OID the caller asserted.
type WrongContentTypeError struct {
	Expected asn1.ObjectIdentifier
	Actual   asn1.ObjectIdentifier
}

func (e *WrongContentTypeError) Error() string {
	return "pkdcms: expected eContentType " + e.Expected.String() + ", got " + e.Actual.String()
}

// ParseError reports malformed ASN.1 input.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "pkdcms: parse error: " + e.Reason
}

type contentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,optional,tag:0"`
}

type signedData struct {
	Version          int                        `asn1:"default:1"`
	DigestAlgorithms []pkix.AlgorithmIdentifier `asn1:"set"`
	EContentInfo     contentInfo
	Certificates     rawCertificates `asn1:"optional,tag:0"`
	CRLs             []asn1.RawValue `asn1:"optional,tag:1"`
	SignerInfos      []signerInfo    `asn1:"set"`
}

type rawCertificates struct {
	Raw asn1.RawContent
}

func (raw rawCertificates) parse() ([]*x509.Certificate, error) {
	if len(raw.Raw) == 0 {
		return nil, nil
	}
	var val asn1.RawValue
	if _, err := asn1.Unmarshal(raw.Raw, &val); err != nil {
		return nil, err
	}
	return x509.ParseCertificates(val.Bytes)
}

type attribute struct {
	Type  asn1.ObjectIdentifier
	Value asn1.RawValue `asn1:"set"`
}

type issuerAndSerial struct {
	IssuerName   asn1.RawValue
	SerialNumber *big.Int
}

type signerInfo struct {
	Version                   int `asn1:"default:1"`
	IssuerAndSerialNumber     issuerAndSerial
	DigestAlgorithm           pkix.AlgorithmIdentifier
	AuthenticatedAttributes   []attribute `asn1:"optional,tag:0"`
	DigestEncryptionAlgorithm pkix.AlgorithmIdentifier
	EncryptedDigest           []byte
	UnauthenticatedAttributes []attribute `asn1:"optional,tag:1"`
}

// Envelope is a parsed CMS SignedData's generic shape: content type,
// algorithms, signer, embedded certificates, and verification outcome.
type Envelope struct {
	EContentType         asn1.ObjectIdentifier
	DigestAlgorithm      string
	SignatureAlgorithm   string
	SignerCertificate    pkdcert.Certificate
	SigningTime          time.Time
	EmbeddedCertificates []pkdcert.Certificate
	SignatureVerified    bool
	EContent             []byte
}

// parse decodes der as a PKCS#7/CMS ContentInfo wrapping SignedData and
// verifies the first signer's signature, following the RFC 5652 §5.4
// signed-attributes digest path when signed attributes are present.
func parse(der []byte) (Envelope, error) {
	var outer contentInfo
	if _, err := asn1.Unmarshal(der, &outer); err != nil {
		return Envelope{}, errors.Wrap(&ParseError{Reason: err.Error()}, "pkdcms: outer ContentInfo")
	}
	if !outer.ContentType.Equal(oid.SignedData) {
		return Envelope{}, &WrongContentTypeError{Expected: oid.SignedData, Actual: outer.ContentType}
	}

	var sd signedData
	if _, err := asn1.Unmarshal(outer.Content.Bytes, &sd); err != nil {
		return Envelope{}, errors.Wrap(&ParseError{Reason: err.Error()}, "pkdcms: SignedData")
	}

	embeddedX509, err := sd.Certificates.parse()
	if err != nil {
		return Envelope{}, errors.Wrap(&ParseError{Reason: err.Error()}, "pkdcms: embedded certificates")
	}
	embedded := make([]pkdcert.Certificate, 0, len(embeddedX509))
	for _, x := range embeddedX509 {
		embedded = append(embedded, pkdcert.FromX509(x))
	}

	// sd.EContentInfo.Content, decoded through an explicit [0] tag into a
	// RawValue, holds the complete inner OCTET STRING TLV (tag+length+
	// content), not the bare content bytes; unmarshal once more to peel
	// off that OCTET STRING header.
	var eContent []byte
	if len(sd.EContentInfo.Content.Bytes) > 0 {
		if _, err := asn1.Unmarshal(sd.EContentInfo.Content.Bytes, &eContent); err != nil {
			return Envelope{}, errors.Wrap(&ParseError{Reason: err.Error()}, "pkdcms: eContent")
		}
	}

	env := Envelope{
		EContentType:         sd.EContentInfo.ContentType,
		EContent:             eContent,
		EmbeddedCertificates: embedded,
	}

	if len(sd.SignerInfos) == 0 {
		return env, nil
	}
	signer := sd.SignerInfos[0]
	env.DigestAlgorithm = digestAlgorithmName(signer.DigestAlgorithm.Algorithm)
	env.SignatureAlgorithm = signer.DigestEncryptionAlgorithm.Algorithm.String()

	if t, ok := findSigningTime(signer.AuthenticatedAttributes); ok {
		env.SigningTime = t
	}

	signerCert := findSignerCertificate(embeddedX509, signer.IssuerAndSerialNumber)
	if signerCert != nil {
		env.SignerCertificate = pkdcert.FromX509(signerCert)
	}

	env.SignatureVerified = verifySignerInfo(signer, env.EContent, signerCert)
	return env, nil
}

func digestAlgorithmName(algOID asn1.ObjectIdentifier) string {
	switch {
	case algOID.Equal(asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}):
		return "SHA-256"
	case algOID.Equal(asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}):
		return "SHA-384"
	case algOID.Equal(asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}):
		return "SHA-512"
	case algOID.Equal(asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}):
		return "SHA-1"
	default:
		return algOID.String()
	}
}

func cryptoHashFor(name string) (crypto.Hash, bool) {
	switch name {
	case "SHA-256":
		return crypto.SHA256, true
	case "SHA-384":
		return crypto.SHA384, true
	case "SHA-512":
		return crypto.SHA512, true
	case "SHA-1":
		return crypto.SHA1, true
	default:
		return 0, false
	}
}

func findSigningTime(attrs []attribute) (time.Time, bool) {
	for _, a := range attrs {
		if !a.Type.Equal(oid.SigningTime) {
			continue
		}
		var t time.Time
		if _, err := asn1.Unmarshal(a.Value.Bytes, &t); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func findMessageDigest(attrs []attribute) ([]byte, bool) {
	for _, a := range attrs {
		if !a.Type.Equal(oid.MessageDigest) {
			continue
		}
		var digest []byte
		if _, err := asn1.Unmarshal(a.Value.Bytes, &digest); err == nil {
			return digest, true
		}
	}
	return nil, false
}

func findSignerCertificate(certs []*x509.Certificate, ref issuerAndSerial) *x509.Certificate {
	for _, c := range certs {
		if c.SerialNumber.Cmp(ref.SerialNumber) == 0 && bytes.Equal(c.RawIssuer, ref.IssuerName.FullBytes) {
			return c
		}
	}
	// issuerName stored as a RawValue whose FullBytes includes its own
	// tag/length, matching RawIssuer's encoding; some encoders instead
	// store just the Bytes, so fall back to a serial-only match when
	// exactly one candidate has the given serial.
	var bySerial []*x509.Certificate
	for _, c := range certs {
		if c.SerialNumber.Cmp(ref.SerialNumber) == 0 {
			bySerial = append(bySerial, c)
		}
	}
	if len(bySerial) == 1 {
		return bySerial[0]
	}
	return nil
}

// verifySignerInfo verifies signer's EncryptedDigest, taking the RFC 5652
// §5.4 signed-attributes path when AuthenticatedAttributes is present: the
// signature covers a DER re-encoding of that attribute set as a SET OF
// Attribute, not the eContent directly. Any failure (missing cert, hash
// mismatch, signature mismatch) yields false rather than propagating an
// error: callers see SignatureVerified=false, not a parse failure.
func verifySignerInfo(signer signerInfo, eContent []byte, cert *x509.Certificate) bool {
	if cert == nil {
		return false
	}
	hashAlg, ok := cryptoHashFor(digestAlgorithmName(signer.DigestAlgorithm.Algorithm))
	if !ok {
		return false
	}

	var signedBytes []byte
	if len(signer.AuthenticatedAttributes) > 0 {
		digest, ok := findMessageDigest(signer.AuthenticatedAttributes)
		if !ok {
			return false
		}
		h := hashAlg.New()
		h.Write(eContent)
		if !bytes.Equal(h.Sum(nil), digest) {
			return false
		}
		attrSetDER, err := marshalAttributeSet(signer.AuthenticatedAttributes)
		if err != nil {
			return false
		}
		signedBytes = attrSetDER
	} else {
		signedBytes = eContent
	}

	h := hashAlg.New()
	h.Write(signedBytes)
	digest := h.Sum(nil)

	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(pub, hashAlg, digest, signer.EncryptedDigest); err != nil {
			return false
		}
		return true
	case *ecdsa.PublicKey:
		return ecdsa.VerifyASN1(pub, digest, signer.EncryptedDigest)
	default:
		return false
	}
}

// marshalAttributeSet re-encodes attrs as a DER SET OF Attribute, sorted
// by encoded value per X.690's DER SET-OF ordering rule, reproducing the
// bytes the signer actually signed (RFC 5652 §5.4). The re-tagging itself
// (wrapping each Type/Value pair back into its SEQUENCE/SET shape) is
// built with cryptobyte's Builder rather than encoding/asn1.Marshal, so
// that re-sorting the already-decoded attributes doesn't require
// re-deriving their original DER encoding by hand; only the OID leaf
// itself is encoded with encoding/asn1, which already does that
// correctly.
func marshalAttributeSet(attrs []attribute) ([]byte, error) {
	items := make([][]byte, 0, len(attrs))
	for _, a := range attrs {
		typeDER, err := asn1.Marshal(a.Type)
		if err != nil {
			return nil, err
		}
		var b cryptobyte.Builder
		b.AddASN1(casn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddBytes(typeDER)
			b.AddASN1(casn1.SET, func(b *cryptobyte.Builder) {
				b.AddBytes(a.Value.Bytes)
			})
		})
		der, err := b.Bytes()
		if err != nil {
			return nil, err
		}
		items = append(items, der)
	}
	sort.Slice(items, func(i, j int) bool {
		return bytes.Compare(items[i], items[j]) < 0
	})

	var outer cryptobyte.Builder
	outer.AddASN1(casn1.SET, func(b *cryptobyte.Builder) {
		for _, it := range items {
			b.AddBytes(it)
		}
	})
	return outer.Bytes()
}

// ParseP7B parses a generic PKCS#7 SignedData bundle with no content-OID
// assertion, extracting the embedded certificate set.
func ParseP7B(der []byte) (Envelope, error) {
	return parse(der)
}

// ExtractCertificatesFromSod decodes a passport SOD's SignedData structure
// and returns the DSC(s) embedded in its certificates field.
func ExtractCertificatesFromSod(der []byte) ([]pkdcert.Certificate, error) {
	env, err := parse(der)
	if err != nil {
		return nil, err
	}
	return env.EmbeddedCertificates, nil
}
