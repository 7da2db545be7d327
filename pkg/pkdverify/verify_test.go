package pkdverify_test

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iland112/icao-pkd-core/internal/oid"
	"github.com/iland112/icao-pkd-core/pkg/pkdcert"
	"github.com/iland112/icao-pkd-core/pkg/pkdcrl"
	"github.com/iland112/icao-pkd-core/pkg/pkdverify"

	"encoding/asn1"
)

// Local mirrors of pkdcms's unexported CMS shapes, duplicated here since
// cms_test.go's fixture builders are not exported across packages.

type tContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,optional,tag:0"`
}

type tSignedData struct {
	Version          int                        `asn1:"default:1"`
	DigestAlgorithms []pkix.AlgorithmIdentifier `asn1:"set"`
	EContentInfo     tContentInfo
	Certificates     asn1.RawValue `asn1:"optional,tag:0"`
	SignerInfos      []tSignerInfo `asn1:"set"`
}

type tIssuerAndSerial struct {
	IssuerName   asn1.RawValue
	SerialNumber *big.Int
}

type tAttribute struct {
	Type  asn1.ObjectIdentifier
	Value asn1.RawValue `asn1:"set"`
}

type tSignerInfo struct {
	Version                   int `asn1:"default:1"`
	IssuerAndSerialNumber     tIssuerAndSerial
	DigestAlgorithm           pkix.AlgorithmIdentifier
	AuthenticatedAttributes   []tAttribute `asn1:"optional,tag:0"`
	DigestEncryptionAlgorithm pkix.AlgorithmIdentifier
	EncryptedDigest           []byte
}

type tDataGroupHash struct {
	DataGroupNumber    int
	DataGroupHashValue []byte
}

type tLdsSecurityObject struct {
	Version             int
	HashAlgorithm       pkix.AlgorithmIdentifier
	DataGroupHashValues []tDataGroupHash
}

var oidSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
var oidRSAEncryption = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := asn1.Marshal(v)
	require.NoError(t, err)
	return b
}

func marshalSortedAttrs(t *testing.T, attrs []tAttribute) []byte {
	t.Helper()
	var encoded [][]byte
	for _, a := range attrs {
		encoded = append(encoded, mustMarshal(t, struct {
			Type  asn1.ObjectIdentifier
			Value asn1.RawValue `asn1:"set"`
		}{Type: a.Type, Value: a.Value}))
	}
	sort.Slice(encoded, func(i, j int) bool { return string(encoded[i]) < string(encoded[j]) })
	var body []byte
	for _, e := range encoded {
		body = append(body, e...)
	}
	return mustMarshal(t, asn1.RawValue{Class: asn1.ClassUniversal, Tag: 17, IsCompound: true, Bytes: body})
}

func buildSignedSod(t *testing.T, eContent []byte, key *rsa.PrivateKey, cert *x509.Certificate) []byte {
	t.Helper()

	digest := sha256.Sum256(eContent)
	attrs := []tAttribute{
		{Type: oid.ContentType, Value: asn1.RawValue{Class: asn1.ClassUniversal, Tag: 17, IsCompound: true, Bytes: mustMarshal(t, oid.Data)}},
		{Type: oid.MessageDigest, Value: asn1.RawValue{Class: asn1.ClassUniversal, Tag: 17, IsCompound: true, Bytes: mustMarshal(t, digest[:])}},
	}
	signedAttrSetDER := marshalSortedAttrs(t, attrs)
	var rawSet asn1.RawValue
	_, err := asn1.Unmarshal(signedAttrSetDER, &rawSet)
	require.NoError(t, err)

	sigDigest := sha256.Sum256(rawSet.FullBytes)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, sigDigest[:])
	require.NoError(t, err)

	certsRaw := mustMarshal(t, asn1.RawValue{Class: asn1.ClassUniversal, Tag: 17, IsCompound: true, Bytes: cert.Raw})
	var certsField asn1.RawValue
	_, err = asn1.Unmarshal(certsRaw, &certsField)
	require.NoError(t, err)
	certsField.Class = asn1.ClassContextSpecific
	certsField.Tag = 0
	certsField.FullBytes = nil
	certsFieldDER, err := asn1.Marshal(certsField)
	require.NoError(t, err)
	var certsContextTagged asn1.RawValue
	_, err = asn1.Unmarshal(certsFieldDER, &certsContextTagged)
	require.NoError(t, err)

	sd := tSignedData{
		Version:          1,
		DigestAlgorithms: []pkix.AlgorithmIdentifier{{Algorithm: oidSHA256}},
		EContentInfo: tContentInfo{
			ContentType: oid.Data,
			Content:     asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: mustMarshal(t, eContent)},
		},
		Certificates: certsContextTagged,
		SignerInfos: []tSignerInfo{{
			Version:                   1,
			IssuerAndSerialNumber:     tIssuerAndSerial{IssuerName: asn1.RawValue{FullBytes: cert.RawIssuer}, SerialNumber: cert.SerialNumber},
			DigestAlgorithm:           pkix.AlgorithmIdentifier{Algorithm: oidSHA256},
			AuthenticatedAttributes:   attrs,
			DigestEncryptionAlgorithm: pkix.AlgorithmIdentifier{Algorithm: oidRSAEncryption},
			EncryptedDigest:           sig,
		}},
	}
	sdDER := mustMarshal(t, sd)
	outer := tContentInfo{ContentType: oid.SignedData, Content: asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: sdDER}}
	return mustMarshal(t, outer)
}

type fakeCscaProvider struct {
	byIssuer map[string][]pkdcert.Certificate
}

func (p *fakeCscaProvider) FindAllCscasByIssuerDn(dn string) ([]pkdcert.Certificate, error) {
	return p.byIssuer[dn], nil
}

type fakeCrlProvider struct{}

func (fakeCrlProvider) FindCrlByCountry(cc string) (pkdcrl.CRL, bool, error) {
	return pkdcrl.CRL{}, false, nil
}

type fakeRegistry struct {
	registered []pkdcert.Certificate
}

func (r *fakeRegistry) RegisterDsc(cert pkdcert.Certificate) (bool, error) {
	for _, c := range r.registered {
		if c.Fingerprint == cert.Fingerprint {
			return true, nil
		}
	}
	r.registered = append(r.registered, cert)
	return false, nil
}

func TestVerifySOD_HappyPath(t *testing.T) {
	rootKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	rootTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "KR CSCA Root", Country: []string{"KR"}},
		NotBefore:             time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:              time.Date(2040, 1, 1, 0, 0, 0, 0, time.UTC),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTmpl, rootTmpl, &rootKey.PublicKey, rootKey)
	require.NoError(t, err)
	rootX509, err := x509.ParseCertificate(rootDER)
	require.NoError(t, err)
	root := pkdcert.FromX509(rootX509)

	dscKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	dscTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "KR DSC 01", Country: []string{"KR"}},
		NotBefore:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	dscDER, err := x509.CreateCertificate(rand.Reader, dscTmpl, rootX509, &dscKey.PublicKey, rootKey)
	require.NoError(t, err)
	dscX509, err := x509.ParseCertificate(dscDER)
	require.NoError(t, err)

	dg1 := []byte("data group 1 contents")
	dg1Hash := sha256.Sum256(dg1)
	lds := tLdsSecurityObject{
		Version:             0,
		HashAlgorithm:       pkix.AlgorithmIdentifier{Algorithm: oidSHA256},
		DataGroupHashValues: []tDataGroupHash{{DataGroupNumber: 1, DataGroupHashValue: dg1Hash[:]}},
	}
	eContent := mustMarshal(t, lds)
	sodDER := buildSignedSod(t, eContent, dscKey, dscX509)

	provider := &fakeCscaProvider{byIssuer: map[string][]pkdcert.Certificate{root.SubjectString: {root}}}
	registry := &fakeRegistry{}

	report := pkdverify.VerifySOD(sodDER, map[int][]byte{1: dg1}, "KR", provider, fakeCrlProvider{}, registry, nil)

	require.Equal(t, pkdverify.OverallWarning, report.OverallStatus) // CRL unavailable in this fixture
	require.Len(t, registry.registered, 1)

	var names []string
	for _, s := range report.Steps {
		names = append(names, s.Name)
		require.NotEqual(t, pkdverify.StepFailed, s.Status, s.Name+": "+s.Message)
	}
	require.Contains(t, names, "Verify DG hashes")
}

func TestVerifySOD_DGMismatch(t *testing.T) {
	rootKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	rootTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "KR CSCA Root", Country: []string{"KR"}},
		NotBefore:             time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:              time.Date(2040, 1, 1, 0, 0, 0, 0, time.UTC),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTmpl, rootTmpl, &rootKey.PublicKey, rootKey)
	require.NoError(t, err)
	rootX509, err := x509.ParseCertificate(rootDER)
	require.NoError(t, err)
	root := pkdcert.FromX509(rootX509)

	dscKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	dscTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "KR DSC 01", Country: []string{"KR"}},
		NotBefore:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	dscDER, err := x509.CreateCertificate(rand.Reader, dscTmpl, rootX509, &dscKey.PublicKey, rootKey)
	require.NoError(t, err)
	dscX509, err := x509.ParseCertificate(dscDER)
	require.NoError(t, err)

	dg1Hash := sha256.Sum256([]byte("expected contents"))
	lds := tLdsSecurityObject{
		Version:             0,
		HashAlgorithm:       pkix.AlgorithmIdentifier{Algorithm: oidSHA256},
		DataGroupHashValues: []tDataGroupHash{{DataGroupNumber: 1, DataGroupHashValue: dg1Hash[:]}},
	}
	eContent := mustMarshal(t, lds)
	sodDER := buildSignedSod(t, eContent, dscKey, dscX509)

	provider := &fakeCscaProvider{byIssuer: map[string][]pkdcert.Certificate{root.SubjectString: {root}}}
	registry := &fakeRegistry{}

	report := pkdverify.VerifySOD(sodDER, map[int][]byte{1: []byte("tampered contents")}, "KR", provider, fakeCrlProvider{}, registry, nil)
	require.Equal(t, pkdverify.OverallInvalid, report.OverallStatus)
}
