package pkdcompliance_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iland112/icao-pkd-core/pkg/pkdcert"
	"github.com/iland112/icao-pkd-core/pkg/pkdcompliance"
)

func selfSignedRSA(t *testing.T, bits int, sigAlg x509.SignatureAlgorithm) pkdcert.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, bits)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "KR CSCA", Country: []string{"KR"}},
		NotBefore:             time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:              time.Date(2035, 1, 1, 0, 0, 0, 0, time.UTC),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		IsCA:                  true,
		BasicConstraintsValid: true,
		SignatureAlgorithm:    sigAlg,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	parsed, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return pkdcert.FromX509(parsed)
}

func TestValidateAlgorithmCompliance_Approved(t *testing.T) {
	cert := selfSignedRSA(t, 2048, x509.SHA256WithRSA)
	result := pkdcompliance.ValidateAlgorithmCompliance(cert)
	require.Equal(t, pkdcompliance.AlgorithmApproved, result.Status)
	require.Empty(t, result.Warnings)
}

func TestValidateAlgorithmCompliance_DeprecatedSHA1(t *testing.T) {
	cert := selfSignedRSA(t, 2048, x509.SHA1WithRSA)
	result := pkdcompliance.ValidateAlgorithmCompliance(cert)
	require.Equal(t, pkdcompliance.AlgorithmDeprecated, result.Status)
	require.Contains(t, result.Warnings, "SHA-1 algorithm is deprecated")
}

func TestValidateAlgorithmCompliance_WeakRSAKey(t *testing.T) {
	cert := selfSignedRSA(t, 1024, x509.SHA256WithRSA)
	result := pkdcompliance.ValidateAlgorithmCompliance(cert)
	require.Equal(t, pkdcompliance.AlgorithmApproved, result.Status)
	require.Len(t, result.Warnings, 1)
	require.Contains(t, result.Warnings[0], "below ICAO minimum")
}

func TestValidateAlgorithmCompliance_ECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "KR CSCA ECDSA", Country: []string{"KR"}},
		NotBefore:             time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:              time.Date(2035, 1, 1, 0, 0, 0, 0, time.UTC),
		KeyUsage:              x509.KeyUsageCertSign,
		IsCA:                  true,
		BasicConstraintsValid: true,
		SignatureAlgorithm:    x509.ECDSAWithSHA256,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	parsed, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	cert := pkdcert.FromX509(parsed)

	result := pkdcompliance.ValidateAlgorithmCompliance(cert)
	require.Equal(t, pkdcompliance.AlgorithmApproved, result.Status)
}

func TestValidateExtensions_DSCMissingDigitalSignature(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "KR DSC", Country: []string{"KR"}},
		NotBefore:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		KeyUsage:     x509.KeyUsageKeyEncipherment,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	parsed, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	cert := pkdcert.FromX509(parsed)

	result := pkdcompliance.ValidateExtensions(cert, pkdcompliance.RoleDSC)
	require.False(t, result.Valid)
	require.Contains(t, result.Warnings, "DSC missing required digitalSignature key usage")
}

func TestValidateExtensions_CSCAValid(t *testing.T) {
	cert := selfSignedRSA(t, 2048, x509.SHA256WithRSA)
	result := pkdcompliance.ValidateExtensions(cert, pkdcompliance.RoleCSCA)
	require.True(t, result.Valid)
}
