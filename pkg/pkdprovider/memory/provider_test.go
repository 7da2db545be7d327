package memory_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iland112/icao-pkd-core/pkg/pkdcert"
	"github.com/iland112/icao-pkd-core/pkg/pkdprovider/memory"
)

func TestProvider_FindAllCscasByIssuerDn(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "KR CSCA Root", Country: []string{"KR"}},
		NotBefore:             time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:              time.Date(2040, 1, 1, 0, 0, 0, 0, time.UTC),
		KeyUsage:              x509.KeyUsageCertSign,
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	parsed, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	cert := pkdcert.FromX509(parsed)

	p := memory.New()
	p.AddCsca(cert)

	found, err := p.FindAllCscasByIssuerDn(cert.SubjectString)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, cert.Fingerprint, found[0].Fingerprint)

	found, err = p.FindAllCscasByIssuerDn("CN=Nonexistent")
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestProvider_FindCrlByCountry_NotFound(t *testing.T) {
	p := memory.New()
	_, found, err := p.FindCrlByCountry("KR")
	require.NoError(t, err)
	require.False(t, found)
}
