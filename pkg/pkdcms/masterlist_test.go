package pkdcms_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iland112/icao-pkd-core/internal/oid"
	"github.com/iland112/icao-pkd-core/pkg/pkdcms"
)

type tCscaMasterList struct {
	Version  int
	CertList []asn1.RawValue `asn1:"set"`
}

func genPlainCSCA(t *testing.T, serial int64, country, cn string) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(serial),
		Subject:               pkix.Name{CommonName: cn, Country: []string{country}},
		NotBefore:             time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:              time.Date(2035, 1, 1, 0, 0, 0, 0, time.UTC),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return der
}

func TestParseMasterList(t *testing.T) {
	mlscKey, mlscCert, mlscDER := genSignerCert(t, "KR MLSC", "KR")

	var certList []asn1.RawValue
	for i, der := range [][]byte{
		genPlainCSCA(t, 101, "KR", "KR CSCA 1"),
		genPlainCSCA(t, 102, "KR", "KR CSCA 2"),
		genPlainCSCA(t, 103, "KR", "KR CSCA 3"),
	} {
		var rv asn1.RawValue
		_, err := asn1.Unmarshal(der, &rv)
		require.NoErrorf(t, err, "cert %d", i)
		certList = append(certList, rv)
	}

	payload := tCscaMasterList{Version: 0, CertList: certList}
	eContent := mustMarshal(t, payload)

	der := buildSignedEnvelope(t, eContent, oid.MasterListContentType, mlscKey, mlscCert, [][]byte{mlscDER})

	env, err := pkdcms.ParseMasterList(der)
	require.NoError(t, err)
	require.True(t, env.SignatureVerified)
	require.Len(t, env.CSCAs, 3)
	require.Equal(t, "MLSC", string(env.SignerCertificate.Classification))
}

func TestParseMasterList_WrongContentType(t *testing.T) {
	key, cert, certDER := genSignerCert(t, "KR MLSC", "KR")
	eContent := mustMarshal(t, tCscaMasterList{Version: 0})

	der := buildSignedEnvelope(t, eContent, oid.Data, key, cert, [][]byte{certDER})

	_, err := pkdcms.ParseMasterList(der)
	require.Error(t, err)
	var wrongType *pkdcms.WrongContentTypeError
	require.ErrorAs(t, err, &wrongType)
}
