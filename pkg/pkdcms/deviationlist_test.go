package pkdcms_test

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iland112/icao-pkd-core/internal/oid"
	"github.com/iland112/icao-pkd-core/pkg/pkdcms"
)

type tDeviationTargetID struct {
	IssuerName   asn1.RawValue
	SerialNumber *big.Int
}

type tDefect struct {
	CertIdentifier tDeviationTargetID
	DefectOID      asn1.ObjectIdentifier
	Description    string `asn1:"optional,utf8"`
	Parameters     []byte `asn1:"optional"`
}

type tSignerDeviation struct {
	SignerIdentifier tDeviationTargetID
	Defects          []tDefect `asn1:"set"`
}

type tDeviationListContent struct {
	Version          int
	SignerDeviations []tSignerDeviation `asn1:"set"`
}

func marshalName(t *testing.T, name pkix.Name) asn1.RawValue {
	t.Helper()
	der, err := asn1.Marshal(name.ToRDNSequence())
	require.NoError(t, err)
	var rv asn1.RawValue
	_, err = asn1.Unmarshal(der, &rv)
	require.NoError(t, err)
	return rv
}

func TestParseDeviationList(t *testing.T) {
	dlKey, dlCert, dlDER := genSignerCert(t, "KR DL Signer", "KR")

	targetIssuer := marshalName(t, pkix.Name{CommonName: "KR CSCA Root", Country: []string{"KR"}})

	defects := []tDefect{
		{
			CertIdentifier: tDeviationTargetID{IssuerName: targetIssuer, SerialNumber: big.NewInt(7)},
			DefectOID:      asn1.ObjectIdentifier{2, 23, 136, 1, 1, 7, 1, 1, 1},
			Description:    "weak key",
		},
		{
			CertIdentifier: tDeviationTargetID{IssuerName: targetIssuer, SerialNumber: big.NewInt(8)},
			DefectOID:      asn1.ObjectIdentifier{2, 23, 136, 1, 1, 7, 1, 3, 1},
			Description:    "MRZ check digit mismatch",
		},
		{
			CertIdentifier: tDeviationTargetID{IssuerName: targetIssuer, SerialNumber: big.NewInt(9)},
			DefectOID:      asn1.ObjectIdentifier{1, 2, 3, 4},
			Description:    "unclassified defect",
		},
	}
	content := tDeviationListContent{
		Version: 0,
		SignerDeviations: []tSignerDeviation{{
			SignerIdentifier: tDeviationTargetID{IssuerName: targetIssuer, SerialNumber: big.NewInt(1)},
			Defects:          defects,
		}},
	}
	eContent := mustMarshal(t, content)

	der := buildSignedEnvelope(t, eContent, oid.DeviationListContentType, dlKey, dlCert, [][]byte{dlDER})

	env, err := pkdcms.ParseDeviationList(der)
	require.NoError(t, err)
	require.True(t, env.SignatureVerified)
	require.Len(t, env.Entries, 3)

	require.Equal(t, pkdcms.DefectCertOrKey, env.Entries[0].DefectCategory)
	require.Equal(t, pkdcms.DefectMRZ, env.Entries[1].DefectCategory)
	require.Equal(t, pkdcms.DefectChip, env.Entries[2].DefectCategory)
	require.Equal(t, "7", env.Entries[0].TargetSerialHex)
	require.Contains(t, env.Entries[0].TargetIssuerDn, "KR CSCA Root")
}
