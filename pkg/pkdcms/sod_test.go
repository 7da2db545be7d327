package pkdcms_test

import (
	"crypto/sha256"
	"crypto/x509/pkix"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iland112/icao-pkd-core/internal/oid"
	"github.com/iland112/icao-pkd-core/pkg/pkdcms"
)

type tDataGroupHash struct {
	DataGroupNumber    int
	DataGroupHashValue []byte
}

type tLdsSecurityObject struct {
	Version             int
	HashAlgorithm       pkix.AlgorithmIdentifier
	DataGroupHashValues []tDataGroupHash
}

func TestParseSod(t *testing.T) {
	dscKey, dscCert, dscDER := genSignerCert(t, "KR DSC 01", "KR")

	dg1 := sha256.Sum256([]byte("dg1 contents"))
	dg2 := sha256.Sum256([]byte("dg2 contents"))
	lds := tLdsSecurityObject{
		Version:       0,
		HashAlgorithm: pkix.AlgorithmIdentifier{Algorithm: oidSHA256},
		DataGroupHashValues: []tDataGroupHash{
			{DataGroupNumber: 1, DataGroupHashValue: dg1[:]},
			{DataGroupNumber: 2, DataGroupHashValue: dg2[:]},
		},
	}
	eContent := mustMarshal(t, lds)

	der := buildSignedEnvelope(t, eContent, oid.Data, dscKey, dscCert, [][]byte{dscDER})

	env, err := pkdcms.ParseSod(der)
	require.NoError(t, err)
	require.True(t, env.SignatureVerified)
	require.Equal(t, "SHA-256", env.HashAlgorithm)
	require.Len(t, env.DataGroupHashes, 2)
	require.Equal(t, dg1[:], env.DataGroupHashes[1])
	require.Equal(t, dg2[:], env.DataGroupHashes[2])
}
