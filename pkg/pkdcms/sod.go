package pkdcms

import (
	"crypto/x509/pkix"
	"encoding/asn1"

	"github.com/pkg/errors"
)

// dataGroupHash is ICAO Doc 9303 Part 10's DataGroupHash SEQUENCE.
type dataGroupHash struct {
	DataGroupNumber    int
	DataGroupHashValue []byte
}

// ldsSecurityObject is ICAO Doc 9303 Part 10's LDSSecurityObject, the
// eContent of a passport SOD. The optional trailing ldsVersionInfo field
// is left unmodelled; encoding/asn1 tolerates trailing bytes on Unmarshal.
type ldsSecurityObject struct {
	Version             int
	HashAlgorithm       pkix.AlgorithmIdentifier
	DataGroupHashValues []dataGroupHash
}

// SodEnvelope is a parsed passport Security Object: the generic CMS
// Envelope plus the LDSSecurityObject payload.
type SodEnvelope struct {
	Envelope
	HashAlgorithm   string
	DataGroupHashes map[int][]byte
}

// ParseSod decodes a passport SOD: a CMS SignedData envelope whose
// eContent is an LDSSecurityObject. Unlike ParseMasterList/ParseDeviationList
// it does not assert a specific eContentType, since SOD producers vary in
// what OID (if any) they declare for this content.
func ParseSod(der []byte) (SodEnvelope, error) {
	env, err := parse(der)
	if err != nil {
		return SodEnvelope{}, err
	}

	var lds ldsSecurityObject
	if _, err := asn1.Unmarshal(env.EContent, &lds); err != nil {
		return SodEnvelope{}, errors.Wrap(err, "pkdcms: parsing LDSSecurityObject")
	}

	hashes := make(map[int][]byte, len(lds.DataGroupHashValues))
	for _, dg := range lds.DataGroupHashValues {
		hashes[dg.DataGroupNumber] = dg.DataGroupHashValue
	}

	return SodEnvelope{
		Envelope:        env,
		HashAlgorithm:   digestAlgorithmName(lds.HashAlgorithm.Algorithm),
		DataGroupHashes: hashes,
	}, nil
}
