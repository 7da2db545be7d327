package pkdcms

import (
	"crypto/x509"
	"encoding/asn1"

	"github.com/pkg/errors"

	"github.com/iland112/icao-pkd-core/internal/oid"
	"github.com/iland112/icao-pkd-core/pkg/pkdcert"
)

// MasterListEnvelope is a CMS SignedData envelope whose eContentType is
// the ICAO Master List OID, carrying the embedded CSCA set as payload.
type MasterListEnvelope struct {
	Envelope
	CSCAs []pkdcert.Certificate
}

// cscaMasterList is the ICAO Doc 9303 Part 12 CscaMasterList eContent:
// SEQUENCE { version INTEGER, certList SET OF Certificate }.
type cscaMasterList struct {
	Version  int
	CertList []asn1.RawValue `asn1:"set"`
}

// ParseMasterList asserts eContentType = 2.23.136.1.1.2, extracts the
// MLSC signer certificate and the embedded CSCA set, and verifies the
// MLSC's signature over the eContent.
func ParseMasterList(der []byte) (MasterListEnvelope, error) {
	env, err := parse(der)
	if err != nil {
		return MasterListEnvelope{}, err
	}
	if !env.EContentType.Equal(oid.MasterListContentType) {
		return MasterListEnvelope{}, &WrongContentTypeError{Expected: oid.MasterListContentType, Actual: env.EContentType}
	}

	var payload cscaMasterList
	if _, err := asn1.Unmarshal(env.EContent, &payload); err != nil {
		return MasterListEnvelope{}, errors.Wrap(&ParseError{Reason: err.Error()}, "pkdcms: CscaMasterList payload")
	}

	cscas := make([]pkdcert.Certificate, 0, len(payload.CertList))
	for _, raw := range payload.CertList {
		x, err := x509.ParseCertificate(raw.FullBytes)
		if err != nil {
			return MasterListEnvelope{}, errors.Wrap(&ParseError{Reason: err.Error()}, "pkdcms: embedded CSCA")
		}
		cscas = append(cscas, pkdcert.FromX509(x))
	}

	return MasterListEnvelope{Envelope: env, CSCAs: cscas}, nil
}
