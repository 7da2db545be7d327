package pkdcms

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"strings"

	"github.com/pkg/errors"

	"github.com/iland112/icao-pkd-core/internal/oid"
)

// DefectCategory is the coarse defect classification derived from a
// Deviation Entry's defect OID.
type DefectCategory string

const (
	DefectCertOrKey DefectCategory = "CertOrKey"
	DefectLDS       DefectCategory = "LDS"
	DefectMRZ       DefectCategory = "MRZ"
	DefectChip      DefectCategory = "Chip"
)

// DeviationEntry is one flagged certificate/key/LDS/MRZ/chip defect.
type DeviationEntry struct {
	TargetIssuerDn  string
	TargetSerialHex string
	DefectOID       asn1.ObjectIdentifier
	DefectCategory  DefectCategory
	Description     string
	Parameters      []byte
}

// DeviationListEnvelope is a CMS SignedData envelope whose eContentType
// is the ICAO Deviation List OID, carrying the flagged defect entries.
type DeviationListEnvelope struct {
	Envelope
	Entries []DeviationEntry
}

// deviationTargetID identifies the certificate a defect applies to, the
// same issuer+serial shape used elsewhere in PKCS#7/CMS structures.
type deviationTargetID struct {
	IssuerName   asn1.RawValue
	SerialNumber *big.Int
}

// defect is one flagged certificate/key/LDS/MRZ/chip issue against a
// target certificate.
type defect struct {
	CertIdentifier deviationTargetID
	DefectOID      asn1.ObjectIdentifier
	Description    string `asn1:"optional,utf8"`
	Parameters     []byte `asn1:"optional"`
}

// signerDeviation groups every defect a deviation list attributes to one
// signer identity.
type signerDeviation struct {
	SignerIdentifier deviationTargetID
	Defects          []defect `asn1:"set"`
}

// deviationListContent is the Deviation List eContent:
// SEQUENCE { version INTEGER, signerDeviations SET OF SignerDeviation }.
type deviationListContent struct {
	Version          int
	SignerDeviations []signerDeviation `asn1:"set"`
}

// ParseDeviationList asserts eContentType = 2.23.136.1.1.7, extracts the
// DL signer certificate, and flattens every signer's defects into
// DeviationEntry values.
func ParseDeviationList(der []byte) (DeviationListEnvelope, error) {
	env, err := parse(der)
	if err != nil {
		return DeviationListEnvelope{}, err
	}
	if !env.EContentType.Equal(oid.DeviationListContentType) {
		return DeviationListEnvelope{}, &WrongContentTypeError{Expected: oid.DeviationListContentType, Actual: env.EContentType}
	}

	var payload deviationListContent
	if _, err := asn1.Unmarshal(env.EContent, &payload); err != nil {
		return DeviationListEnvelope{}, errors.Wrap(&ParseError{Reason: err.Error()}, "pkdcms: DeviationList payload")
	}

	var entries []DeviationEntry
	for _, sd := range payload.SignerDeviations {
		for _, d := range sd.Defects {
			entries = append(entries, DeviationEntry{
				TargetIssuerDn:  rawNameToDn(d.CertIdentifier.IssuerName),
				TargetSerialHex: strings.ToLower(d.CertIdentifier.SerialNumber.Text(16)),
				DefectOID:       d.DefectOID,
				DefectCategory:  categorizeDefect(d.DefectOID),
				Description:     d.Description,
				Parameters:      append([]byte(nil), d.Parameters...),
			})
		}
	}

	return DeviationListEnvelope{Envelope: env, Entries: entries}, nil
}

// categorizeDefect maps a defect OID to its category: OIDs under
// 2.23.136.1.1.7.1.1.* → CertOrKey, …7.1.2.* → LDS, …7.1.3.* → MRZ,
// …7.1.4.* → Chip, anything else outside the known arcs also falls back
// to Chip rather than an unclassified bucket.
func categorizeDefect(defectOID asn1.ObjectIdentifier) DefectCategory {
	switch {
	case underArc(defectOID, oid.DeviationCertOrKeyArc):
		return DefectCertOrKey
	case underArc(defectOID, oid.DeviationLDSArc):
		return DefectLDS
	case underArc(defectOID, oid.DeviationMRZArc):
		return DefectMRZ
	case underArc(defectOID, oid.DeviationChipArc):
		return DefectChip
	default:
		return DefectChip
	}
}

func underArc(candidate, arc asn1.ObjectIdentifier) bool {
	if len(candidate) < len(arc) {
		return false
	}
	for i, v := range arc {
		if candidate[i] != v {
			return false
		}
	}
	return true
}

// rawNameToDn decodes a raw ASN.1 Name value into the same RFC-2253-derived
// string form pkg/pkdcert assigns to a parsed certificate's issuer DN, so
// a DeviationEntry's TargetIssuerDn compares directly against
// Certificate.IssuerString via pkg/pkddn.NormalizeDnForComparison.
func rawNameToDn(name asn1.RawValue) string {
	var rdns pkix.RDNSequence
	if _, err := asn1.Unmarshal(name.FullBytes, &rdns); err != nil {
		return ""
	}
	var n pkix.Name
	n.FillFromRDNSequence(&rdns)
	return n.String()
}
