// Package pkdformat implements a format detector: it classifies an
// arbitrary byte blob as PEM, DER, a CMS-wrapped ICAO container, a CRL,
// or LDIF, using an extension hint first and content sniffing as a
// fallback. It performs no I/O and never fails, UNKNOWN is the failure
// mode.
package pkdformat

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/iland112/icao-pkd-core/internal/berutil"
)

// Format is the classification produced by DetectFormat.
type Format string

const (
	PEM     Format = "PEM"
	DER     Format = "DER"
	CER     Format = "CER"
	BIN     Format = "BIN"
	CMS_ML  Format = "CMS_ML"
	CMS_DL  Format = "CMS_DL"
	CMS_P7B Format = "CMS_P7B"
	CRL     Format = "CRL"
	LDIF    Format = "LDIF"
	UNKNOWN Format = "UNKNOWN"
)

var extensionFormats = map[string]Format{
	".pem": PEM,
	".crt": PEM,
	".der": DER,
	".cer": CER,
	".bin": BIN,
	".ml":  CMS_ML,
	".dvl": CMS_DL,
	".dl":  CMS_DL,
	".p7b": CMS_P7B,
	".p7c": CMS_P7B,
	".crl": CRL,
	".ldif": LDIF,
}

// DetectFormat classifies data, using filenameHint's extension first and
// falling back to content sniffing. filenameHint may be empty or a bare
// extension like ".pem"; only its suffix is consulted.
func DetectFormat(filenameHint string, data []byte) Format {
	if filenameHint != "" {
		ext := strings.ToLower(filepath.Ext(filenameHint))
		if f, ok := extensionFormats[ext]; ok {
			return f
		}
	}
	return sniffContent(data)
}

func sniffContent(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n")

	if bytes.HasPrefix(trimmed, []byte("-----BEGIN ")) {
		if bytes.Contains(trimmed, []byte("X509 CRL")) {
			return CRL
		}
		return PEM
	}

	if berutil.LooksLikeSequence(trimmed) {
		switch {
		case berutil.ContainsDEROID(trimmed, berutil.MasterListOIDBytes):
			return CMS_ML
		case berutil.ContainsDEROID(trimmed, berutil.DeviationListOIDBytes):
			return CMS_DL
		case berutil.ContainsDEROID(trimmed, berutil.PKCS7SignedDataBytes):
			return CMS_P7B
		default:
			return DER
		}
	}

	if bytes.HasPrefix(trimmed, []byte("dn:")) || bytes.HasPrefix(trimmed, []byte("version:")) {
		return LDIF
	}

	return UNKNOWN
}
