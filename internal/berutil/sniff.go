// Package berutil holds small byte-level DER/BER sniffing helpers used by
// the format detector before any ASN.1 structure is known to decode
// cleanly. It never attempts a full parse; it only answers "does this look
// like X" on a raw byte prefix.
package berutil

import "bytes"

// LooksLikeSequence reports whether data begins with a DER/BER SEQUENCE tag
// (0x30) followed by a length octet consistent with either short form or a
// long-form length marker (0x81-0x84).
func LooksLikeSequence(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	if data[0] != 0x30 {
		return false
	}
	lengthOctet := data[1]
	if lengthOctet <= 0x80 {
		return true // short form (0x00-0x7F) or indefinite (0x80)
	}
	return lengthOctet >= 0x81 && lengthOctet <= 0x84
}

// sniffWindow bounds how much of the input is searched for an embedded OID
// to the first 1 KiB, avoiding a full scan of large CMS blobs just to
// classify them.
const sniffWindow = 1024

// ContainsDEROID reports whether the DER encoding of oidBytes (the raw
// tag+length+value bytes of an ASN.1 OBJECT IDENTIFIER, e.g.
// "06 06 67 81 08 01 01 02" for the Master List OID) occurs within the
// first 1 KiB of data.
func ContainsDEROID(data []byte, oidBytes []byte) bool {
	window := data
	if len(window) > sniffWindow {
		window = window[:sniffWindow]
	}
	return bytes.Contains(window, oidBytes)
}

// Well-known DER-encoded OID byte sequences this engine sniffs for.
var (
	MasterListOIDBytes    = []byte{0x06, 0x06, 0x67, 0x81, 0x08, 0x01, 0x01, 0x02}
	DeviationListOIDBytes = []byte{0x06, 0x06, 0x67, 0x81, 0x08, 0x01, 0x01, 0x07}
	PKCS7SignedDataBytes  = []byte{0x06, 0x09, 0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D, 0x01, 0x07, 0x02}
)
