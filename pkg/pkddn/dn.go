// Package pkddn implements X.509 Distinguished Name parsing and
// normalisation: structured component extraction from a parsed X.509
// Name by attribute OID (never by regex), plus the format-independent
// normalisation/attribute-lookup helpers that absorb both OpenSSL oneline
// (/C=KR/O=Gov/CN=X) and RFC 2253 comma (CN=X,O=Gov,C=KR) DN string forms.
package pkddn

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"sort"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/pkg/errors"
)

// Components holds the optional subject/issuer DN attributes this engine
// extracts. Multi-valued attributes (organization, organizational unit)
// keep every value in RDN order.
type Components struct {
	CommonName         string
	Organization       []string
	OrganizationalUnit []string
	Locality           string
	StateOrProvince    string
	Country            string
	Email              string
	SerialNumber       string
	Title              string
	GivenName          string
	Surname            string
	Pseudonym          string
}

// Attribute OIDs per RFC 5280 Appendix A / PKCS#9, keyed identically for
// both pkix.Name extraction and string-form extraction so the two paths
// agree on what "CN" and "2.5.4.3" mean.
var (
	oidCommonName         = asn1.ObjectIdentifier{2, 5, 4, 3}
	oidOrganization       = asn1.ObjectIdentifier{2, 5, 4, 10}
	oidOrganizationalUnit = asn1.ObjectIdentifier{2, 5, 4, 11}
	oidLocality           = asn1.ObjectIdentifier{2, 5, 4, 7}
	oidStateOrProvince    = asn1.ObjectIdentifier{2, 5, 4, 8}
	oidCountry            = asn1.ObjectIdentifier{2, 5, 4, 6}
	oidEmailAddress       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}
	oidSerialNumber       = asn1.ObjectIdentifier{2, 5, 4, 5}
	oidTitle              = asn1.ObjectIdentifier{2, 5, 4, 12}
	oidGivenName          = asn1.ObjectIdentifier{2, 5, 4, 42}
	oidSurname            = asn1.ObjectIdentifier{2, 5, 4, 4}
	oidPseudonym          = asn1.ObjectIdentifier{2, 5, 4, 65}
)

// shortNameToOID maps the short attribute names used in both oneline and
// RFC 2253 string forms to their OIDs.
var shortNameToOID = map[string]asn1.ObjectIdentifier{
	"CN": oidCommonName,
	"O":  oidOrganization,
	"OU": oidOrganizationalUnit,
	"L":  oidLocality,
	"ST": oidStateOrProvince,
	"C":  oidCountry,
	"E":  oidEmailAddress,
	"EMAILADDRESS": oidEmailAddress,
	"SERIALNUMBER": oidSerialNumber,
	"T":            oidTitle,
	"TITLE":        oidTitle,
	"GN":           oidGivenName,
	"GIVENNAME":    oidGivenName,
	"SN":           oidSurname,
	"SURNAME":      oidSurname,
	"PSEUDONYM":    oidPseudonym,
}

// ExtractComponents extracts DN attributes from a parsed certificate Name
// by attribute OID, never by regex. pkix.Name.Names carries every RDN
// attribute with its OID, which this walks directly rather than relying
// on pkix.Name's own convenience fields (those silently drop repeated or
// unrecognised attribute types).
func ExtractComponents(name pkix.Name) Components {
	var c Components
	for _, atv := range name.Names {
		value, ok := atv.Value.(string)
		if !ok {
			continue
		}
		switch {
		case atv.Type.Equal(oidCommonName):
			c.CommonName = value
		case atv.Type.Equal(oidOrganization):
			c.Organization = append(c.Organization, value)
		case atv.Type.Equal(oidOrganizationalUnit):
			c.OrganizationalUnit = append(c.OrganizationalUnit, value)
		case atv.Type.Equal(oidLocality):
			c.Locality = value
		case atv.Type.Equal(oidStateOrProvince):
			c.StateOrProvince = value
		case atv.Type.Equal(oidCountry):
			c.Country = value
		case atv.Type.Equal(oidEmailAddress):
			c.Email = value
		case atv.Type.Equal(oidSerialNumber):
			c.SerialNumber = value
		case atv.Type.Equal(oidTitle):
			c.Title = value
		case atv.Type.Equal(oidGivenName):
			c.GivenName = value
		case atv.Type.Equal(oidSurname):
			c.Surname = value
		case atv.Type.Equal(oidPseudonym):
			c.Pseudonym = value
		}
	}
	return c
}

// rdnAttr is a single type=value pair extracted from either string form,
// in the attribute's declared order within its RDN.
type rdnAttr struct {
	oidKey string // dotted OID string, used as the stable comparison key
	value  string
}

// ParseError reports that a DN string could not be split into RDNs.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return "pkddn: invalid DN " + truncate(e.Input, 80) + ": " + e.Reason
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// splitOneline splits an OpenSSL oneline-form DN ("/C=KR/O=Gov/CN=X") into
// ordered attribute pairs, honouring backslash-escaped '/' and '='.
func splitOneline(dn string) ([]rdnAttr, error) {
	dn = strings.TrimPrefix(dn, "/")
	if strings.TrimSpace(dn) == "" {
		return nil, nil
	}

	var attrs []rdnAttr
	var current strings.Builder
	escaped := false
	var parts []string
	for _, r := range dn {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			current.WriteRune(r)
			escaped = true
		case r == '/':
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	parts = append(parts, current.String())

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.Index(part, "=")
		if eq < 0 {
			return nil, &ParseError{Input: dn, Reason: "missing '=' in component " + part}
		}
		attrType := strings.TrimSpace(part[:eq])
		attrValue := strings.TrimSpace(unescape(part[eq+1:]))
		key := oidKeyFor(attrType)
		attrs = append(attrs, rdnAttr{oidKey: key, value: attrValue})
	}
	return attrs, nil
}

func unescape(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// oidKeyFor maps a short attribute name (or an already-dotted OID string)
// to the dotted-OID comparison key used by NormalizeDnForComparison.
func oidKeyFor(attrType string) string {
	upper := strings.ToUpper(strings.TrimSpace(attrType))
	if oid, ok := shortNameToOID[upper]; ok {
		return oid.String()
	}
	// Already numeric (e.g. "2.5.4.3") or an attribute this engine does
	// not special-case: keep the lowercase type name itself as the key so
	// normalisation is still stable and case-insensitive.
	return strings.ToLower(attrType)
}

// splitRFC2253 splits a comma-form DN using go-ldap's RFC 4514/2253
// parser, which correctly handles quoting and backslash escapes that a
// naive strings.Split(dn, ",") would mishandle.
func splitRFC2253(dn string) ([]rdnAttr, error) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return nil, errors.Wrapf(&ParseError{Input: dn, Reason: err.Error()}, "pkddn")
	}
	var attrs []rdnAttr
	for _, rdn := range parsed.RDNs {
		for _, atv := range rdn.Attributes {
			attrs = append(attrs, rdnAttr{
				oidKey: oidKeyFor(atv.Type),
				value:  atv.Value,
			})
		}
	}
	return attrs, nil
}

// looksLikeOneline reports whether dn should be parsed with the slash-form
// splitter rather than go-ldap's comma-form parser.
func looksLikeOneline(dn string) bool {
	trimmed := strings.TrimSpace(dn)
	return strings.HasPrefix(trimmed, "/")
}

// parseEither splits dn using whichever form it appears to be in.
func parseEither(dn string) ([]rdnAttr, error) {
	if looksLikeOneline(dn) {
		return splitOneline(dn)
	}
	// Comma form is tried first for anything not starting with '/'; if it
	// fails outright (e.g. a slash form without the leading '/'), fall
	// back to the oneline splitter rather than surfacing a spurious error.
	attrs, err := splitRFC2253(dn)
	if err == nil {
		return attrs, nil
	}
	if onelineAttrs, onelineErr := splitOneline(dn); onelineErr == nil {
		return onelineAttrs, nil
	}
	return nil, err
}

// NormalizeDnForComparison produces the canonical comparison string for
// dn, accepting either oneline or RFC 2253 comma form: RDNs are split
// respecting quoting/escapes, lowercased per RFC 4517 §4.2.15
// case-insensitive matching, sorted, and joined with "|".
func NormalizeDnForComparison(dn string) string {
	attrs, err := parseEither(dn)
	if err != nil {
		// No error return for this operation; an unparsable DN normalises
		// to itself, lowercased and trimmed, so unequal garbage inputs
		// still compare unequal rather than panicking.
		return strings.ToLower(strings.TrimSpace(dn))
	}

	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		parts = append(parts, strings.ToLower(a.oidKey)+"="+strings.ToLower(strings.TrimSpace(a.value)))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// ExtractDnAttribute returns the lowercase value of the first RDN matching
// key (a short name like "C"/"CN" or a dotted OID) in either DN string
// form; empty when absent.
func ExtractDnAttribute(dn string, key string) string {
	attrs, err := parseEither(dn)
	if err != nil {
		return ""
	}
	wantKey := oidKeyFor(key)
	for _, a := range attrs {
		if a.oidKey == wantKey {
			return strings.ToLower(strings.TrimSpace(a.value))
		}
	}
	return ""
}
