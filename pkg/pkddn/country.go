package pkddn

import "strings"

// alpha3ToAlpha2 covers the ISO 3166-1 alpha-3 codes ICAO Doc 9303 issuers
// are known to still publish in Master Lists and CSCA subjects, alongside
// the alpha-2 form preferred elsewhere. Not exhaustive of every ISO
// entry, extend as legacy issuers are observed using a code missing here.
var alpha3ToAlpha2 = map[string]string{
	"USA": "US", "GBR": "GB", "DEU": "DE", "FRA": "FR", "ITA": "IT",
	"ESP": "ES", "NLD": "NL", "BEL": "BE", "CHE": "CH", "AUT": "AT",
	"SWE": "SE", "NOR": "NO", "DNK": "DK", "FIN": "FI", "POL": "PL",
	"PRT": "PT", "GRC": "GR", "IRL": "IE", "LUX": "LU", "ISL": "IS",
	"KOR": "KR", "JPN": "JP", "CHN": "CN", "IND": "IN", "SGP": "SG",
	"AUS": "AU", "NZL": "NZ", "CAN": "CA", "MEX": "MX", "BRA": "BR",
	"ARG": "AR", "ZAF": "ZA", "RUS": "RU", "TUR": "TR", "ISR": "IL",
	"ARE": "AE", "SAU": "SA", "EGY": "EG", "THA": "TH", "MYS": "MY",
	"IDN": "ID", "PHL": "PH", "VNM": "VN", "UKR": "UA", "CZE": "CZ",
	"SVK": "SK", "HUN": "HU", "ROU": "RO", "BGR": "BG", "HRV": "HR",
	"SVN": "SI", "LTU": "LT", "LVA": "LV", "EST": "EE", "CYP": "CY",
	"MLT": "MT", "LIE": "LI", "MCO": "MC", "AND": "AD", "SMR": "SM",
	"VAT": "VA",
}

var alpha2ToAlpha3 map[string]string

func init() {
	alpha2ToAlpha3 = make(map[string]string, len(alpha3ToAlpha2))
	for a3, a2 := range alpha3ToAlpha2 {
		alpha2ToAlpha3[a2] = a3
	}
}

// NormalizeCountryCode converts a legacy ISO 3166-1 alpha-3 code to its
// alpha-2 form; alpha-2 is preferred, but alpha-3 is still accepted from
// legacy ICAO issuers. Codes already in alpha-2 form, or unrecognised
// codes of any length, are returned unchanged (uppercased).
func NormalizeCountryCode(code string) string {
	upper := strings.ToUpper(strings.TrimSpace(code))
	if len(upper) == 3 {
		if a2, ok := alpha3ToAlpha2[upper]; ok {
			return a2
		}
	}
	return upper
}

// ToAlpha3 returns the legacy alpha-3 form of an alpha-2 country code, or
// the input trimmed and uppercased if no mapping is known.
func ToAlpha3(alpha2 string) string {
	upper := strings.ToUpper(strings.TrimSpace(alpha2))
	if a3, ok := alpha2ToAlpha3[upper]; ok {
		return a3
	}
	return upper
}
