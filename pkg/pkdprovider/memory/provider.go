// Package memory implements an in-memory CscaProvider and CrlProvider
// that satisfy the same contract a DB/LDAP-backed implementation would.
// Its directory-loading convenience reads a directory of many national
// issuers' PEM files rather than a single CA operator's fixed paths.
package memory

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/iland112/icao-pkd-core/pkg/pkdcert"
	"github.com/iland112/icao-pkd-core/pkg/pkdcrl"
	"github.com/iland112/icao-pkd-core/pkg/pkddn"
)

// Provider implements both pkdchain.CscaProvider and pkdcrl.Provider over
// in-memory sets of Certificate/CRL values, safe for concurrent read
// access against its own backing store.
type Provider struct {
	mu    sync.RWMutex
	cscas []pkdcert.Certificate
	crls  map[string]pkdcrl.CRL // keyed by normalised ISO 3166-1 alpha-2
}

// New returns an empty Provider.
func New() *Provider {
	return &Provider{crls: make(map[string]pkdcrl.CRL)}
}

// AddCsca registers a CSCA or Link Certificate candidate.
func (p *Provider) AddCsca(cert pkdcert.Certificate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cscas = append(p.cscas, cert)
}

// SetCrl installs or replaces the CRL for a country.
func (p *Provider) SetCrl(countryCode string, crl pkdcrl.CRL) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.crls[pkddn.NormalizeCountryCode(countryCode)] = crl
}

// FindAllCscasByIssuerDn implements pkdchain.CscaProvider. Returned
// certificates are owned copies of the stored values (Certificate is an
// immutable value type, so the slice itself is copied but not its
// contents).
func (p *Provider) FindAllCscasByIssuerDn(dn string) ([]pkdcert.Certificate, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	target := pkddn.NormalizeDnForComparison(dn)
	var out []pkdcert.Certificate
	for _, c := range p.cscas {
		if pkddn.NormalizeDnForComparison(c.SubjectString) == target {
			out = append(out, c)
		}
	}
	return out, nil
}

// FindCrlByCountry implements pkdcrl.Provider.
func (p *Provider) FindCrlByCountry(countryCode string) (pkdcrl.CRL, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	crl, ok := p.crls[pkddn.NormalizeCountryCode(countryCode)]
	return crl, ok, nil
}

// LoadCscaDir reads every .pem/.crt/.der/.cer file in dir and registers
// each embedded certificate as a CSCA candidate. Non-certificate files
// and parse failures are skipped, not fatal, so one malformed upload
// does not block the rest of a directory.
func (p *Provider) LoadCscaDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, "memory: reading CSCA directory")
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".pem", ".crt", ".der", ".cer":
		default:
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		certs, err := decodeCertificates(data)
		if err != nil {
			continue
		}
		for _, c := range certs {
			p.AddCsca(c)
		}
	}
	return nil
}

// LoadCrlDir reads every .crl file in dir, keyed to a country by the
// CRL's own issuer DN.
func (p *Provider) LoadCrlDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, "memory: reading CRL directory")
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".crl") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		crl, err := decodeCrl(data)
		if err != nil {
			continue
		}
		if crl.CountryCode != "" {
			p.SetCrl(crl.CountryCode, crl)
		}
	}
	return nil
}

func decodeCertificates(data []byte) ([]pkdcert.Certificate, error) {
	if looksPEM(data) {
		return pkdcert.ParsePEM(data)
	}
	c, err := pkdcert.ParseDER(data)
	if err != nil {
		return nil, err
	}
	return []pkdcert.Certificate{c}, nil
}

func decodeCrl(data []byte) (pkdcrl.CRL, error) {
	if looksPEM(data) {
		return pkdcrl.ParsePEM(data)
	}
	return pkdcrl.ParseDER(data)
}

func looksPEM(data []byte) bool {
	return strings.HasPrefix(strings.TrimSpace(string(data)), "-----BEGIN")
}
