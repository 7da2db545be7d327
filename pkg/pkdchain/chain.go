// Package pkdchain implements the trust-chain builder: it walks from a
// leaf DSC up to a self-signed root CSCA through any number of Link
// Certificates, discriminating key-rollover candidates by signature
// verification rather than subject-DN match alone.
package pkdchain

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/iland112/icao-pkd-core/pkg/pkdcert"
)

// CscaProvider is the capability the builder depends on. Implementations
// return owned copies; Build does not retain references to the
// provider's backing store.
type CscaProvider interface {
	FindAllCscasByIssuerDn(dn string) ([]pkdcert.Certificate, error)
}

// TrustChainResult is the outcome of walking a certificate's trust chain.
// LinkResults retains, per hop, the verification outcome and fingerprint
// so a caller can audit chain validity without re-walking signatures.
type TrustChainResult struct {
	Valid           bool
	Chain           []pkdcert.Certificate
	LinkResults     []LinkResult
	PathString      string
	DscExpired      bool
	CscaExpired     bool
	RootFingerprint string
	FailureReason   string
}

// LinkResult is the per-hop audit record: child is chain[i], parent is
// chain[i+1].
type LinkResult struct {
	ChildFingerprint  string
	ParentFingerprint string
	SignatureVerified bool
}

const defaultMaxDepth = 10

// Build walks from leaf to a self-signed root through any number of CSCA
// or Link Certificate hops. maxDepth <= 0 uses the default of 10.
func Build(leaf pkdcert.Certificate, provider CscaProvider, maxDepth int) TrustChainResult {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}

	issuerDn := leaf.IssuerString
	if strings.TrimSpace(issuerDn) == "" {
		return TrustChainResult{FailureReason: "Failed to extract issuer DN"}
	}

	result := TrustChainResult{DscExpired: pkdcert.IsExpired(leaf, timeNow())}

	candidates, err := provider.FindAllCscasByIssuerDn(issuerDn)
	if err != nil {
		return TrustChainResult{FailureReason: errors.Wrap(err, "pkdchain: provider lookup").Error()}
	}
	if len(candidates) == 0 {
		return TrustChainResult{FailureReason: fmt.Sprintf("No CSCA found for issuer %s", truncate(issuerDn, 80))}
	}

	chain := []pkdcert.Certificate{leaf}
	visitedDns := map[string]bool{}
	current := leaf
	depth := 0

	for depth < maxDepth {
		if pkdcert.IsSelfSigned(current) {
			ok, err := pkdcert.VerifySignature(current, current)
			if err != nil || !ok {
				return TrustChainResult{FailureReason: fmt.Sprintf("Root CSCA self-signature verification failed at depth %d", len(chain))}
			}
			result.Valid = true
			result.Chain = chain
			result.RootFingerprint = current.Fingerprint
			break
		}

		currentIssuer := current.IssuerString
		normIssuer := normalizeKey(currentIssuer)
		if visitedDns[normIssuer] {
			return TrustChainResult{FailureReason: "Circular reference detected"}
		}
		visitedDns[normIssuer] = true

		issuer, dnOnlyMatch, found := selectIssuer(current, candidates)
		if !found {
			more, err := provider.FindAllCscasByIssuerDn(currentIssuer)
			if err == nil && len(more) > 0 {
				candidates = append(candidates, more...)
				issuer, dnOnlyMatch, found = selectIssuer(current, candidates)
			}
		}
		if !found {
			if dnOnlyMatch != nil {
				return TrustChainResult{FailureReason: fmt.Sprintf("Chain broken: Issuer not found at depth %d (DN matched but signature verification failed)", depth)}
			}
			return TrustChainResult{FailureReason: fmt.Sprintf("Chain broken: Issuer not found at depth %d", depth)}
		}

		chain = append(chain, issuer)
		current = issuer
		depth++
	}

	if !result.Valid && result.FailureReason == "" {
		return TrustChainResult{FailureReason: "Maximum chain depth exceeded"}
	}
	if result.FailureReason != "" {
		return result
	}

	for i := 0; i < len(chain)-1; i++ {
		ok, err := pkdcert.VerifySignature(chain[i], chain[i+1])
		verified := err == nil && ok
		result.LinkResults = append(result.LinkResults, LinkResult{
			ChildFingerprint:  chain[i].Fingerprint,
			ParentFingerprint: chain[i+1].Fingerprint,
			SignatureVerified: verified,
		})
		if !verified {
			result.Valid = false
			result.FailureReason = fmt.Sprintf("Re-verification failed at link %d", i)
			break
		}
	}

	for _, c := range chain[1:] {
		if pkdcert.IsExpired(c, timeNow()) {
			result.CscaExpired = true
			break
		}
	}

	result.PathString = buildPathString(chain)
	return result
}

// selectIssuer picks the candidate whose subject DN equals currentIssuer
// AND whose public key verifies current's signature. If none verifies
// but one matches by DN only, that candidate is returned as dnOnlyMatch
// so the caller can report a more specific failure.
func selectIssuer(current pkdcert.Certificate, candidates []pkdcert.Certificate) (issuer pkdcert.Certificate, dnOnlyMatch *pkdcert.Certificate, found bool) {
	normTarget := normalizeKey(current.IssuerString)
	for i := range candidates {
		candidate := candidates[i]
		if normalizeKey(candidate.SubjectString) != normTarget {
			continue
		}
		if dnOnlyMatch == nil {
			c := candidate
			dnOnlyMatch = &c
		}
		ok, err := pkdcert.VerifySignature(current, candidate)
		if err == nil && ok {
			return candidate, dnOnlyMatch, true
		}
	}
	return pkdcert.Certificate{}, dnOnlyMatch, false
}

func normalizeKey(dn string) string {
	return strings.ToLower(strings.TrimSpace(dn))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// buildPathString labels each link: self-signed → "Root", link
// certificate → "Link", otherwise "CSCA"; the leaf is always "DSC".
func buildPathString(chain []pkdcert.Certificate) string {
	labels := make([]string, 0, len(chain))
	for i, c := range chain {
		switch {
		case i == 0:
			labels = append(labels, "DSC")
		case pkdcert.IsSelfSigned(c):
			labels = append(labels, "Root")
		case pkdcert.IsLinkCertificate(c):
			labels = append(labels, "Link")
		default:
			labels = append(labels, "CSCA")
		}
	}
	return strings.Join(labels, " → ")
}
