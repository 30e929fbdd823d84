package rules

import "strings"

// domainSet matches a sender domain against listed domains and their subdomains
type domainSet []string

func newDomainSet(domains []string) domainSet {
	out := make(domainSet, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(d, "@")))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

func (s domainSet) matches(domain string) bool {
	if domain == "" {
		return false
	}
	domain = strings.ToLower(domain)
	for _, d := range s {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

func (s domainSet) contains(domain string) bool {
	for _, d := range s {
		if d == domain {
			return true
		}
	}
	return false
}
