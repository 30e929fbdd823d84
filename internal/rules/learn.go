package rules

import (
	"fmt"
	"sort"
	"time"

	"github.com/mikey/mail-triage/internal/core"
)

// LearnDomains returns a new table version in which every sender domain that
// received at least min agreeing corrections is added to the corrected
// category's medium-confidence domains. The second return value reports
// whether anything changed; when nothing changed the input table is returned.
func LearnDomains(table *Table, corrections []*core.Correction, min int, now time.Time) (*Table, bool) {
	if min < 1 {
		min = 1
	}

	// Latest correction per message wins
	latest := make(map[string]*core.Correction)
	for _, c := range corrections {
		key := c.SessionID + "/" + c.MessageID
		if prev, ok := latest[key]; !ok || !c.CreatedAt.Before(prev.CreatedAt) {
			latest[key] = c
		}
	}

	votes := make(map[string]map[core.Category]int)
	for _, c := range latest {
		if c.Summary.Domain == "" {
			continue
		}
		if votes[c.Summary.Domain] == nil {
			votes[c.Summary.Domain] = make(map[core.Category]int)
		}
		votes[c.Summary.Domain][c.CorrectedCategory]++
	}

	domains := make([]string, 0, len(votes))
	for d := range votes {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	next := table.Clone()
	changed := false
	for _, domain := range domains {
		// Only learn domains whose corrections agree on one category
		if len(votes[domain]) != 1 {
			continue
		}
		for category, n := range votes[domain] {
			if n < min {
				continue
			}
			for i := range next.Categories {
				c := &next.Categories[i]
				if core.Category(c.Name) != category {
					continue
				}
				known := newDomainSet(append(append([]string(nil), c.Domains.High...), c.Domains.Medium...))
				if known.contains(domain) {
					continue
				}
				c.Domains.Medium = append(c.Domains.Medium, domain)
				changed = true
			}
		}
	}

	if !changed {
		return table, false
	}
	next.Version = fmt.Sprintf("%s+learned.%s", baseVersion(table.Version), now.UTC().Format("20060102150405"))
	return next, true
}

func baseVersion(v string) string {
	for i := 0; i < len(v); i++ {
		if v[i] == '+' {
			return v[:i]
		}
	}
	return v
}
