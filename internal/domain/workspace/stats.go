package workspace

import (
	"net/url"
	"sort"
	"strings"
)

// DomainCount is one entry of the per-domain tab distribution.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// Stats summarizes a workspace for the dashboard tiles.
type Stats struct {
	Sessions   int           `json:"sessions"`
	Tabs       int           `json:"tabs"`
	Domains    int           `json:"domains"`
	TopDomains []DomainCount `json:"topDomains"`
}

const maxTopDomains = 10

// ComputeStats counts sessions, tabs and distinct domains, and ranks the
// most common domains by tab count.
func (w Workspace) ComputeStats() Stats {
	counts := make(map[string]int)
	for _, s := range w {
		for _, t := range s.Tabs {
			if d := domainOf(t.URL); d != "" {
				counts[d]++
			}
		}
	}

	top := make([]DomainCount, 0, len(counts))
	for d, n := range counts {
		top = append(top, DomainCount{Domain: d, Count: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Domain < top[j].Domain
	})
	if len(top) > maxTopDomains {
		top = top[:maxTopDomains]
	}

	return Stats{
		Sessions:   len(w),
		Tabs:       w.TabCount(),
		Domains:    len(counts),
		TopDomains: top,
	}
}

func domainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
