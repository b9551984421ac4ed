// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package knowledge

import (
	"strings"

	"golang.org/x/net/publicsuffix"

	pnet "github.com/ManuGH/nimbus/internal/platform/net"
)

// ReputableMarkers are substrings of links from trusted publishers.
var ReputableMarkers = []string{
	"wikipedia.org",
	"edu",
	"org",
	"gov",
	"nature.com",
	"sciencedirect.com",
	"ieee.org",
	"mit.edu",
	"harvard.edu",
}

// WebResult is a search hit from an external engine.
type WebResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// SourcedResult is a reputable hit labelled with where it came from.
type SourcedResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	// Source is the link hostname.
	Source string `json:"source"`
	// Domain is the registrable domain (eTLD+1), empty when it cannot be derived.
	Domain string `json:"domain,omitempty"`
}

// IsReputable reports whether link contains any reputable marker.
func IsReputable(link string) bool {
	for _, m := range ReputableMarkers {
		if strings.Contains(link, m) {
			return true
		}
	}
	return false
}

// FilterReputable keeps reputable results in order. Links that are not
// plain http(s) URLs with a valid host are dropped.
func FilterReputable(results []WebResult) []SourcedResult {
	out := make([]SourcedResult, 0, len(results))
	for _, r := range results {
		if !IsReputable(r.Link) {
			continue
		}
		u, ok := pnet.ParseWebURL(r.Link)
		if !ok {
			continue
		}
		host, err := pnet.NormalizeHost(u.Hostname())
		if err != nil {
			continue
		}
		domain, err := publicsuffix.EffectiveTLDPlusOne(host)
		if err != nil {
			domain = ""
		}
		out = append(out, SourcedResult{
			Title:   r.Title,
			URL:     r.Link,
			Snippet: r.Snippet,
			Source:  host,
			Domain:  domain,
		})
	}
	return out
}
