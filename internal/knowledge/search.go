// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package knowledge

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ScoredResult is a catalogue hit with its quality rating.
type ScoredResult struct {
	Result
	Quality QualityScore `json:"quality"`
}

// Report is the grouped answer of SearchAll.
type Report struct {
	Query  string                  `json:"query"`
	Total  int                     `json:"total"`
	Groups map[Kind][]ScoredResult `json:"groups"`
}

// SearchAll queries every catalogue concurrently and scores each hit.
// Kinds without hits are present with an empty slice.
func (b *Base) SearchAll(ctx context.Context, query string) (Report, error) {
	hits := make([][]ScoredResult, len(b.catalogues))

	g, ctx := errgroup.WithContext(ctx)
	for i, c := range b.catalogues {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			found := c.Search(query)
			scored := make([]ScoredResult, len(found))
			for j, r := range found {
				scored[j] = ScoredResult{Result: r, Quality: EvaluateQuality(r.Source, r.Content)}
			}
			hits[i] = scored
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	rep := Report{Query: query, Groups: make(map[Kind][]ScoredResult, len(b.catalogues))}
	for i, c := range b.catalogues {
		rep.Groups[c.Kind] = hits[i]
		rep.Total += len(hits[i])
	}
	return rep, nil
}
