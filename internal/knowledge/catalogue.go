// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package knowledge serves the built-in reference catalogues (courses,
// health, planet, business and code documentation) and rates sources.
package knowledge

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var dataFS embed.FS

// Kind names a catalogue.
type Kind string

const (
	KindCourse   Kind = "course"
	KindHealth   Kind = "health"
	KindPlanet   Kind = "planet"
	KindBusiness Kind = "business"
	KindCode     Kind = "code"
)

// Result is one catalogue entry. For courses Title is the course name and
// Content the description.
type Result struct {
	Kind        Kind   `json:"kind" yaml:"-"`
	Institution string `json:"institution,omitempty" yaml:"institution"`
	Title       string `json:"title" yaml:"title"`
	Content     string `json:"content" yaml:"content"`
	Source      string `json:"source" yaml:"source"`
}

// Catalogue is a searchable list of entries of one kind.
type Catalogue struct {
	Kind    Kind
	entries []Result
	folded  []string // title + "\n" + content, case-folded
}

type catalogueFile struct {
	Kind    Kind     `yaml:"kind"`
	Entries []Result `yaml:"entries"`
}

var folder = cases.Fold()

func fold(s string) string { return folder.String(s) }

// NewCatalogue builds a catalogue from entries, stamping each with kind.
func NewCatalogue(kind Kind, entries []Result) *Catalogue {
	c := &Catalogue{Kind: kind}
	for _, e := range entries {
		e.Kind = kind
		c.entries = append(c.entries, e)
		c.folded = append(c.folded, fold(e.Title)+"\n"+fold(e.Content))
	}
	return c
}

// ParseCatalogue decodes one YAML catalogue document. Unknown fields are rejected.
func ParseCatalogue(r io.Reader) (*Catalogue, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f catalogueFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}
	if f.Kind == "" {
		return nil, errors.New("catalogue kind is required")
	}
	return NewCatalogue(f.Kind, f.Entries), nil
}

// Len returns the number of entries.
func (c *Catalogue) Len() int { return len(c.entries) }

// Search returns entries whose title or content contains query, ignoring
// case. A blank query matches nothing.
func (c *Catalogue) Search(query string) []Result {
	q := fold(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []Result
	for i, text := range c.folded {
		if strings.Contains(text, q) {
			out = append(out, c.entries[i])
		}
	}
	return out
}

// Base holds every catalogue.
type Base struct {
	catalogues []*Catalogue
}

// NewBase groups catalogues, ordered by kind.
func NewBase(catalogues ...*Catalogue) *Base {
	sorted := append([]*Catalogue(nil), catalogues...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Kind < sorted[j].Kind })
	return &Base{catalogues: sorted}
}

// Load reads the embedded catalogues.
func Load() (*Base, error) {
	return LoadFS(dataFS, "data")
}

// LoadFS reads every *.yaml file in dir of fsys as a catalogue.
func LoadFS(fsys fs.FS, dir string) (*Base, error) {
	matches, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	var cats []*Catalogue
	for _, name := range matches {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		c, err := ParseCatalogue(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		cats = append(cats, c)
	}
	return NewBase(cats...), nil
}

// Kinds lists the catalogue kinds in order.
func (b *Base) Kinds() []Kind {
	out := make([]Kind, len(b.catalogues))
	for i, c := range b.catalogues {
		out[i] = c.Kind
	}
	return out
}

// Catalogue returns the catalogue for kind, or nil.
func (b *Base) Catalogue(kind Kind) *Catalogue {
	for _, c := range b.catalogues {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// Search queries every catalogue in kind order.
func (b *Base) Search(query string) []Result {
	var out []Result
	for _, c := range b.catalogues {
		out = append(out, c.Search(query)...)
	}
	return out
}
