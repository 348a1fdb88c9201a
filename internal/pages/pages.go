// Package pages maps request paths to the dashboard pages declared in the
// embedded page catalog.
package pages

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"sjcharts/web"
)

var ErrEmptyCatalog = errors.New("page catalog has no pages")

type (
	// Series is one plotted column with its legend label and short code.
	Series struct {
		Column string `yaml:"column"`
		Label  string `yaml:"label"`
		Code   string `yaml:"code"`
	}

	Page struct {
		Name        string   `yaml:"name"`
		Path        string   `yaml:"path"`
		Nav         string   `yaml:"nav"`
		Title       string   `yaml:"title"`
		Chart       string   `yaml:"chart"`
		Table       string   `yaml:"table"`
		YLabel      string   `yaml:"y_label"`
		Placeholder string   `yaml:"placeholder"`
		Series      []Series `yaml:"series"`
	}

	// Catalog holds the pages in navigation order. The first page is the
	// fallback for paths that match nothing.
	Catalog struct {
		pages  []Page
		byPath map[string]int
	}
)

// HasChart reports whether the page renders a data table and chart.
func (p Page) HasChart() bool { return p.Table != "" }

// Columns returns the plotted column names in legend order.
func (p Page) Columns() []string {
	cols := make([]string, len(p.Series))
	for i, s := range p.Series {
		cols[i] = s.Column
	}
	return cols
}

// Load parses a YAML page catalog.
func Load(data []byte) (*Catalog, error) {
	var doc struct {
		Pages []Page `yaml:"pages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse page catalog: %w", err)
	}
	if len(doc.Pages) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{pages: doc.Pages, byPath: make(map[string]int, len(doc.Pages))}
	names := make(map[string]bool, len(doc.Pages))
	for i, p := range doc.Pages {
		if p.Name == "" || p.Path == "" {
			return nil, fmt.Errorf("page %d: name and path are required", i)
		}
		if names[p.Name] {
			return nil, fmt.Errorf("duplicate page name %q", p.Name)
		}
		if _, dup := c.byPath[p.Path]; dup {
			return nil, fmt.Errorf("duplicate page path %q", p.Path)
		}
		names[p.Name] = true
		c.byPath[p.Path] = i
	}
	return c, nil
}

// Default loads the catalog embedded in the web package.
func Default() (*Catalog, error) {
	return Load(web.PagesYAML)
}

// Select returns the page registered for path, or the first page.
func (c *Catalog) Select(path string) Page {
	if i, ok := c.byPath[path]; ok {
		return c.pages[i]
	}
	return c.pages[0]
}

// Pages returns the pages in navigation order.
func (c *Catalog) Pages() []Page {
	out := make([]Page, len(c.pages))
	copy(out, c.pages)
	return out
}

// Tables returns the distinct table keys referenced by the pages.
func (c *Catalog) Tables() []string {
	seen := map[string]bool{}
	var keys []string
	for _, p := range c.pages {
		if p.Table != "" && !seen[p.Table] {
			seen[p.Table] = true
			keys = append(keys, p.Table)
		}
	}
	return keys
}
