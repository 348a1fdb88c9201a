package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"sjcharts/internal/aggregate"
	"sjcharts/internal/chart"
	"sjcharts/internal/pages"
	"sjcharts/internal/source"
)

type (
	navItem struct {
		Label  string
		Path   string
		Active bool
	}

	tableView struct {
		Headers []string
		Rows    [][]string
		Shown   int
		Total   int
	}

	pageView struct {
		AppTitle  string
		Nav       []navItem
		Page      pages.Page
		Chart     *chart.Chart
		Table     *tableView
		Error     string
		DataLink  string
		RequestID string
	}
)

// isHTMX reports whether the request came from an htmx swap.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func navItems(c *pages.Catalog, current pages.Page) []navItem {
	all := c.Pages()
	items := make([]navItem, 0, len(all))
	for _, p := range all {
		label := p.Nav
		if label == "" {
			label = p.Title
		}
		items = append(items, navItem{Label: label, Path: p.Path, Active: p.Name == current.Name})
	}
	return items
}

func chartSeries(p pages.Page) []chart.Series {
	out := make([]chart.Series, len(p.Series))
	for i, s := range p.Series {
		out[i] = chart.Series{Column: s.Column, Label: s.Label, Code: s.Code}
	}
	return out
}

// newTableView renders the first maxRows rows of t restricted to columns.
func newTableView(t aggregate.Table, columns []string, maxRows int) *tableView {
	projected := t.Project(aggregate.OneOf(columns...))
	head := projected.Head(maxRows)

	v := &tableView{Headers: head.Names(), Shown: head.Len(), Total: t.Len()}
	for _, row := range head.Rows {
		cells := make([]string, 0, len(row.Values)+1)
		cells = append(cells, strconv.Itoa(row.Year))
		for _, val := range row.Values {
			cells = append(cells, chart.FormatValue(val))
		}
		v.Rows = append(v.Rows, cells)
	}
	return v
}

// dataStatus maps a table load failure to an HTTP status.
func dataStatus(err error) int {
	switch {
	case errors.Is(err, source.ErrDataUnavailable),
		errors.Is(err, source.ErrSchemaDrift),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func dataErrorMessage(status int) string {
	if status == http.StatusServiceUnavailable {
		return "The San Jose economics data could not be loaded right now. Please try again later."
	}
	return "Something went wrong while preparing this chart."
}
