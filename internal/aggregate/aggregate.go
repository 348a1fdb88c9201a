// Package aggregate turns monthly economics records into per-year summary
// tables.
package aggregate

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"sjcharts/internal/core"
)

var ErrInvalidRange = errors.New("invalid year range")

// YearRange is the inclusive range of years a table covers.
type YearRange = core.YearRange

// EmptyPolicy decides what happens to years in range that have no records.
type EmptyPolicy int

const (
	// EmptySentinel emits a row whose values are all invalid.
	EmptySentinel EmptyPolicy = iota
	// EmptyOmit drops the row.
	EmptyOmit
)

func (p EmptyPolicy) String() string {
	switch p {
	case EmptySentinel:
		return "sentinel"
	case EmptyOmit:
		return "omit"
	default:
		return fmt.Sprintf("EmptyPolicy(%d)", int(p))
	}
}

// Options tunes Aggregate. The zero value keeps every numeric column, keeps
// full precision and emits sentinel rows for empty years.
type Options struct {
	Filter     Filter
	Round      bool
	EmptyYears EmptyPolicy
}

// Aggregate groups records by year and averages every selected column for
// each year in r, ascending. Cells holding NaN are left out of the mean; a
// column with no usable cell in a year yields an invalid value.
func Aggregate(records []core.Record, r YearRange, opts Options) (Table, error) {
	if !r.Valid() {
		return Table{}, fmt.Errorf("%w: %d > %d", ErrInvalidRange, r.Lo, r.Hi)
	}

	cols := selectColumns(opts.Filter)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}

	byYear := make(map[int][]core.Record, r.Len())
	for _, rec := range records {
		if r.Contains(rec.Year) {
			byYear[rec.Year] = append(byYear[rec.Year], rec)
		}
	}

	t := Table{Columns: names, Rows: make([]Row, 0, r.Len())}
	for year := r.Lo; year <= r.Hi; year++ {
		group, ok := byYear[year]
		if !ok {
			if opts.EmptyYears == EmptyOmit {
				continue
			}
			t.Rows = append(t.Rows, Row{Year: year, Values: make([]Value, len(cols))})
			continue
		}

		row := Row{Year: year, Values: make([]Value, len(cols))}
		for i, c := range cols {
			v, err := mean(group, c, opts.Round)
			if err != nil {
				return Table{}, fmt.Errorf("aggregate %q for %d: %w", c.Name, year, err)
			}
			row.Values[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func selectColumns(f Filter) []core.Column {
	if f == nil {
		return core.Columns
	}
	var cols []core.Column
	for _, c := range core.Columns {
		if f(c.Name) {
			cols = append(cols, c)
		}
	}
	return cols
}

func mean(group []core.Record, c core.Column, round bool) (Value, error) {
	data := make(stats.Float64Data, 0, len(group))
	for _, rec := range group {
		if v := c.Get(rec); !math.IsNaN(v) {
			data = append(data, v)
		}
	}
	if len(data) == 0 {
		return Value{}, nil
	}
	m, err := data.Mean()
	if err != nil {
		return Value{}, err
	}
	if round {
		// Ties go to the even neighbour: 2.5 -> 2, 3.5 -> 4.
		m = math.RoundToEven(m)
	}
	return Valid(m), nil
}
