package aggregate

import (
	"encoding/json"
	"strconv"

	"sjcharts/internal/core"
)

// Value is a yearly mean. Valid is false when the year had no data.
type Value struct {
	Float float64
	Valid bool
}

func Valid(f float64) Value { return Value{Float: f, Valid: true} }

func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float, 'f', -1, 64)
}

// MarshalJSON encodes invalid values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Float)
}

// Row is one year of a summary table; Values is aligned with Table.Columns.
type Row struct {
	Year   int
	Values []Value
}

// Table is a per-year summary ordered by ascending year. Columns lists the
// numeric columns; the Year column is implicit and always first.
type Table struct {
	Columns []string
	Rows    []Row
}

func (t Table) Len() int { return len(t.Rows) }

// Names returns every column name including Year.
func (t Table) Names() []string {
	return append([]string{core.ColYear}, t.Columns...)
}

func (t Table) Years() []int {
	years := make([]int, len(t.Rows))
	for i, r := range t.Rows {
		years[i] = r.Year
	}
	return years
}

func (t Table) index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Series returns the values of one numeric column in row order.
func (t Table) Series(name string) ([]Value, bool) {
	i := t.index(name)
	if i < 0 {
		return nil, false
	}
	out := make([]Value, len(t.Rows))
	for j, r := range t.Rows {
		out[j] = r.Values[i]
	}
	return out, true
}

// Columnar exposes the table as parallel named arrays.
func (t Table) Columnar() map[string]any {
	out := make(map[string]any, len(t.Columns)+1)
	out[core.ColYear] = t.Years()
	for _, c := range t.Columns {
		s, _ := t.Series(c)
		out[c] = s
	}
	return out
}

// Project keeps Year and the numeric columns accepted by f. Row order and
// values are preserved.
func (t Table) Project(f Filter) Table {
	var keep []int
	for i, c := range t.Columns {
		if f != nil && f(c) {
			keep = append(keep, i)
		}
	}
	out := Table{Columns: make([]string, len(keep)), Rows: make([]Row, len(t.Rows))}
	for j, i := range keep {
		out.Columns[j] = t.Columns[i]
	}
	for r, row := range t.Rows {
		vals := make([]Value, len(keep))
		for j, i := range keep {
			vals[j] = row.Values[i]
		}
		out.Rows[r] = Row{Year: row.Year, Values: vals}
	}
	return out
}

// ProjectColumns is Project with a glob pattern over column names.
func ProjectColumns(t Table, pattern string) Table {
	return t.Project(MatchGlob(pattern))
}

// Head returns the first n rows. A negative n keeps every row.
func (t Table) Head(n int) Table {
	if n < 0 || n >= len(t.Rows) {
		return t
	}
	return Table{Columns: t.Columns, Rows: t.Rows[:n]}
}
