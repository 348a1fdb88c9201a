// Package source defines how the dashboard obtains raw economics records.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sjcharts/internal/core"
)

var (
	// ErrDataUnavailable means the dataset could not be fetched or read.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrSchemaDrift means the dataset is readable but lacks a required column.
	ErrSchemaDrift = errors.New("schema drift")
)

// Ports for inbound data.
type (
	RecordReader interface {
		ReadRecords(ctx context.Context) ([]core.Record, error)
	}

	// RecordImporter replaces a stored snapshot with the given records.
	RecordImporter interface {
		Import(ctx context.Context, records []core.Record) (int, error)
	}
)

// Unavailable wraps err so that errors.Is(err, ErrDataUnavailable) holds.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDataUnavailable) || errors.Is(err, ErrSchemaDrift) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrDataUnavailable, err)
}

// CheckHeader verifies that the header carries Year and at least one known
// numeric column.
func CheckHeader(header []string) error {
	if indexOf(header, core.ColYear) < 0 {
		return fmt.Errorf("%w: missing %q column; got headers=%v", ErrSchemaDrift, core.ColYear, header)
	}
	for _, c := range core.Columns {
		if indexOf(header, c.Name) >= 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: no known numeric column; got headers=%v", ErrSchemaDrift, header)
}

// FromRows converts a header plus string rows into records. Rows with an
// empty Year are skipped; unknown columns are ignored; unparsable numeric
// cells become NaN.
func FromRows(header []string, rows [][]string) ([]core.Record, error) {
	if err := CheckHeader(header); err != nil {
		return nil, err
	}
	colYear := indexOf(header, core.ColYear)
	colMonth := indexOf(header, core.ColMonth)

	type binding struct {
		idx int
		col core.Column
	}
	var bound []binding
	for _, c := range core.Columns {
		if i := indexOf(header, c.Name); i >= 0 {
			bound = append(bound, binding{idx: i, col: c})
		}
	}

	out := make([]core.Record, 0, len(rows))
	for n, row := range rows {
		yearCell := safeGet(row, colYear)
		if strings.TrimSpace(yearCell) == "" {
			continue
		}
		year, err := core.ParseYear(yearCell)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %q: %w", ErrSchemaDrift, n+1, yearCell, err)
		}
		month, err := core.ParseMonth(safeGet(row, colMonth))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrSchemaDrift, n+1, err)
		}
		rec := core.NewRecord(year, month)
		for _, b := range bound {
			if v, err := core.ParseCell(safeGet(row, b.idx)); err == nil {
				b.col.Set(&rec, v)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
