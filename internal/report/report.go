// Package report prints summary tables for the command-line tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"sjcharts/internal/aggregate"
	"sjcharts/internal/chart"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text or json)", s)
	}
}

// Write renders t in the given format.
func Write(w io.Writer, f Format, key string, t aggregate.Table) error {
	if f == FormatJSON {
		return WriteJSON(w, key, t)
	}
	return WriteText(w, t)
}

// WriteText renders t as an aligned text table. Years without data show
// empty cells.
func WriteText(w io.Writer, t aggregate.Table) error {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(t.Names())
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, row := range t.Rows {
		cells := make([]string, 0, len(row.Values)+1)
		cells = append(cells, strconv.Itoa(row.Year))
		for _, v := range row.Values {
			cells = append(cells, chart.FormatValue(v))
		}
		tw.Append(cells)
	}
	tw.Render()
	return nil
}

// WriteJSON renders t as {"key": ..., "columns": {...}} like the table API.
func WriteJSON(w io.Writer, key string, t aggregate.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{"key": key, "columns": t.Columnar()}); err != nil {
		return fmt.Errorf("encode table %s: %w", key, err)
	}
	return nil
}
