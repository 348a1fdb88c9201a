// Package chart lays out summary tables as inline SVG line charts.
package chart

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"

	"sjcharts/internal/aggregate"
)

// Palette is cycled through for series colors.
var Palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd", "#8c564b",
	"#e377c2", "#7f7f7f", "#bcbd22", "#17becf", "#393b79", "#ad494a",
}

type (
	// Series selects a table column and how it is labelled.
	Series struct {
		Column string
		Label  string
		Code   string
	}

	Options struct {
		Width  float64
		Height float64
		// Ticks is the desired number of y-axis ticks.
		Ticks int
	}

	Point struct {
		X, Y  float64
		Year  int
		Value string
	}

	Line struct {
		Label string
		Code  string
		Color string
		// Paths holds one SVG points attribute per run of valid values.
		Paths  []string
		Points []Point
	}

	Tick struct {
		Pos   float64
		Label string
	}

	Rect struct {
		X, Y, W, H float64
	}

	Chart struct {
		ID     string
		YLabel string
		Width  float64
		Height float64
		Plot   Rect
		Lines  []Line
		XTicks []Tick
		YTicks []Tick
		Empty  bool
	}
)

func DefaultOptions() Options {
	return Options{Width: 800, Height: 400, Ticks: 5}
}

// margins around the plot area: top, right, bottom, left
const (
	marginTop    = 20
	marginRight  = 20
	marginBottom = 40
	marginLeft   = 70
)

// Build converts the requested series of t into a chart. Series whose column
// is missing from t are skipped. A table without valid values yields an
// empty chart.
func Build(id string, t aggregate.Table, series []Series, opts Options) Chart {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.Ticks < 2 {
		opts.Ticks = def.Ticks
	}

	c := Chart{
		ID:     id,
		Width:  opts.Width,
		Height: opts.Height,
		Plot: Rect{
			X: marginLeft,
			Y: marginTop,
			W: opts.Width - marginLeft - marginRight,
			H: opts.Height - marginTop - marginBottom,
		},
	}

	type column struct {
		s      Series
		values []aggregate.Value
	}
	var cols []column
	var all stats.Float64Data
	for _, s := range series {
		vals, ok := t.Series(s.Column)
		if !ok {
			continue
		}
		cols = append(cols, column{s: s, values: vals})
		for _, v := range vals {
			if v.Valid {
				all = append(all, v.Float)
			}
		}
	}

	years := t.Years()
	if len(years) == 0 || len(all) == 0 {
		c.Empty = true
		return c
	}

	lo, _ := all.Min()
	hi, _ := all.Max()
	ticks := niceTicks(lo, hi, opts.Ticks)
	yMin, yMax := ticks[0], ticks[len(ticks)-1]

	xFor := func(i int) float64 {
		if len(years) == 1 {
			return c.Plot.X + c.Plot.W/2
		}
		return c.Plot.X + c.Plot.W*float64(i)/float64(len(years)-1)
	}
	yFor := func(v float64) float64 {
		return c.Plot.Y + c.Plot.H*(1-(v-yMin)/(yMax-yMin))
	}

	for i, y := range years {
		c.XTicks = append(c.XTicks, Tick{Pos: xFor(i), Label: strconv.Itoa(y)})
	}
	for _, v := range ticks {
		c.YTicks = append(c.YTicks, Tick{Pos: yFor(v), Label: FormatNumber(v)})
	}

	for n, col := range cols {
		line := Line{Label: col.s.Label, Code: col.s.Code, Color: Palette[n%len(Palette)]}
		if line.Label == "" {
			line.Label = col.s.Column
		}
		var run []string
		flush := func() {
			if len(run) > 0 {
				line.Paths = append(line.Paths, strings.Join(run, " "))
				run = nil
			}
		}
		for i, v := range col.values {
			if !v.Valid {
				flush()
				continue
			}
			p := Point{X: round2(xFor(i)), Y: round2(yFor(v.Float)), Year: years[i], Value: FormatNumber(v.Float)}
			line.Points = append(line.Points, p)
			run = append(run, fmt.Sprintf("%g,%g", p.X, p.Y))
		}
		flush()
		c.Lines = append(c.Lines, line)
	}
	return c
}

// FormatNumber renders a value with thousands separators and at most two
// decimals.
func FormatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return humanize.CommafWithDigits(f, 2)
}

// FormatValue is FormatNumber for table cells; invalid values render empty.
func FormatValue(v aggregate.Value) string {
	if !v.Valid {
		return ""
	}
	return FormatNumber(v.Float)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// niceTicks returns evenly spaced round values covering [lo, hi].
func niceTicks(lo, hi float64, n int) []float64 {
	if lo == hi {
		pad := math.Abs(lo) * 0.1
		if pad == 0 {
			pad = 1
		}
		lo, hi = lo-pad, hi+pad
	}
	step := niceStep((hi - lo) / float64(n-1))
	first := math.Floor(lo / step)
	last := math.Ceil(hi / step)

	out := make([]float64, 0, int(last-first)+1)
	for k := first; k <= last; k++ {
		out = append(out, k*step)
	}
	return out
}

// niceStep rounds x to 1, 2 or 5 times a power of ten.
func niceStep(x float64) float64 {
	exp := math.Floor(math.Log10(x))
	f := x / math.Pow(10, exp)
	var nf float64
	switch {
	case f < 1.5:
		nf = 1
	case f < 3:
		nf = 2
	case f < 7:
		nf = 5
	default:
		nf = 10
	}
	return nf * math.Pow(10, exp)
}
