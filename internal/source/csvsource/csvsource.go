// Package csvsource reads the economics dataset from a CSV file, either
// over HTTP or from the local filesystem.
package csvsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"sjcharts/internal/core"
	"sjcharts/internal/source"
)

// maxBodyBytes caps how much of a remote CSV is read.
const maxBodyBytes = 32 << 20

var _ source.RecordReader = (*Reader)(nil)

type Config struct {
	// Location is an http(s) URL or a filesystem path.
	Location string
	Timeout  time.Duration
	// HTTPClient overrides the pooled default client.
	HTTPClient *http.Client
}

type Reader struct {
	location string
	timeout  time.Duration
	client   *http.Client
}

func New(cfg Config) (*Reader, error) {
	loc := strings.TrimSpace(cfg.Location)
	if loc == "" {
		return nil, errors.New("missing CSV location")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = newHTTPClientWithPooling()
	}
	return &Reader{location: loc, timeout: cfg.Timeout, client: client}, nil
}

func (r *Reader) Location() string { return r.location }

// ReadRecords fetches and parses the CSV.
func (r *Reader) ReadRecords(ctx context.Context) ([]core.Record, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	body, err := r.open(ctx)
	if err != nil {
		return nil, source.Unavailable("open csv", err)
	}
	defer body.Close()

	records, err := Parse(body)
	if err != nil {
		return nil, source.Unavailable("parse csv", err)
	}
	slog.DebugContext(ctx, "CSV loaded",
		"location", r.location,
		"records", len(records),
		"duration_ms", time.Since(start).Milliseconds())
	return records, nil
}

func (r *Reader) open(ctx context.Context) (io.ReadCloser, error) {
	if !isRemote(r.location) {
		return os.Open(r.location)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.location, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %d", r.location, resp.StatusCode)
	}
	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(resp.Body, maxBodyBytes), resp.Body}, nil
}

func isRemote(loc string) bool {
	l := strings.ToLower(loc)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Parse reads a CSV with a header row into records. Numeric cells that are
// empty or unparsable become NaN; rows without a Year are dropped.
func Parse(in io.Reader) ([]core.Record, error) {
	types := map[string]series.Type{
		core.ColYear:  series.Float,
		core.ColMonth: series.Float,
	}
	for _, c := range core.Columns {
		types[c.Name] = series.Float
	}

	df := dataframe.ReadCSV(in,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(types),
		dataframe.NaNValues([]string{"", "NA", "N/A", "NaN", "-"}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read csv: %w", df.Err)
	}

	header := df.Names()
	if !has(header, core.ColYear) {
		return nil, fmt.Errorf("%w: missing %q column; got headers=%v", source.ErrSchemaDrift, core.ColYear, header)
	}
	if err := source.CheckHeader(header); err != nil {
		return nil, err
	}

	years := df.Col(core.ColYear).Float()
	var months []float64
	if has(header, core.ColMonth) {
		months = df.Col(core.ColMonth).Float()
	}

	type column struct {
		col    core.Column
		values []float64
	}
	var cols []column
	for _, c := range core.Columns {
		if has(header, c.Name) {
			cols = append(cols, column{col: c, values: df.Col(c.Name).Float()})
		}
	}

	out := make([]core.Record, 0, df.Nrow())
	for i, y := range years {
		if math.IsNaN(y) {
			continue
		}
		if y != math.Trunc(y) || y < 1 || y > 9999 {
			return nil, fmt.Errorf("%w: row %d: year %v: %w", source.ErrSchemaDrift, i+1, y, core.ErrInvalidYear)
		}
		month := 0
		if months != nil && !math.IsNaN(months[i]) {
			month = int(months[i])
		}
		rec := core.NewRecord(int(y), month)
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", source.ErrSchemaDrift, i+1, err)
		}
		for _, c := range cols {
			c.col.Set(&rec, c.values[i])
		}
		out = append(out, rec)
	}
	return out, nil
}

func has(header []string, name string) bool {
	for _, h := range header {
		if h == name {
			return true
		}
	}
	return false
}

// newHTTPClientWithPooling creates an HTTP client for fetching the dataset
// with connection pooling, timeouts and keep-alive.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}
