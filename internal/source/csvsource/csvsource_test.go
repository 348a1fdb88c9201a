package csvsource

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sjcharts/internal/source"
)

const sample = `Year,Month,Construction Jobs,"Trade, Transportation and Utilities Jobs",SJ Unemployment,SJ Metro Unemployment
2008,1,10,100,5.5,6.1
2008,2,20,,5.7,6.3
2009,1,30,300,,9.0
`

func TestParse(t *testing.T) {
	got, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	first := got[0]
	if first.Year != 2008 || first.Month != 1 || first.ConstructionJobs != 10 || first.TradeTransportationJobs != 100 {
		t.Fatalf("unexpected first record %+v", first)
	}
	if first.Unemployment != 5.5 || first.MetroUnemployment != 6.1 {
		t.Fatalf("unexpected unemployment %+v", first)
	}
	if !math.IsNaN(got[1].TradeTransportationJobs) {
		t.Fatalf("empty cell must be NaN")
	}
	if !math.IsNaN(got[2].Unemployment) {
		t.Fatalf("empty unemployment must be NaN")
	}
	if !math.IsNaN(first.ManufacturingJobs) {
		t.Fatalf("absent column must be NaN")
	}
}

func TestParseSchemaDrift(t *testing.T) {
	cases := map[string]string{
		"missing year":       "Month,Construction Jobs\n1,2\n",
		"no known column":    "Year,Month,Housing\n2008,1,2\n",
		"fractional year":    "Year,SJ Unemployment\n2008.5,1\n",
		"month out of range": "Year,Month,SJ Unemployment\n2008,13,1\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(in))
			if !errors.Is(err, source.ErrSchemaDrift) {
				t.Fatalf("expected ErrSchemaDrift, got %v", err)
			}
		})
	}
}

func TestReadRecordsHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data.csv":
			w.Header().Set("Content-Type", "text/csv")
			_, _ = w.Write([]byte(sample))
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	r, err := New(Config{Location: srv.URL + "/data.csv", Timeout: 5 * time.Second, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := r.ReadRecords(context.Background())
	if err != nil || len(got) != 3 {
		t.Fatalf("expected 3 records, got %d (err=%v)", len(got), err)
	}

	missing, _ := New(Config{Location: srv.URL + "/missing.csv", HTTPClient: srv.Client()})
	if _, err := missing.ReadRecords(context.Background()); !errors.Is(err, source.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable for 404, got %v", err)
	}
}

func TestReadRecordsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/data.csv"
	srv.Close()

	r, _ := New(Config{Location: url, Timeout: time.Second})
	if _, err := r.ReadRecords(context.Background()); !errors.Is(err, source.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestReadRecordsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sj.csv")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	r, _ := New(Config{Location: path})
	got, err := r.ReadRecords(context.Background())
	if err != nil || len(got) != 3 {
		t.Fatalf("expected 3 records, got %d (err=%v)", len(got), err)
	}

	gone, _ := New(Config{Location: filepath.Join(dir, "nope.csv")})
	if _, err := gone.ReadRecords(context.Background()); !errors.Is(err, source.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestNewRequiresLocation(t *testing.T) {
	if _, err := New(Config{Location: "  "}); err == nil {
		t.Fatalf("expected error for empty location")
	}
}
