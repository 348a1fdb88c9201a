package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"sjcharts/internal/config"
	"sjcharts/internal/source/csvsource"
	"sjcharts/internal/source/memory"
	"sjcharts/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}

	app := &config.Config{DataBackend: "bogus"}
	if _, err := FromAppConfig(app); err == nil {
		t.Fatalf("expected error for invalid backend")
	}

	app = &config.Config{
		DataBackend:      "csv",
		CSVURL:           "file:///srv/sj.csv",
		DataFetchTimeout: 5 * time.Second,
		DataDir:          "seed",
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Type != CSVBackend || cfg.CSVLocation != "/srv/sj.csv" || cfg.FetchTimeout != 5*time.Second || cfg.DataDirectory != "seed" {
		t.Fatalf("unexpected backend config %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		cfg Config
		ok  bool
	}{
		{Config{Type: CSVBackend, CSVLocation: "x.csv"}, true},
		{Config{Type: CSVBackend}, false},
		{Config{Type: SQLiteBackend}, false},
		{Config{Type: SheetsBackend}, false},
		{Config{Type: MemoryBackend}, true},
		{Config{Type: "nope"}, false},
	}
	for i, tc := range cases {
		err := tc.cfg.Validate()
		if tc.ok != (err == nil) {
			t.Fatalf("case %d: ok=%v err=%v", i, tc.ok, err)
		}
	}
	if got := GetBackendTypeStrings(); len(got) != 4 || got[0] != "csv" {
		t.Fatalf("unexpected backend types %v", got)
	}
}

func TestCreateBackend(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	res, err := f.CreateBackend(ctx, Config{Type: CSVBackend, CSVLocation: "data.csv"})
	if err != nil {
		t.Fatalf("csv backend: %v", err)
	}
	if _, ok := res.Backend.(*csvsource.Reader); !ok {
		t.Fatalf("expected csv reader, got %T", res.Backend)
	}

	res, err = f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if _, ok := res.Backend.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", res.Backend)
	}

	res, err = f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "sj.db")})
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	if _, ok := res.Backend.(*storage.SQLiteRepository); !ok || res.Cleanup == nil {
		t.Fatalf("expected sqlite repository with cleanup, got %T", res.Backend)
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if _, err := f.CreateBackend(ctx, Config{Type: SheetsBackend}); err == nil {
		t.Fatalf("expected error for sheets backend without spreadsheet id")
	}
}
