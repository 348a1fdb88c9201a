package storage

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"sjcharts/internal/core"
	"sjcharts/internal/source"
)

func newRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "sj.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestImportAndRead(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	a := core.NewRecord(2009, 2)
	a.ConstructionJobs = 30
	b := core.NewRecord(2008, 1)
	b.ConstructionJobs = 10
	b.Unemployment = 5.5

	n, err := repo.WithOrigin("test.csv").Import(ctx, []core.Record{a, b})
	if err != nil || n != 2 {
		t.Fatalf("import: n=%d err=%v", n, err)
	}

	got, err := repo.ReadRecords(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0].Year != 2008 || got[1].Year != 2009 {
		t.Fatalf("records must come back ordered by period: %+v", got)
	}
	if got[0].Unemployment != 5.5 || !math.IsNaN(got[1].Unemployment) {
		t.Fatalf("NaN must round-trip as NULL: %+v", got)
	}

	last, ok, err := repo.LastImport(ctx)
	if err != nil || !ok || last.Source != "test.csv" || last.RecordCount != 2 {
		t.Fatalf("unexpected last import %+v ok=%v err=%v", last, ok, err)
	}
}

func TestImportReplacesSnapshot(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	if _, err := repo.Import(ctx, []core.Record{core.NewRecord(2008, 1), core.NewRecord(2008, 2)}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Import(ctx, []core.Record{core.NewRecord(2015, 1)}); err != nil {
		t.Fatal(err)
	}
	n, err := repo.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 record after re-import, got %d (err=%v)", n, err)
	}
}

func TestImportRejectsInvalidRecord(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	if _, err := repo.Import(ctx, []core.Record{core.NewRecord(2008, 1)}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Import(ctx, []core.Record{core.NewRecord(2008, 13)}); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Fatalf("failed import must leave snapshot untouched, got %d", n)
	}
}

func TestEmptySnapshotIsUnavailable(t *testing.T) {
	repo, _ := newRepo(t)
	if _, err := repo.ReadRecords(context.Background()); !errors.Is(err, source.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
	if _, ok, err := repo.LastImport(context.Background()); ok || err != nil {
		t.Fatalf("expected no import, ok=%v err=%v", ok, err)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	_, path := newRepo(t)
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second migration run: %v", err)
	}
	v, dirty, err := SchemaVersion(path)
	if err != nil || dirty || v != 2 {
		t.Fatalf("unexpected schema version v=%d dirty=%v err=%v", v, dirty, err)
	}
}
