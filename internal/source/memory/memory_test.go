package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sjcharts/internal/core"
	"sjcharts/internal/source"
)

func TestMemoryStoreReadAndImport(t *testing.T) {
	s := New([]core.Record{core.NewRecord(2008, 1)})
	got, err := s.ReadRecords(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("unexpected read: %v err=%v", got, err)
	}
	got[0].Year = 1999
	again, _ := s.ReadRecords(context.Background())
	if again[0].Year != 2008 {
		t.Fatalf("read must return a copy")
	}

	n, err := s.Import(context.Background(), []core.Record{core.NewRecord(2010, 1), core.NewRecord(2011, 1)})
	if err != nil || n != 2 || s.Len() != 2 {
		t.Fatalf("unexpected import: n=%d len=%d err=%v", n, s.Len(), err)
	}
}

func TestMemoryStoreFail(t *testing.T) {
	s := New(nil)
	s.Fail(errors.New("offline"))
	if _, err := s.ReadRecords(context.Background()); !errors.Is(err, source.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
	s.Fail(nil)
	if _, err := s.ReadRecords(context.Background()); err != nil {
		t.Fatalf("expected healed store, got %v", err)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	if s := NewFromFiles(dir); s.Len() != 0 {
		t.Fatalf("expected empty store without seed file")
	}

	csv := "Year,Month,SJ Unemployment\n2008,1,5.5\n2008,2,5.7\n"
	if err := os.WriteFile(filepath.Join(dir, SeedFile), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFromFiles(dir)
	if s.Len() != 2 {
		t.Fatalf("expected 2 seeded records, got %d", s.Len())
	}
}
