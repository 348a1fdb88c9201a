package memory

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"sjcharts/internal/core"
	"sjcharts/internal/source"
	"sjcharts/internal/source/csvsource"
)

// SeedFile is the CSV looked up by NewFromFiles.
const SeedFile = "sj_economics_monthly.csv"

var (
	_ source.RecordReader   = (*Store)(nil)
	_ source.RecordImporter = (*Store)(nil)
)

// Store keeps records in memory. It is used in development and tests.
type Store struct {
	mu      sync.Mutex
	records []core.Record
	err     error
}

func New(records []core.Record) *Store {
	return &Store{records: append([]core.Record(nil), records...)}
}

// NewFromFiles seeds the store from base/SeedFile when it exists and
// parses; otherwise the store starts empty.
func NewFromFiles(base string) *Store {
	path := filepath.Join(base, SeedFile)
	f, err := os.Open(path)
	if err != nil {
		return New(nil)
	}
	defer f.Close()
	records, err := csvsource.Parse(f)
	if err != nil {
		slog.Warn("Ignoring unreadable seed file", "path", path, "error", err)
		return New(nil)
	}
	return New(records)
}

// ReadRecords returns a copy of the stored records.
func (s *Store) ReadRecords(_ context.Context) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]core.Record(nil), s.records...), nil
}

// Import replaces the stored records.
func (s *Store) Import(_ context.Context, records []core.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]core.Record(nil), records...)
	return len(records), nil
}

// Fail makes subsequent reads return err wrapped as unavailable; nil heals
// the store.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = source.Unavailable("memory store", err)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
