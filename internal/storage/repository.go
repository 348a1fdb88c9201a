package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sjcharts/internal/core"
	"sjcharts/internal/source"

	_ "modernc.org/sqlite"
)

var (
	_ source.RecordReader   = (*SQLiteRepository)(nil)
	_ source.RecordImporter = (*SQLiteRepository)(nil)
)

// SQLiteRepository stores one snapshot of the economics dataset.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	origin  string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db), origin: "manual"}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WithOrigin sets the source label recorded by Import.
func (r *SQLiteRepository) WithOrigin(origin string) *SQLiteRepository {
	r.origin = origin
	return r
}

// ReadRecords implements source.RecordReader. An empty snapshot is reported
// as unavailable data.
func (r *SQLiteRepository) ReadRecords(ctx context.Context) ([]core.Record, error) {
	records, err := r.queries.ListRecords(ctx)
	if err != nil {
		return nil, source.Unavailable("sqlite", fmt.Errorf("list records: %w", err))
	}
	if len(records) == 0 {
		return nil, source.Unavailable("sqlite", errors.New("no imported records; run sjcharts-import"))
	}
	return records, nil
}

// Import implements source.RecordImporter: the stored snapshot is replaced
// atomically.
func (r *SQLiteRepository) Import(ctx context.Context, records []core.Record) (int, error) {
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return 0, fmt.Errorf("record %d/%d: %w", rec.Year, rec.Month, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteRecords(ctx); err != nil {
		return 0, fmt.Errorf("clear snapshot: %w", err)
	}
	if err := q.InsertRecords(ctx, records); err != nil {
		return 0, err
	}
	if err := q.CreateImport(ctx, r.origin, int64(len(records)), time.Now()); err != nil {
		return 0, fmt.Errorf("record import: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot imported into SQLite",
		"records", len(records),
		"origin", r.origin)
	return len(records), nil
}

// LastImport returns the most recent import, ok=false when none happened.
func (r *SQLiteRepository) LastImport(ctx context.Context) (Import, bool, error) {
	i, err := r.queries.LatestImport(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Import{}, false, nil
	}
	if err != nil {
		return Import{}, false, fmt.Errorf("latest import: %w", err)
	}
	return i, true, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
