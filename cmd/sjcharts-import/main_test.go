package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "sjcharts/internal/log"
	"sjcharts/internal/storage"
)

const sampleCSV = `Year,Month,Construction Jobs,SJ Unemployment
2008,1,10,5.1
2008,2,20,5.3
2009,1,30,
`

func TestRunImportsIntoSQLite(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))
	dbPath := filepath.Join(dir, "db", "sjcharts.db")

	var out bytes.Buffer
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	require.NoError(t, run(context.Background(), options{csv: csvPath, db: dbPath}, &out, logger))
	assert.Contains(t, out.String(), "Imported 3 records")

	repo, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	records, err := repo.ReadRecords(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 3)

	last, ok, err := repo.LastImport(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, csvPath, last.Source)
	assert.EqualValues(t, 3, last.RecordCount)
}

func TestRunMissingCSV(t *testing.T) {
	dir := t.TempDir()
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	err := run(context.Background(), options{csv: filepath.Join(dir, "missing.csv"), db: filepath.Join(dir, "x.db")}, io.Discard, logger)
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "x.db"))
	assert.True(t, os.IsNotExist(statErr), "database must not be created when the CSV cannot be read")
}
