package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"sjcharts/internal/core"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// sqlColumns maps dataset columns to economics_monthly columns.
var sqlColumns = map[string]string{
	core.ColConstructionJobs:         "construction_jobs",
	core.ColEducationHealthJobs:      "education_health_jobs",
	core.ColFinancialJobs:            "financial_jobs",
	core.ColInformationJobs:          "information_jobs",
	core.ColLeisureHospitalityJobs:   "leisure_hospitality_jobs",
	core.ColManufacturingJobs:        "manufacturing_jobs",
	core.ColNaturalResourcesJobs:     "natural_resources_jobs",
	core.ColOtherServicesJobs:        "other_services_jobs",
	core.ColProfessionalJobs:         "professional_jobs",
	core.ColPublicAdministrationJobs: "public_administration_jobs",
	core.ColTradeTransportationJobs:  "trade_transportation_jobs",
	core.ColUnclassifiedJobs:         "unclassified_jobs",
	core.ColUnemployment:             "sj_unemployment",
	core.ColMetroUnemployment:        "sj_metro_unemployment",
}

// numericColumns lists SQL column names in registry order.
var numericColumns = func() []string {
	out := make([]string, len(core.Columns))
	for i, c := range core.Columns {
		out[i] = sqlColumns[c.Name]
	}
	return out
}()

var listRecords = `SELECT year, month, ` + strings.Join(numericColumns, ", ") + `
FROM economics_monthly
ORDER BY year, month, id`

var insertRecord = `INSERT INTO economics_monthly (year, month, ` + strings.Join(numericColumns, ", ") + `)
VALUES (?, ?` + strings.Repeat(", ?", len(numericColumns)) + `)`

const deleteRecords = `DELETE FROM economics_monthly`

const countRecords = `SELECT COUNT(*) FROM economics_monthly`

const insertImport = `INSERT INTO imports (source, record_count, imported_at) VALUES (?, ?, ?)`

const latestImport = `SELECT id, source, record_count, imported_at FROM imports ORDER BY id DESC LIMIT 1`

type Import struct {
	ID          int64
	Source      string
	RecordCount int64
	ImportedAt  time.Time
}

func (q *Queries) ListRecords(ctx context.Context) ([]core.Record, error) {
	rows, err := q.db.QueryContext(ctx, listRecords)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []core.Record
	vals := make([]sql.NullFloat64, len(numericColumns))
	for rows.Next() {
		var year, month int64
		dest := make([]interface{}, 0, len(vals)+2)
		dest = append(dest, &year, &month)
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rec := core.NewRecord(int(year), int(month))
		for i, c := range core.Columns {
			if vals[i].Valid {
				c.Set(&rec, vals[i].Float64)
			}
		}
		items = append(items, rec)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) InsertRecords(ctx context.Context, records []core.Record) error {
	stmt, err := q.db.PrepareContext(ctx, insertRecord)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(numericColumns)+2)
	for _, rec := range records {
		args[0], args[1] = rec.Year, rec.Month
		for i, c := range core.Columns {
			v := c.Get(rec)
			args[i+2] = sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %d/%d: %w", rec.Year, rec.Month, err)
		}
	}
	return nil
}

func (q *Queries) DeleteRecords(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteRecords)
	return err
}

func (q *Queries) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countRecords).Scan(&n)
	return n, err
}

func (q *Queries) CreateImport(ctx context.Context, source string, count int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx, insertImport, source, count, at.UTC())
	return err
}

func (q *Queries) LatestImport(ctx context.Context) (Import, error) {
	var i Import
	err := q.db.QueryRowContext(ctx, latestImport).Scan(&i.ID, &i.Source, &i.RecordCount, &i.ImportedAt)
	return i, err
}
