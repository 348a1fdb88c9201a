package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjcharts/internal/aggregate"
	"sjcharts/internal/core"
	applog "sjcharts/internal/log"
	"sjcharts/internal/source"
)

type countingReader struct {
	calls   atomic.Int64
	records []core.Record
	err     error
	gate    chan struct{}
}

func (r *countingReader) ReadRecords(ctx context.Context) ([]core.Record, error) {
	r.calls.Add(1)
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.records, nil
}

func testLogger() *applog.Logger {
	return applog.New(applog.Config{
		Component: applog.ComponentDashboard,
		Handler:   slog.NewTextHandler(&bytes.Buffer{}, nil),
	})
}

func sampleRecords() []core.Record {
	var out []core.Record
	for year := 2006; year <= 2016; year++ {
		for month := 1; month <= 2; month++ {
			r := core.NewRecord(year, month)
			r.Unemployment = float64(year-2000) + float64(month)/10
			r.MetroUnemployment = r.Unemployment + 1
			if year >= 2008 && year <= 2015 {
				r.ConstructionJobs = float64(1000*month + year)
				r.ManufacturingJobs = 10.5
			}
			out = append(out, r)
		}
	}
	return out
}

func newService(r source.RecordReader) *DashboardService {
	return NewDashboardService(r, Options{TTL: time.Minute, Backend: "test", Logger: testLogger()})
}

func TestSnapshotIsCached(t *testing.T) {
	reader := &countingReader{records: sampleRecords()}
	svc := newService(reader)

	for i := 0; i < 3; i++ {
		recs, err := svc.Snapshot(context.Background())
		require.NoError(t, err)
		assert.Len(t, recs, 22)
	}
	assert.EqualValues(t, 1, reader.calls.Load())

	svc.Invalidate()
	_, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, reader.calls.Load())
	assert.EqualValues(t, 2, svc.Stats().Loads)
	assert.False(t, svc.Stats().LastLoad.IsZero())
}

func TestConcurrentMissesShareOneLoad(t *testing.T) {
	reader := &countingReader{records: sampleRecords(), gate: make(chan struct{})}
	svc := newService(reader)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Table(context.Background(), "jobs")
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return reader.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(reader.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, reader.calls.Load())
}

func TestJobsTable(t *testing.T) {
	svc := newService(&countingReader{records: sampleRecords()})

	table, err := svc.Table(context.Background(), "jobs")
	require.NoError(t, err)

	assert.Equal(t, []int{2008, 2009, 2010, 2011, 2012, 2013, 2014, 2015}, table.Years())
	assert.Len(t, table.Columns, 12)
	assert.NotContains(t, table.Columns, core.ColUnemployment)

	construction, ok := table.Series(core.ColConstructionJobs)
	require.True(t, ok)
	// (1000+2008 + 2000+2008) / 2 = 3508
	assert.Equal(t, aggregate.Valid(3508), construction[0])

	manufacturing, _ := table.Series(core.ColManufacturingJobs)
	// 10.5 rounds half away from zero
	assert.Equal(t, aggregate.Valid(11), manufacturing[0])

	info, _ := table.Series(core.ColInformationJobs)
	assert.False(t, info[0].Valid)
}

func TestUnemploymentTable(t *testing.T) {
	svc := newService(&countingReader{records: sampleRecords()})

	table, err := svc.Table(context.Background(), "unemployment")
	require.NoError(t, err)

	assert.Equal(t, 11, table.Len())
	assert.Equal(t, []string{core.ColUnemployment, core.ColMetroUnemployment}, table.Columns)

	unemp, _ := table.Series(core.ColUnemployment)
	assert.InDelta(t, 6.15, unemp[0].Float, 1e-9)
	metro, _ := table.Series(core.ColMetroUnemployment)
	assert.InDelta(t, 17.15, metro[10].Float, 1e-9)
}

func TestTableIsCachedPerSnapshot(t *testing.T) {
	svc := newService(&countingReader{records: sampleRecords()})
	ctx := context.Background()

	_, err := svc.Table(ctx, "jobs")
	require.NoError(t, err)
	_, err = svc.Table(ctx, "jobs")
	require.NoError(t, err)

	st := svc.Stats()
	assert.EqualValues(t, 1, st.Tables.Hits)
	assert.Equal(t, 1, st.Tables.Size)
}

func TestUnknownTable(t *testing.T) {
	reader := &countingReader{records: sampleRecords()}
	svc := newService(reader)

	_, err := svc.Table(context.Background(), "housing")
	assert.ErrorIs(t, err, ErrUnknownTable)
	assert.EqualValues(t, 0, reader.calls.Load())
}

func TestLoadFailure(t *testing.T) {
	reader := &countingReader{err: source.Unavailable("csv", errors.New("connection refused"))}
	svc := newService(reader)

	_, err := svc.Table(context.Background(), "jobs")
	assert.ErrorIs(t, err, source.ErrDataUnavailable)
	assert.EqualValues(t, 1, svc.Stats().LoadFailures)

	// Failures are not cached.
	_, err = svc.Snapshot(context.Background())
	assert.Error(t, err)
	assert.EqualValues(t, 2, reader.calls.Load())
}

func TestCallerCancellation(t *testing.T) {
	reader := &countingReader{records: sampleRecords(), gate: make(chan struct{})}
	svc := newService(reader)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	close(reader.gate)
}

func TestWarm(t *testing.T) {
	reader := &countingReader{records: sampleRecords()}
	svc := newService(reader)

	require.NoError(t, svc.Warm(context.Background()))
	assert.EqualValues(t, 1, reader.calls.Load())
	assert.Equal(t, 2, svc.Stats().Tables.Size)
	assert.Equal(t, []string{"jobs", "unemployment"}, svc.Keys())

	failing := newService(&countingReader{err: source.ErrDataUnavailable})
	assert.ErrorIs(t, failing.Warm(context.Background()), source.ErrDataUnavailable)
}

func TestCustomTables(t *testing.T) {
	svc := NewDashboardService(&countingReader{records: sampleRecords()}, Options{
		Logger: testLogger(),
		Tables: []TableSpec{{
			Key:        "recent",
			Range:      core.YearRange{Lo: 2015, Hi: 2018},
			Filter:     aggregate.OneOf(core.ColUnemployment),
			EmptyYears: aggregate.EmptyOmit,
		}},
	})

	table, err := svc.Table(context.Background(), "recent")
	require.NoError(t, err)
	assert.Equal(t, []int{2015, 2016}, table.Years())

	spec, ok := svc.Spec("recent")
	require.True(t, ok)
	assert.Equal(t, 4, spec.Range.Len())
}

func TestReloadSwapsSnapshot(t *testing.T) {
	reader := &countingReader{records: sampleRecords()}
	svc := newService(reader)
	ctx := context.Background()

	before, err := svc.Table(ctx, "unemployment")
	require.NoError(t, err)

	reader.records = sampleRecords()[:4]
	require.NoError(t, svc.Reload(ctx))

	recs, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 4)
	assert.EqualValues(t, 2, reader.calls.Load())

	after, err := svc.Table(ctx, "unemployment")
	require.NoError(t, err)
	// 2008 drops out of the reloaded dataset.
	assert.True(t, before.Rows[2].Values[0].Valid)
	assert.False(t, after.Rows[2].Values[0].Valid)
}

func TestReloadFailureKeepsSnapshot(t *testing.T) {
	reader := &countingReader{records: sampleRecords()}
	svc := newService(reader)
	ctx := context.Background()

	_, err := svc.Snapshot(ctx)
	require.NoError(t, err)

	reader.err = source.Unavailable("csv", errors.New("connection reset"))
	assert.ErrorIs(t, svc.Reload(ctx), source.ErrDataUnavailable)

	recs, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 22)
	assert.EqualValues(t, 1, svc.Stats().LoadFailures)
}
