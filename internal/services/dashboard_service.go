package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"sjcharts/internal/aggregate"
	"sjcharts/internal/cache"
	"sjcharts/internal/core"
	applog "sjcharts/internal/log"
	"sjcharts/internal/source"
)

var ErrUnknownTable = errors.New("unknown table")

const (
	snapshotKey = "snapshot"
	reloadKey   = "reload"
)

// TableSpec describes one derived summary table.
type TableSpec struct {
	Key        string
	Range      core.YearRange
	Filter     aggregate.Filter
	Round      bool
	EmptyYears aggregate.EmptyPolicy
}

// DefaultTables returns the jobs and unemployment tables shown by the
// dashboard.
func DefaultTables() []TableSpec {
	return []TableSpec{
		{
			Key:    "jobs",
			Range:  core.YearRange{Lo: 2008, Hi: 2015},
			Filter: aggregate.HasSuffix("Jobs"),
			Round:  true,
		},
		{
			Key:    "unemployment",
			Range:  core.YearRange{Lo: 2006, Hi: 2016},
			Filter: aggregate.OneOf(core.ColUnemployment, core.ColMetroUnemployment),
		},
	}
}

type Options struct {
	// TTL bounds how long a loaded snapshot is served.
	TTL time.Duration
	// LoadTimeout bounds a single load; zero leaves it to the reader.
	LoadTimeout time.Duration
	Tables      []TableSpec
	Backend     string
	Logger      *applog.Logger
}

// Stats is a point-in-time view of the service counters.
type Stats struct {
	Loads        int64
	LoadFailures int64
	LastLoad     time.Time
	Snapshot     cache.Stats
	Tables       cache.Stats
}

type snapshot struct {
	records  []core.Record
	gen      int64
	loadedAt time.Time
}

// DashboardService serves summary tables derived from a cached snapshot of
// the dataset. Concurrent cache misses share a single load.
type DashboardService struct {
	reader      source.RecordReader
	specs       map[string]TableSpec
	order       []string
	loadTimeout time.Duration
	backend     string

	snapshots *cache.LRUCache[snapshot]
	tables    *cache.LRUCache[aggregate.Table]
	group     singleflight.Group

	logger *applog.Logger
	events *applog.StructuredLogger

	gen      atomic.Int64
	loads    atomic.Int64
	failures atomic.Int64
	lastLoad atomic.Int64
}

func NewDashboardService(reader source.RecordReader, opts Options) *DashboardService {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.Tables == nil {
		opts.Tables = DefaultTables()
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(applog.ComponentDashboard)

	s := &DashboardService{
		reader:      reader,
		specs:       make(map[string]TableSpec, len(opts.Tables)),
		loadTimeout: opts.LoadTimeout,
		backend:     opts.Backend,
		snapshots:   cache.NewLRUCache[snapshot](1, opts.TTL),
		// A few generations per table survive a reload.
		tables: cache.NewLRUCache[aggregate.Table](4*len(opts.Tables), opts.TTL),
		logger: logger,
		events: applog.NewStructuredLogger(logger),
	}
	for _, spec := range opts.Tables {
		if _, dup := s.specs[spec.Key]; !dup {
			s.order = append(s.order, spec.Key)
		}
		s.specs[spec.Key] = spec
	}
	return s
}

// Keys returns the table keys in declaration order.
func (s *DashboardService) Keys() []string {
	return append([]string(nil), s.order...)
}

func (s *DashboardService) Spec(key string) (TableSpec, bool) {
	spec, ok := s.specs[key]
	return spec, ok
}

// Snapshot returns the cached records, loading them on a miss.
func (s *DashboardService) Snapshot(ctx context.Context) ([]core.Record, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.records, nil
}

func (s *DashboardService) snapshot(ctx context.Context) (snapshot, error) {
	if snap, ok := s.snapshots.Get(snapshotKey); ok {
		return snap, nil
	}

	ch := s.group.DoChan(snapshotKey, func() (any, error) {
		if snap, ok := s.snapshots.Get(snapshotKey); ok {
			return snap, nil
		}
		return s.load(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return snapshot{}, fmt.Errorf("wait for snapshot: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return snapshot{}, res.Err
		}
		return res.Val.(snapshot), nil
	}
}

func (s *DashboardService) load(ctx context.Context) (snapshot, error) {
	if s.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.loadTimeout)
		defer cancel()
	}

	start := time.Now()
	records, err := s.reader.ReadRecords(ctx)
	if err != nil {
		s.failures.Add(1)
		errType := applog.ErrorTypeNetwork
		switch {
		case errors.Is(err, source.ErrSchemaDrift):
			errType = applog.ErrorTypeSchema
		case errors.Is(err, context.DeadlineExceeded):
			errType = applog.ErrorTypeTimeout
		}
		s.events.LogError(ctx, "Dataset load failed", err, applog.ComponentSource, applog.OpLoad,
			applog.NewFields().WithErrorType(errType))
		return snapshot{}, fmt.Errorf("load dataset: %w", err)
	}

	snap := snapshot{records: records, gen: s.gen.Add(1), loadedAt: time.Now()}
	s.snapshots.Set(snapshotKey, snap)
	s.loads.Add(1)
	s.lastLoad.Store(snap.loadedAt.UnixNano())
	s.events.LogDataLoaded(ctx, s.backend, len(records), time.Since(start).Milliseconds())
	return snap, nil
}

// Table returns the named summary table built from the current snapshot.
func (s *DashboardService) Table(ctx context.Context, key string) (aggregate.Table, error) {
	spec, ok := s.specs[key]
	if !ok {
		return aggregate.Table{}, fmt.Errorf("%w: %q", ErrUnknownTable, key)
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return aggregate.Table{}, fmt.Errorf("table %s: %w", key, err)
	}

	cacheKey := key + "@" + strconv.FormatInt(snap.gen, 10)
	if t, ok := s.tables.Get(cacheKey); ok {
		return t, nil
	}

	t, err := aggregate.Aggregate(snap.records, spec.Range, aggregate.Options{
		Filter:     spec.Filter,
		Round:      spec.Round,
		EmptyYears: spec.EmptyYears,
	})
	if err != nil {
		return aggregate.Table{}, fmt.Errorf("table %s: %w", key, err)
	}
	s.tables.Set(cacheKey, t)
	s.events.LogTableBuilt(ctx, key, spec.Range.String(), t.Len(), len(t.Columns))
	return t, nil
}

// Warm builds every table concurrently.
func (s *DashboardService) Warm(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, key := range s.order {
		key := key
		g.Go(func() error {
			_, err := s.Table(gctx, key)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Dashboard tables warmed", "tables", len(s.order))
	return nil
}

// Reload fetches a fresh snapshot and swaps it in. When the fetch fails the
// previous snapshot stays in place until its TTL runs out.
func (s *DashboardService) Reload(ctx context.Context) error {
	ch := s.group.DoChan(reloadKey, func() (any, error) {
		return s.load(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return fmt.Errorf("wait for reload: %w", ctx.Err())
	case res := <-ch:
		return res.Err
	}
}

// Invalidate drops the cached snapshot and tables.
func (s *DashboardService) Invalidate() {
	s.snapshots.Clear()
	s.tables.Clear()
	s.logger.Info("Dashboard cache invalidated")
}

// Cleaners exposes the caches for periodic expiry.
func (s *DashboardService) Cleaners() map[string]cache.Cleaner {
	return map[string]cache.Cleaner{
		"snapshot": s.snapshots,
		"tables":   s.tables,
	}
}

func (s *DashboardService) Stats() Stats {
	st := Stats{
		Loads:        s.loads.Load(),
		LoadFailures: s.failures.Load(),
		Snapshot:     s.snapshots.Stats(),
		Tables:       s.tables.Stats(),
	}
	if ns := s.lastLoad.Load(); ns > 0 {
		st.LastLoad = time.Unix(0, ns)
	}
	return st
}
