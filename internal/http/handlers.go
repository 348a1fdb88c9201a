package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sjcharts/internal/chart"
	applog "sjcharts/internal/log"
	"sjcharts/internal/middleware/trace"
	"sjcharts/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports ready once the dataset can be loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if records, err := s.dashboard.Snapshot(ctx); err != nil {
		checks["data_source"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["data_source"] = map[string]any{"status": "ok", "records": len(records)}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewHTMXResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	dash := s.dashboard.Stats()

	var b bytes.Buffer
	header := func(name, kind, help string) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
	}
	metric := func(name, kind, help string, value any) {
		header(name, kind, help)
		fmt.Fprintf(&b, "%s %v\n\n", name, value)
	}
	perCache := func(name, kind, help string, snapshot, tables int64) {
		header(name, kind, help)
		fmt.Fprintf(&b, "%s{cache=\"snapshot\"} %d\n%s{cache=\"tables\"} %d\n\n", name, snapshot, name, tables)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_requests_in_flight", "gauge", "Requests currently being served", traceMetrics.InFlight)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	perCache("cache_hits_total", "counter", "Total cache hits", dash.Snapshot.Hits, dash.Tables.Hits)
	perCache("cache_misses_total", "counter", "Total cache misses", dash.Snapshot.Misses, dash.Tables.Misses)
	perCache("cache_entries", "gauge", "Current cache entries", int64(dash.Snapshot.Size), int64(dash.Tables.Size))
	metric("data_loads_total", "counter", "Successful dataset loads", dash.Loads)
	metric("data_load_failures_total", "counter", "Failed dataset loads", dash.LoadFailures)
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.started).Seconds()))

	NewHTMXResponse().
		Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8").
		Body(b.Bytes()).
		Write(w)
}

// handlePage renders the page selected by the request path. htmx requests
// get only the content partial.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentHTTP)
	page := s.catalog.Select(r.URL.Path)

	view := pageView{
		AppTitle:  AppTitle,
		Nav:       navItems(s.catalog, page),
		Page:      page,
		DataLink:  s.dataLink,
		RequestID: trace.GetRequestID(ctx),
	}

	status := http.StatusOK
	if page.HasChart() {
		t, err := s.dashboard.Table(ctx, page.Table)
		if err != nil {
			status = dataStatus(err)
			view.Error = dataErrorMessage(status)
			logger.ErrorContext(ctx, "Page data unavailable",
				applog.NewFields().
					WithError(err).
					WithOperation(applog.OpRender).
					ToSlice()...)
		} else {
			c := chart.Build(page.Chart, t, chartSeries(page), s.chartOpts)
			c.YLabel = page.YLabel
			view.Chart = &c
			view.Table = newTableView(t, page.Columns(), s.maxRows)
		}
	}

	name := "layout"
	if isHTMX(r) {
		name = "content"
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, view); err != nil {
		logger.WithComponent(applog.ComponentTemplate).ErrorContext(ctx, "Template execution failed",
			applog.FieldError, err,
			applog.FieldPage, page.Name)
		InternalServerError("Error rendering page").Write(w)
		return
	}

	resp := NewHTMXResponse().
		Status(status).
		Header("Vary", "HX-Request").
		BodyHTML(buf.Bytes())
	if isHTMX(r) {
		resp.TriggerPageLoaded(page.Name, page.Path)
		if view.Error != "" {
			resp.TriggerErrorNotification(view.Error)
		}
	}
	resp.Write(w)
}

// handleTable returns a summary table as parallel named arrays.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "key")

	t, err := s.dashboard.Table(ctx, key)
	if err != nil {
		if errors.Is(err, services.ErrUnknownTable) {
			JSONError(http.StatusNotFound, fmt.Sprintf("unknown table %q", key)).Write(w)
			return
		}
		status := dataStatus(err)
		applog.FromContext(ctx).WithComponent(applog.ComponentHTTP).ErrorContext(ctx, "Table unavailable",
			applog.FieldError, err,
			applog.FieldTable, key)
		JSONError(status, http.StatusText(status)).Write(w)
		return
	}

	NewHTMXResponse().JSON(map[string]any{
		"key":     key,
		"columns": t.Columnar(),
	}).Write(w)
}
