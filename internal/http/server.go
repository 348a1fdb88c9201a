// Package http serves the dashboard pages, the table API and the
// operational endpoints.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sjcharts/internal/chart"
	applog "sjcharts/internal/log"
	"sjcharts/internal/middleware/ratelimit"
	"sjcharts/internal/middleware/security"
	"sjcharts/internal/middleware/trace"
	"sjcharts/internal/pages"
	"sjcharts/internal/services"
	appweb "sjcharts/web"
)

// AppTitle is the document title of every page.
const AppTitle = "SJ Charts"

// Options configures NewServer.
type Options struct {
	Addr      string
	Dashboard *services.DashboardService
	Catalog   *pages.Catalog
	Logger    *applog.Logger

	RateLimitRPM   int
	TrustedProxies []string
	// TableMaxRows caps the data table under each chart.
	TableMaxRows int
	DataLink     string
	Chart        chart.Options
}

type Server struct {
	http.Server
	templates *template.Template
	catalog   *pages.Catalog
	dashboard *services.DashboardService
	logger    *applog.Logger

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	maxRows   int
	dataLink  string
	chartOpts chart.Options
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server. Every charted page must name a table the dashboard knows.
func NewServer(opts Options) (*Server, error) {
	if opts.Dashboard == nil {
		return nil, fmt.Errorf("dashboard service is required")
	}
	if opts.Catalog == nil {
		c, err := pages.Default()
		if err != nil {
			return nil, fmt.Errorf("load page catalog: %w", err)
		}
		opts.Catalog = c
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.TableMaxRows <= 0 {
		opts.TableMaxRows = 10
	}

	known := make(map[string]bool)
	for _, k := range opts.Dashboard.Keys() {
		known[k] = true
	}
	for _, key := range opts.Catalog.Tables() {
		if !known[key] {
			return nil, fmt.Errorf("page catalog references %w %q", services.ErrUnknownTable, key)
		}
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	rlConfig := ratelimit.DefaultConfig()
	if opts.RateLimitRPM > 0 {
		rlConfig.RequestsPerMinute = opts.RateLimitRPM
	}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		templates:   tmpl,
		catalog:     opts.Catalog,
		dashboard:   opts.Dashboard,
		logger:      opts.Logger.WithComponent(applog.ComponentHTTP),
		detector:    detector,
		rateLimiter: ratelimit.NewLimiter(rlConfig),
		maxRows:     opts.TableMaxRows,
		dataLink:    opts.DataLink,
		chartOpts:   opts.Chart,
		started:     time.Now(),
	}
	s.tracer = trace.NewMiddleware(opts.Logger, detector.ExtractClientIP)
	s.Handler = s.routes()
	return s, nil
}

func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"addf": func(a, b float64) float64 { return a + b },
	}
	t, err := template.New("").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit))
		r.Get("/api/tables/{key}", s.handleTable)
		r.Get("/", s.handlePage)
		r.Get("/*", s.handlePage)
	})
	return r
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.NewFields().
			WithClientIP(s.detector.ExtractClientIP(r)).
			WithHTTPRequest(r.Method, r.URL.Path, "", "", "").
			ToSlice()...)
	TooManyRequestsError("Rate limit exceeded. Please try again later.").Write(w)
}

// Shutdown stops background routines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
