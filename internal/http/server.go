package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"shiori/internal/cache"
	"shiori/internal/core"
	"shiori/internal/log"
	"shiori/internal/middleware/ratelimit"
	"shiori/internal/middleware/security"
	"shiori/internal/middleware/trace"
	"shiori/internal/projection"
	"shiori/internal/qr"
	"shiori/internal/services"
	"shiori/internal/transfer"
	appweb "shiori/web"
)

const (
	qrCacheSize = 32
	qrCacheTTL  = 30 * time.Minute
)

// Server serves the itinerary UI.
type Server struct {
	http.Server
	templates *template.Template
	itinerary *services.Itinerary
	logger    *slog.Logger
	baseURL   string
	ready     func(context.Context) error
	started   time.Time

	qr       qr.Renderer
	qrCache  *cache.LRUCache[[]byte]
	qrFlight singleflight.Group
	caches   *cache.Manager

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	stopBackground context.CancelFunc
	shutdownOnce   sync.Once
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithBaseURL fixes the origin and path share links point to. Without it the
// link is derived from the incoming request.
func WithBaseURL(base string) Option {
	return func(s *Server) { s.baseURL = base }
}

// WithQRRenderer replaces the default QR encoder.
func WithQRRenderer(r qr.Renderer) Option {
	return func(s *Server) { s.qr = r }
}

// WithReadiness adds a dependency check to /readyz.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server. Call Shutdown to stop it and its background work.
func NewServer(addr string, itinerary *services.Itinerary, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		itinerary: itinerary,
		started:   time.Now(),
		qrCache:   cache.NewLRUCache[[]byte](qrCacheSize, qrCacheTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.OrDefault(s.logger)
	if s.qr == nil {
		s.qr = qr.NewEncoder(qr.DefaultSize)
	}

	s.rateLimiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	s.securityDetector = security.NewDetector(transfer.Param)
	s.traceMiddleware = trace.NewMiddleware(s.logger, s.securityDetector.ExtractClientIP)

	s.caches = cache.NewManager(s.logger)
	s.caches.Register(s.qrCache)
	ctx, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	go s.caches.Run(ctx, 10*time.Minute)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Error("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /entries/{id}/edit", s.handleEdit)
	mux.HandleFunc("POST /entries", s.handleCreate)
	mux.HandleFunc("POST /entries/{id}", s.handleUpdate)
	mux.HandleFunc("POST /entries/{id}/delete", s.handleDelete)
	mux.HandleFunc("POST /clear", s.handleClear)
	mux.HandleFunc("GET /share", s.handleShare)
	mux.HandleFunc("GET /share.png", s.handleSharePNG)
	mux.HandleFunc("GET /export.txt", s.handleExport)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, nil)(handler)
	handler = headers.Middleware(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	s.Handler = handler

	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.stopBackground()
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

var templateFuncs = template.FuncMap{
	"yen": core.FormatYen,
	"groupLabel": func(g projection.Group) string {
		if g.Undecided() {
			return "日付未定"
		}
		return g.Key
	},
	"timeOr": func(t string) string {
		if t == "" {
			return "--:--"
		}
		return t
	},
}
