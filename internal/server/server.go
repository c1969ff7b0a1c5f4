package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepull/internal/ledger"
	"github.com/desertthunder/tunepull/internal/shared"
	"github.com/desertthunder/tunepull/internal/tasks"
	"golang.org/x/time/rate"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, recovery & rate limiting.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the service.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Server wires the download, files & static handlers onto a [BasicRouter].
type Server struct {
	cfg    shared.ServerConfig
	router *BasicRouter
	logger *log.Logger
}

// New builds a Server for engine. When persisted is non-nil every request shares it;
// otherwise each request gets a fresh in-memory ledger.
func New(cfg shared.ServerConfig, engine *tasks.Engine, persisted *ledger.FileLedger, retries int, logger *log.Logger) *Server {
	router := NewBasicRouter()
	router.Use(Recover(logger), RequestLogger(logger))

	download := NewDownloadHandler(engine, logger)
	download.Delay = cfg.Delay()
	download.Retries = retries
	if persisted != nil {
		download.Ledger = func() ledger.Ledger { return persisted }
	}

	var dl Handler = download
	if cfg.RateLimit > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
		dl = limited{Handler: RateLimit(limiter)(download), routes: download.Routes()}
	}

	router.Handler(dl)
	router.Handler(NewFilesHandler(engine.Fetcher().Dir(), logger))
	if static := StaticHandler(cfg.PublicDir); static != nil {
		router.Handle(http.MethodGet, "/", static)
	}

	return &Server{cfg: cfg, router: router, logger: logger}
}

type limited struct {
	http.Handler
	routes []string
}

func (l limited) Routes() []string { return l.routes }

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server is running", "addr", "http://"+srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
