// Package apitest serves a stand-in for the anomaly-detection service.
// It backs the client tests and the hidden mock-server command.
package apitest

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Request is one recorded request.
type Request struct {
	Method  string
	Path    string
	Session string
	Body    []byte
}

type failure struct {
	message string
	status  int
	app     bool
}

// Options configures a Server.
type Options struct {
	Logger *slog.Logger
	// Now overrides the clock used for timestamps.
	Now func() time.Time
	// Session, when set, is the only session cookie value accepted.
	Session string
	// Seed drives the generated trades and demo transactions.
	Seed uint64
	// AccessLog enables chi's request logger.
	AccessLog bool
}

// Server is an in-memory analysis service.
type Server struct {
	r     chi.Router
	log   *slog.Logger
	now   func() time.Time
	state *state
	opts  Options

	mu       sync.Mutex
	requests []Request
	failures map[string]failure
	delays   map[string]time.Duration
}

// NewServer builds the router with all endpoints mounted.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(discard{}, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		log:      opts.Logger,
		now:      opts.Now,
		opts:     opts,
		state:    newState(opts.Seed),
		failures: make(map[string]failure),
		delays:   make(map[string]time.Duration),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r = chi.NewRouter()

	s.r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.r.Use(middleware.RequestID)
	s.r.Use(middleware.RealIP)
	if s.opts.AccessLog {
		s.r.Use(middleware.Logger)
	}
	s.r.Use(middleware.Recoverer)
	s.r.Use(middleware.Timeout(60 * time.Second))
	s.r.Use(s.record)
	s.r.Use(s.authenticate)
	s.r.Use(s.inject)

	s.r.Route("/api", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))
		r.Get("/user-analysis-activity", s.handleActivity)
		r.Get("/dashboard-stats", s.handleDashboardStats)
		r.Post("/alerts/{id}/read", s.handleAlertRead)
		r.Delete("/user-analyses", s.handleClearAnalyses)
		r.Delete("/user-activity-logs", s.handleClearActivity)
		r.Post("/send-anomaly-email", s.handleSendEmail)
	})

	s.r.Route("/binance", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))
		r.Get("/live-data", s.handleLiveData)
		r.Get("/market-data", s.handleMarketData)
		r.Post("/testnet-simulate", s.handleSimulate)
		r.Get("/testnet-history", s.handleHistory)
		r.Delete("/testnet-history", s.handleClearHistory)
	})

	s.r.Post("/upload", s.handleUpload)
	s.r.Get("/results/{id}", s.handleResults)
}

// ServeHTTP makes the server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled. A non-nil tlsCfg
// serves HTTPS.
func (s *Server) ListenAndServe(ctx context.Context, addr string, tlsCfg *tls.Config) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if tlsCfg != nil {
		ln = tls.NewListener(ln, tlsCfg)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("mock analysis service listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	}
}

// Fail makes method+path answer with status and {"error": message}.
func (s *Server) Fail(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, message: message}
}

// FailApp makes method+path answer 200 with {"success": false, "error": message}.
func (s *Server) FailApp(method, path, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: http.StatusOK, message: message, app: true}
}

// Delay holds responses for method+path by d.
func (s *Server) Delay(method, path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[method+" "+path] = d
}

// Recover clears any failure or delay injected for method+path.
func (s *Server) Recover(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, method+" "+path)
	delete(s.delays, method+" "+path)
}

// Requests returns every recorded request in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many requests hit method+path.
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, statusCode int, data any) {
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		_, _ = fmt.Fprintf(w, "%s", err.Error())
	}
}

// ERROR writes {"error": err} with the given status.
func ERROR(w http.ResponseWriter, statusCode int, err error) {
	JSON(w, statusCode, map[string]any{"error": err.Error()})
}

// OK writes {"success": true} merged with fields.
func OK(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	JSON(w, http.StatusOK, body)
}
