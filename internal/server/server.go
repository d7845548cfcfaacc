package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"mime"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/maloquacious/momentum/internal/logger"
	"github.com/maloquacious/momentum/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// healthTimeout bounds the database query behind /health.
const healthTimeout = 2 * time.Second

// Config holds the settings the HTTP layer needs.
type Config struct {
	Addr            string
	AppName         string
	ShutdownTimeout time.Duration
}

// Server serves the Momentum UI, static assets and health endpoint.
type Server struct {
	cfg    Config
	store  store.Store
	log    logger.Logger
	pages  *template.Template
	static fs.FS
	now    func() time.Time
}

// New builds a Server backed by st.
func New(cfg Config, st store.Store, log logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.Nop{}
	}
	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("loading static assets: %w", err)
	}
	return &Server{
		cfg:    cfg,
		store:  st,
		log:    log,
		pages:  pages,
		static: static,
		now:    time.Now,
	}, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /echo", s.handleEcho)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /static/{path...}", s.handleStatic)
	return mux
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening on http://%s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("server shutdown complete")
	return nil
}

type page struct {
	AppName string
	Title   string
	Date    string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := page{
		AppName: s.cfg.AppName,
		Title:   "Home",
		Date:    s.now().Format(time.DateOnly),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.ExecuteTemplate(w, "layout", data); err != nil {
		s.log.Error("rendering index: %v", err)
	}
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte("<div>It works! The request reached the server.</div>"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.log.Error("health check database error: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "error",
			"database": "down",
			"message":  "Database connection failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "up",
	})
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("path")
	data, err := fs.ReadFile(s.static, name)
	if err != nil {
		http.Error(w, "Static file not found", http.StatusNotFound)
		return
	}
	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
