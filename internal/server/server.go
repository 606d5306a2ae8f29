// Package server implements the bleepbridge HTTP gateway, which exposes one
// storage adapter through S3-shaped object routes.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bleepstore/bleepbridge/internal/config"
	s3err "github.com/bleepstore/bleepbridge/internal/errors"
	"github.com/bleepstore/bleepbridge/internal/handlers"
	"github.com/bleepstore/bleepbridge/internal/storage"
	"github.com/bleepstore/bleepbridge/internal/xmlutil"
)

// Server is the bleepbridge HTTP server. It routes object requests to the
// handler for the configured storage adapter.
type Server struct {
	cfg        *config.Config
	router     chi.Router
	backend    storage.BackendType
	store      storage.ObjectStorageClient
	object     *handlers.ObjectHandler
	httpServer *http.Server
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithStorageClient sets the adapter requests are forwarded to. backend
// labels health output and metrics.
func WithStorageClient(backend storage.BackendType, client storage.ObjectStorageClient) ServerOption {
	return func(s *Server) {
		s.backend = backend
		s.store = client
	}
}

// New creates a new Server with the given configuration and wires up all
// routes on the Chi router.
func New(cfg *config.Config, opts ...ServerOption) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.object = handlers.NewObjectHandler(s.store)
	s.registerRoutes()
	return s, nil
}

// Handler returns the router wrapped in the full middleware chain:
// metricsMiddleware -> commonHeaders -> requestLogger -> transferEncodingCheck -> router.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.router
	handler = transferEncodingCheck(handler)
	handler = requestLogger(handler)
	handler = commonHeaders(handler)
	if s.cfg.Metrics.Enabled {
		handler = metricsMiddleware(handler)
	}
	return handler
}

// ListenAndServe starts the HTTP server on the given address.
// The returned http.Server is stored so it can be shut down gracefully.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 30 * time.Second,
	}
	slog.Info("Gateway listening", "addr", addr, "backend", s.backend)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server, waiting for in-flight
// requests to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// registerRoutes configures all routes on the Chi router.
// /health and /metrics are registered first; the object catch-all /* last.
// Chi matches more specific routes first.
func (s *Server) registerRoutes() {
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Head("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
	})

	if s.cfg.Metrics.Enabled {
		s.router.Handle("/metrics", promhttp.Handler())
	}

	s.router.HandleFunc("/*", s.dispatch)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.store == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"no storage backend"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","backend":"` + string(s.backend) + `"}`))
}

// parsePath extracts bucket and object key from the request path.
// Returns ("", "") for root "/", ("bucket", "") for "/{bucket}",
// and ("bucket", "key/path") for "/{bucket}/{key...}".
func parsePath(path string) (bucket, key string) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return "", ""
	}
	idx := strings.IndexByte(path, '/')
	if idx < 0 {
		return path, ""
	}
	return path[:idx], path[idx+1:]
}

// dispatch routes object-level requests by HTTP method. Service and bucket
// level S3 operations are not offered by the adapters and answer 501.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	bucket, key := parsePath(r.URL.Path)
	if bucket == "" || key == "" {
		xmlutil.WriteErrorResponse(w, r, s3err.ErrNotImplemented)
		return
	}

	// Subresources (acl, uploads, tagging, ...) have no adapter operation.
	if r.URL.RawQuery != "" {
		xmlutil.WriteErrorResponse(w, r, s3err.ErrNotImplemented)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.object.GetObject(w, r)
	case http.MethodPut:
		if r.Header.Get("X-Amz-Copy-Source") != "" {
			s.object.CopyObject(w, r)
		} else {
			s.object.PutObject(w, r)
		}
	case http.MethodDelete:
		s.object.DeleteObject(w, r)
	default:
		xmlutil.WriteErrorResponse(w, r, s3err.ErrNotImplemented)
	}
}
