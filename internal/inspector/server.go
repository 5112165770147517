package inspector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	rerrors "github.com/vango-dev/reactor/internal/errors"
)

// Config configures the inspector server.
type Config struct {
	// Address is the listen address (host:port).
	Address string

	// ReadTimeout bounds reading a request.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing a response and each WebSocket frame.
	WriteTimeout time.Duration

	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// Logger receives request and connection logs.
	Logger *slog.Logger
}

// Server exposes a hub over HTTP and WebSocket.
type Server struct {
	config   Config
	hub      *Hub
	router   chi.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewServer creates a server for hub.
func NewServer(hub *Hub, config Config) *Server {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}

	s := &Server{
		config: config,
		hub:    hub,
		logger: config.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local debugging tool
			},
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/state", func(r chi.Router) {
		r.Get("/", s.handleState)
		r.Get("/{key}", s.handleGet)
		r.Put("/{key}", s.handlePut)
		r.Delete("/{key}", s.handleDelete)
	})

	r.Get("/stats", s.handleStats)
	r.Get("/ws", s.handleWebSocket)

	if s.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on config.Address and runs the hub until ctx is cancelled or
// either fails.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.hub.Run(ctx)
	})

	g.Go(func() error {
		s.logger.Info("inspector: listening", "address", s.config.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.hub.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	body, err := json.Marshal(snap)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, ok, err := s.hub.Get(r.Context(), key)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("no key %q", key))
		return
	}
	s.writeJSON(w, http.StatusOK, value)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var value any
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.hub.Set(r.Context(), key, value); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.hub.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{
		"objects":  stats.Objects,
		"deps":     stats.Deps,
		"wrappers": stats.Wrappers,
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	frames, err := s.hub.Subscribe(r.Context(), id)
	if err != nil {
		s.logger.Warn("inspector: subscribe failed", "client", id, "error", err)
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.hub.Unsubscribe(ctx, id)
	}()

	// The client only sends close frames; reading detects disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure) {
					s.logger.Debug("inspector: client read error", "client", id, "error", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteJSON(frame); err != nil {
				s.logger.Debug("inspector: write failed", "client", id, "error", err)
				return
			}
		case <-closed:
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps engine errors to HTTP statuses.
func statusFor(err error) int {
	var rerr *rerrors.ReactorError
	switch {
	case errors.Is(err, ErrHubStopped):
		return http.StatusServiceUnavailable
	case errors.As(err, &rerr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
