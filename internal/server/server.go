package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/muurk/ptzlink/internal/logging"
	"github.com/muurk/ptzlink/internal/metrics"
	"github.com/muurk/ptzlink/internal/session"
	"github.com/muurk/ptzlink/internal/speed"
	"github.com/muurk/ptzlink/internal/variables"
	"github.com/muurk/ptzlink/internal/visca"
)

// DefaultCommandTimeout bounds one VISCA exchange started by an API call
const DefaultCommandTimeout = 3 * time.Second

// Config holds the server configuration
type Config struct {
	Listen   string
	CertPath string // HTTPS when both CertPath and KeyPath are set
	KeyPath  string

	CommandTimeout time.Duration
}

// Camera is the command channel the API drives
type Camera interface {
	SendCommand(ctx context.Context, cmd visca.Command) error
	SendInquiry(ctx context.Context, q visca.Inquiry) (visca.Answer, error)
	Status() visca.Status
	Target() string
}

// SessionSource reports the device session shown by /api/status
type SessionSource interface {
	Snapshot() session.Snapshot
}

// Server is the local control and status API
type Server struct {
	config  Config
	camera  Camera
	store   *variables.Store
	hub     *Hub
	metrics *metrics.Metrics

	// speedMu serializes access to speed, which is not locked itself
	speedMu sync.Mutex
	speed   *speed.State

	mu         sync.Mutex
	httpServer *http.Server
	session    SessionSource
}

// New creates a Server. store backs /api/variables, hub backs /api/ws.
// A nil metrics disables /metrics.
func New(config Config, camera Camera, store *variables.Store, hub *Hub, m *metrics.Metrics) *Server {
	if config.CommandTimeout == 0 {
		config.CommandTimeout = DefaultCommandTimeout
	}
	if hub == nil {
		hub = NewHub()
	}
	return &Server{
		config:  config,
		camera:  camera,
		store:   store,
		hub:     hub,
		metrics: m,
		speed:   speed.New(),
	}
}

// SetSession attaches the session reported by /api/status
func (s *Server) SetSession(src SessionSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = src
}

func (s *Server) sessionSource() SessionSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Router returns the API handler
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/variables", s.handleVariables)
	r.Get("/api/ws", s.hub.ServeHTTP)

	r.Get("/api/speed", s.handleSpeedGet)
	r.Put("/api/speed", s.handleSpeedSet)
	r.Post("/api/speed/increase", s.handleSpeedStep(true))
	r.Post("/api/speed/decrease", s.handleSpeedStep(false))

	r.Post("/api/ptz/stop", s.handleStop)
	r.Post("/api/ptz/home", s.handleHome)
	r.Post("/api/ptz/{direction}", s.handleDrive)

	r.Post("/api/zoom/{action}", s.handleZoom)
	r.Post("/api/preset/{n}/{action}", s.handlePreset)
	r.Get("/api/power", s.handlePower)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

// Start serves the API until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	var tlsConfig *tls.Config
	if s.config.CertPath != "" && s.config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(s.config.CertPath, s.config.KeyPath)
		if err != nil {
			return err
		}
	}

	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	if tlsConfig != nil {
		listener = tls.NewListener(listener, tlsConfig)
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	logging.Info("API server listening",
		zap.String("addr", listener.Addr().String()),
		zap.Any("tls_info", GetTLSInfo(tlsConfig)),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops accepting requests and waits for active ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	logging.Info("Shutting down API server...")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		return srv.Close()
	}
	return nil
}

// requestLogger logs every API request at debug level
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug("API request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}
