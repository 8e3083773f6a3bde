package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the TCP listen address, for example "127.0.0.1:8000".
	Addr string `json:"addr" yaml:"addr"`
	// ReadTimeout bounds reading a request. Default 30s.
	ReadTimeout time.Duration `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`
	// IdleTimeout bounds keep-alive connections. Default 60s.
	IdleTimeout time.Duration `json:"idle_timeout,omitempty" yaml:"idle_timeout,omitempty"`
}

// Server manages the lifecycle of the API HTTP server.
type Server struct {
	cfg    ServerConfig
	server *http.Server

	lock sync.RWMutex
	ln   net.Listener
}

// NewServer creates an HTTP server around the handler.
func NewServer(cfg ServerConfig, handler http.Handler) *Server {
	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	idleTimeout := cfg.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 60 * time.Second
	}
	return &Server{
		cfg: cfg,
		server: &http.Server{
			Handler:     handler,
			ReadTimeout: readTimeout,
			// WriteTimeout is disabled: a chat turn can run tool loops and
			// LLM calls for minutes.
			WriteTimeout: 0,
			IdleTimeout:  idleTimeout,
		},
	}
}

// Start starts the server and blocks until the context is cancelled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.cfg.Addr)
	}
	s.lock.Lock()
	s.ln = ln
	s.lock.Unlock()

	logger.KV(xlog.INFO, "status", "listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.KV(xlog.INFO, "status", "shutting_down")

	s.server.SetKeepAlivesEnabled(false)
	if err := s.server.Shutdown(ctx); err != nil {
		logger.KV(xlog.WARNING, "reason", "shutdown", "err", err.Error())
		return err
	}

	logger.KV(xlog.INFO, "status", "stopped")
	return nil
}

// Addr returns the listener address, or empty string when not started.
func (s *Server) Addr() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}
