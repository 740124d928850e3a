// Package server runs the static file server: bind, serve, stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/f4ah6o/devserve-go/internal/config"
	"github.com/f4ah6o/devserve-go/internal/cors"
	"github.com/f4ah6o/devserve-go/internal/static"
)

// ShutdownTimeout bounds how long in-flight requests may run after a stop.
const ShutdownTimeout = time.Second

// ErrPortInUse is returned by Listen when another process holds the port.
var ErrPortInUse = errors.New("port already in use")

// ErrNotListening is returned by Serve when Listen has not succeeded.
var ErrNotListening = errors.New("server is not listening")

// StartupError wraps any other failure to bind the listening socket.
type StartupError struct {
	Addr string
	Err  error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("listen on %s: %v", e.Addr, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// State is the lifecycle stage of a Server.
type State int

const (
	NotStarted State = iota
	Listening
	Stopped
	Crashed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Listening:
		return "listening"
	case Stopped:
		return "stopped"
	case Crashed:
		return "crashed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Server serves cfg.Root on cfg.Port.
type Server struct {
	cfg     config.Config
	logger  *log.Logger
	httpSrv *http.Server

	mu    sync.Mutex
	ln    net.Listener
	state State
}

// New returns a Server for cfg. A nil logger uses the standard logger.
func New(cfg config.Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{cfg: cfg, logger: logger}
	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger,
	}
	return s
}

// Handler returns the request pipeline: CORS headers first, then the access
// log, then static file serving.
func (s *Server) Handler() http.Handler {
	files := static.New(s.cfg.Root, s.cfg.IndexFiles)
	return cors.Handler(accessLog(s.logger, files))
}

// State reports the current lifecycle stage.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Listen binds the configured address. It returns ErrPortInUse when the
// address is taken and a *StartupError for any other failure.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != NotStarted {
		return fmt.Errorf("listen: server is %s", s.state)
	}

	addr := s.cfg.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if isAddrInUse(err) {
			return fmt.Errorf("%w: %s", ErrPortInUse, addr)
		}
		return &StartupError{Addr: addr, Err: err}
	}

	s.ln = ln
	s.state = Listening
	return nil
}

// Serve accepts connections until ctx is cancelled, then stops accepting,
// gives in-flight requests up to ShutdownTimeout and returns nil. Any other
// serving failure is returned.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	state := s.state
	s.mu.Unlock()
	if state != Listening {
		return ErrNotListening
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.setState(Crashed)
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		// Abandon whatever is still running.
		s.logger.Printf("Forcing close after %s: %v", ShutdownTimeout, err)
		s.httpSrv.Close()
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.setState(Crashed)
		return fmt.Errorf("serve: %w", err)
	}

	s.setState(Stopped)
	return nil
}

func (s *Server) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
