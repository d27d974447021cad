// Package server provides an HTTP server that answers exactly one
// connection and then releases its port.
package server

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/stream2cast/stream2cast/log"
)

var ErrServerClosed = errors.New("single-shot server closed")

// errServed ends the accept loop once the single connection is finished.
var errServed = errors.New("single-shot server already served its connection")

const defaultReadHeaderTimeout = 30 * time.Second

type State int32

const (
	Unbound State = iota
	Listening
	Serving
	Closed
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Listening:
		return "listening"
	case Serving:
		return "serving"
	case Closed:
		return "closed"
	}
	return "unknown"
}

type Option func(*Server)

// WithReadHeaderTimeout bounds how long an accepted connection may take to
// send its request headers.
func WithReadHeaderTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.srv.ReadHeaderTimeout = d
	}
}

type Server struct {
	ln   *oneShotListener
	srv  *http.Server
	host string
	port int

	state  atomic.Int32
	closed atomic.Bool
	served atomic.Bool

	serveOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once
}

// Listen binds an ephemeral port on host. Connections made before Serve is
// called wait in the accept queue.
func Listen(host string, handler http.Handler, opts ...Option) (*Server, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return nil, errors.Wrap(err, "unable to bind to local tcp address")
	}

	s := &Server{
		ln:   newOneShotListener(l),
		host: host,
		port: l.Addr().(*net.TCPAddr).Port,
		done: make(chan struct{}),
	}
	s.srv = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ConnState:         s.connState,
	}
	s.srv.SetKeepAlivesEnabled(false)
	for _, o := range opts {
		o(s)
	}
	s.state.Store(int32(Listening))

	log.WithField("package", "server").Infof("media server listening on %s", s.Addr())
	return s, nil
}

func (s *Server) connState(c net.Conn, state http.ConnState) {
	logger := log.WithField("package", "server")
	switch state {
	case http.StateActive:
		s.served.Store(true)
		s.state.CompareAndSwap(int32(Listening), int32(Serving))
		logger.Debugf("serving %s", c.RemoteAddr())
	case http.StateClosed, http.StateHijacked:
		logger.Debugf("connection from %s finished", c.RemoteAddr())
		s.ln.finish()
	}
}

func (s *Server) Host() string { return s.host }

func (s *Server) Port() int { return s.port }

func (s *Server) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// URL returns the address the media at path is fetched from, with the path
// escaped.
func (s *Server) URL(path string) string {
	u := url.URL{Scheme: "http", Host: s.Addr(), Path: path}
	return u.String()
}

func (s *Server) State() State { return State(s.state.Load()) }

// Served reports whether the accepted connection carried a request.
func (s *Server) Served() bool { return s.served.Load() }

// Done is closed once the server has stopped.
func (s *Server) Done() <-chan struct{} { return s.done }

// Serve answers the first connection and returns once it is finished. It
// returns ErrServerClosed if Close was called, and the context error if ctx
// ended first. Requests see ctx as their base context.
func (s *Server) Serve(ctx context.Context) error {
	err := ErrServerClosed
	s.serveOnce.Do(func() {
		err = s.serve(ctx)
	})
	return err
}

func (s *Server) serve(ctx context.Context) error {
	defer s.finish()
	if s.closed.Load() {
		return ErrServerClosed
	}

	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	err := s.srv.Serve(s.ln)
	switch {
	case ctx.Err() != nil:
		return errors.Wrap(ctx.Err(), "media server stopped")
	case s.closed.Load():
		return ErrServerClosed
	case errors.Is(err, errServed):
		if !s.served.Load() {
			log.WithField("package", "server").Warn("connection closed before sending a request")
			return nil
		}
		log.WithField("package", "server").Info("media server finished")
		return nil
	default:
		return errors.Wrap(err, "media server failed")
	}
}

// Close releases the port and drops any connection in progress.
func (s *Server) Close() error {
	s.closed.Store(true)
	err := s.srv.Close()
	s.ln.Close()
	s.state.Store(int32(Closed))
	return err
}

func (s *Server) finish() {
	s.state.Store(int32(Closed))
	s.doneOnce.Do(func() { close(s.done) })
}

// oneShotListener hands out the first connection and then closes the
// underlying listener. Later Accept calls block until that connection is
// finished.
type oneShotListener struct {
	net.Listener

	accepted   atomic.Bool
	finished   chan struct{}
	finishOnce sync.Once
	closeOnce  sync.Once
}

func newOneShotListener(l net.Listener) *oneShotListener {
	return &oneShotListener{Listener: l, finished: make(chan struct{})}
}

func (l *oneShotListener) Accept() (net.Conn, error) {
	if l.accepted.CompareAndSwap(false, true) {
		conn, err := l.Listener.Accept()
		l.closeListener()
		if err != nil {
			l.finish()
			return nil, err
		}
		return conn, nil
	}
	<-l.finished
	return nil, errServed
}

func (l *oneShotListener) finish() {
	l.finishOnce.Do(func() { close(l.finished) })
}

func (l *oneShotListener) closeListener() {
	l.closeOnce.Do(func() { l.Listener.Close() })
}

func (l *oneShotListener) Close() error {
	l.closeListener()
	l.finish()
	return nil
}
