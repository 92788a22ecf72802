// Package server accepts TCP connections and answers one HTTP request per
// connection with an application Handler.
//
// Each connection gets its own goroutine. The request is read with
// http.Decoder under the configured limits; a parse failure is answered with
// the status its error kind maps to (or no response for timeouts and I/O
// failures) and the connection is closed. A successfully parsed request is
// passed to the Handler exactly once and its response is written with
// "Connection: close". The stream is never reused for a second request.
package server

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"

	"github.com/shapestone/rawhttp/pkg/http"
)

const (
	lingerTimeout = 250 * time.Millisecond
	maxDrainBytes = 64 << 10
)

// ErrServerClosed is returned by Serve and ListenAndServe after Close or
// Shutdown.
var ErrServerClosed = errors.New("server: closed")

// Handler answers a parsed request. It is shared by every connection
// goroutine and must be safe for concurrent use.
type Handler interface {
	Handle(req *http.Request) *http.Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req *http.Request) *http.Response

// Handle calls f(req).
func (f HandlerFunc) Handle(req *http.Request) *http.Response { return f(req) }

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// Server is the connection dispatcher.
type Server struct {
	cfg     Config
	handler Handler
	log     zerolog.Logger

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	conns     map[net.Conn]struct{}
	closed    bool
	active    sync.WaitGroup
}

// New returns a server answering with h.
func New(cfg Config, h Handler, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		handler:   h,
		log:       zerolog.Nop(),
		listeners: make(map[net.Listener]struct{}),
		conns:     make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the server configuration.
func (s *Server) Config() Config { return s.cfg }

// Listen opens the TCP listener described by the configuration.
func (s *Server) Listen() (net.Listener, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	var lc net.ListenConfig
	if s.cfg.ReusePort {
		lc.Control = reusePortControl
	}
	ln, err := lc.Listen(context.Background(), "tcp", s.cfg.Addr)
	if err != nil {
		return nil, errors.Wrapf(err, "server: listen on %s", s.cfg.Addr)
	}
	return ln, nil
}

// ListenAndServe listens on Config.Addr and serves until closed.
func (s *Server) ListenAndServe() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Close or Shutdown, then returns
// ErrServerClosed. ln is closed on return.
func (s *Server) Serve(ln net.Listener) error {
	if s.cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConns)
	}
	if !s.trackListener(ln, true) {
		ln.Close()
		return ErrServerClosed
	}
	defer s.trackListener(ln, false)
	defer ln.Close()

	s.log.Info().Str("addr", ln.Addr().String()).Int("max_conns", s.cfg.MaxConns).Msg("listening")

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				s.log.Info().Str("addr", ln.Addr().String()).Msg("stopped listening")
				return ErrServerClosed
			}
			if isTemporary(err) {
				if delay == 0 {
					delay = 5 * time.Millisecond
				} else {
					delay *= 2
				}
				if delay > time.Second {
					delay = time.Second
				}
				s.log.Error().Err(err).Dur("retry_in", delay).Msg("accept failed")
				time.Sleep(delay)
				continue
			}
			return errors.Wrap(err, "server: accept")
		}
		delay = 0

		if !s.trackConn(conn, true) {
			conn.Close()
			return ErrServerClosed
		}
		go s.serveConn(conn)
	}
}

// Addr returns the address of a listener being served, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ln := range s.listeners {
		return ln.Addr()
	}
	return nil
}

// Close stops every listener and closes all open connections, including
// ones still reading a request or running the handler. Use Shutdown to let
// them finish.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	var first error
	for ln := range s.listeners {
		if err := ln.Close(); err != nil && first == nil {
			first = err
		}
	}
	for c := range s.conns {
		c.Close()
	}
	return first
}

// Shutdown stops the listeners and waits for in-flight connections to finish
// or for ctx to end, whichever comes first. Connections still open when ctx
// ends are left running; their idle and write deadlines bound them.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Int("active_conns", s.activeConns()).Msg("shutting down")

	s.mu.Lock()
	s.closed = true
	for ln := range s.listeners {
		ln.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.log.Warn().Int("active_conns", s.activeConns()).Msg("shutdown deadline reached")
		return errors.Wrap(ctx.Err(), "server: shutdown")
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.trackConn(conn, false)
	defer conn.Close()

	start := time.Now()
	remote := conn.RemoteAddr().String()

	dec := http.NewDecoderWithLimits(conn, s.cfg.Limits)
	req, err := dec.DecodeRequest()
	if err != nil {
		s.reject(conn, remote, err)
		return
	}
	if err := http.CheckHost(req, s.cfg.AllowedHosts); err != nil {
		s.reject(conn, remote, err)
		return
	}

	resp := s.dispatch(req)
	n, err := s.writeResponse(conn, req, resp)
	if err != nil {
		s.log.Debug().Err(err).Str("remote", remote).Msg("write failed")
		return
	}
	linger(conn)

	s.log.Info().
		Str("remote", remote).
		Str("method", req.Method.String()).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Int("bytes", n).
		Dur("duration", time.Since(start)).
		Msg("request")
}

// reject answers a request that failed to parse or was refused.
func (s *Server) reject(conn net.Conn, remote string, err error) {
	kind := http.KindOf(err)
	status := kind.Status()
	if status == 0 {
		s.log.Debug().Err(err).Str("remote", remote).Str("kind", kind.String()).Msg("connection dropped")
		return
	}

	s.log.Warn().Err(err).Str("remote", remote).Str("kind", kind.String()).Int("status", status).Msg("bad request")
	resp := http.NewResponse(status).WithText(http.StatusText(status) + "\n")
	if _, werr := s.writeResponse(conn, nil, resp); werr != nil {
		s.log.Debug().Err(werr).Str("remote", remote).Msg("write failed")
		return
	}
	linger(conn)
}

// linger half-closes conn and discards unread input for a short while, so
// the peer reads the response before the final close can reset the stream.
func linger(conn net.Conn) {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
	_ = conn.SetReadDeadline(time.Now().Add(lingerTimeout))
	_, _ = io.Copy(io.Discard, io.LimitReader(conn, maxDrainBytes))
}

// dispatch calls the handler once, turning a panic or a nil response into 500.
func (s *Server) dispatch(req *http.Request) (resp *http.Response) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("path", req.Path).Msg("handler panicked")
			resp = http.InternalServerError().WithText("Internal Server Error")
		}
	}()
	resp = s.handler.Handle(req)
	if resp == nil {
		s.log.Error().Str("path", req.Path).Msg("handler returned no response")
		resp = http.InternalServerError().WithText("Internal Server Error")
	}
	return resp
}

// writeResponse serializes resp in one write. Responses to HEAD keep their
// headers, Content-Length included, and drop the body.
func (s *Server) writeResponse(conn net.Conn, req *http.Request, resp *http.Response) (int, error) {
	if !resp.Headers.Contains("Connection") {
		resp.Headers.Set("Connection", "close")
	}
	buf, err := http.AppendResponse(nil, resp)
	if err != nil {
		s.log.Error().Err(err).Int("status", resp.StatusCode).Msg("invalid response")
		resp = http.InternalServerError().WithText("Internal Server Error")
		if buf, err = http.AppendResponse(nil, resp); err != nil {
			return 0, err
		}
	}
	if req != nil && req.Method == http.MethodHead {
		buf = buf[:len(buf)-len(resp.Body)]
	}

	if s.cfg.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return 0, errors.Wrap(err, "server: set write deadline")
		}
	}
	n, err := conn.Write(buf)
	if err != nil {
		return n, errors.Wrap(err, "server: write response")
	}
	return n, nil
}

func (s *Server) trackListener(ln net.Listener, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.closed {
			return false
		}
		s.listeners[ln] = struct{}{}
		return true
	}
	delete(s.listeners, ln)
	return true
}

func (s *Server) trackConn(c net.Conn, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.closed {
			return false
		}
		s.conns[c] = struct{}{}
		s.active.Add(1)
		return true
	}
	delete(s.conns, c)
	s.active.Done()
	return true
}

func (s *Server) activeConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// isTemporary reports whether an accept error is worth retrying.
func isTemporary(err error) bool {
	var te interface{ Temporary() bool }
	return errors.As(err, &te) && te.Temporary()
}
