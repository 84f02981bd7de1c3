// Package server implements the klip server: connection admission, the
// four-message handshake, and the three-opcode command dispatch against a
// single in-memory clip store.
package server

import (
	"context"
	"net"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/lmaotrigine/klip/internal/config"
	"github.com/lmaotrigine/klip/internal/crypto"
	"github.com/lmaotrigine/klip/internal/errs"
	"github.com/lmaotrigine/klip/internal/store"
)

// Server holds the process-wide state: the config, the active-connection
// counter, the trusted-IP FIFO, and the clip slot.
type Server struct {
	cfg     config.Config
	suite   crypto.Suite
	clips   *store.Store
	trusted *trustedIPs
	active  int64 // atomic; 0 <= active <= cfg.MaxClients
	log     zerolog.Logger
}

// Option configures optional Server behaviour.
type Option func(*Server)

// WithSuite overrides the cryptographic capability set — used by tests to
// inject fault-injecting or deterministic implementations.
func WithSuite(s crypto.Suite) Option {
	return func(srv *Server) { srv.suite = s }
}

// WithLogger overrides the zerolog.Logger used for diagnostics. The default
// is a disabled logger, so embedding the server as a library never forces
// log output.
func WithLogger(l zerolog.Logger) Option {
	return func(srv *Server) { srv.log = l }
}

// New builds a Server from cfg, which must already satisfy
// cfg.ValidateServer().
func New(cfg config.Config, opts ...Option) (*Server, error) {
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}
	srv := &Server{
		cfg:     cfg,
		suite:   crypto.Default,
		clips:   store.New(),
		trusted: newTrustedIPs(cfg.TrustedIPCount),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv, nil
}

// Active returns the current number of in-flight connections.
func (s *Server) Active() int {
	return int(atomic.LoadInt64(&s.active))
}

// Status reports whether the clip slot currently holds a clip, and its age
// in seconds if so — used by the optional informational signal handler
// (internal/siginfo).
func (s *Server) Status(now func() int64) (nonEmpty bool, ageSeconds int64) {
	clip := s.clips.Snapshot()
	if clip.Empty() {
		return false, 0
	}
	age := now() - int64(clip.Timestamp)
	if age < 0 {
		age = 0
	}
	return true, age
}

// ListenAndServe binds cfg.Listen and serves connections until ctx is
// canceled or the listener errors. It returns nil on a context-driven
// shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return errs.Wrap(errs.KindIO, err, "listen")
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln, one goroutine per connection, until
// ctx is canceled or Accept fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ln.Close()
		case <-done:
		}
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("klip server listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errs.Wrap(errs.KindIO, err, "accept")
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}
	ip := net.ParseIP(host)

	if err := s.admit(ip); err != nil {
		s.log.Warn().Str("peer", host).Msg("connection refused: capacity reached")
		return
	}
	defer atomic.AddInt64(&s.active, -1)

	if err := s.serveConn(conn, ip); err != nil {
		kind, _ := errs.Of(err)
		s.log.Debug().Str("peer", host).Str("kind", kind.String()).Msg("session ended")
	}
}

// admit applies the capacity/trusted-IP policy via a compare-and-swap
// retry loop over a lock-free admission counter.
func (s *Server) admit(ip net.IP) error {
	for {
		cur := atomic.LoadInt64(&s.active)
		if cur >= int64(s.cfg.MaxClients) {
			return errs.New(errs.KindCapacity, "capacity reached")
		}
		reserved := int64(s.cfg.MaxClients - s.cfg.TrustedIPCount)
		if cur >= reserved && !s.trusted.contains(ip) {
			return errs.New(errs.KindCapacity, "capacity reached")
		}
		if atomic.CompareAndSwapInt64(&s.active, cur, cur+1) {
			return nil
		}
	}
}
