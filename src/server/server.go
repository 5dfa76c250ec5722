// Package server runs the nFTP daemon: one goroutine per accepted connection,
// one request per connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/danmuck/nftp/src/rootfs"
	logs "github.com/danmuck/smplog"
	"golang.org/x/sync/semaphore"
)

type Server struct {
	cfg      Config
	root     *rootfs.Root
	metrics  *Metrics
	reporter *errorReporter
	slots    *semaphore.Weighted // nil when MaxConnections is 0

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
	active   sync.Map // remote addr -> net.Conn
	wg       sync.WaitGroup
}

// New validates cfg and opens the root directory. The server does not listen
// until ListenAndServe or Serve is called.
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	root, err := rootfs.New(cfg.Root, cfg.ConfineToRoot)
	if err != nil {
		return nil, err
	}

	m := newMetrics()
	s := &Server{
		cfg:      cfg,
		root:     root,
		metrics:  m,
		reporter: newErrorReporter(cfg, m),
		ready:    make(chan struct{}),
	}
	if cfg.MaxConnections > 0 {
		s.slots = semaphore.NewWeighted(int64(cfg.MaxConnections))
	}
	logs.Debugf("server: root=%s max_connections=%d request_timeout=%s", root.Dir(), cfg.MaxConnections, cfg.RequestTimeout)
	return s, nil
}

func (s *Server) Metrics() *Metrics { return s.metrics }

// Root returns the directory being served.
func (s *Server) Root() *rootfs.Root { return s.root }

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound listener address, nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe binds cfg.Address and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then stops
// accepting and waits for in-flight connections.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	logs.Infof("nFTP server listening on %s (root: %s)", ln.Addr(), s.root.Dir())

	go func() {
		<-ctx.Done()
		logs.Infof("server: shutdown requested: %v", ctx.Err())
		ln.Close()
	}()

	var tempDelay time.Duration // how long to sleep on accept failure
	for {
		if s.slots != nil {
			if err := s.slots.Acquire(ctx, 1); err != nil {
				return s.drain()
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			s.release()
			if ctx.Err() != nil {
				return s.drain()
			}
			if errors.Is(err, net.ErrClosed) {
				s.drain()
				return err
			}
			s.metrics.acceptFailed()
			tempDelay = nextAcceptDelay(tempDelay)
			logs.Warnf("accept error: %v; retrying in %v", err, tempDelay)
			if sleepContext(ctx, tempDelay) != nil {
				return s.drain()
			}
			continue
		}
		tempDelay = 0

		s.track(ctx, conn)
	}
}

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// nextAcceptDelay doubles the pause between failing Accept calls, from
// minAcceptDelay up to maxAcceptDelay.
func nextAcceptDelay(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptDelay
	}
	return min(2*d, maxAcceptDelay)
}

func (s *Server) track(ctx context.Context, conn net.Conn) {
	c := s.newConnection(conn)
	s.active.Store(c.addr, conn)
	s.metrics.connOpened()
	s.wg.Add(1)

	go func() {
		defer func() {
			s.active.Delete(c.addr)
			s.metrics.connClosed()
			s.release()
			s.wg.Done()
		}()
		c.serve(ctx)
	}()
}

func (s *Server) release() {
	if s.slots != nil {
		s.slots.Release(1)
	}
}

// drain waits for in-flight connections, forcing them closed after
// ShutdownTimeout.
func (s *Server) drain() error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	if s.cfg.ShutdownTimeout <= 0 {
		<-done
		return nil
	}

	select {
	case <-done:
		logs.Infof("server: all connections closed")
		return nil
	case <-time.After(s.cfg.ShutdownTimeout):
	}

	forced := 0
	s.active.Range(func(_, v any) bool {
		v.(net.Conn).Close()
		forced++
		return true
	})
	logs.Warnf("server: forced %d connections closed after %s", forced, s.cfg.ShutdownTimeout)
	<-done
	return fmt.Errorf("server: shutdown timeout, %d connections forced closed", forced)
}
