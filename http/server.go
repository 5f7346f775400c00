package http

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/freekieb7/webserver/catalog"
	"github.com/freekieb7/webserver/filesystem"
)

var ErrServerClosed = errors.New("http: server closed")

type Config struct {
	Name        string
	MaxSessions int
	Root        string
	Filesystem  filesystem.Filesystem
	Source      catalog.Source
	Logger      *slog.Logger
}

type Server struct {
	Name string

	config Config
	pool   *WorkerPool
	logger *slog.Logger

	mu        sync.Mutex
	listeners map[io.Closer]struct{}
	streams   map[io.Closer]struct{}
	closing   atomic.Bool
	sessions  sync.WaitGroup
}

func NewServer(config Config) *Server {
	if config.Name == "" {
		config.Name = DefaultServerName
	}
	if config.Filesystem == nil {
		config.Filesystem = filesystem.NewLocalFileSystem()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Server{
		Name:      config.Name,
		config:    config,
		pool:      NewWorkerPool(config.MaxSessions),
		logger:    config.Logger,
		listeners: make(map[io.Closer]struct{}),
		streams:   make(map[io.Closer]struct{}),
	}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.logger.Info("waiting for clients", "addr", listener.Addr().String(), "secure", false)
	return s.Serve(ctx, listener, false)
}

func (s *Server) ListenAndServeTLS(ctx context.Context, addr string, tlsConfig *tls.Config) error {
	listener, err := tls.Listen("tcp", addr, tlsConfig)
	if err != nil {
		return err
	}

	s.logger.Info("waiting for clients", "addr", listener.Addr().String(), "secure", true)
	return s.Serve(ctx, listener, true)
}

// Serve accepts connections until the listener is closed. Each accepted
// connection waits for a free session slot before it is served on its own
// goroutine; no further connection is accepted meanwhile.
func (s *Server) Serve(ctx context.Context, listener net.Listener, secure bool) error {
	if !s.trackListener(listener, true) {
		listener.Close()
		return ErrServerClosed
	}
	defer s.trackListener(listener, false)
	defer listener.Close()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			s.logger.Error("failed to accept connection", "error", err, "secure", secure)
			continue
		}

		buffers, err := s.pool.Acquire(ctx)
		if err != nil {
			conn.Close()
			if errors.Is(err, ErrPoolClosed) {
				return ErrServerClosed
			}
			return err
		}

		if !s.register(conn) {
			s.pool.Release(buffers)
			conn.Close()
			return ErrServerClosed
		}

		go func() {
			defer s.unregister(conn)
			defer s.pool.Release(buffers)

			s.serveStream(ctx, conn, conn.RemoteAddr().String(), secure, buffers)
		}()
	}
}

// ServeConn runs a single session on stream outside of any listener. It
// still takes a slot from the pool.
func (s *Server) ServeConn(ctx context.Context, stream io.ReadWriteCloser, remote string, secure bool) error {
	buffers, err := s.pool.Acquire(ctx)
	if err != nil {
		stream.Close()
		if errors.Is(err, ErrPoolClosed) {
			return ErrServerClosed
		}
		return err
	}

	if !s.register(stream) {
		s.pool.Release(buffers)
		stream.Close()
		return ErrServerClosed
	}
	defer s.unregister(stream)
	defer s.pool.Release(buffers)

	return s.serveStream(ctx, stream, remote, secure, buffers)
}

func (s *Server) serveStream(ctx context.Context, stream io.ReadWriteCloser, remote string, secure bool, buffers *sessionBuffers) error {
	snapshot, err := s.config.Source.Snapshot()
	if err != nil {
		s.logger.Error("loading catalog failed, closing connection", "remote", remote, "error", err)
		stream.Close()
		return err
	}

	buffers.reader.Reset(stream)
	buffers.writer.Reset(stream)

	session := NewSession(stream, buffers.reader, buffers.writer, SessionConfig{
		Files:      snapshot.Files,
		Redirects:  snapshot.Redirects,
		Filesystem: s.config.Filesystem,
		Root:       s.config.Root,
		ServerName: s.config.Name,
		Secure:     secure,
		Remote:     remote,
		Logger:     s.logger,
	})
	return session.Serve(ctx)
}

func (s *Server) trackListener(listener io.Closer, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !add {
		delete(s.listeners, listener)
		return true
	}
	if s.closing.Load() {
		return false
	}
	s.listeners[listener] = struct{}{}
	return true
}

// register counts c as running until unregister is called, so Shutdown waits
// for it and can force it closed. It fails once the server is closing.
func (s *Server) register(c io.Closer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing.Load() {
		return false
	}
	s.streams[c] = struct{}{}
	s.sessions.Add(1)
	return true
}

func (s *Server) unregister(c io.Closer) {
	s.mu.Lock()
	delete(s.streams, c)
	s.mu.Unlock()

	s.sessions.Done()
}

// Shutdown closes all listeners and waits for running sessions to end. When
// ctx expires first the remaining connections are closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing.Store(true)
	s.pool.Close()
	for listener := range s.listeners {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("closing listener error", "error", err)
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	s.mu.Lock()
	for stream := range s.streams {
		stream.Close()
	}
	s.mu.Unlock()

	return ctx.Err()
}
