package http

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/quic-go/quic-go"
)

// QUICProtocol is the ALPN name negotiated on the QUIC listener.
const QUICProtocol = "gravel-static"

// ListenAndServeQUIC serves sessions over QUIC. Every bidirectional stream a
// client opens is an independent secure session.
func (s *Server) ListenAndServeQUIC(ctx context.Context, addr string, tlsConfig *tls.Config) error {
	tlsConf := tlsConfig.Clone()
	tlsConf.NextProtos = []string{QUICProtocol}

	listener, err := quic.ListenAddr(addr, tlsConf, &quic.Config{
		MaxIdleTimeout:  time.Minute,
		KeepAlivePeriod: 15 * time.Second,
	})
	if err != nil {
		return err
	}

	s.logger.Info("waiting for clients", "addr", listener.Addr().String(), "secure", true, "transport", "quic")
	return s.ServeQUIC(ctx, listener)
}

func (s *Server) ServeQUIC(ctx context.Context, listener *quic.Listener) error {
	if !s.trackListener(listener, true) {
		listener.Close()
		return ErrServerClosed
	}
	defer s.trackListener(listener, false)
	defer listener.Close()

	for {
		conn, err := listener.Accept(ctx)
		if err != nil {
			if s.closing.Load() || ctx.Err() != nil {
				return ErrServerClosed
			}
			return err
		}

		closer := quicConn{conn}
		if !s.register(closer) {
			closer.Close()
			return ErrServerClosed
		}

		go func() {
			defer s.unregister(closer)
			s.serveQUICConn(ctx, conn)
		}()
	}
}

// quicConn lets Shutdown close a QUIC connection like any other stream.
type quicConn struct {
	quic.Connection
}

func (c quicConn) Close() error {
	return c.CloseWithError(0, "server shutting down")
}

// quicStream ends both directions of a stream when its session closes it.
type quicStream struct {
	quic.Stream
}

func (s quicStream) Close() error {
	s.CancelRead(0)
	return s.Stream.Close()
}

// serveQUICConn serves the streams of one connection. The connection itself
// holds no session slot; each stream takes one once it has been accepted.
func (s *Server) serveQUICConn(ctx context.Context, conn quic.Connection) {
	remote := conn.RemoteAddr().String()
	s.logger.Debug("quic connection accepted", "remote", remote)

	for {
		accepted, err := conn.AcceptStream(ctx)
		if err != nil {
			s.logger.Debug("quic connection closed", "remote", remote, "error", err)
			return
		}
		stream := quicStream{accepted}

		buffers, err := s.pool.Acquire(ctx)
		if err != nil {
			stream.Close()
			return
		}

		if !s.register(stream) {
			s.pool.Release(buffers)
			stream.Close()
			return
		}

		go func() {
			defer s.unregister(stream)
			defer s.pool.Release(buffers)

			s.serveStream(ctx, stream, remote, true, buffers)
		}()
	}
}
