package http

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/freekieb7/webserver/filesystem"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type SessionConfig struct {
	Files      Catalog
	Redirects  RedirectTable
	Filesystem filesystem.Filesystem
	Root       string
	ServerName string
	Secure     bool
	Remote     string
	Logger     *slog.Logger
}

// Session serves the sequential requests of one connection.
type Session struct {
	ID string

	stream   io.ReadWriteCloser
	config   SessionConfig
	lines    *LineReader
	writer   *ResponseWriter
	logger   *slog.Logger
	attrs    metric.MeasurementOption
	ctx      context.Context
	req      Request
	closed   bool
	err      error
	requests int
}

type stateFunc func(*Session) stateFunc

// NewSession prepares a session on stream. br and bw may be nil, in which
// case fresh buffers are allocated; otherwise they must already be reset
// onto stream.
func NewSession(stream io.ReadWriteCloser, br *bufio.Reader, bw *bufio.Writer, config SessionConfig) *Session {
	if br == nil {
		br = bufio.NewReaderSize(stream, DefaultReadBufferSize)
	}
	if bw == nil {
		bw = bufio.NewWriterSize(stream, DefaultWriteBufferSize)
	}
	if config.ServerName == "" {
		config.ServerName = DefaultServerName
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	id := uuid.NewString()
	return &Session{
		ID:     id,
		stream: stream,
		config: config,
		lines:  NewLineReader(br),
		writer: NewResponseWriter(bw, stream, config.Filesystem, config.Root, ServerLine(config.ServerName, config.Secure)),
		logger: config.Logger.With("session", id, "remote", config.Remote, "secure", config.Secure),
		attrs:  metric.WithAttributes(attribute.Bool("secure", config.Secure)),
	}
}

// Serve runs the session until the client goes away, a non persistent
// response has been sent or a fault ends it. Normal termination returns nil.
func (s *Session) Serve(ctx context.Context) error {
	s.ctx = ctx

	activeSessions.Add(ctx, 1, s.attrs)
	defer activeSessions.Add(ctx, -1, s.attrs)

	s.logger.Info("session started")
	for state := awaitingHeaderStart; state != nil; {
		state = state(s)
	}
	s.logger.Info("session finished", "requests", s.requests)

	return s.err
}

func (s *Session) fail(err error) stateFunc {
	s.err = err
	if errors.Is(err, ErrMalformedRequestLine) {
		s.logger.Warn("protocol fault, closing connection", "error", err)
	} else {
		s.logger.Error("i/o fault, closing connection", "error", err)
	}
	return finish
}

// state funcs

func awaitingHeaderStart(s *Session) stateFunc {
	line, err := s.lines.Next(false)
	if err != nil {
		return s.fail(err)
	}
	if line.Kind == LineConnectionClosed {
		return finish
	}

	s.req = NewRequest(line.Method, line.Path)
	s.logger.Debug("new header", "method", s.req.Method, "path", s.req.Path)
	return inHeader
}

func inHeader(s *Session) stateFunc {
	line, err := s.lines.Next(true)
	if err != nil {
		return s.fail(err)
	}

	switch line.Kind {
	case LineConnectionClosed:
		return finish
	case LineEndOfHeader:
		return respond
	default:
		s.req.Apply(line)
		s.logger.Debug("param", "name", line.Name, "value", line.Value)
		return inHeader
	}
}

func respond(s *Session) stateFunc {
	s.requests++

	ctx, span := tracer.Start(s.ctx, "webserver.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", s.req.Method),
			attribute.String("http.path", s.req.Path),
			attribute.Bool("secure", s.config.Secure),
		))
	defer span.End()

	outcome := Resolve(s.req.Method, s.req.Path, s.config.Files, s.config.Redirects)
	span.SetAttributes(attribute.Int("http.status_code", int(outcome.Status)))

	written, err := s.writer.Write(outcome, s.req)

	requestCnt.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("http.status_code", int(outcome.Status)),
		attribute.String("http.method", s.req.Method),
		attribute.Bool("secure", s.config.Secure),
	))
	responseBytes.Add(ctx, written, s.attrs)

	s.logger.Info("response",
		"method", s.req.Method,
		"path", s.req.Path,
		"status", int(outcome.Status),
		"payload", outcome.Payload,
		"bytes", written,
		"keepAlive", s.req.KeepAlive,
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return s.fail(err)
	}

	if !s.req.KeepAlive {
		s.closed = true
		return finish
	}
	return awaitingHeaderStart
}

func finish(s *Session) stateFunc {
	if !s.closed {
		if err := s.stream.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("closing connection error", "error", err)
		}
		s.closed = true
	}
	return nil
}
