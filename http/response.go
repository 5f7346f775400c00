package http

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/freekieb7/webserver/filesystem"
)

var ErrFileUnavailable = errors.New("http: file unavailable")

// ResponseWriter serializes outcomes onto one connection.
type ResponseWriter struct {
	bw     *bufio.Writer
	closer io.Closer
	fsys   filesystem.Filesystem
	root   string
	server string
	chunk  []byte
}

func NewResponseWriter(bw *bufio.Writer, closer io.Closer, fsys filesystem.Filesystem, root, server string) *ResponseWriter {
	return &ResponseWriter{
		bw:     bw,
		closer: closer,
		fsys:   fsys,
		root:   root,
		server: server,
		chunk:  make([]byte, FileChunkSize),
	}
}

// ServerLine is the Server header value for a connection.
func ServerLine(name string, secure bool) string {
	if secure {
		return name + " (secure)"
	}
	return name + " (plaintext)"
}

// Write sends the response for outcome and returns the number of body bytes
// written. When req does not keep the connection alive the stream is closed
// afterwards. If the file to send cannot be opened the headers computed so far
// are still sent and ErrFileUnavailable is returned.
func (rw *ResponseWriter) Write(outcome Outcome, req Request) (int64, error) {
	isHead := strings.EqualFold(req.Method, "HEAD")

	contentType := "text/html"
	if outcome.Status == StatusOK {
		contentType = ContentType(req.Path)
	}

	contentLength := int64(len(outcome.Payload))
	if outcome.Kind == PayloadRedirect {
		contentLength = 0
	}

	var file filesystem.File
	var openErr error
	if outcome.Kind == PayloadFile && !isHead {
		file, contentLength, openErr = rw.openFile(outcome.Payload, contentLength)
		if file != nil {
			defer func() {
				if closeErr := file.Close(); closeErr != nil {
					slog.Error("closing file error", "file", outcome.Payload, "error", closeErr)
				}
			}()
		}
	}

	rw.writeHeader(outcome, contentType, contentLength, req.KeepAlive)

	var written int64
	var err error
	switch {
	case isHead || outcome.Kind == PayloadRedirect:
	case outcome.Kind == PayloadFile:
		if file != nil {
			written, err = rw.streamFile(file)
		}
	default:
		var n int
		n, err = rw.bw.WriteString(outcome.Payload)
		written = int64(n)
	}

	if flushErr := rw.bw.Flush(); err == nil {
		err = flushErr
	}
	if err != nil {
		return written, fmt.Errorf("http: write response: %w", err)
	}
	if openErr != nil {
		return written, openErr
	}

	if !req.KeepAlive {
		if err := rw.closer.Close(); err != nil {
			return written, fmt.Errorf("http: close connection: %w", err)
		}
	}

	return written, nil
}

// openFile opens the file to send and measures it. On failure the estimated
// length is kept.
func (rw *ResponseWriter) openFile(rel string, estimate int64) (filesystem.File, int64, error) {
	file, err := rw.fsys.Open(filesystem.Join(rw.root, rel))
	if err != nil {
		return nil, estimate, fmt.Errorf("%w: %s: %w", ErrFileUnavailable, rel, err)
	}

	info, err := file.Stat()
	if err != nil {
		if closeErr := file.Close(); closeErr != nil {
			slog.Error("closing file error", "file", rel, "error", closeErr)
		}
		return nil, estimate, fmt.Errorf("%w: %s: %w", ErrFileUnavailable, rel, err)
	}

	return file, info.Size(), nil
}

func (rw *ResponseWriter) writeHeader(outcome Outcome, contentType string, contentLength int64, keepAlive bool) {
	bw := rw.bw

	bw.WriteString(Protocol + " " + strconv.Itoa(int(outcome.Status)) + " " + StatusText(outcome.Status) + crlf)
	if outcome.Kind == PayloadRedirect {
		bw.WriteString("Location: " + outcome.Payload + crlf)
	}
	bw.WriteString("Server: " + rw.server + crlf)
	bw.WriteString("Content-Type: " + contentType + crlf)
	bw.WriteString("Content-Length: " + strconv.FormatInt(contentLength, 10) + crlf)
	if keepAlive {
		bw.WriteString("Connection: keep-alive" + crlf)
	} else {
		bw.WriteString("Connection: close" + crlf)
	}
	bw.WriteString(crlf)
}

func (rw *ResponseWriter) streamFile(file io.Reader) (int64, error) {
	var total int64
	for {
		n, err := file.Read(rw.chunk)
		if n > 0 {
			m, werr := rw.bw.Write(rw.chunk[:n])
			total += int64(m)
			if werr != nil {
				return total, werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			return total, fmt.Errorf("http: read file: %w", err)
		}
	}
}
