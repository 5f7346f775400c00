package http

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrMalformedRequestLine = errors.New("http: malformed request line")
	ErrLineTooLong          = errors.New("http: line too long")
)

const headerConnection = "Connection:"

// Request is what a header block asks for.
type Request struct {
	Method    string
	Path      string
	KeepAlive bool
}

func NewRequest(method, path string) Request {
	return Request{
		Method:    method,
		Path:      path,
		KeepAlive: true,
	}
}

type LineKind uint8

const (
	LineStartOfRequest LineKind = iota + 1
	LineHeaderParam
	LineEndOfHeader
	LineConnectionClosed
)

func (kind LineKind) String() string {
	switch kind {
	case LineStartOfRequest:
		return "start of request"
	case LineHeaderParam:
		return "header param"
	case LineEndOfHeader:
		return "end of header"
	case LineConnectionClosed:
		return "connection closed"
	}
	return "unknown"
}

// Line is one classified protocol line.
type Line struct {
	Kind LineKind

	// StartOfRequest
	Method string
	Path   string

	// HeaderParam; Value is empty when the line has a single token.
	Name  string
	Value string
}

// ParseLine classifies raw, which must not contain the line terminator.
// Outside a header block every line starts a request and needs at least a
// method and a path; trailing tokens are ignored. Inside a header block an
// empty line ends the block and anything else is a parameter.
func ParseLine(raw string, inHeader bool) (Line, error) {
	fields := strings.Fields(raw)

	if !inHeader {
		if len(fields) < 2 {
			return Line{}, fmt.Errorf("%w: %q", ErrMalformedRequestLine, raw)
		}
		return Line{
			Kind:   LineStartOfRequest,
			Method: strings.ToUpper(fields[0]),
			Path:   strings.ToLower(fields[1]),
		}, nil
	}

	if len(fields) == 0 {
		return Line{Kind: LineEndOfHeader}, nil
	}

	line := Line{Kind: LineHeaderParam, Name: fields[0]}
	if len(fields) > 1 {
		line.Value = fields[1]
	}
	return line, nil
}

// Apply updates req with the side effects of a header parameter. Only
// "Connection:" carries meaning; every other parameter is consumed silently.
func (req *Request) Apply(line Line) {
	if line.Kind != LineHeaderParam || line.Value == "" {
		return
	}
	if strings.EqualFold(line.Name, headerConnection) {
		req.KeepAlive = strings.EqualFold(line.Value, "keep-alive")
	}
}

// LineReader reads protocol lines from a connection.
type LineReader struct {
	r *bufio.Reader
}

func NewLineReader(r *bufio.Reader) *LineReader {
	return &LineReader{r: r}
}

// Next reads and classifies the next line. End of stream, including a stream
// that ends in the middle of a header block, is reported as
// LineConnectionClosed without an error.
func (lr *LineReader) Next(inHeader bool) (Line, error) {
	raw, err := lr.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Line{Kind: LineConnectionClosed}, nil
		}
		return Line{}, fmt.Errorf("http: read line: %w", err)
	}

	return ParseLine(raw, inHeader)
}

// similar to readLineSlice() in net/textproto/reader.go
func (lr *LineReader) readLine() (string, error) {
	var line []byte
	for {
		l, more, err := lr.r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				break
			}
			return "", err
		}
		if line == nil && !more {
			return string(l), nil
		}
		line = append(line, l...)
		if len(line) > MaxLineSize {
			return "", ErrLineTooLong
		}
		if !more {
			break
		}
	}
	return string(line), nil
}
