package http

import (
	"bufio"
	"errors"
	"strings"
	"testing"

	"github.com/freekieb7/webserver/test"
)

func TestParseLineStartOfRequest(t *testing.T) {
	line, err := ParseLine("get /Index.HTML HTTP/1.1 trailing", false)
	test.AssertNoError(t, err)
	test.AssertEqual(t, LineStartOfRequest, line.Kind)
	test.AssertEqual(t, "GET", line.Method)
	test.AssertEqual(t, "/index.html", line.Path)

	line, err = ParseLine("  HEAD\t/a.txt", false)
	test.AssertNoError(t, err)
	test.AssertEqual(t, "HEAD", line.Method)
	test.AssertEqual(t, "/a.txt", line.Path)
}

func TestParseLineMalformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "GET"} {
		_, err := ParseLine(raw, false)
		test.AssertErrorIs(t, err, ErrMalformedRequestLine)
	}
}

func TestParseLineInHeader(t *testing.T) {
	line, err := ParseLine("", true)
	test.AssertNoError(t, err)
	test.AssertEqual(t, LineEndOfHeader, line.Kind)

	line, err = ParseLine("Host: localhost", true)
	test.AssertNoError(t, err)
	test.AssertEqual(t, LineHeaderParam, line.Kind)
	test.AssertEqual(t, "Host:", line.Name)
	test.AssertEqual(t, "localhost", line.Value)

	line, err = ParseLine("X-Lonely", true)
	test.AssertNoError(t, err)
	test.AssertEqual(t, LineHeaderParam, line.Kind)
	test.AssertEqual(t, "", line.Value)
}

func TestRequestApply(t *testing.T) {
	cases := []struct {
		lines     []string
		keepAlive bool
	}{
		{nil, true},
		{[]string{"Connection: close"}, false},
		{[]string{"connection: Keep-Alive"}, true},
		{[]string{"CONNECTION: upgrade"}, false},
		{[]string{"Connection: close", "Connection: keep-alive"}, true},
		{[]string{"Connection:"}, true},
		{[]string{"Host: close"}, true},
	}

	for _, c := range cases {
		req := NewRequest("GET", "/")
		for _, raw := range c.lines {
			line, err := ParseLine(raw, true)
			test.AssertNoError(t, err)
			req.Apply(line)
		}
		if req.KeepAlive != c.keepAlive {
			t.Errorf("lines %q: expected keep-alive %v, got %v", c.lines, c.keepAlive, req.KeepAlive)
		}
	}
}

func TestLineReader(t *testing.T) {
	input := "GET /a.html HTTP/1.1\r\nConnection: close\r\n\r\nHEAD /b.txt"
	lr := NewLineReader(bufio.NewReader(strings.NewReader(input)))

	expected := []struct {
		inHeader bool
		kind     LineKind
	}{
		{false, LineStartOfRequest},
		{true, LineHeaderParam},
		{true, LineEndOfHeader},
		{false, LineStartOfRequest},
		{true, LineConnectionClosed},
		{false, LineConnectionClosed},
	}

	for i, e := range expected {
		line, err := lr.Next(e.inHeader)
		test.AssertNoError(t, err)
		if line.Kind != e.kind {
			t.Errorf("line %d: expected %s, got %s", i, e.kind, line.Kind)
		}
	}
}

func TestLineReaderTooLong(t *testing.T) {
	input := "GET /" + strings.Repeat("a", MaxLineSize) + " HTTP/1.1\r\n"
	lr := NewLineReader(bufio.NewReaderSize(strings.NewReader(input), 16))

	_, err := lr.Next(false)
	if !errors.Is(err, ErrLineTooLong) {
		t.Errorf("Expected ErrLineTooLong, got %v", err)
	}
}
