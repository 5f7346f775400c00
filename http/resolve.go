package http

import (
	"strings"

	"github.com/freekieb7/webserver/catalog"
)

type PayloadKind uint8

const (
	PayloadText PayloadKind = iota + 1
	PayloadFile
	PayloadRedirect
)

// Outcome is the resolved answer to one request.
type Outcome struct {
	Status  Status
	Kind    PayloadKind
	Payload string // body text, file path relative to the content root, or redirect target
}

func textOutcome(status Status) Outcome {
	return Outcome{Status: status, Kind: PayloadText, Payload: StatusBody(status)}
}

func isSupportedMethod(method string) bool {
	return strings.EqualFold(method, "GET") || strings.EqualFold(method, "HEAD")
}

// Resolve decides the outcome of a request. The first matching rule wins:
// unsupported method, redirect, unknown file, unsupported type, then the file.
func Resolve(method, path string, files Catalog, redirects RedirectTable) Outcome {
	if !isSupportedMethod(method) {
		return textOutcome(StatusForbidden)
	}

	if target, ok := redirects.Lookup(path); ok {
		return Outcome{Status: StatusMovedPermanently, Kind: PayloadRedirect, Payload: target}
	}

	if !files.Contains(path) {
		return textOutcome(StatusNotFound)
	}

	if !catalog.IsSupported(path) {
		return textOutcome(StatusUnsupportedMediaType)
	}

	if strings.EqualFold(method, "GET") {
		return Outcome{Status: StatusOK, Kind: PayloadFile, Payload: strings.TrimPrefix(path, "/")}
	}
	if strings.EqualFold(method, "HEAD") {
		return Outcome{Status: StatusOK, Kind: PayloadText, Payload: ""}
	}

	// unreachable
	return textOutcome(StatusInternalServerError)
}

// ContentType maps the extension of path to its MIME type; anything else,
// including paths without an extension, is text/html.
func ContentType(path string) string {
	if mediaType, ok := catalog.MediaType(path); ok {
		return mediaType
	}
	return "text/html"
}
