package http

import (
	"path/filepath"
	"testing"

	"github.com/freekieb7/webserver/catalog"
	"github.com/freekieb7/webserver/filesystem"
	"github.com/freekieb7/webserver/test"
)

type fakeCatalog map[string]bool

func (c fakeCatalog) Contains(requestPath string) bool {
	return c[requestPath]
}

func newTestSnapshot(t *testing.T, files map[string]string) (string, *catalog.Snapshot) {
	t.Helper()

	root := test.WriteTree(t, "www", files)
	snapshot, err := catalog.Load(filesystem.NewLocalFileSystem(), root, filepath.Join(root, "redirect.defs"))
	test.AssertNoError(t, err)
	return root, snapshot
}

func TestResolve(t *testing.T) {
	_, snapshot := newTestSnapshot(t, map[string]string{
		"index.html":    "<p>index</p>",
		"data.xyz":      "xyz",
		"old":           "a file that is also a redirect key",
		"docs/a.txt":    "a",
		"redirect.defs": "/old /new\n/index.html /elsewhere.html\n",
	})

	cases := []struct {
		method  string
		path    string
		status  Status
		kind    PayloadKind
		payload string
	}{
		{"GET", "/docs/a.txt", StatusOK, PayloadFile, "docs/a.txt"},
		{"HEAD", "/docs/a.txt", StatusOK, PayloadText, ""},
		{"get", "/docs/a.txt", StatusOK, PayloadFile, "docs/a.txt"},
		{"GET", "/old", StatusMovedPermanently, PayloadRedirect, "/new"},
		{"HEAD", "/old", StatusMovedPermanently, PayloadRedirect, "/new"},
		{"GET", "/index.html", StatusMovedPermanently, PayloadRedirect, "/elsewhere.html"},
		{"POST", "/docs/a.txt", StatusForbidden, PayloadText, StatusBody(StatusForbidden)},
		{"post", "/old", StatusForbidden, PayloadText, StatusBody(StatusForbidden)},
		{"DELETE", "/missing.html", StatusForbidden, PayloadText, StatusBody(StatusForbidden)},
		{"GET", "/missing.html", StatusNotFound, PayloadText, StatusBody(StatusNotFound)},
		{"HEAD", "/missing.html", StatusNotFound, PayloadText, StatusBody(StatusNotFound)},
		{"GET", "/data.xyz", StatusNotFound, PayloadText, StatusBody(StatusNotFound)},
		{"GET", "/redirect.defs", StatusNotFound, PayloadText, StatusBody(StatusNotFound)},
	}

	for _, c := range cases {
		outcome := Resolve(c.method, c.path, snapshot.Files, snapshot.Redirects)
		if outcome.Status != c.status || outcome.Kind != c.kind || outcome.Payload != c.payload {
			t.Errorf("%s %s: expected %d/%d/%q, got %d/%d/%q",
				c.method, c.path, c.status, c.kind, c.payload, outcome.Status, outcome.Kind, outcome.Payload)
		}
	}
}

func TestResolveUnsupportedType(t *testing.T) {
	files := fakeCatalog{"/data.xyz": true, "/noext": true}
	redirects := catalog.Redirects{}

	for _, p := range []string{"/data.xyz", "/noext"} {
		outcome := Resolve("GET", p, files, redirects)
		test.AssertEqual(t, StatusUnsupportedMediaType, outcome.Status)
		test.AssertEqual(t, PayloadText, outcome.Kind)
		test.AssertEqual(t, "<html><body><b>The server does not support this file type</b></body></html>", outcome.Payload)
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"/index.html":  "text/html",
		"/index.HTM":   "text/html",
		"/notes.txt":   "text/plain",
		"/paper.pdf":   "application/pdf",
		"/logo.png":    "image/png",
		"/photo.jpeg":  "image/jpeg",
		"/photo.jpg":   "image/jpeg",
		"/data.xyz":    "text/html",
		"/noextension": "text/html",
		"":             "text/html",
	}

	for p, expected := range cases {
		test.AssertEqual(t, expected, ContentType(p))
	}
}

func TestStatusTable(t *testing.T) {
	cases := map[Status]string{
		StatusOK:                   "OK",
		StatusMovedPermanently:     "Moved Permanently",
		StatusForbidden:            "Forbidden",
		StatusNotFound:             "Not Found",
		StatusUnsupportedMediaType: "Unsupported Media Type",
		StatusInternalServerError:  "Internal Server Error",
	}

	for code, reason := range cases {
		test.AssertEqual(t, reason, StatusText(code))
	}

	test.AssertEqual(t, "", StatusBody(StatusOK))
	test.AssertEqual(t, "", StatusBody(StatusMovedPermanently))
	test.AssertEqual(t, "<html><body><b>HTTP method not supported</b></body></html>", StatusBody(StatusForbidden))
	test.AssertEqual(t, "<html><body><b>File not found</b></body></html>", StatusBody(StatusNotFound))
	test.AssertEqual(t, "404 Not Found", StatusNotFound.String())
}
