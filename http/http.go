package http

const (
	Protocol = "HTTP/1.1"

	DefaultReadBufferSize  = 4096 // 4kB
	DefaultWriteBufferSize = 4096 // 4kB
	FileChunkSize          = 4096 // 4kB
	MaxLineSize            = 8 * 1024
	DefaultMaxSessions     = 1024
	DefaultServerName      = "Gravel Static"

	crlf = "\r\n"
)

// Catalog answers whether a request path names a servable file.
type Catalog interface {
	Contains(requestPath string) bool
}

// RedirectTable maps request paths to the URL they moved to.
type RedirectTable interface {
	Lookup(requestPath string) (string, bool)
}
