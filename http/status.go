package http

import "strconv"

type Status uint16

const (
	StatusOK                   Status = 200 // RFC 7231, 6.3.1
	StatusMovedPermanently     Status = 301 // RFC 7231, 6.4.2
	StatusForbidden            Status = 403 // RFC 7231, 6.5.3
	StatusNotFound             Status = 404 // RFC 7231, 6.5.4
	StatusUnsupportedMediaType Status = 415 // RFC 7231, 6.5.13
	StatusInternalServerError  Status = 500 // RFC 7231, 6.6.1
)

const (
	htmlStart = "<html><body><b>"
	htmlEnd   = "</b></body></html>"
)

type statusInfo struct {
	reason string
	body   string
}

var statusTable = map[Status]statusInfo{
	StatusOK:                   {reason: "OK"},
	StatusMovedPermanently:     {reason: "Moved Permanently"},
	StatusForbidden:            {reason: "Forbidden", body: "HTTP method not supported"},
	StatusNotFound:             {reason: "Not Found", body: "File not found"},
	StatusUnsupportedMediaType: {reason: "Unsupported Media Type", body: "The server does not support this file type"},
	StatusInternalServerError:  {reason: "Internal Server Error", body: "There was an internal error with the server."},
}

// StatusText returns the reason phrase for code, or "" if it is unknown.
func StatusText(code Status) string {
	return statusTable[code].reason
}

// StatusBody returns the HTML message sent for a status without a file or
// redirect payload.
func StatusBody(code Status) string {
	info, ok := statusTable[code]
	if !ok || info.body == "" {
		return ""
	}
	return htmlStart + info.body + htmlEnd
}

func (code Status) String() string {
	return strconv.Itoa(int(code)) + " " + StatusText(code)
}
