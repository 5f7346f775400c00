package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/freekieb7/webserver/filesystem"
)

var ErrMalformedRedirect = errors.New("catalog: malformed redirect definition")

// Redirects maps an original request path to the URL it moved to.
// Keys match the raw request path exactly.
type Redirects map[string]string

// Lookup returns the target for requestPath.
func (redirects Redirects) Lookup(requestPath string) (string, bool) {
	target, ok := redirects[requestPath]
	return target, ok
}

// LoadRedirects reads "original target" pairs, one per line. A missing file
// is an empty table. Blank lines are skipped; any other line with fewer than
// two fields fails the whole load.
func LoadRedirects(fsys filesystem.Filesystem, path string) (Redirects, error) {
	redirects := make(Redirects)

	file, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, filesystem.ErrFileNotFound) {
			return redirects, nil
		}
		return nil, fmt.Errorf("catalog: open redirects %s: %w", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Error("closing redirects file error", "path", path, "error", closeErr)
		}
	}()

	scanner := bufio.NewScanner(file)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: %s line %d: %q", ErrMalformedRedirect, path, lineNo, scanner.Text())
		}

		redirects[fields[0]] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("catalog: read redirects %s: %w", path, err)
	}

	return redirects, nil
}
