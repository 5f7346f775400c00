package catalog

import (
	"errors"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/freekieb7/webserver/filesystem"
)

var mediaTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".txt":  "text/plain",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
}

// MediaType returns the MIME type for the extension of p when it is one of
// the servable types. Extensions compare case-insensitively.
func MediaType(p string) (string, bool) {
	mediaType, ok := mediaTypes[strings.ToLower(path.Ext(p))]
	return mediaType, ok
}

// IsSupported reports whether p has a servable extension.
func IsSupported(p string) bool {
	_, ok := MediaType(p)
	return ok
}

// Catalog is the set of servable file paths below a content root.
// It is never modified after Build returns.
type Catalog struct {
	name  string
	files map[string]struct{}
}

// Build walks root and collects every regular file with a supported
// extension, except the redirect definitions file itself. Keys look like
// "/www/docs/index.html": the base name of root followed by the relative
// path, slash separated and lower-cased.
func Build(fsys filesystem.Filesystem, root, redirectsPath string) (*Catalog, error) {
	catalog := &Catalog{
		name:  filepath.Base(filepath.Clean(root)),
		files: make(map[string]struct{}),
	}

	exclude := filepath.Clean(redirectsPath)
	if err := catalog.walk(fsys, filepath.Clean(root), "", exclude); err != nil {
		if errors.Is(err, filesystem.ErrDirectoryNotFound) {
			slog.Warn("content root does not exist, catalog is empty", "root", root)
			return catalog, nil
		}
		return nil, err
	}

	return catalog, nil
}

func (catalog *Catalog) walk(fsys filesystem.Filesystem, dir, rel, exclude string) error {
	entries, err := fsys.ListDirectory(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		entryRel := path.Join(rel, entry.Name())

		if entry.IsDir() {
			if err := catalog.walk(fsys, full, entryRel, exclude); err != nil {
				return err
			}
			continue
		}

		if full == exclude || !IsSupported(entry.Name()) {
			continue
		}

		catalog.files[catalog.key(entryRel)] = struct{}{}
	}

	return nil
}

func (catalog *Catalog) key(rel string) string {
	return strings.ToLower("/" + catalog.name + "/" + strings.TrimPrefix(rel, "/"))
}

// Name is the logical name of the content root ("www" for "./www").
func (catalog *Catalog) Name() string {
	return catalog.name
}

// Contains reports whether requestPath, as sent by a client ("/index.html"),
// names a servable file.
func (catalog *Catalog) Contains(requestPath string) bool {
	_, ok := catalog.files[strings.ToLower("/"+catalog.name+requestPath)]
	return ok
}

func (catalog *Catalog) Len() int {
	return len(catalog.files)
}
