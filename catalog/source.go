package catalog

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/freekieb7/webserver/filesystem"
)

// Snapshot is the catalog and redirect table one session serves from.
type Snapshot struct {
	Files     *Catalog
	Redirects Redirects
}

// Load builds a snapshot from the content root and the redirect definitions.
func Load(fsys filesystem.Filesystem, root, redirectsPath string) (*Snapshot, error) {
	redirects, err := LoadRedirects(fsys, redirectsPath)
	if err != nil {
		return nil, err
	}

	files, err := Build(fsys, root, redirectsPath)
	if err != nil {
		return nil, err
	}

	return &Snapshot{Files: files, Redirects: redirects}, nil
}

// Source hands a snapshot to each new session.
type Source interface {
	Snapshot() (*Snapshot, error)
}

// Static shares a single snapshot, loaded once, between all sessions.
type Static struct {
	snapshot *Snapshot
}

func NewStatic(fsys filesystem.Filesystem, root, redirectsPath string) (*Static, error) {
	snapshot, err := Load(fsys, root, redirectsPath)
	if err != nil {
		return nil, err
	}
	return &Static{snapshot: snapshot}, nil
}

func (source *Static) Snapshot() (*Snapshot, error) {
	return source.snapshot, nil
}

// PerSession rebuilds the snapshot for every session, so changes to the
// content root are picked up by the next connection.
type PerSession struct {
	fsys          filesystem.Filesystem
	root          string
	redirectsPath string
}

func NewPerSession(fsys filesystem.Filesystem, root, redirectsPath string) *PerSession {
	return &PerSession{
		fsys:          fsys,
		root:          root,
		redirectsPath: redirectsPath,
	}
}

func (source *PerSession) Snapshot() (*Snapshot, error) {
	return Load(source.fsys, source.root, source.redirectsPath)
}

// Reloading shares one snapshot between sessions and swaps it whenever
// Reload succeeds. A session keeps the snapshot it started with.
type Reloading struct {
	fsys          filesystem.Filesystem
	root          string
	redirectsPath string
	current       atomic.Pointer[Snapshot]
}

func NewReloading(fsys filesystem.Filesystem, root, redirectsPath string) (*Reloading, error) {
	source := &Reloading{
		fsys:          fsys,
		root:          root,
		redirectsPath: redirectsPath,
	}
	if err := source.Reload(context.Background()); err != nil {
		return nil, err
	}
	return source, nil
}

func (source *Reloading) Snapshot() (*Snapshot, error) {
	return source.current.Load(), nil
}

// Reload rebuilds the snapshot. On failure the previous one stays in use.
func (source *Reloading) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot, err := Load(source.fsys, source.root, source.redirectsPath)
	if err != nil {
		return err
	}

	source.current.Store(snapshot)
	slog.Debug("catalog reloaded", "root", source.root, "files", snapshot.Files.Len(), "redirects", len(snapshot.Redirects))
	return nil
}
