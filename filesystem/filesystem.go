package filesystem

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

var (
	ErrFileNotFound      = errors.New("filesystem: file not found")
	ErrDirectoryNotFound = errors.New("filesystem: directory not found")
	ErrNotAFile          = errors.New("filesystem: not a regular file")
	ErrInvalidPath       = errors.New("filesystem: invalid path")
)

// File is an opened, readable file.
type File interface {
	io.ReadCloser
	Stat() (os.FileInfo, error)
}

// Filesystem is the read-only view of the content root the server serves from.
type Filesystem interface {
	Open(path string) (File, error)
	ListDirectory(path string) ([]os.FileInfo, error)
}

type localFileSystem struct {
}

func NewLocalFileSystem() Filesystem {
	return &localFileSystem{}
}

func (filesystem *localFileSystem) Open(path string) (File, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		closeFile(file)
		return nil, err
	}
	if info.IsDir() {
		closeFile(file)
		return nil, fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	return file, nil
}

func isDirectory(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (filesystem *localFileSystem) ListDirectory(path string) ([]os.FileInfo, error) {
	exists, err := isDirectory(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}

	return infos, nil
}

func closeFile(file *os.File) {
	if err := file.Close(); err != nil {
		slog.Error("closing file error", "file", file.Name(), "error", err)
	}
}

// Join resolves a slash separated relative path below root.
func Join(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}
