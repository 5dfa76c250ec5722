// Package rootfs resolves client paths against the served root directory and
// renders the directory tree used by LIST.
package rootfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/nftp/src/protocol"
)

// Root is the directory every client path is joined onto. It is immutable
// after New and safe for concurrent use.
type Root struct {
	dir     string
	confine bool
}

// New validates dir and returns a Root. With confine set, Resolve rejects
// paths that escape dir, including through symlinks.
func New(dir string, confine bool) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("root %q: %w", dir, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("root %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q: not a directory", dir)
	}
	return &Root{dir: abs, confine: confine}, nil
}

// Dir returns the absolute root directory.
func (r *Root) Dir() string { return r.dir }

// Resolve joins rel onto the root. Leading separators are ignored so "/a"
// and "a" name the same entry.
func (r *Root) Resolve(rel string) (string, error) {
	joined := filepath.Join(r.dir, filepath.FromSlash(rel))
	if !r.confine {
		return joined, nil
	}
	if !within(r.dir, joined) {
		return "", fmt.Errorf("%w: %q", protocol.ErrOutsideRoot, rel)
	}

	// a symlink inside the root may still point outside of it
	target, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return joined, nil
		}
		return "", fmt.Errorf("%w: resolve %q: %v", protocol.ErrIOFailure, rel, err)
	}
	if !within(r.dir, target) {
		return "", fmt.Errorf("%w: %q", protocol.ErrOutsideRoot, rel)
	}
	return joined, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Stat resolves rel and requires a regular file. Missing entries and
// anything that is not a regular file report protocol.ErrNotFound.
func (r *Root) Stat(rel string) (string, fs.FileInfo, error) {
	path, err := r.Resolve(rel)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %q", protocol.ErrNotFound, rel)
		}
		return "", nil, fmt.Errorf("%w: stat %q: %v", protocol.ErrIOFailure, rel, err)
	}
	if !info.Mode().IsRegular() {
		return "", nil, fmt.Errorf("%w: %q is not a regular file", protocol.ErrNotFound, rel)
	}
	return path, info, nil
}

// Open returns an open regular file and its size.
func (r *Root) Open(rel string) (*os.File, int64, error) {
	path, info, err := r.Stat(rel)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %q", protocol.ErrNotFound, rel)
		}
		return nil, 0, fmt.Errorf("%w: open %q: %v", protocol.ErrIOFailure, rel, err)
	}
	return f, info.Size(), nil
}

// Exists reports whether rel resolves to an existing entry.
func (r *Root) Exists(rel string) bool {
	path, err := r.Resolve(rel)
	if err != nil {
		return false
	}
	_, err = os.Lstat(path)
	return err == nil
}

// ReadFile returns the whole file; GET streams instead, this is for small
// files and tests.
func (r *Root) ReadFile(rel string) ([]byte, error) {
	path, _, err := r.Stat(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", protocol.ErrIOFailure, rel, err)
	}
	return data, nil
}

// Tree serializes the whole root, see SerializeTree.
func (r *Root) Tree() (string, error) {
	return SerializeTree(r.dir)
}
