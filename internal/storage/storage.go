// Package storage keeps uploaded resumes and their preview images on local disk,
// one directory per owner.
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/jonathan/resumind/internal/format"
	"github.com/jonathan/resumind/internal/types"
)

// sniffLen is how many leading bytes are inspected to detect the MIME type.
const sniffLen = 3072

var (
	// ErrNotFound is returned when a path does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidPath is returned for paths that are absolute or escape the storage root.
	ErrInvalidPath = errors.New("invalid file path")
)

// Local stores files below a root directory. Paths handed out are relative,
// slash-separated and start with the owner, e.g. "<owner>/<id>-resume.pdf".
type Local struct {
	root string
}

// NewLocal creates the root directory if needed.
func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute storage directory.
func (l *Local) Root() string {
	return l.root
}

// Upload writes r to a new file of owner and returns its description.
func (l *Local) Upload(ctx context.Context, owner, name string, r io.Reader) (*types.FSItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validSegment(owner) {
		return nil, fmt.Errorf("%w: owner %q", ErrInvalidPath, owner)
	}

	name = cleanName(name)
	id := format.NewID()
	rel := path.Join(owner, id+"-"+name)

	abs, err := l.resolve(rel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create owner directory: %w", err)
	}

	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	mime := mimetype.Detect(head)

	tmp, err := os.CreateTemp(filepath.Dir(abs), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	size, err := io.Copy(tmp, br)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	return &types.FSItem{
		ID:        id,
		Name:      name,
		Path:      rel,
		Size:      size,
		MimeType:  mime.String(),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Read returns the content of the file at path.
func (l *Local) Read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := l.resolve(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, nil
}

// Open opens the file at path for streaming.
func (l *Local) Open(p string) (*os.File, error) {
	abs, err := l.resolve(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return f, err
}

// ReadDir lists the files of owner, oldest first. A missing directory yields an empty list.
func (l *Local) ReadDir(ctx context.Context, owner string) ([]types.FSItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validSegment(owner) {
		return nil, fmt.Errorf("%w: owner %q", ErrInvalidPath, owner)
	}

	dir := filepath.Join(l.root, owner)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []types.FSItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	items := make([]types.FSItem, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		id, name := splitStoredName(e.Name())
		item := types.FSItem{
			ID:        id,
			Name:      name,
			Path:      path.Join(owner, e.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC(),
		}
		if mime, err := mimetype.DetectFile(filepath.Join(dir, e.Name())); err == nil {
			item.MimeType = mime.String()
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

// Delete removes the file at path.
func (l *Local) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := l.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	return nil
}

// Owner returns the owner segment of a stored path.
func Owner(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}

// resolve maps a relative storage path to an absolute path inside the root.
func (l *Local) resolve(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	abs := filepath.Join(l.root, filepath.FromSlash(path.Clean(p)))
	if !strings.HasPrefix(abs, l.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return abs, nil
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// cleanName keeps the base name of an uploaded file and drops characters that are
// awkward in paths and URLs.
func cleanName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '?' || r == '#' || r == '%' || r < 0x20:
			return -1
		case r == ' ':
			return '_'
		}
		return r
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "file"
	}
	return name
}

// splitStoredName splits "<uuid>-<name>" into its parts.
func splitStoredName(stored string) (id, name string) {
	const uuidLen = 36
	if len(stored) > uuidLen && stored[uuidLen] == '-' {
		return stored[:uuidLen], stored[uuidLen+1:]
	}
	return "", stored
}
