// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package blob stores uploaded and generated images and serves them over HTTP.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/metrics"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when no object exists at a pathname.
var ErrNotFound = errors.New("blob: not found")

// Object describes a stored blob.
type Object struct {
	Pathname    string    `json:"pathname"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"-"`
}

// Store is a public object store.
type Store interface {
	Put(ctx context.Context, pathname string, data []byte, contentType string) (Object, error)
	Open(ctx context.Context, pathname string) (io.ReadSeekCloser, Object, error)
}

// FSStore keeps objects as files under a root directory. The content type of
// each object lives in a hidden sidecar next to it.
type FSStore struct {
	root    string
	baseURL string
	logger  zerolog.Logger
}

var _ Store = (*FSStore)(nil)

// NewFSStore creates root if needed. Object URLs are publicBaseURL + "/" + pathname.
func NewFSStore(root, publicBaseURL string) (*FSStore, error) {
	if root == "" {
		return nil, errors.New("blob: root directory required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("blob: create root: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("blob: root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("blob: root: %w", err)
	}
	return &FSStore{
		root:    resolved,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:  log.WithComponent("blob"),
	}, nil
}

// Root returns the resolved root directory.
func (s *FSStore) Root() string { return s.root }

// URL returns the public URL for pathname.
func (s *FSStore) URL(pathname string) string {
	segs := strings.Split(pathname, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segs, "/")
}

// Put writes data atomically, replacing any previous object at pathname.
func (s *FSStore) Put(ctx context.Context, pathname string, data []byte, contentType string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	name, err := CleanPathname(pathname)
	if err != nil {
		return Object{}, err
	}
	full, err := confine(s.root, name)
	if err != nil {
		return Object{}, err
	}
	if contentType == "" {
		contentType = contentTypeFor(name, data)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return Object{}, fmt.Errorf("blob: mkdir: %w", err)
	}
	if err := renameio.WriteFile(sidecar(full), []byte(contentType), 0o644); err != nil {
		return Object{}, fmt.Errorf("blob: write content type: %w", err)
	}
	if err := renameio.WriteFile(full, data, 0o644); err != nil {
		return Object{}, fmt.Errorf("blob: write %s: %w", name, err)
	}
	metrics.RecordBlobWrite(len(data))

	lg := log.WithContext(ctx, s.logger)
	lg.Info().
		Str(log.FieldEvent, "blob.put").
		Str(log.FieldPath, name).
		Int(log.FieldBytes, len(data)).
		Msg("blob stored")

	return Object{
		Pathname:    name,
		URL:         s.URL(name),
		ContentType: contentType,
		Size:        int64(len(data)),
		ModTime:     time.Now(),
	}, nil
}

// Open returns a reader for the object at pathname.
func (s *FSStore) Open(ctx context.Context, pathname string) (io.ReadSeekCloser, Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, Object{}, err
	}
	name, err := CleanPathname(pathname)
	if err != nil {
		return nil, Object{}, err
	}
	full, err := confine(s.root, name)
	if err != nil {
		return nil, Object{}, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Object{}, ErrNotFound
		}
		return nil, Object{}, fmt.Errorf("blob: open %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, Object{}, fmt.Errorf("blob: stat %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, Object{}, ErrNotFound
	}

	ct := mime.TypeByExtension(path.Ext(name))
	if b, err := os.ReadFile(sidecar(full)); err == nil && len(b) > 0 {
		ct = string(b)
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	return f, Object{
		Pathname:    name,
		URL:         s.URL(name),
		ContentType: ct,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
	}, nil
}

// Handler serves objects by the request path relative to the mount point.
// Mount it behind http.StripPrefix.
func (s *FSStore) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		f, obj, err := s.Open(r.Context(), r.URL.Path)
		switch {
		case errors.Is(err, ErrInvalidPath):
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		case errors.Is(err, ErrNotFound):
			http.NotFound(w, r)
			return
		case err != nil:
			lg := log.WithComponentFromContext(r.Context(), "blob")
			lg.Error().Err(err).Str(log.FieldPath, r.URL.Path).Msg("blob open failed")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		defer func() { _ = f.Close() }()

		w.Header().Set("Content-Type", obj.ContentType)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.ServeContent(w, r, path.Base(obj.Pathname), obj.ModTime, f)
	})
}

func sidecar(full string) string {
	return filepath.Join(filepath.Dir(full), "."+filepath.Base(full)+".ctype")
}

func contentTypeFor(name string, data []byte) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
