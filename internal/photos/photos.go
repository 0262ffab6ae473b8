// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package photos implements the shared memory gallery: image bytes go to the
// blob store and metadata to Redis (hash photo:<url>, sorted set photos_by_date).
package photos

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/ManuGH/partybooth/internal/blob"
	"github.com/ManuGH/partybooth/internal/booth"
	"github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/metrics"
	"github.com/ManuGH/partybooth/internal/sanitize"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	indexKey   = "photos_by_date"
	keyPrefix  = "photo:"
	blobPrefix = "photogallery/"
)

// Length caps, in runes.
const (
	MaxAuthor      = 60
	MaxDescription = 500
	MaxFilename    = 120
)

// ErrInvalid classifies validation failures.
var ErrInvalid = errors.New("photos: invalid upload")

// ValidationError carries a message safe to show to guests.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// Upload is a photo submitted to the gallery.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
	Author      string
	Description string
}

// Photo is a stored gallery entry. ID equals URL.
type Photo struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Author      string `json:"author"`
	Description string `json:"description"`
	UploadedAt  string `json:"uploadedAt"`
}

// Store persists gallery photos.
type Store struct {
	client redis.UniversalClient
	blobs  blob.Store
	now    func() time.Time
	logger zerolog.Logger
}

var _ booth.Gallery = (*Store)(nil)

// NewStore creates a gallery on client and blobs.
func NewStore(client redis.UniversalClient, blobs blob.Store) *Store {
	return &Store{
		client: client,
		blobs:  blobs,
		now:    time.Now,
		logger: log.WithComponent("photos"),
	}
}

func photoKey(url string) string { return keyPrefix + url }

func validate(u *Upload) error {
	u.Author = sanitize.Line(u.Author, MaxAuthor)
	u.Description = sanitize.Text(u.Description, MaxDescription)
	switch {
	case u.Author == "":
		return &ValidationError{Message: "Your name is required to submit a memory."}
	case u.Description == "":
		return &ValidationError{Message: "A description is required for the memory."}
	}

	name, ok := cleanFilename(u.Filename)
	if !ok {
		return &ValidationError{Message: "The image file must have a valid name."}
	}
	u.Filename = name

	if strings.TrimSpace(u.ContentType) == "" {
		return &ValidationError{Message: "The request is missing the required content-type header for the image."}
	}
	mediaType, _, err := mime.ParseMediaType(u.ContentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return &ValidationError{Message: "Only image files can be added to the gallery."}
	}
	u.ContentType = mediaType

	if len(u.Data) == 0 {
		return &ValidationError{Message: "No image file was received by the server."}
	}
	return nil
}

// cleanFilename keeps the base name and replaces characters that do not
// belong in a URL path segment.
func cleanFilename(name string) (string, bool) {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f, r == '?', r == '#', r == '%':
			return '_'
		}
		return r
	}, name)
	name = sanitize.Truncate(name, MaxFilename)
	if name == "" || name == "." || name == "/" || strings.HasPrefix(name, ".") {
		return "", false
	}
	return name, true
}

// Add validates u, uploads the image and records its metadata.
func (s *Store) Add(ctx context.Context, u Upload) (Photo, error) {
	if err := validate(&u); err != nil {
		return Photo{}, err
	}

	now := s.now()
	pathname := fmt.Sprintf("%s%d-%s", blobPrefix, now.UnixMilli(), u.Filename)
	obj, err := s.blobs.Put(ctx, pathname, u.Data, u.ContentType)
	if err != nil {
		metrics.RecordPhotoOp("add", err)
		return Photo{}, fmt.Errorf("photos: upload image: %w", err)
	}

	p := Photo{
		ID:          obj.URL,
		URL:         obj.URL,
		Author:      u.Author,
		Description: u.Description,
		UploadedAt:  now.UTC().Format(time.RFC3339Nano),
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, photoKey(p.URL),
			"id", p.ID,
			"url", p.URL,
			"author", p.Author,
			"description", p.Description,
			"uploadedAt", p.UploadedAt,
		)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(now.UnixMilli()), Member: p.URL})
		return nil
	})
	metrics.RecordPhotoOp("add", err)
	if err != nil {
		return Photo{}, fmt.Errorf("photos: save metadata: %w", err)
	}

	lg := log.WithContext(ctx, s.logger)
	lg.Info().
		Str(log.FieldEvent, "photo.added").
		Str(log.FieldPhotoID, p.ID).
		Int(log.FieldBytes, len(u.Data)).
		Msg("photo added to gallery")
	return p, nil
}

// List returns all photos, newest first.
func (s *Store) List(ctx context.Context) ([]Photo, error) {
	urls, err := s.client.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		metrics.RecordPhotoOp("list", err)
		return nil, fmt.Errorf("photos: list index: %w", err)
	}
	out := make([]Photo, 0, len(urls))
	if len(urls) == 0 {
		metrics.RecordPhotoOp("list", nil)
		return out, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(urls))
	for i, u := range urls {
		cmds[i] = pipe.HGetAll(ctx, photoKey(u))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.RecordPhotoOp("list", err)
		return nil, fmt.Errorf("photos: load: %w", err)
	}
	for _, cmd := range cmds {
		h := cmd.Val()
		if len(h) == 0 {
			continue
		}
		out = append(out, Photo{
			ID:          h["id"],
			URL:         h["url"],
			Author:      h["author"],
			Description: h["description"],
			UploadedAt:  h["uploadedAt"],
		})
	}
	metrics.RecordPhotoOp("list", nil)
	return out, nil
}

// AddPhoto stores a booth collage and returns its gallery record.
func (s *Store) AddPhoto(ctx context.Context, item booth.GalleryItem) (booth.StoredPhoto, error) {
	p, err := s.Add(ctx, Upload{
		Data:        item.Data,
		Filename:    item.Filename,
		ContentType: item.ContentType,
		Author:      item.Author,
		Description: item.Description,
	})
	if err != nil {
		return booth.StoredPhoto{}, err
	}
	return booth.StoredPhoto{
		ID:          p.ID,
		URL:         p.URL,
		Author:      p.Author,
		Description: p.Description,
		UploadedAt:  p.UploadedAt,
	}, nil
}
