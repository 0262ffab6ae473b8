// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package booth

import (
	"context"
	"fmt"
	"io"

	"github.com/ManuGH/partybooth/internal/log"
	"github.com/google/renameio/v2"
)

// DownloadFilename is the default attachment name offered for the collage.
const DownloadFilename = "jeeya-sweet16-photobooth.jpg"

// Gallery defaults for collages added from the booth.
const (
	GalleryAuthor      = "Photo Booth Fun"
	GalleryDescription = "Created in the Virtual Photo Booth!"
)

// GalleryItem is a collage handed to photo storage.
type GalleryItem struct {
	Data        []byte
	Filename    string
	ContentType string
	Author      string
	Description string
}

// StoredPhoto is the gallery record created for an uploaded collage.
type StoredPhoto struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Author      string `json:"author"`
	Description string `json:"description,omitempty"`
	UploadedAt  string `json:"uploadedAt,omitempty"`
}

// Gallery stores collages and returns the stored record.
type Gallery interface {
	AddPhoto(ctx context.Context, item GalleryItem) (StoredPhoto, error)
}

// WriteArtifact copies the finished collage to w.
func (b *Booth) WriteArtifact(w io.Writer) (int64, error) {
	art, err := b.Artifact()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(art.Data)
	return int64(n), err
}

// SaveArtifact writes the finished collage to path atomically.
func (b *Booth) SaveArtifact(path string) error {
	art, err := b.Artifact()
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, art.Data, 0o644); err != nil {
		return fmt.Errorf("booth: save artifact: %w", err)
	}
	b.logger.Info().Str(log.FieldEvent, "booth.artifact.saved").Str(log.FieldPath, path).Msg("collage saved")
	return nil
}

// AddToGallery uploads the collage and resets the booth for the next guest.
// On failure the collage stays in place so the call can be retried.
func (b *Booth) AddToGallery(ctx context.Context, g Gallery) (StoredPhoto, error) {
	art, err := b.Artifact()
	if err != nil {
		return StoredPhoto{}, err
	}
	item := GalleryItem{
		Data:        art.Data,
		Filename:    fmt.Sprintf("photobooth-memory-%d.jpeg", b.opts.Now().UnixMilli()),
		ContentType: art.MIME,
		Author:      GalleryAuthor,
		Description: GalleryDescription,
	}
	photo, err := g.AddPhoto(ctx, item)
	if err != nil {
		lg := log.WithContext(ctx, b.logger)
		lg.Warn().Err(err).
			Str(log.FieldEvent, "booth.gallery.failed").
			Msg("adding collage to gallery failed")
		return StoredPhoto{}, fmt.Errorf("booth: add to gallery: %w", err)
	}
	lg := log.WithContext(ctx, b.logger)
	lg.Info().
		Str(log.FieldEvent, "booth.gallery.added").
		Str(log.FieldPhotoID, photo.ID).
		Str("url", photo.URL).
		Msg("collage added to gallery")
	if err := b.Retake(); err != nil {
		return photo, err
	}
	return photo, nil
}
