// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package photos

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ManuGH/partybooth/internal/blob"
	"github.com/ManuGH/partybooth/internal/booth"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *blob.FSStore, *Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	blobs, err := blob.NewFSStore(t.TempDir(), "/blob")
	require.NoError(t, err)

	s := NewStore(client, blobs)
	clock := time.UnixMilli(1_700_000_000_000).UTC()
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return mr, blobs, s
}

func validUpload() Upload {
	return Upload{
		Data:        []byte("\xFF\xD8\xFF\xE0jpeg"),
		Filename:    "cake.jpeg",
		ContentType: "image/jpeg",
		Author:      "Ana",
		Description: "The cake!",
	}
}

func TestStore_Add(t *testing.T) {
	ctx := context.Background()
	mr, blobs, s := newTestStore(t)

	p, err := s.Add(ctx, validUpload())
	require.NoError(t, err)
	assert.Equal(t, "/blob/photogallery/1700000001000-cake.jpeg", p.URL)
	assert.Equal(t, p.URL, p.ID)
	assert.Equal(t, "2023-11-14T22:13:21Z", p.UploadedAt)

	f, obj, err := blobs.Open(ctx, "photogallery/1700000001000-cake.jpeg")
	require.NoError(t, err)
	data, _ := io.ReadAll(f)
	_ = f.Close()
	assert.Equal(t, validUpload().Data, data)
	assert.Equal(t, "image/jpeg", obj.ContentType)

	assert.Equal(t, "Ana", mr.HGet("photo:"+p.URL, "author"))
	members, err := mr.ZMembers(indexKey)
	require.NoError(t, err)
	assert.Equal(t, []string{p.URL}, members)
}

func TestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	_, _, s := newTestStore(t)

	first, err := s.Add(ctx, validUpload())
	require.NoError(t, err)
	u := validUpload()
	u.Filename = "candles.png"
	u.ContentType = "image/png"
	second, err := s.Add(ctx, u)
	require.NoError(t, err)

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second, got[0])
	assert.Equal(t, first, got[1])
}

func TestStore_AddValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Upload)
		want   string
	}{
		{"author", func(u *Upload) { u.Author = "  " }, "Your name is required to submit a memory."},
		{"description", func(u *Upload) { u.Description = "" }, "A description is required for the memory."},
		{"filename", func(u *Upload) { u.Filename = "" }, "The image file must have a valid name."},
		{"hidden filename", func(u *Upload) { u.Filename = "../.env" }, "The image file must have a valid name."},
		{"content type", func(u *Upload) { u.ContentType = "" }, "The request is missing the required content-type header for the image."},
		{"not an image", func(u *Upload) { u.ContentType = "text/html" }, "Only image files can be added to the gallery."},
		{"empty body", func(u *Upload) { u.Data = nil }, "No image file was received by the server."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, s := newTestStore(t)
			u := validUpload()
			tt.mutate(&u)
			_, err := s.Add(context.Background(), u)
			require.ErrorIs(t, err, ErrInvalid)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestCleanFilename(t *testing.T) {
	got, ok := cleanFilename(`C:\Users\ana\party pic?.jpeg`)
	require.True(t, ok)
	assert.Equal(t, "party pic_.jpeg", got)

	got, ok = cleanFilename("../../etc/passwd")
	require.True(t, ok)
	assert.Equal(t, "passwd", got)
}

type failingBlobs struct{}

func (failingBlobs) Put(context.Context, string, []byte, string) (blob.Object, error) {
	return blob.Object{}, errors.New("disk full")
}

func (failingBlobs) Open(context.Context, string) (io.ReadSeekCloser, blob.Object, error) {
	return nil, blob.Object{}, blob.ErrNotFound
}

func TestStore_AddBlobFailureStoresNothing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewStore(client, failingBlobs{})

	_, err := s.Add(context.Background(), validUpload())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
	assert.False(t, mr.Exists(indexKey))
}

func TestStore_AddPhotoFromBooth(t *testing.T) {
	_, _, s := newTestStore(t)
	stored, err := s.AddPhoto(context.Background(), booth.GalleryItem{
		Data:        []byte("collage"),
		Filename:    "photobooth-memory-1700000000000.jpeg",
		ContentType: "image/jpeg",
		Author:      booth.GalleryAuthor,
		Description: booth.GalleryDescription,
	})
	require.NoError(t, err)
	assert.Equal(t, "/blob/photogallery/1700000001000-photobooth-memory-1700000000000.jpeg", stored.URL)
	assert.Equal(t, booth.GalleryAuthor, stored.Author)
	assert.Equal(t, booth.GalleryDescription, stored.Description)
	assert.NotEmpty(t, stored.ID)

	got, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Photo Booth Fun", got[0].Author)
	assert.Equal(t, got[0].ID, stored.ID)
	assert.Equal(t, got[0].UploadedAt, stored.UploadedAt)
}
