// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"cmp"
	"errors"
	"image"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/partybooth/internal/booth"
	"github.com/ManuGH/partybooth/internal/booth/capture"
	"github.com/ManuGH/partybooth/internal/booth/sticker"
	"github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/photos"
)

// viewportBody is the wire form of capture.Viewport.
type viewportBody struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	X      int `json:"x"`
	Y      int `json:"y"`
}

type pointBody struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// lookupBooth resolves {id} and tags the request context with it.
func (s *Server) lookupBooth(w http.ResponseWriter, r *http.Request) (*booth.Booth, *http.Request, bool) {
	id := chi.URLParam(r, "id")
	b, err := s.deps.Booths.Get(id)
	if err != nil {
		writeBoothError(w, r, err)
		return nil, r, false
	}
	return b, r.WithContext(log.ContextWithBoothID(r.Context(), id)), true
}

func (s *Server) handleBoothCreate(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Booths.Create()
	if err != nil {
		writeBoothError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/booth/"+b.ID())
	writeJSON(w, http.StatusCreated, b.Snapshot())
}

func (s *Server) handleBoothSnapshot(w http.ResponseWriter, r *http.Request) {
	b, _, ok := s.lookupBooth(w, r)
	if !ok {
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, b.Snapshot())
}

func (s *Server) handleBoothDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Booths.Delete(chi.URLParam(r, "id")); err != nil {
		writeBoothError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCameraStart(w http.ResponseWriter, r *http.Request) {
	b, r, ok := s.lookupBooth(w, r)
	if !ok {
		return
	}
	if err := b.StartCamera(r.Context()); err != nil {
		writeBoothError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b.Snapshot())
}

// handleCameraStop releases the camera by resetting the booth.
func (s *Server) handleCameraStop(w http.ResponseWriter, r *http.Request) {
	s.handleRetake(w, r)
}

func (s *Server) handleStickerPalette(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, sticker.Kinds())
}

func (s *Server) handleStickerList(w http.ResponseWriter, r *http.Request) {
	b, _, ok := s.lookupBooth(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, b.Stickers())
}

func (s *Server) handleStickerPlace(w http.ResponseWriter, r *http.Request) {
	b, r, ok := s.lookupBooth(w, r)
	if !ok {
		return
	}
	var req struct {
		Kind sticker.Kind `json:"kind"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "A sticker kind is required.")
		return
	}
	id, err := b.PlaceSticker(req.Kind)
	if err != nil {
		writeBoothError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]sticker.RenderID{"renderId": id})
}

func (s *Server) handleStickerClear(w http.ResponseWriter, r *http.Request) {
	b, r, ok := s.lookupBooth(w, r)
	if !ok {
		return
	}
	if err := b.ClearStickers(); err != nil {
		writeBoothError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStickerMove(w http.ResponseWriter, r *http.Request) {
	b, r, ok := s.lookupBooth(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "renderId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sticker id.")
		return
	}
	var pos pointBody
	if err := decodeJSON(w, r, &pos); err != nil {
		writeError(w, http.StatusBadRequest, "A position with x and y is required.")
		return
	}
	if err := b.MoveSticker(sticker.RenderID(id), image.Pt(pos.X, pos.Y)); err != nil {
		writeBoothError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleViewportGet(w http.ResponseWriter, r *http.Request) {
	b, _, ok := s.lookupBooth(w, r)
	if !ok {
		return
	}
	vp := b.Viewport()
	writeJSON(w, http.StatusOK, viewportBody{Width: vp.Display.X, Height: vp.Display.Y, X: vp.Origin.X, Y: vp.Origin.Y})
}

func (s *Server) handleViewportSet(w http.ResponseWriter, r *http.Request) {
	b, r, ok := s.lookupBooth(w, r)
	if !ok {
		return
	}
	var req viewportBody
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "A viewport with width and height is required.")
		return
	}
	vp := capture.Viewport{Display: image.Pt(req.Width, req.Height), Origin: image.Pt(req.X, req.Y)}
	if err := b.SetViewport(vp); err != nil {
		writeBoothError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	b, r, ok := s.lookupBooth(w, r)
	if !ok {
		return
	}
	if err := b.TakePhotos(r.Context()); err != nil {
		writeBoothError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, b.Snapshot())
}

func (s *Server) handleRetake(w http.ResponseWriter, r *http.Request) {
	b, r, ok := s.lookupBooth(w, r)
	if !ok {
		return
	}
	if err := b.Retake(); err != nil {
		writeBoothError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b.Snapshot())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	b, r, ok := s.lookupBooth(w, r)
	if !ok {
		return
	}
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid frame index.")
		return
	}
	f, err := b.Frame(i)
	if err != nil {
		writeBoothError(w, r, err)
		return
	}
	writeImage(w, f.MIME, f.Data)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	b, r, ok := s.lookupBooth(w, r)
	if !ok {
		return
	}
	art, err := b.Artifact()
	if err != nil {
		writeBoothError(w, r, err)
		return
	}
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition",
			mime.FormatMediaType("attachment", map[string]string{"filename": s.downloadName()}))
	}
	writeImage(w, art.MIME, art.Data)
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	b, r, ok := s.lookupBooth(w, r)
	if !ok {
		return
	}
	if s.deps.Photos == nil {
		writeUnavailable(w, "Photo storage")
		return
	}

	photo, err := b.AddToGallery(r.Context(), s.deps.Photos)
	var invalid *photos.ValidationError
	switch {
	case photo.URL != "":
		if err != nil {
			lg := log.WithComponentFromContext(r.Context(), "api")
			lg.Warn().Err(err).
				Str(log.FieldEvent, "booth.gallery.reset_failed").Msg("collage saved but booth reset failed")
		}
		writeJSON(w, http.StatusCreated, map[string]any{"photo": photo, "booth": b.Snapshot()})
	case errors.Is(err, booth.ErrNoArtifact), errors.Is(err, booth.ErrClosed):
		writeBoothError(w, r, err)
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Message)
	default:
		lg := log.WithComponentFromContext(r.Context(), "api")
		lg.Error().Err(err).
			Str(log.FieldEvent, "booth.gallery.failed").Msg("gallery upload failed")
		writeError(w, http.StatusBadGateway, "Upload failed. Your collage is still here, please try again.")
	}
}

// downloadName is the configured attachment name for collages.
func (s *Server) downloadName() string {
	return cmp.Or(s.deps.Config.Celebration.DownloadName, booth.DownloadFilename)
}

func writeImage(w http.ResponseWriter, contentType string, data []byte) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
