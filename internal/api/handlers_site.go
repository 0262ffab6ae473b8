// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/ManuGH/partybooth/internal/ai"
	"github.com/ManuGH/partybooth/internal/gift"
	"github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/photos"
	"github.com/ManuGH/partybooth/internal/poem"
	"github.com/ManuGH/partybooth/internal/ratelimit"
	"github.com/ManuGH/partybooth/internal/wishes"
)

const (
	msgAPIKeyMissing = "API key not configured on the server."
	msgPoemFailed    = "Failed to generate poem. The magical ink seems to be dry!"
	msgGiftFailed    = "Failed to illustrate the gift. The artist is on a break."
)

const defaultMaxUpload = 10 << 20

func writeTooLarge(w http.ResponseWriter, limit int64) {
	writeError(w, http.StatusRequestEntityTooLarge, "The image is too large. The limit is "+strconv.FormatInt(limit, 10)+" bytes.")
}

// decodeJSON reads a capped JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) handleWishes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodPost, http.MethodPatch:
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodPatch)
		return
	}
	if s.deps.Wishes == nil {
		writeUnavailable(w, "Wish storage")
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")

	switch r.Method {
	case http.MethodGet:
		list, err := s.deps.Wishes.List(r.Context())
		if err != nil {
			logger.Error().Err(err).Str(log.FieldEvent, "wishes.list.failed").Msg("listing wishes failed")
			writeError(w, http.StatusInternalServerError, "Could not access wish storage.")
			return
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var req struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Name and message are required and must be strings.")
			return
		}
		wish, err := s.deps.Wishes.Add(r.Context(), req.Name, req.Message)
		switch {
		case errors.Is(err, wishes.ErrInvalid):
			writeError(w, http.StatusBadRequest, err.Error())
		case err != nil:
			logger.Error().Err(err).Str(log.FieldEvent, "wishes.add.failed").Msg("adding wish failed")
			writeError(w, http.StatusInternalServerError, "Could not access wish storage.")
		default:
			writeJSON(w, http.StatusCreated, wish)
		}

	case http.MethodPatch:
		likes, err := s.deps.Wishes.Like(r.Context(), r.URL.Query().Get("id"))
		switch {
		case errors.Is(err, wishes.ErrInvalid):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, wishes.ErrNotFound):
			writeError(w, http.StatusNotFound, "Wish not found.")
		case err != nil:
			logger.Error().Err(err).Str(log.FieldEvent, "wishes.like.failed").Msg("liking wish failed")
			writeError(w, http.StatusInternalServerError, "Could not access wish storage.")
		default:
			writeJSON(w, http.StatusOK, map[string]int64{"likes": likes})
		}
	}
}

func (s *Server) handlePhotos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodPost:
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}
	if s.deps.Photos == nil {
		writeUnavailable(w, "Photo storage")
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")

	if r.Method == http.MethodGet {
		list, err := s.deps.Photos.List(r.Context())
		if err != nil {
			logger.Error().Err(err).Str(log.FieldEvent, "photos.list.failed").Msg("listing photos failed")
			writeError(w, http.StatusInternalServerError, "Could not access photo storage.")
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	}

	limit := s.deps.Config.API.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUpload
	}
	if r.ContentLength > limit {
		writeTooLarge(w, limit)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeTooLarge(w, limit)
			return
		}
		writeError(w, http.StatusBadRequest, "No image file was received by the server.")
		return
	}

	q := r.URL.Query()
	photo, err := s.deps.Photos.Add(r.Context(), photos.Upload{
		Data:        body,
		Filename:    q.Get("filename"),
		ContentType: r.Header.Get("Content-Type"),
		Author:      q.Get("author"),
		Description: q.Get("description"),
	})
	switch {
	case errors.Is(err, photos.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		logger.Error().Err(err).Str(log.FieldEvent, "photos.add.failed").Msg("adding photo failed")
		writeError(w, http.StatusInternalServerError, "Could not access photo storage.")
	default:
		writeJSON(w, http.StatusCreated, photo)
	}
}

func (s *Server) handlePoem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	if s.poemLimiter != nil && !s.poemLimiter.Allow(ratelimit.GetClientIP(r)) {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "The poet needs a moment. Please try again shortly.")
		return
	}

	var req struct {
		Keyword string `json:"keyword"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Keyword is required and must be a string.")
		return
	}

	text, err := s.deps.Poems.Generate(r.Context(), req.Keyword)
	switch {
	case errors.Is(err, poem.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ai.ErrDisabled):
		writeError(w, http.StatusInternalServerError, msgAPIKeyMissing)
	case err != nil:
		lg := log.WithComponentFromContext(r.Context(), "api")
		lg.Error().Err(err).
			Str(log.FieldEvent, "poem.failed").Msg("poem generation failed")
		writeError(w, http.StatusInternalServerError, msgPoemFailed)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"poem": text})
	}
}

func (s *Server) handleGiftRetired(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, gift.RetiredMessage)
}

func (s *Server) handleGiftImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "A prompt is required to generate an image.")
		return
	}

	url, err := s.deps.Gifts.Illustrate(r.Context(), req.Prompt)
	switch {
	case errors.Is(err, gift.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ai.ErrDisabled):
		writeError(w, http.StatusInternalServerError, msgAPIKeyMissing)
	case err != nil:
		lg := log.WithComponentFromContext(r.Context(), "api")
		lg.Error().Err(err).
			Str(log.FieldEvent, "gift.failed").Msg("gift illustration failed")
		writeError(w, http.StatusInternalServerError, msgGiftFailed)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"imageUrl": url})
	}
}
