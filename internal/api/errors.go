// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ManuGH/partybooth/internal/booth"
	"github.com/ManuGH/partybooth/internal/booth/camera"
	"github.com/ManuGH/partybooth/internal/booth/sticker"
	"github.com/ManuGH/partybooth/internal/log"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": msg}.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

// writeMethodNotAllowed answers 405 with the Allow header set.
func writeMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

// writeUnavailable is used when an optional backend is not configured.
func writeUnavailable(w http.ResponseWriter, what string) {
	writeError(w, http.StatusServiceUnavailable, what+" is not configured on the server.")
}

// writeBoothError maps booth pipeline errors to status codes. The reason
// field lets the page tell a denied camera from a missing one.
func writeBoothError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Error: err.Error()}
	code := http.StatusInternalServerError

	switch {
	case errors.Is(err, booth.ErrNotFound):
		code, body.Error = http.StatusNotFound, "Booth session not found."
	case errors.Is(err, booth.ErrClosed):
		code, body.Error = http.StatusGone, "Booth session is closed."
	case errors.Is(err, booth.ErrRegistryFull):
		code, body.Error = http.StatusServiceUnavailable, "Too many booths are open. Please try again shortly."
	case errors.Is(err, camera.ErrPermissionDenied):
		code, body.Error = http.StatusForbidden, "Camera access was denied."
		body.Reason = string(booth.ReasonPermissionDenied)
	case errors.Is(err, camera.ErrDeviceUnavailable), errors.Is(err, camera.ErrDeviceBusy):
		code, body.Error = http.StatusServiceUnavailable, "No camera is available."
		body.Reason = string(booth.ReasonDeviceUnavailable)
	case errors.Is(err, booth.ErrIllegalTransition),
		errors.Is(err, booth.ErrSuperseded),
		errors.Is(err, camera.ErrStartInProgress),
		errors.Is(err, camera.ErrStoppedDuringStart),
		errors.Is(err, camera.ErrWrongState):
		code = http.StatusConflict
	case errors.Is(err, booth.ErrNoArtifact):
		code, body.Error = http.StatusNotFound, "The collage is not ready yet."
	case errors.Is(err, booth.ErrNoFrame), errors.Is(err, sticker.ErrUnknownSticker):
		code = http.StatusNotFound
	case errors.Is(err, booth.ErrInvalidViewport), errors.Is(err, sticker.ErrUnknownKind):
		code = http.StatusBadRequest
	default:
		body.Error = "Internal server error"
	}

	logger := log.WithComponentFromContext(r.Context(), "api")
	evt := logger.Debug()
	if code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable {
		evt = logger.Error()
	}
	evt.Err(err).Str(log.FieldEvent, "booth.request.failed").Int("status", code).Msg("booth request failed")

	writeJSON(w, code, body)
}
