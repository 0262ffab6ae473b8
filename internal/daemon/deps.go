// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

var (
	ErrMissingLogger     = errors.New("daemon: logger is required")
	ErrMissingAPIHandler = errors.New("daemon: API handler is required")
	ErrMissingManager    = errors.New("daemon: manager is required")
	ErrManagerNotStarted = errors.New("daemon: manager not started")
)

// Deps are the collaborators a Manager serves.
type Deps struct {
	Logger     zerolog.Logger
	APIHandler http.Handler

	// The metrics listener only starts when both are set.
	MetricsHandler http.Handler
	MetricsAddr    string
}

// Validate reports the first missing collaborator.
func (d *Deps) Validate() error {
	switch {
	case d.Logger.GetLevel() == zerolog.Disabled:
		return ErrMissingLogger
	case d.APIHandler == nil:
		return ErrMissingAPIHandler
	}
	return nil
}
