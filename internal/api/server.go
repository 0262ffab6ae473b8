// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api serves the party site: guestbook, gallery, poem and gift
// endpoints plus the photo-booth session API.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/partybooth/internal/api/middleware"
	"github.com/ManuGH/partybooth/internal/blob"
	"github.com/ManuGH/partybooth/internal/booth"
	"github.com/ManuGH/partybooth/internal/config"
	"github.com/ManuGH/partybooth/internal/gift"
	"github.com/ManuGH/partybooth/internal/health"
	"github.com/ManuGH/partybooth/internal/photos"
	"github.com/ManuGH/partybooth/internal/poem"
	"github.com/ManuGH/partybooth/internal/ratelimit"
	"github.com/ManuGH/partybooth/internal/wishes"
)

// BlobPrefix is where the blob store is mounted.
const BlobPrefix = "/blob"

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 64 << 10

// Deps are the collaborators behind the routes. Wishes and Photos are nil
// when Redis is not configured; their routes then answer 503.
type Deps struct {
	Config config.AppConfig
	Health *health.Manager
	Booths *booth.Registry
	Wishes *wishes.Store
	Photos *photos.Store
	Blobs  *blob.FSStore
	Poems  *poem.Writer
	Gifts  *gift.Illustrator
}

// Validate checks the required collaborators.
func (d Deps) Validate() error {
	var errs []error
	if d.Health == nil {
		errs = append(errs, errors.New("health manager is required"))
	}
	if d.Booths == nil {
		errs = append(errs, errors.New("booth registry is required"))
	}
	if d.Blobs == nil {
		errs = append(errs, errors.New("blob store is required"))
	}
	if d.Poems == nil {
		errs = append(errs, errors.New("poem writer is required"))
	}
	if d.Gifts == nil {
		errs = append(errs, errors.New("gift illustrator is required"))
	}
	return errors.Join(errs...)
}

// Server holds the HTTP routes.
type Server struct {
	deps        Deps
	poemLimiter *ratelimit.Limiter
	router      *chi.Mux
}

// New builds the router.
func New(deps Deps) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	s := &Server{deps: deps}
	if pc := deps.Config.Poem; pc.RatePerMinute > 0 {
		s.poemLimiter = ratelimit.New(ratelimit.PerMinute("poem", pc.RatePerMinute, pc.Burst))
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *chi.Mux {
	cfg := s.deps.Config
	stack := middleware.StackConfig{
		AllowedOrigins:        cfg.API.AllowedOrigins,
		EnableCORS:            len(cfg.API.AllowedOrigins) > 0,
		EnableCSRF:            true,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		EnableLogging:         true,
		RateLimitPerMinute:    cfg.API.RateLimitPerMinute,
	}
	if cfg.Telemetry.Enabled {
		stack.TracingService = "partybooth-api"
	}
	r := middleware.NewRouter(stack)

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)

	r.HandleFunc("/api/wishes", s.handleWishes)
	r.HandleFunc("/api/photos", s.handlePhotos)
	r.HandleFunc("/api/poem", s.handlePoem)
	r.HandleFunc("/api/gift", s.handleGiftRetired)
	r.HandleFunc("/api/gift-image", s.handleGiftImage)

	r.Route("/api/booth", func(r chi.Router) {
		r.Post("/", s.handleBoothCreate)
		r.Get("/stickers", s.handleStickerPalette)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleBoothSnapshot)
			r.Delete("/", s.handleBoothDelete)
			r.Post("/camera", s.handleCameraStart)
			r.Delete("/camera", s.handleCameraStop)
			r.Get("/stickers", s.handleStickerList)
			r.Post("/stickers", s.handleStickerPlace)
			r.Delete("/stickers", s.handleStickerClear)
			r.Put("/stickers/{renderId}", s.handleStickerMove)
			r.Get("/viewport", s.handleViewportGet)
			r.Put("/viewport", s.handleViewportSet)
			r.Post("/capture", s.handleCapture)
			r.Post("/retake", s.handleRetake)
			r.Get("/frames/{index}", s.handleFrame)
			r.Get("/artifact", s.handleArtifact)
			r.Post("/gallery", s.handleGallery)
		})
	})

	r.Handle(BlobPrefix+"/*", http.StripPrefix(BlobPrefix, s.deps.Blobs.Handler()))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}
