// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package sticker tracks decorative overlays placed on the live camera view.
package sticker

import (
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/ManuGH/partybooth/internal/metrics"
)

// Kind is one of the predefined sticker assets.
type Kind string

const (
	PartyingFace Kind = "partying-face"
	BirthdayCake Kind = "birthday-cake"
	StarStruck   Kind = "star-struck"
	Heart        Kind = "heart"
	Crown        Kind = "crown"
	Sunglasses   Kind = "sunglasses"
)

// Kinds lists every known sticker in palette order.
func Kinds() []Kind {
	return []Kind{PartyingFace, BirthdayCake, StarStruck, Heart, Crown, Sunglasses}
}

// Valid reports whether k is a known sticker.
func (k Kind) Valid() bool {
	return slices.Contains(Kinds(), k)
}

// RenderID identifies one placement.
type RenderID uint64

// Default placement geometry in viewport pixels.
var (
	DefaultAnchor = image.Pt(50, 50)
	DefaultSize   = image.Pt(80, 80)
)

var (
	// ErrUnknownSticker is returned when a RenderID does not exist.
	ErrUnknownSticker = errors.New("sticker: unknown render id")
	// ErrUnknownKind is returned when placing a sticker kind that is not in the palette.
	ErrUnknownKind = errors.New("sticker: unknown kind")
)

// Placement is a sticker on screen. Position is the top-left corner of its box.
type Placement struct {
	Kind     Kind        `json:"kind"`
	Position image.Point `json:"position"`
	Size     image.Point `json:"size"`
	RenderID RenderID    `json:"renderId"`
}

// Box returns the on-screen bounding box.
func (p Placement) Box() image.Rectangle {
	return image.Rectangle{Min: p.Position, Max: p.Position.Add(p.Size)}
}

// Store holds placements in insertion order, which is also z-order.
type Store struct {
	mu     sync.RWMutex
	items  []Placement
	nextID RenderID
}

// NewStore returns an empty store.
func NewStore() *Store { return &Store{} }

// Place appends kind at the default anchor and returns its RenderID.
// Duplicate kinds are allowed.
func (s *Store) Place(kind Kind) (RenderID, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.items = append(s.items, Placement{Kind: kind, Position: DefaultAnchor, Size: DefaultSize, RenderID: id})
	s.mu.Unlock()

	metrics.RecordStickerPlaced(string(kind))
	return id, nil
}

// Move sets the position of an existing placement. Unknown ids leave the list untouched.
func (s *Store) Move(id RenderID, pos image.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].RenderID == id {
			s.items[i].Position = pos
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrUnknownSticker, id)
}

// Clear removes every placement. RenderIDs are never reused.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

// List returns a copy of the placements in z-order.
func (s *Store) List() []Placement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Len returns the number of placements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
