// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package poem writes birthday poems around a guest's keyword.
package poem

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ManuGH/partybooth/internal/ai"
	"github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/sanitize"
	"github.com/rs/zerolog"
)

const (
	// MaxKeyword caps the keyword length in runes.
	MaxKeyword  = 80
	temperature = 0.8
)

// ErrInvalid classifies keyword validation failures.
var ErrInvalid = errors.New("poem: invalid keyword")

// ValidationError carries a message safe to show to guests.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

const promptTemplate = `You are a world-class poet. Write a beautiful, heartfelt and uplifting short poem for the sixteenth birthday of a person named %s. The poem celebrates the joy of turning sixteen, cherished memories and looking forward to the future with excitement. It should feel personal and magical. Keep it elegant: three or four short stanzas, no markdown and no title.

Weave the following theme or keyword into the poem: "%s".`

// Writer generates poems for one celebrated person.
type Writer struct {
	gen    ai.Generator
	name   string
	logger zerolog.Logger
}

// NewWriter creates a Writer for the person called name.
func NewWriter(gen ai.Generator, name string) *Writer {
	return &Writer{gen: gen, name: name, logger: log.WithComponent("poem")}
}

// Prompt builds the model prompt for a cleaned keyword.
func (w *Writer) Prompt(keyword string) string {
	return fmt.Sprintf(promptTemplate, w.name, strings.ReplaceAll(keyword, `"`, `'`))
}

// Generate validates keyword and asks the model for a poem.
func (w *Writer) Generate(ctx context.Context, keyword string) (string, error) {
	if utf8.RuneCountInString(strings.TrimSpace(keyword)) > MaxKeyword {
		return "", &ValidationError{Message: fmt.Sprintf("Keyword must be at most %d characters.", MaxKeyword)}
	}
	keyword = sanitize.Line(keyword, MaxKeyword)
	if keyword == "" {
		return "", &ValidationError{Message: "Keyword is required and must be a string."}
	}

	text, err := w.gen.GenerateText(ctx, w.Prompt(keyword), ai.TextOptions{Temperature: temperature})
	if err != nil {
		return "", fmt.Errorf("poem: generate: %w", err)
	}
	lg := log.WithContext(ctx, w.logger)
	lg.Info().
		Str(log.FieldEvent, "poem.generated").
		Str("keyword", keyword).
		Int("length", len(text)).
		Msg("poem generated")
	return text, nil
}
