// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package sanitize cleans guest-supplied text before it is stored.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	unorm "golang.org/x/text/unicode/norm"
)

var (
	strict = bluemonday.StrictPolicy()
	spaces = regexp.MustCompile(`[ \t]+`)
)

// Text normalises s to NFC, strips markup and control characters, collapses
// runs of blanks and truncates the result to maxRunes (0 means no limit).
// Newlines are kept.
func Text(s string, maxRunes int) string {
	s = unorm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\r':
			return -1
		case unicode.IsControl(r), r == unicode.ReplacementChar:
			return ' '
		}
		return r
	}, s)
	s = html.UnescapeString(strict.Sanitize(s))
	s = spaces.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return Truncate(s, maxRunes)
}

// Line is Text for single-line fields such as names.
func Line(s string, maxRunes int) string {
	return Text(strings.NewReplacer("\r", " ", "\n", " ").Replace(s), maxRunes)
}

// Truncate cuts s to at most maxRunes runes.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return strings.TrimSpace(s[:i])
		}
		n++
	}
	return s
}
