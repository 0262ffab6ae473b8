// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "plain", in: "Happy birthday!", want: "Happy birthday!"},
		{name: "trims", in: "  hi  ", want: "hi"},
		{name: "strips markup", in: `<b>hi</b> <script>alert(1)</script>there`, want: "hi there"},
		{name: "keeps ampersand", in: "Tom & Jerry", want: "Tom & Jerry"},
		{name: "keeps newlines", in: "line one\r\nline two", want: "line one\nline two"},
		{name: "collapses blanks", in: "a \t  b", want: "a b"},
		{name: "drops controls", in: "a\x00b", want: "a b"},
		{name: "nfc", in: "Jeey\u0301a", want: "Jee\u00fda"},
		{name: "truncates runes", in: "ééééé", max: 3, want: "ééé"},
		{name: "markup only", in: "<img src=x>", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in, tt.max))
		})
	}
}

func TestLine(t *testing.T) {
	assert.Equal(t, "Ana Maria", Line("Ana\nMaria", 0))
	assert.Equal(t, "Ana", Line("Ana Maria", 4))
}
