// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package composite

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var parsedFonts = sync.OnceValues(func() (*fontSet, error) {
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	return &fontSet{bold: bold, regular: regular}, nil
})

type fontSet struct {
	bold    *opentype.Font
	regular *opentype.Font
}

// faces are per render; opentype faces are not safe for concurrent use.
type faces struct {
	title   font.Face
	caption font.Face
}

func newFaces(titleSize, captionSize float64) (*faces, error) {
	fs, err := parsedFonts()
	if err != nil {
		return nil, err
	}
	title, err := opentype.NewFace(fs.bold, &opentype.FaceOptions{Size: titleSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("title face: %w", err)
	}
	caption, err := opentype.NewFace(fs.regular, &opentype.FaceOptions{Size: captionSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		_ = title.Close()
		return nil, fmt.Errorf("caption face: %w", err)
	}
	return &faces{title: title, caption: caption}, nil
}

func (f *faces) Close() {
	_ = f.title.Close()
	_ = f.caption.Close()
}
