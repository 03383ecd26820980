package meme

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

type style int

const (
	styleRegular style = iota
	styleBold
	styleItalic
	styleBoldItalic
)

func styleOf(bold, italic bool) style {
	switch {
	case bold && italic:
		return styleBoldItalic
	case bold:
		return styleBold
	case italic:
		return styleItalic
	default:
		return styleRegular
	}
}

type family map[style]*truetype.Font

// FontSet resolves CSS-like family lists ("Impact, sans-serif") to parsed
// TrueType fonts. Unknown families fall back to the Go fonts.
//
// Parsed fonts are shared; faces are not goroutine-safe and are created per
// draw call.
type FontSet struct {
	families map[string]family
	fallback family
}

// NewFontSet returns a set containing only the built-in Go fonts.
func NewFontSet() (*FontSet, error) {
	fallback := family{}
	for s, ttf := range map[style][]byte{
		styleRegular:    goregular.TTF,
		styleBold:       gobold.TTF,
		styleItalic:     goitalic.TTF,
		styleBoldItalic: gobolditalic.TTF,
	} {
		f, err := truetype.Parse(ttf)
		if err != nil {
			return nil, fmt.Errorf("parse built-in font: %w", err)
		}
		fallback[s] = f
	}
	return &FontSet{families: map[string]family{}, fallback: fallback}, nil
}

// LoadDir registers every .ttf file in dir. The family name is the file name
// without extension and without a -Bold, -Italic or -BoldItalic suffix.
func (fs *FontSet) LoadDir(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.ttf"))
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return loaded, fmt.Errorf("read font %s: %w", path, err)
		}
		f, err := truetype.Parse(data)
		if err != nil {
			return loaded, fmt.Errorf("parse font %s: %w", path, err)
		}
		name, s := splitFontFile(filepath.Base(path))
		if fs.families[name] == nil {
			fs.families[name] = family{}
		}
		fs.families[name][s] = f
		loaded++
	}
	return loaded, nil
}

func splitFontFile(base string) (string, style) {
	name := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	for _, sfx := range []struct {
		suffix string
		style  style
	}{
		{"-bolditalic", styleBoldItalic},
		{"-bold", styleBold},
		{"-italic", styleItalic},
		{"-regular", styleRegular},
	} {
		if strings.HasSuffix(name, sfx.suffix) {
			return strings.TrimSuffix(name, sfx.suffix), sfx.style
		}
	}
	return name, styleRegular
}

// Face returns a new face for the first known family in list.
func (fs *FontSet) Face(list string, size float64, bold, italic bool) font.Face {
	fam := fs.fallback
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.Trim(strings.TrimSpace(name), `"'`))
		if f, ok := fs.families[name]; ok {
			fam = f
			break
		}
	}

	s := styleOf(bold, italic)
	f := fam[s]
	if f == nil {
		f = fam[styleRegular]
	}
	if f == nil {
		f = fs.fallback[s]
	}
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72})
}
