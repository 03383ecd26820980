// Package meme burns post captions into images.
package meme

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"strings"

	"admin-service/apperr"
	"admin-service/metrics"
	"admin-service/model"

	"github.com/fogleman/gg"
	_ "golang.org/x/image/webp"
)

const (
	captionBandHeight = 60
	whitespaceFontSz  = 24
	bandFontSize      = 20
	bandAlpha         = 0.7

	defaultFontSize   = 36
	defaultFontFamily = "Impact, sans-serif"
	defaultColor      = "#FFFFFF"
	defaultAlign      = "center"

	lineSpacing     = 1.2
	outlineWidth    = 3
	underlineOffset = 5
	underlineWidth  = 2

	jpegQuality = 90
)

// DefaultMaxPixels caps width*height of a source image before it is decoded.
const DefaultMaxPixels = 50_000_000

// Compositor renders captions onto images and encodes the result as JPEG.
type Compositor struct {
	fonts     *FontSet
	maxPixels int64
}

type Option func(*Compositor)

// WithMaxPixels overrides DefaultMaxPixels. Values below 1 are ignored.
func WithMaxPixels(n int64) Option {
	return func(c *Compositor) {
		if n > 0 {
			c.maxPixels = n
		}
	}
}

func NewCompositor(fonts *FontSet, opts ...Option) *Compositor {
	c := &Compositor{fonts: fonts, maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose decodes src and draws the post's caption in the style selected by
// its caption placement. Errors are composite errors; the caller keeps the
// original image.
func (c *Compositor) Compose(src []byte, p *model.PostRecord) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		metrics.MemeCompositeTotal.WithLabelValues(modeOf(p), "error").Inc()
		return nil, apperr.Wrap(apperr.KindComposite, err, "decode image config")
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > c.maxPixels {
		metrics.MemeCompositeTotal.WithLabelValues(modeOf(p), "rejected").Inc()
		return nil, apperr.Wrap(apperr.KindComposite,
			fmt.Errorf("%dx%d exceeds %d pixels", cfg.Width, cfg.Height, c.maxPixels),
			"image too large")
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		metrics.MemeCompositeTotal.WithLabelValues(modeOf(p), "error").Inc()
		return nil, apperr.Wrap(apperr.KindComposite, err, "decode image")
	}

	var dc *gg.Context
	if p.CaptionPlacement == model.PlacementWhitespace {
		dc = c.whitespace(img, p.Text)
	} else {
		dc = c.overlay(img, p)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: jpegQuality}); err != nil {
		metrics.MemeCompositeTotal.WithLabelValues(modeOf(p), "error").Inc()
		return nil, apperr.Wrap(apperr.KindComposite, err, "encode jpeg")
	}
	metrics.MemeCompositeTotal.WithLabelValues(modeOf(p), "success").Inc()
	return buf.Bytes(), nil
}

func modeOf(p *model.PostRecord) string {
	if p.CaptionPlacement == model.PlacementWhitespace {
		return model.PlacementWhitespace
	}
	return model.PlacementOverlay
}

// whitespace adds a white band above the image and centres the caption in it.
func (c *Compositor) whitespace(img image.Image, caption string) *gg.Context {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	dc := gg.NewContext(w, h+captionBandHeight)
	dc.SetColor(color.White)
	dc.DrawRectangle(0, 0, float64(w), captionBandHeight)
	dc.Fill()
	dc.DrawImage(img, 0, captionBandHeight)

	dc.SetFontFace(c.fonts.Face(defaultFontFamily, whitespaceFontSz, true, false))
	dc.SetColor(color.Black)
	dc.DrawStringAnchored(singleLine(caption), float64(w)/2, captionBandHeight/2, 0.5, 0.5)
	return dc
}

// overlay draws the image at native size followed by either the styled
// overlays or, when there are none, a translucent caption band.
func (c *Compositor) overlay(img image.Image, p *model.PostRecord) *gg.Context {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	dc := gg.NewContext(w, h)
	dc.DrawImage(img, 0, 0)

	if !p.HasOverlays() {
		if p.Text != "" {
			dc.SetRGBA(0, 0, 0, bandAlpha)
			dc.DrawRectangle(0, 0, float64(w), captionBandHeight)
			dc.Fill()

			dc.SetFontFace(c.fonts.Face("Arial, sans-serif", bandFontSize, true, false))
			dc.SetColor(color.White)
			dc.DrawStringAnchored(singleLine(p.Text), float64(w)/2, captionBandHeight/2, 0.5, 0.5)
		}
		return dc
	}

	for i := range p.MemeTexts {
		c.drawText(dc, &p.MemeTexts[i], w, h)
	}
	return dc
}

func (c *Compositor) drawText(dc *gg.Context, t *model.MemeText, w, h int) {
	x, y := Position(t.X, t.Y, w, h)

	size := t.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	fam := t.FontFamily
	if fam == "" {
		fam = defaultFontFamily
	}
	colorName := t.Color
	if colorName == "" {
		colorName = defaultColor
	}
	fill := ParseColor(colorName)
	ax := anchorX(t.TextAlign)

	text := t.Text
	if t.Uppercase {
		text = strings.ToUpper(text)
	}

	dc.SetFontFace(c.fonts.Face(fam, size, t.Bold, t.Italic))
	for _, line := range layoutLines(text, y, size) {
		if t.Outline {
			dc.SetColor(color.Black)
			for _, off := range outlineOffsets {
				dc.DrawStringAnchored(line.text, x+off[0], line.y+off[1], ax, 0)
			}
		}

		dc.SetColor(fill)
		dc.DrawStringAnchored(line.text, x, line.y, ax, 0)

		if t.Underline {
			width, _ := dc.MeasureString(line.text)
			x0, x1 := underlineSpan(x, width, ax)
			dc.SetColor(fill)
			dc.SetLineWidth(underlineWidth)
			dc.DrawLine(x0, line.y+underlineOffset, x1, line.y+underlineOffset)
			dc.Stroke()
		}
	}
}

// Position maps percentage coordinates to pixels: pixel = percent/100 * dimension.
func Position(xPct, yPct float64, w, h int) (float64, float64) {
	return xPct / 100 * float64(w), yPct / 100 * float64(h)
}

type textLine struct {
	text string
	y    float64
}

// layoutLines splits on explicit newlines only. Line i sits at
// y + i*1.2*size.
func layoutLines(text string, y, size float64) []textLine {
	parts := strings.Split(text, "\n")
	lines := make([]textLine, len(parts))
	for i, part := range parts {
		lines[i] = textLine{text: part, y: y + float64(i)*size*lineSpacing}
	}
	return lines
}

func anchorX(align string) float64 {
	if align == "" {
		align = defaultAlign
	}
	switch strings.ToLower(align) {
	case "center":
		return 0.5
	case "right", "end":
		return 1
	default:
		return 0
	}
}

// underlineSpan returns the horizontal extent of a line of the given width
// anchored at x.
func underlineSpan(x, width, ax float64) (float64, float64) {
	start := x - ax*width
	return start, start + width
}

// outlineOffsets approximate a centred 3px stroke by stamping the glyphs
// around a circle of radius 1.5.
var outlineOffsets = func() [][2]float64 {
	const steps = 16
	r := float64(outlineWidth) / 2
	offs := make([][2]float64, steps)
	for i := range offs {
		a := 2 * math.Pi * float64(i) / steps
		offs[i] = [2]float64{r * math.Cos(a), r * math.Sin(a)}
	}
	return offs
}()

func singleLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
