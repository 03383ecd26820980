package meme

import (
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

var white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// ParseColor understands #rgb, #rrggbb, #rrggbbaa, rgb()/rgba() and CSS
// color names. Anything else is white.
func ParseColor(s string) color.Color {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return white
	}
	if strings.HasPrefix(s, "#") {
		if c, ok := parseHex(s[1:]); ok {
			return c
		}
		return white
	}
	if strings.HasPrefix(s, "rgb") {
		if c, ok := parseRGBFunc(s); ok {
			return c
		}
		return white
	}
	if c, ok := colornames.Map[s]; ok {
		return c
	}
	return white
}

func parseHex(h string) (color.Color, bool) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return nil, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return nil, false
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}

func parseRGBFunc(s string) (color.Color, bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return nil, false
	}
	parts := strings.Split(s[open+1:len(s)-1], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return nil, false
	}
	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 || n > 255 {
			return nil, false
		}
		rgb[i] = uint8(n)
	}
	alpha := uint8(0xff)
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return nil, false
		}
		alpha = uint8(a*255 + 0.5)
	}
	return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: alpha}, true
}
