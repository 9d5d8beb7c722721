package layout

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Face measures glyph advances and line height for a resolved font at a
// given point size. Real platform text layout (CoreText, Skia, DirectWrite)
// is not available headlessly, so pagination and the reference renderer
// both measure through this interface; §4.8 requires the two to agree, and
// a shared Face is how that identity is enforced here.
type Face interface {
	Advance(r rune) float64
	LineHeight() float64
}

// scaledBitmapFace approximates a named font.Face at an arbitrary point size
// by measuring against a fixed bitmap face (basicfont.Face7x13, nominally 13
// pt) and scaling its advances linearly. It is a deliberately crude stand-in
// for CoreText/DirectWrite metrics, grounded on the same font.Face contract
// golang.org/x/image ships, so swapping in a real outline font later only
// means swapping the Face value, not the layout algorithm.
type scaledBitmapFace struct {
	base  font.Face
	scale float64
}

const baseFaceSize = 13.0

// NewFace builds a Face for fontName at fontSize points. fontName selects
// among the faces common.FontFace enumerates; since no platform font table
// is available in this engine, every named face currently measures through
// the same bitmap metrics, scaled — resolution differs only in name, not in
// the pagination result, until real font files are wired in.
func NewFace(fontName string, fontSize float64) Face {
	return &scaledBitmapFace{base: basicfont.Face7x13, scale: fontSize / baseFaceSize}
}

func (f *scaledBitmapFace) Advance(r rune) float64 {
	adv, ok := f.base.GlyphAdvance(r)
	if !ok {
		adv, _ = f.base.GlyphAdvance('?')
	}
	return fixedToFloat(adv) * f.scale
}

func (f *scaledBitmapFace) LineHeight() float64 {
	m := f.base.Metrics()
	return fixedToFloat(m.Ascent+m.Descent) * f.scale
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
