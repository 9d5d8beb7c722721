package layout

import "pagereader/common"

// Settings is the subset of UserSettings (spec §3) that affects pagination:
// fontName, fontSize and lineSpacing. Theme only affects the rendered
// foreground colour, but is carried here too since AttributedText must be
// buildable identically by both the background pagination job and the UI
// renderer (§4.8).
type Settings struct {
	FontFace    common.FontFace
	FontSize    float64
	Theme       common.Theme
	LineSpacing float64
}

// AttributedText is the canonical text plus the typographic attributes
// derived from Settings, exactly as §4.8 requires: the same construction
// must be reachable from both LayoutEngine.Measure and a renderer, so this
// type carries everything either one needs and nothing either one would
// have to recompute differently.
type AttributedText struct {
	Units            []uint16
	Face             Face
	ForegroundColor  [3]uint8
	LineSpacing      float64
	ParagraphSpacing float64
}

// NewAttributedText builds the shared attributed-text view of text under
// settings, per the §4.8 mapping: font resolved from fontName/fontSize,
// foreground colour from theme, lineSpacing = 4x and paragraphSpacing = 8x
// the settings multiplier, line-break mode by character (enforced by
// Measure's per-rune wrap loop, not representable as a field here).
func NewAttributedText(text string, settings Settings) *AttributedText {
	return &AttributedText{
		Units:            ToUnits(text),
		Face:             NewFace(settings.FontFace.String(), settings.FontSize),
		ForegroundColor:  foregroundColor(settings.Theme),
		LineSpacing:      4 * settings.LineSpacing,
		ParagraphSpacing: 8 * settings.LineSpacing,
	}
}

func foregroundColor(theme common.Theme) [3]uint8 {
	switch theme {
	case common.ThemeDark:
		return [3]uint8{0xff, 0xff, 0xff}
	case common.ThemeSepia:
		return common.SepiaForeground
	default: // ThemeLight: system label colour, approximated as near-black
		return [3]uint8{0x00, 0x00, 0x00}
	}
}
