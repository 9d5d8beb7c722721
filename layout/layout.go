// Package layout implements LayoutEngine (spec §4.3, C3): the pure
// (attributedText, startIndex, drawableSize) -> length function both the
// Paginator and BackgroundWorker drive, and the shared attributed-text
// construction §4.8 requires a renderer to reproduce identically.
package layout

import "pagereader/metrics"

// Diagnostic carries a non-fatal signal alongside a successful Measure
// call. Only DegenerateLayout is currently produced (§4.3 edge case).
type Diagnostic struct {
	DegenerateLayout bool
}

// Measure returns the number of UTF-16 code units, starting at startIndex,
// that fit within drawable under at.Face/LineSpacing/ParagraphSpacing, using
// character-level line wrap (§4.8: "line-break mode = by character").
//
// It never splits a surrogate pair, returns 0 exactly at text end, and
// forces progress of one codepoint (flagging DegenerateLayout) when nothing
// fits at all.
func Measure(at *AttributedText, startIndex int, drawable metrics.DrawableSize) (int, Diagnostic) {
	n := len(at.Units)
	if startIndex >= n {
		return 0, Diagnostic{}
	}

	height := drawable.Height - metrics.SafetyHeightBuffer
	width := drawable.Width
	lineHeight := at.Face.LineHeight()

	if height <= 0 || width <= 0 || lineHeight <= 0 {
		return forcedSingleCodepoint(at, startIndex)
	}

	i := startIndex
	totalHeight := 0.0
	pendingSpacing := 0.0
	linesEmitted := 0

	for i < n {
		candidateHeight := totalHeight + pendingSpacing + lineHeight
		if candidateHeight > height && linesEmitted > 0 {
			break
		}

		lineEnd, brokeOnNewline := measureLine(at, i, width)

		if candidateHeight > height {
			// First line of this pass still doesn't fit: degenerate.
			break
		}

		totalHeight = candidateHeight
		linesEmitted++
		i = lineEnd
		if brokeOnNewline {
			pendingSpacing = at.ParagraphSpacing
		} else {
			pendingSpacing = at.LineSpacing
		}
	}

	if linesEmitted == 0 {
		return forcedSingleCodepoint(at, startIndex)
	}
	return i - startIndex, Diagnostic{}
}

// measureLine greedily fills one line starting at i with as many code units
// as fit in width, breaking early on an explicit newline. It always
// advances by at least one rune's worth of units, even if that rune alone
// exceeds width, so callers never spin without progress.
func measureLine(at *AttributedText, i int, width float64) (end int, brokeOnNewline bool) {
	n := len(at.Units)
	lineWidth := 0.0
	lineStart := i

	for i < n {
		r, ulen := decodeRuneAt(at.Units, i)
		if r == '\n' {
			return i + ulen, true
		}
		adv := at.Face.Advance(r)
		if lineWidth+adv > width && i > lineStart {
			break
		}
		lineWidth += adv
		i += ulen
	}
	return i, false
}

// forcedSingleCodepoint implements the "zero characters fit" edge case:
// advance by exactly one codepoint's worth of code units (1, or 2 for a
// surrogate pair) and flag DegenerateLayout.
func forcedSingleCodepoint(at *AttributedText, startIndex int) (int, Diagnostic) {
	_, ulen := decodeRuneAt(at.Units, startIndex)
	return ulen, Diagnostic{DegenerateLayout: true}
}
