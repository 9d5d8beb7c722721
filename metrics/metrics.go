// Package metrics is the single source of truth for drawable-area geometry
// and the settings-fingerprint string (spec §6.1, §8.1). Both LayoutEngine
// and Paginator read these constants; the UI text container is expected to
// mirror them exactly.
package metrics

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

const (
	// ChromeBottomHeight is reserved below the text area.
	ChromeBottomHeight = 32.0
	// HorizontalInset applies on both the left and right.
	HorizontalInset = 16.0
	// VerticalInsetTop and VerticalInsetBottom bound the text area vertically.
	VerticalInsetTop    = 16.0
	VerticalInsetBottom = 16.0
	// SafetyHeightBuffer is subtracted from drawable height inside the
	// LayoutEngine only, so pagination never over-counts what the renderer
	// can fit.
	SafetyHeightBuffer = 2.0

	// MemoryMapThreshold is the strict size cutoff between Mapped and
	// Streamed TextSource variants (bytes).
	MemoryMapThreshold = 1536 * 1024 * 1024 // 1.5 GiB

	// BatchPageSize is the default number of pages per committed batch.
	BatchPageSize = 10
	// BatchYieldMillis is the cooperative sleep between batches.
	BatchYieldMillis = 100

	// LayoutVersion is bumped whenever any constant above, or the layout
	// algorithm itself, changes; it invisibly invalidates every prior cache
	// entry by becoming part of every settingsKey.
	LayoutVersion = "pr16v1"

	// LineSpacingMultiplier and ParagraphSpacingMultiplier convert a
	// UserSettings.LineSpacing multiplier into points, per §4.8.
	LineSpacingMultiplier      = 4.0
	ParagraphSpacingMultiplier = 8.0

	// ReaderLRUCapacity bounds ReaderSession's in-memory page cache (§4.7).
	ReaderLRUCapacity = 20

	// PriorityWindowPages is the batch size BackgroundWorker uses while its
	// progress is still before a priorityHint offset; pages are still
	// committed in linear order (§4.6, §12).
	PriorityWindowPages = 50

	// StoreBusyTimeoutSeconds is the CacheStore's busy-wait bound (§5).
	StoreBusyTimeoutSeconds = 3
	// StoreRetryBackoffSeconds bounds the single retry after StoreBusy.
	StoreRetryBackoffSeconds = 3

	// EstimatedCodeUnitsPerPage is the rough average page length used to
	// derive ReaderSession's estimatedPageCount before any authoritative
	// pagination has landed (§4.7's "EstimatedReady" state).
	EstimatedCodeUnitsPerPage = 1800
)

// ViewportSize is the full UI container size, before chrome and insets.
type ViewportSize struct {
	Width, Height float64
}

// DrawableSize is the derived area in which text is laid out (§3).
type DrawableSize struct {
	Width, Height float64
}

// Drawable computes the DrawableSize for a ViewportSize, per §3's formula.
// It does not apply SafetyHeightBuffer — that reduction happens only inside
// the LayoutEngine (§4.3), never in the geometry shared with the renderer.
func Drawable(v ViewportSize) DrawableSize {
	return DrawableSize{
		Width:  v.Width - 2*HorizontalInset,
		Height: v.Height - ChromeBottomHeight - VerticalInsetTop - VerticalInsetBottom,
	}
}

// SettingsFingerprint is the composed, human-legible form of a settingsKey
// before hashing (spec §3's "deterministic fingerprint composed of
// contentHash, fontName, fontSize, lineSpacing, ⌊width⌋×⌊height⌋,
// layoutVersion").
type SettingsFingerprint struct {
	ContentHash string
	FontName    string
	FontSize    float64
	LineSpacing float64
	Viewport    ViewportSize
}

// SettingsKey returns the deterministic, stringly-typed fingerprint that is
// the CacheStore's settings_key column. The encoding name is folded in per
// the design note in spec §9: re-decoding under a different encoding
// produces different text and therefore must produce a different key.
func SettingsKey(fp SettingsFingerprint, encodingName string) string {
	composed := fmt.Sprintf("%s|%s|%.2f|%.2f|%dx%d|%s|%s",
		fp.ContentHash,
		fp.FontName,
		fp.FontSize,
		fp.LineSpacing,
		int(math.Floor(fp.Viewport.Width)),
		int(math.Floor(fp.Viewport.Height)),
		encodingName,
		LayoutVersion,
	)
	return fmt.Sprintf("%s-%016x", LayoutVersion, xxhash.Sum64String(composed))
}
