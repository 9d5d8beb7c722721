// Package paginate implements Paginator (spec §4.4, C4): a lazy,
// finite, forward-only sequence of PageRange values driven by
// layout.Measure.
package paginate

import (
	"pagereader/layout"
	"pagereader/metrics"
)

// PageRange is the spec §3 PageRange value. Content is populated when New
// is called with withContent set; it is left empty otherwise so callers that don't need it
// (e.g. a background job only persisting offsets) don't pay for the slice.
type PageRange struct {
	PageNumber int
	StartIndex int
	EndIndex   int
	Content    string
	HasContent bool
}

// Diagnostics accumulates non-fatal signals raised while producing a page,
// mirroring layout.Diagnostic.
type Diagnostics struct {
	DegenerateLayout bool
}

// Paginator produces PageRange values one at a time from startIndex,
// consulting the LayoutEngine once per page. It holds no cache and no
// concurrency of its own: it is driven synchronously by BackgroundWorker.
type Paginator struct {
	text        *layout.AttributedText
	drawable    metrics.DrawableSize
	withContent bool

	nextIndex  int
	nextNumber int
	done       bool
}

// New starts a Paginator at startIndex with the given pageNumber for the
// first produced page (callers resuming a job pass lastProcessedIndex and
// the page count already committed).
func New(text *layout.AttributedText, drawable metrics.DrawableSize, startIndex, startPageNumber int, withContent bool) *Paginator {
	return &Paginator{
		text:        text,
		drawable:    drawable,
		withContent: withContent,
		nextIndex:   startIndex,
		nextNumber:  startPageNumber,
		done:        startIndex >= len(text.Units),
	}
}

// Done reports whether the sequence has reached text end.
func (p *Paginator) Done() bool {
	return p.done
}

// Next produces the next PageRange, advancing internal state. Callers must
// check Done before calling Next; calling it past the end is a programming
// error the caller is expected to have already guarded against via Done.
func (p *Paginator) Next() (PageRange, Diagnostics) {
	length, diag := layout.Measure(p.text, p.nextIndex, p.drawable)

	start := p.nextIndex
	end := start + length

	page := PageRange{
		PageNumber: p.nextNumber,
		StartIndex: start,
		EndIndex:   end,
	}
	if p.withContent {
		page.Content = layout.SliceUnits(p.text.Units, start, end)
		page.HasContent = true
	}

	p.nextIndex = end
	p.nextNumber++
	p.done = end >= len(p.text.Units)

	return page, Diagnostics{DegenerateLayout: diag.DegenerateLayout}
}
