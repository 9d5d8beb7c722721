// Package session implements ReaderSession (spec §4.7, C7): the UI-facing
// facade over LayoutEngine/Paginator/CacheStore/BackgroundWorker, exposing
// only the operations listed in §6.3.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"pagereader/layout"
	"pagereader/metrics"
	"pagereader/store"
	"pagereader/worker"
)

// State is the §4.7 state machine.
type State int

const (
	StateLoading State = iota
	StateEstimatedReady
	StateAuthoritative
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateEstimatedReady:
		return "estimated_ready"
	case StateAuthoritative:
		return "authoritative"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Page is the §4.7 operation result: {text, isAuthoritative, startIndex,
// endIndex|null}.
type Page struct {
	Text            string
	IsAuthoritative bool
	StartIndex      int
	EndIndex        int
	HasEndIndex     bool
}

// PageCountResult is pageCount()'s {value, isAuthoritative} return.
type PageCountResult struct {
	Value           int
	IsAuthoritative bool
}

// Session is one open book's ReaderSession.
type Session struct {
	bookHash    string
	contentHash string
	store       *store.Store
	worker      *worker.Worker
	log         *zap.Logger

	mu                 sync.Mutex
	text               *layout.AttributedText
	settings           layout.Settings
	viewport           metrics.ViewportSize
	encodingName       string
	settingsKey        string
	state              State
	toPage             int // authoritative coverage upper bound, 0 if none yet
	estimatedPageCount int
	lru                *lruCache
}

// Open constructs a ReaderSession over already-decoded canonical text and
// starts background pagination for the initial settings/viewport. text must
// be the EncodingResolver's canonical output; contentHash identifies the
// raw bytes (spec §3's Book.contentHash).
func Open(ctx context.Context, bookHash, contentHash, canonicalText string, settings layout.Settings, viewport metrics.ViewportSize, encodingName string, s *store.Store, w *worker.Worker, log *zap.Logger) *Session {
	sess := &Session{
		bookHash:    bookHash,
		contentHash: contentHash,
		store:       s,
		worker:      w,
		log:         log,
		state:       StateLoading,
		lru:         newLRU(metrics.ReaderLRUCapacity),
	}

	w.Subscribe(sess.onBatchCommitted)

	sess.mu.Lock()
	sess.text = layout.NewAttributedText(canonicalText, settings)
	sess.settings = settings
	sess.viewport = viewport
	sess.encodingName = encodingName
	sess.estimatedPageCount = estimatePageCount(len(sess.text.Units))
	sess.settingsKey = sess.computeSettingsKeyLocked()
	sess.state = StateEstimatedReady
	key := sess.settingsKey
	text := sess.text
	drawable := metrics.Drawable(viewport)
	sess.mu.Unlock()

	w.StartOrResume(ctx, bookHash, key, text, drawable, viewport, 0, false)
	return sess
}

func (s *Session) computeSettingsKeyLocked() string {
	fp := metrics.SettingsFingerprint{
		ContentHash: s.contentHash,
		FontName:    s.settings.FontFace.String(),
		FontSize:    s.settings.FontSize,
		LineSpacing: s.settings.LineSpacing,
		Viewport:    s.viewport,
	}
	return metrics.SettingsKey(fp, s.encodingName)
}

func estimatePageCount(textLen int) int {
	if textLen == 0 {
		return 1
	}
	n := textLen / metrics.EstimatedCodeUnitsPerPage
	if n < 1 {
		n = 1
	}
	return n
}

// onBatchCommitted is worker.Subscriber: it advances toPage/state and
// invalidates the newly-superseded LRU range, so subsequent reads observe
// fresh authoritative pages without polling (§4.7).
func (s *Session) onBatchCommitted(bc worker.BatchCommitted) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bc.BookHash != s.bookHash || bc.SettingsKey != s.settingsKey {
		return
	}

	s.lru.invalidateRange(bc.SettingsKey, bc.FirstPage, bc.LastPage)
	if bc.LastPage > s.toPage {
		s.toPage = bc.LastPage
	}
	if bc.IsComplete {
		s.state = StateComplete
	} else if s.state != StateComplete {
		s.state = StateAuthoritative
	}
}

// PageCount returns the current page count and whether it is authoritative
// (§4.7's pageCount()).
func (s *Session) PageCount(ctx context.Context) (PageCountResult, error) {
	s.mu.Lock()
	state := s.state
	key := s.settingsKey
	bookHash := s.bookHash
	estimated := s.estimatedPageCount
	s.mu.Unlock()

	if state == StateComplete {
		meta, found, err := s.store.FetchMeta(ctx, bookHash, key)
		if err != nil {
			return PageCountResult{}, err
		}
		if found && meta.HasTotalPages {
			return PageCountResult{Value: meta.TotalPages, IsAuthoritative: true}, nil
		}
	}
	return PageCountResult{Value: estimated, IsAuthoritative: false}, nil
}

// PageContent returns page n, per §4.7's pageContent(n): authoritative from
// cache when n falls within coverage, otherwise a rough estimated slice.
func (s *Session) PageContent(ctx context.Context, n int) (Page, error) {
	s.mu.Lock()
	key := s.settingsKey
	bookHash := s.bookHash
	toPage := s.toPage
	s.mu.Unlock()

	if n <= toPage {
		if cached, ok := s.lru.get(lruKey{settingsKey: key, pageNumber: n}); ok {
			return cached, nil
		}
		pr, found, err := s.store.FetchPage(ctx, bookHash, key, n)
		if err != nil {
			return Page{}, err
		}
		if found {
			page := Page{Text: pr.Content, IsAuthoritative: true, StartIndex: pr.StartIndex, EndIndex: pr.EndIndex, HasEndIndex: true}
			s.lru.put(lruKey{settingsKey: key, pageNumber: n}, page)
			return page, nil
		}
	}

	return s.estimatedPage(n), nil
}

// estimatedPage slices a rough text.length/estimatedPageCount window, per
// §4.7's EstimatedReady behavior.
func (s *Session) estimatedPage(n int) Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	textLen := len(s.text.Units)
	count := s.estimatedPageCount
	if count < 1 {
		count = 1
	}
	width := textLen / count
	if width < 1 {
		width = textLen
	}
	start := (n - 1) * width
	if start < 0 {
		start = 0
	}
	if start > textLen {
		start = textLen
	}
	end := start + width
	if end > textLen || n == count {
		end = textLen
	}
	return Page{
		Text:        layout.SliceUnits(s.text.Units, start, end),
		StartIndex:  start,
		EndIndex:    end,
		HasEndIndex: true,
	}
}

// CurrentCharacterIndex returns the UTF-16 offset for currentPage: the
// cached authoritative startIndex when available, otherwise the estimated
// window's start (§4.7).
func (s *Session) CurrentCharacterIndex(ctx context.Context, currentPage int) (int, error) {
	page, err := s.PageContent(ctx, currentPage)
	if err != nil {
		return 0, err
	}
	return page.StartIndex, nil
}

// UpdateSettings recomputes the settingsKey; if it differs from current, the
// active job is cancelled and a new one started with currentOffset as the
// priorityHint, preserving the user's character position across the switch
// (§4.7).
func (s *Session) UpdateSettings(ctx context.Context, newSettings layout.Settings, currentOffset int) {
	s.switchKey(ctx, func() { s.settings = newSettings }, currentOffset)
}

// UpdateViewport recomputes the settingsKey for a new viewport, same
// contract as UpdateSettings.
func (s *Session) UpdateViewport(ctx context.Context, newViewport metrics.ViewportSize, currentOffset int) {
	s.switchKey(ctx, func() { s.viewport = newViewport }, currentOffset)
}

func (s *Session) switchKey(ctx context.Context, mutate func(), currentOffset int) {
	s.mu.Lock()
	oldKey := s.settingsKey
	mutate()
	newKey := s.computeSettingsKeyLocked()
	if newKey == oldKey {
		s.mu.Unlock()
		return
	}

	s.settingsKey = newKey
	s.toPage = 0
	s.state = StateEstimatedReady
	s.estimatedPageCount = estimatePageCount(len(s.text.Units))

	bookHash := s.bookHash
	text := s.text
	viewport := s.viewport
	drawable := metrics.Drawable(viewport)
	s.mu.Unlock()

	s.worker.Cancel(bookHash)
	s.worker.StartOrResume(ctx, bookHash, newKey, text, drawable, viewport, currentOffset, true)
}

// OverrideEncoding rebuilds the session over newly-decoded canonical text
// (a forced encoding override invalidates prior cache entries for this
// book, per §4.2/§6.2, since the canonical text itself has changed).
func (s *Session) OverrideEncoding(ctx context.Context, canonicalText, newEncodingName string, currentOffset int) error {
	s.mu.Lock()
	s.text = layout.NewAttributedText(canonicalText, s.settings)
	s.encodingName = newEncodingName
	s.lru = newLRU(metrics.ReaderLRUCapacity)
	newKey := s.computeSettingsKeyLocked()
	s.settingsKey = newKey
	s.toPage = 0
	s.state = StateEstimatedReady
	s.estimatedPageCount = estimatePageCount(len(s.text.Units))

	bookHash := s.bookHash
	text := s.text
	viewport := s.viewport
	drawable := metrics.Drawable(viewport)
	s.mu.Unlock()

	if err := s.store.DeleteAllForBook(ctx, bookHash); err != nil {
		return err
	}

	s.worker.Cancel(bookHash)
	s.worker.StartOrResume(ctx, bookHash, newKey, text, drawable, viewport, currentOffset, true)
	return nil
}

// SweepOldSettingsKeys deletes every cached settingsKey for this book other
// than the current one, once the new job has caught up enough that the old
// cache is no longer needed (§12's keep-only sweep).
func (s *Session) SweepOldSettingsKeys(ctx context.Context) error {
	s.mu.Lock()
	key := s.settingsKey
	bookHash := s.bookHash
	s.mu.Unlock()
	return s.store.DeleteAllExcept(ctx, bookHash, key)
}

// State reports the current §4.7 state machine value.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
