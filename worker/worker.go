// Package worker implements BackgroundWorker (spec §4.6, C6): a
// single-job-at-a-time cooperative pagination loop, one job per
// (bookHash, settingsKey), publishing BatchCommitted notifications.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pagereader/engerr"
	"pagereader/layout"
	"pagereader/metrics"
	"pagereader/paginate"
	"pagereader/store"
)

// BatchCommitted is the §6.4 notification emitted after every committed
// batch.
type BatchCommitted struct {
	BookHash    string
	SettingsKey string
	FirstPage   int
	LastPage    int
	IsComplete  bool
}

// Subscriber receives BatchCommitted notifications. Called synchronously
// from the job goroutine; subscribers (ReaderSession) must return quickly.
type Subscriber func(BatchCommitted)

// Worker runs at most one active pagination job per book (§5: "Parallel
// pagination of multiple books is explicitly out of scope — queueing them
// is acceptable"); a settings/viewport change cancels the book's current
// job and starts a new one under a different settingsKey.
type Worker struct {
	store *store.Store
	log   *zap.Logger

	batchSize         int
	priorityBatchSize int
	yieldDelay        time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc // keyed by bookHash

	subsMu sync.Mutex
	subs   []Subscriber
}

// Option configures a Worker's operational tunables away from the
// Metrics defaults (e.g. from config.WorkerConfig); none of these affect
// layoutVersion since they change only scheduling, not page boundaries.
type Option func(*Worker)

// WithBatchSize overrides the default and priority-window batch sizes.
func WithBatchSize(defaultSize, prioritySize int) Option {
	return func(w *Worker) {
		if defaultSize > 0 {
			w.batchSize = defaultSize
		}
		if prioritySize > 0 {
			w.priorityBatchSize = prioritySize
		}
	}
}

// WithYieldDelay overrides the cooperative sleep between batches.
func WithYieldDelay(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.yieldDelay = d
		}
	}
}

// New constructs a Worker bound to a CacheStore singleton.
func New(s *store.Store, log *zap.Logger, opts ...Option) *Worker {
	w := &Worker{
		store:             s,
		log:               log,
		batchSize:         metrics.BatchPageSize,
		priorityBatchSize: metrics.PriorityWindowPages,
		yieldDelay:        metrics.BatchYieldMillis * time.Millisecond,
		cancels:           make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Subscribe registers fn to receive every BatchCommitted notification this
// worker emits, across all jobs.
func (w *Worker) Subscribe(fn Subscriber) {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	w.subs = append(w.subs, fn)
}

func (w *Worker) notify(bc BatchCommitted) {
	w.subsMu.Lock()
	subs := append([]Subscriber(nil), w.subs...)
	w.subsMu.Unlock()
	for _, fn := range subs {
		fn(bc)
	}
}

// StartOrResume starts a new pagination job for (bookHash, settingsKey), or
// resumes one already underway according to CacheStore.fetchMeta. Starting
// a job for bookHash cancels any job already running for that book (the
// old settingsKey is superseded, never overwritten — §4.6's ordering
// guarantee).
//
// priorityHintUnits, when hasPriorityHint is true, is a UTF-16 offset the
// user is currently positioned near; the job processes in larger batches
// until it has covered that offset, then reverts to the default batch size
// (§9/§12: jumping straight to an arbitrary page number isn't possible
// since a page's bounds depend on measuring everything before it, so the
// "priority window" widens the batch instead of reordering commits).
func (w *Worker) StartOrResume(ctx context.Context, bookHash, settingsKey string, text *layout.AttributedText, drawable metrics.DrawableSize, viewport metrics.ViewportSize, priorityHintUnits int, hasPriorityHint bool) {
	w.Cancel(bookHash)

	jobCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancels[bookHash] = cancel
	w.mu.Unlock()

	go w.runJob(jobCtx, bookHash, settingsKey, text, drawable, viewport, priorityHintUnits, hasPriorityHint)
}

// Cancel cooperatively stops the active job for bookHash, if any. The job
// finishes committing any batch already in flight before it exits.
func (w *Worker) Cancel(bookHash string) {
	w.mu.Lock()
	cancel, ok := w.cancels[bookHash]
	delete(w.cancels, bookHash)
	w.mu.Unlock()
	if ok {
		cancel()
	}
}

func (w *Worker) runJob(ctx context.Context, bookHash, settingsKey string, text *layout.AttributedText, drawable metrics.DrawableSize, viewport metrics.ViewportSize, priorityHintUnits int, hasPriorityHint bool) {
	startIndex := 0
	pageNumber := 1
	totalPages := 0

	// fetchMeta and fetchPageCount are independent reads against the same
	// (bookHash, settingsKey) row set; resuming a job needs both, so they
	// run concurrently rather than one after the other.
	var (
		meta      store.Meta
		metaFound bool
		count     int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		meta, metaFound, err = w.store.FetchMeta(gctx, bookHash, settingsKey)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = w.store.FetchPageCount(gctx, bookHash, settingsKey)
		return err
	})
	if err := g.Wait(); err != nil {
		w.log.Error("fetch resume state", zap.String("book_hash", bookHash), zap.Error(err))
		return
	}
	if metaFound {
		startIndex = meta.LastProcessedIndex
		totalPages = meta.TotalPages
		pageNumber = count + 1
	}

	textLen := len(text.Units)
	if startIndex >= textLen {
		w.notify(BatchCommitted{BookHash: bookHash, SettingsKey: settingsKey, FirstPage: pageNumber, LastPage: pageNumber - 1, IsComplete: true})
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batchSize := w.batchSize
		if hasPriorityHint && startIndex < priorityHintUnits {
			batchSize = w.priorityBatchSize
		}

		p := paginate.New(text, drawable, startIndex, pageNumber, true)
		batch := make([]paginate.PageRange, 0, batchSize)
		for len(batch) < batchSize && !p.Done() {
			page, diag := p.Next()
			if diag.DegenerateLayout {
				w.log.Warn("degenerate layout, forcing single codepoint",
					zap.String("book_hash", bookHash), zap.String("settings_key", settingsKey), zap.Int("page_number", page.PageNumber))
			}
			batch = append(batch, page)
		}
		if len(batch) == 0 {
			return
		}

		last := batch[len(batch)-1]
		isComplete := last.EndIndex >= textLen
		totalPages = estimateTotalPages(last, textLen, isComplete)

		if err := w.commitWithRetry(context.WithoutCancel(ctx), bookHash, settingsKey, viewport, batch, last.EndIndex, isComplete, totalPages); err != nil {
			w.log.Error("commit pagination batch", zap.String("book_hash", bookHash), zap.String("settings_key", settingsKey), zap.Error(err))
			return
		}

		w.notify(BatchCommitted{BookHash: bookHash, SettingsKey: settingsKey, FirstPage: batch[0].PageNumber, LastPage: last.PageNumber, IsComplete: isComplete})

		if isComplete {
			return
		}
		startIndex = last.EndIndex
		pageNumber = last.PageNumber + 1

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.yieldDelay):
		}
	}
}

// commitWithRetry applies §5's StoreBusy policy: retry once after a
// back-off, total bounded at roughly StoreBusyTimeoutSeconds +
// StoreRetryBackoffSeconds.
func (w *Worker) commitWithRetry(ctx context.Context, bookHash, settingsKey string, viewport metrics.ViewportSize, batch []paginate.PageRange, lastProcessedIndex int, isComplete bool, totalPages int) error {
	err := w.store.UpsertBatch(ctx, bookHash, settingsKey, viewport, batch, lastProcessedIndex, isComplete, totalPages, true)
	if err == nil {
		return nil
	}
	if !engerr.Is(err, engerr.KindStoreBusy) {
		return err
	}
	w.log.Warn("cache store busy, retrying batch commit once",
		zap.String("book_hash", bookHash), zap.String("settings_key", settingsKey), zap.Error(err))

	select {
	case <-ctx.Done():
		return err
	case <-time.After(metrics.StoreRetryBackoffSeconds * time.Second):
	}
	return w.store.UpsertBatch(ctx, bookHash, settingsKey, viewport, batch, lastProcessedIndex, isComplete, totalPages, true)
}

// estimateTotalPages projects the eventual page count from progress so far,
// exact once the job is complete.
func estimateTotalPages(last paginate.PageRange, textLen int, isComplete bool) int {
	if isComplete || last.EndIndex == 0 {
		return last.PageNumber
	}
	ratio := float64(textLen) / float64(last.EndIndex)
	return int(float64(last.PageNumber) * ratio)
}
