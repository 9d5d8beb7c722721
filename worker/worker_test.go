package worker

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"pagereader/common"
	"pagereader/layout"
	"pagereader/metrics"
	"pagereader/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleText(n int) *layout.AttributedText {
	return layout.NewAttributedText(strings.Repeat("the quick brown fox jumps over the lazy dog. ", n), layout.Settings{
		FontFace: common.FontFaceSystem, FontSize: 13, Theme: common.ThemeLight, LineSpacing: 1.0,
	})
}

func waitForComplete(t *testing.T, events chan BatchCommitted, timeout time.Duration) BatchCommitted {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case bc := <-events:
			if bc.IsComplete {
				return bc
			}
		case <-deadline:
			t.Fatal("timed out waiting for job completion")
		}
	}
}

func TestWorker_RunsJobToCompletion(t *testing.T) {
	s := openStore(t)
	w := New(s, zap.NewNop())

	events := make(chan BatchCommitted, 64)
	w.Subscribe(func(bc BatchCommitted) { events <- bc })

	text := sampleText(20)
	drawable := metrics.DrawableSize{Width: 200, Height: 300}
	viewport := metrics.ViewportSize{Width: 232, Height: 332}

	w.StartOrResume(context.Background(), "book1", "key1", text, drawable, viewport, 0, false)

	final := waitForComplete(t, events, 5*time.Second)
	if !final.IsComplete {
		t.Fatal("expected a completion notification")
	}

	meta, found, err := s.FetchMeta(context.Background(), "book1", "key1")
	if err != nil || !found {
		t.Fatalf("FetchMeta() = %+v, found=%v, err=%v", meta, found, err)
	}
	if !meta.IsComplete {
		t.Error("expected meta.IsComplete after job finishes")
	}
	if meta.LastProcessedIndex != len(text.Units) {
		t.Errorf("LastProcessedIndex = %d, want %d", meta.LastProcessedIndex, len(text.Units))
	}
}

func TestWorker_ResumesFromLastProcessedIndex(t *testing.T) {
	s := openStore(t)
	text := sampleText(20)
	drawable := metrics.DrawableSize{Width: 200, Height: 300}
	viewport := metrics.ViewportSize{Width: 232, Height: 332}

	// Seed a partial job directly through the store, as if a prior process
	// had committed some pages before crashing.
	ctx := context.Background()
	if err := s.UpsertBatch(ctx, "book1", "key1", viewport, nil, 50, false, 0, false); err != nil {
		t.Fatalf("seed UpsertBatch() error = %v", err)
	}

	w := New(s, zap.NewNop())
	events := make(chan BatchCommitted, 64)
	w.Subscribe(func(bc BatchCommitted) { events <- bc })

	w.StartOrResume(ctx, "book1", "key1", text, drawable, viewport, 0, false)
	final := waitForComplete(t, events, 5*time.Second)
	if !final.IsComplete {
		t.Fatal("expected completion")
	}

	meta, _, _ := s.FetchMeta(ctx, "book1", "key1")
	if meta.LastProcessedIndex != len(text.Units) {
		t.Errorf("LastProcessedIndex after resume = %d, want %d", meta.LastProcessedIndex, len(text.Units))
	}
}

func TestWorker_CancelStopsJobPromptly(t *testing.T) {
	s := openStore(t)
	text := sampleText(2000) // large enough that the job won't finish instantly
	drawable := metrics.DrawableSize{Width: 200, Height: 300}
	viewport := metrics.ViewportSize{Width: 232, Height: 332}

	w := New(s, zap.NewNop())
	var mu sync.Mutex
	var sawAny bool
	w.Subscribe(func(bc BatchCommitted) {
		mu.Lock()
		sawAny = true
		mu.Unlock()
	})

	ctx := context.Background()
	w.StartOrResume(ctx, "book1", "key1", text, drawable, viewport, 0, false)
	time.Sleep(150 * time.Millisecond)
	w.Cancel("book1")

	mu.Lock()
	got := sawAny
	mu.Unlock()
	if !got {
		t.Fatal("expected at least one batch to commit before cancellation")
	}

	meta, found, err := s.FetchMeta(ctx, "book1", "key1")
	if err != nil || !found {
		t.Fatalf("FetchMeta() after cancel = %+v, found=%v, err=%v", meta, found, err)
	}
	if meta.IsComplete {
		t.Error("did not expect job to have completed before cancellation")
	}
}
