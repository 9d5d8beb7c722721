// Package engerr defines the engine's error taxonomy (spec §7): a small
// closed set of kinds that every component reports through, so the
// BackgroundWorker and ReaderSession can classify failures without string
// matching.
package engerr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error for retry/propagation decisions.
type Kind int

const (
	// KindFileNotFound: the source path does not exist (C1).
	KindFileNotFound Kind = iota
	// KindAccessDenied: the source path exists but cannot be read (C1).
	KindAccessDenied
	// KindReadFailed: an I/O error occurred while reading the source (C1).
	KindReadFailed
	// KindDecodingLossy: no encoding in the chain decoded losslessly; UTF-8
	// with replacement was used. Non-fatal diagnostic (C2).
	KindDecodingLossy
	// KindEncodingUnsupported: a forced encoding override names an unknown
	// encoding. Fatal (C2).
	KindEncodingUnsupported
	// KindDegenerateLayout: zero characters fit in the drawable area; a
	// forced single-codepoint page was emitted. Non-fatal diagnostic (C3).
	KindDegenerateLayout
	// KindStoreBusy: the CacheStore writer lock could not be acquired within
	// the busy timeout. Transient, retried once (C5).
	KindStoreBusy
	// KindStoreCorrupt: the CacheStore failed to open or migrate. Fatal (C5).
	KindStoreCorrupt
	// KindCancelled: expected control flow when a job is superseded by a
	// settings/viewport change. Never surfaced to the user (C6).
	KindCancelled
	// KindInternalInvariant: an assertion failure. Terminates the job,
	// logged, surfaced as non-fatal (all components).
	KindInternalInvariant
)

func (k Kind) String() string {
	switch k {
	case KindFileNotFound:
		return "file_not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindReadFailed:
		return "read_failed"
	case KindDecodingLossy:
		return "decoding_lossy"
	case KindEncodingUnsupported:
		return "encoding_unsupported"
	case KindDegenerateLayout:
		return "degenerate_layout"
	case KindStoreBusy:
		return "store_busy"
	case KindStoreCorrupt:
		return "store_corrupt"
	case KindCancelled:
		return "cancelled"
	case KindInternalInvariant:
		return "internal_invariant"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error wraps an underlying cause with a Kind, the way the teacher wraps
// stdlib/third-party errors with fmt.Errorf("...: %w", err) but carries
// enough structure for errors.As-based dispatch at the worker boundary.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is classifies err as the given Kind, unwrapping through any wrapper chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Retryable reports whether the worker should retry the operation once
// before aborting the job (§7: presently only StoreBusy).
func Retryable(err error) bool {
	return Is(err, KindStoreBusy)
}

// Fatal reports whether the error should abort the current pagination job
// (everything except the two non-fatal diagnostics and Cancelled).
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case Is(err, KindDecodingLossy), Is(err, KindDegenerateLayout), Is(err, KindCancelled):
		return false
	default:
		return true
	}
}
