// Package source implements SourceLoader (spec §4.1, C1): opening a book
// file as either a memory-mapped byte image or a streamed handle, depending
// on size, and nothing else. It never keeps process-wide state — every
// returned TextSource is scoped to whatever session opened it.
package source

import (
	"io"
	"os"

	"github.com/h2non/filetype"

	"pagereader/engerr"
	"pagereader/metrics"
)

// Variant tags which TextSource implementation was chosen.
type Variant int

const (
	VariantMapped Variant = iota
	VariantStreamed
)

// TextSource is the closed sum type described in spec §9: all downstream
// code pattern-matches on Variant() and never leaks the distinction past
// the loader and the encoding resolver.
type TextSource interface {
	Variant() Variant
	Size() int64
	// Bytes returns the full byte image. Only valid for VariantMapped;
	// callers must check Variant() first.
	Bytes() []byte
	// ReadAt reads len(buf) bytes starting at off, the way os.File.ReadAt
	// does, including its io.EOF contract on a short final read.
	ReadAt(buf []byte, off int64) (int, error)
	Close() error
}

// Diagnostics carries non-fatal observations made while opening a source.
type Diagnostics struct {
	// SniffedBinary is set when filetype.Match identifies the byte prefix
	// as a known binary container (zip, pdf, image, ...) despite the file
	// being opened as a plain-text book. The engine still attempts to
	// decode it — the import flow upstream is responsible for format
	// screening — but the UI may want to warn the user.
	SniffedBinary string
}

// Open opens path and returns a TextSource sized to fit the file: Mapped for
// anything strictly under metrics.MemoryMapThreshold, Streamed otherwise.
func Open(path string) (TextSource, Diagnostics, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Diagnostics{}, engerr.Wrap(engerr.KindFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, Diagnostics{}, engerr.Wrap(engerr.KindAccessDenied, path, err)
		}
		return nil, Diagnostics{}, engerr.Wrap(engerr.KindReadFailed, path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, Diagnostics{}, engerr.Wrap(engerr.KindReadFailed, path, err)
	}
	size := info.Size()

	var diag Diagnostics
	if head := make([]byte, 261); size > 0 {
		n, _ := f.ReadAt(head, 0)
		if n > 0 {
			if kind, err := filetype.Match(head[:n]); err == nil && kind != filetype.Unknown {
				diag.SniffedBinary = kind.MIME.Value
			}
		}
	}

	if size >= metrics.MemoryMapThreshold {
		ts := &streamedSource{file: f, size: size}
		return ts, diag, nil
	}

	data, closer, err := mmapFile(f, size)
	if err != nil {
		// Mapping can legitimately fail (e.g. zero-length files on some
		// platforms, or a filesystem that refuses mmap); fall back to a
		// streamed handle rather than failing the open outright.
		ts := &streamedSource{file: f, size: size}
		return ts, diag, nil
	}

	ms := &mappedSource{data: data, size: size, file: f, closer: closer}
	return ms, diag, nil
}

type mappedSource struct {
	data   []byte
	size   int64
	file   *os.File
	closer func() error
}

func (m *mappedSource) Variant() Variant { return VariantMapped }
func (m *mappedSource) Size() int64      { return m.size }
func (m *mappedSource) Bytes() []byte    { return m.data }

func (m *mappedSource) ReadAt(buf []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(buf, m.data[off:])
	if n < len(buf) {
		return n, io.EOF
	}
	return n, nil
}

func (m *mappedSource) Close() error {
	var err error
	if m.closer != nil {
		err = m.closer()
	}
	if cerr := m.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

type streamedSource struct {
	file *os.File
	size int64
}

func (s *streamedSource) Variant() Variant { return VariantStreamed }
func (s *streamedSource) Size() int64      { return s.size }

func (s *streamedSource) Bytes() []byte {
	panic("source: Bytes() called on a Streamed TextSource")
}

func (s *streamedSource) ReadAt(buf []byte, off int64) (int, error) {
	return s.file.ReadAt(buf, off)
}

func (s *streamedSource) Close() error {
	return s.file.Close()
}
