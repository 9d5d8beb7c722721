// Package book implements the Book value (spec §3): the immutable
// identity a ReaderSession is opened against, derived once from a
// SourceLoader/EncodingResolver pass over a file on disk.
package book

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	"github.com/google/uuid"

	"pagereader/engerr"
	"pagereader/source"
	"pagereader/textenc"
)

// Book is the value described in spec §3: identity across settings changes
// is ContentHash, never ID — ID only distinguishes two LocalEnv-scoped
// opens of the same file from each other (e.g. for debug-report naming).
type Book struct {
	ID           string
	Title        string
	FileURL      string
	ContentHash  string
	FileSize     int64
	EncodingName string

	// CanonicalText is the decoded text EncodingResolver produced; not part
	// of spec §3's Book value proper, but every caller needs it immediately
	// after Open, so it travels with the rest.
	CanonicalText string
	Lossy         bool
}

// Open loads path via source.Open, decodes it via textenc.Resolve and
// returns the resulting Book. priorEncoding, when non-empty, is tried first
// (a previously persisted Book.EncodingName from an earlier session).
func Open(path string, priorEncoding string) (Book, error) {
	src, _, err := source.Open(path)
	if err != nil {
		return Book{}, err
	}
	defer src.Close()

	raw, err := readAll(src)
	if err != nil {
		return Book{}, err
	}

	res, err := textenc.Resolve(raw, priorEncoding)
	if err != nil {
		return Book{}, err
	}

	return Book{
		ID:            uuid.NewString(),
		Title:         filepath.Base(path),
		FileURL:       path,
		ContentHash:   contentHash(raw),
		FileSize:      src.Size(),
		EncodingName:  res.EncodingName,
		CanonicalText: res.Text,
		Lossy:         res.Lossy,
	}, nil
}

// contentHash is the 32-byte sha256 digest of the raw bytes (hex-encoded),
// used as the cache store's book_hash and as the settings fingerprint's
// contentHash component (spec §3, §6.2). The digest size is load-bearing:
// book_hash keys every row in the cache, so a narrower hash would weaken
// the whole store's collision resistance.
func contentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func readAll(src source.TextSource) ([]byte, error) {
	if src.Variant() == source.VariantMapped {
		return src.Bytes(), nil
	}
	buf := make([]byte, src.Size())
	off := int64(0)
	for off < int64(len(buf)) {
		n, err := src.ReadAt(buf[off:], off)
		off += int64(n)
		if err != nil {
			if off >= int64(len(buf)) {
				break
			}
			return nil, engerr.Wrap(engerr.KindReadFailed, "read book", err)
		}
	}
	return buf, nil
}
