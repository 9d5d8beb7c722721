// Package textenc implements EncodingResolver (spec §4.2, C2): detect or
// accept a character encoding for a book's raw bytes and produce canonical
// decoded text. Modeled on the teacher's own use of
// golang.org/x/text/encoding/ianaindex to resolve a named encoding
// (convert/run.go's "-force-zip-cp" handling), generalized into a full
// detection chain.
package textenc

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"

	"pagereader/engerr"
)

// Result is EncodingResolver's output: the canonical decoded text plus the
// name of the encoding that produced it.
type Result struct {
	Text          string
	EncodingName  string
	Lossy         bool
	DiagnosticErr error // non-nil only when Lossy, carries engerr.KindDecodingLossy
}

type candidate struct {
	name string
	enc  encoding.Encoding
}

// chain is tried in order; the first candidate that decodes the full byte
// stream without inserting replacement characters wins (spec §4.2). The
// utf-16 candidate is tried only when the input starts with a byte order
// mark.
var chain = []candidate{
	{"utf-8", encoding.Nop}, // handled specially: validated, not transcoded
	{"utf-16", unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)},
	{"windows-1252", charmap.Windows1252},
	{"iso-8859-1", charmap.ISO8859_1},
	{"gb18030", simplifiedchinese.GB18030},
	{"big5", traditionalchinese.Big5},
	{"shift-jis", japanese.ShiftJIS},
	{"euc-jp", japanese.EUCJP},
}

// Resolve decodes raw bytes into canonical text. priorEncoding, if non-empty,
// short-circuits the chain and is tried first (e.g. a previously persisted
// Book.encodingName) before falling back to full detection if it fails.
func Resolve(raw []byte, priorEncoding string) (Result, error) {
	if len(raw) == 0 {
		return Result{Text: "", EncodingName: "utf-8"}, nil
	}

	if priorEncoding != "" {
		if r, ok := tryNamed(raw, priorEncoding); ok {
			return r, nil
		}
	}

	for _, c := range chain {
		if c.name == "utf-8" {
			if utf8.Valid(raw) {
				return Result{Text: string(raw), EncodingName: "utf-8"}, nil
			}
			continue
		}
		if c.name == "utf-16" && !bytes.HasPrefix(raw, []byte{0xFF, 0xFE}) && !bytes.HasPrefix(raw, []byte{0xFE, 0xFF}) {
			continue
		}
		decoded, ok := tryDecode(raw, c.enc)
		if ok {
			return Result{Text: decoded, EncodingName: c.name}, nil
		}
	}

	// Nothing decoded losslessly: fall back to UTF-8 with replacement,
	// flagged as a non-fatal diagnostic (spec §4.2).
	text := string(bytes.ToValidUTF8(raw, string(utf8.RuneError)))
	return Result{
		Text:          text,
		EncodingName:  "utf-8",
		Lossy:         true,
		DiagnosticErr: engerr.New(engerr.KindDecodingLossy, "no candidate encoding decoded losslessly; used UTF-8 with replacement"),
	}, nil
}

// Override forces a specific IANA-named encoding, bypassing detection
// entirely. It is the engine operation behind
// ReaderSession.overrideEncoding (§6.3).
func Override(raw []byte, name string) (Result, error) {
	if r, ok := tryNamed(raw, name); ok {
		return r, nil
	}
	return Result{}, engerr.New(engerr.KindEncodingUnsupported, fmt.Sprintf("unknown or non-decoding character set %q", name))
}

func tryNamed(raw []byte, name string) (Result, bool) {
	if name == "utf-8" {
		if utf8.Valid(raw) {
			return Result{Text: string(raw), EncodingName: "utf-8"}, true
		}
		return Result{}, false
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return Result{}, false
	}
	decoded, err := enc.NewDecoder().String(string(raw))
	if err != nil {
		return Result{}, false
	}
	if n, _ := ianaindex.IANA.Name(enc); n != "" {
		name = n
	}
	return Result{Text: decoded, EncodingName: name}, true
}

// tryDecode reports ok=false if decoding failed outright or inserted any
// replacement characters (spec §4.2: "decodes the full byte stream without
// replacement-character insertion").
func tryDecode(raw []byte, enc encoding.Encoding) (string, bool) {
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", false
	}
	return string(decoded), true
}

// CanonicalName resolves an arbitrary user-supplied encoding label (as
// accepted by ReaderSession.overrideEncoding) to the name IANA prefers, so
// that the settings fingerprint is stable regardless of which alias the
// caller used ("shift_jis" vs "shift-jis").
func CanonicalName(name string) (string, error) {
	if name == "utf-8" || name == "" {
		return "utf-8", nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return "", engerr.New(engerr.KindEncodingUnsupported, fmt.Sprintf("unknown character set %q", name))
	}
	n, err := ianaindex.IANA.Name(enc)
	if err != nil || n == "" {
		return name, nil
	}
	return n, nil
}
