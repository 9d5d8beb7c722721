package layout

import "unicode/utf16"

// ToUnits converts canonical UTF-8 text into the UTF-16 code-unit sequence
// that every engine index (startIndex, endIndex, currentCharacterIndex) is
// expressed in (spec §3, PageRange).
func ToUnits(text string) []uint16 {
	return utf16.Encode([]rune(text))
}

// SliceUnits returns the UTF-8 string for units[start:end], the inverse of
// ToUnits applied to a sub-range. Used wherever a PageRange's optional
// content is materialized from the canonical text.
func SliceUnits(units []uint16, start, end int) string {
	return string(utf16.Decode(units[start:end]))
}

// decodeRuneAt reads the rune beginning at units[i] and reports how many
// code units it occupies (1, or 2 for a surrogate pair). An unpaired
// surrogate is returned as its own code-unit value and consumes exactly 1 unit, so
// callers never need to special-case it to stay off a pair boundary.
func decodeRuneAt(units []uint16, i int) (rune, int) {
	u := units[i]
	if utf16.IsSurrogate(rune(u)) && i+1 < len(units) {
		if r := utf16.DecodeRune(rune(u), rune(units[i+1])); r != 0xFFFD {
			return r, 2
		}
	}
	return rune(u), 1
}
