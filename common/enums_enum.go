// Code generated by go-enum is normally produced from the ENUM(...) comments
// in enums.go. The generator is not run in this environment, so this file is
// hand-authored in the shape go-enum emits: String/IsValid/Names/Parse/MustParse plus
// MarshalText/UnmarshalText for YAML round-tripping through gencfg.

package common

import "fmt"

const (
	ThemeLight Theme = iota
	ThemeDark
	ThemeSepia
)

var themeNames = [...]string{"light", "dark", "sepia"}

func (t Theme) String() string {
	if t < 0 || int(t) >= len(themeNames) {
		return fmt.Sprintf("Theme(%d)", int(t))
	}
	return themeNames[t]
}

func (t Theme) IsValid() bool {
	return t >= 0 && int(t) < len(themeNames)
}

func ThemeNames() []string {
	out := make([]string, len(themeNames))
	copy(out, themeNames[:])
	return out
}

func ParseTheme(s string) (Theme, error) {
	for i, n := range themeNames {
		if n == s {
			return Theme(i), nil
		}
	}
	return 0, fmt.Errorf("%q is not a valid Theme, try one of: %v", s, themeNames)
}

func MustParseTheme(s string) Theme {
	t, err := ParseTheme(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Theme) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("jsonValue.MarshalText: %v is not a valid Theme", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Theme) UnmarshalText(text []byte) error {
	v, err := ParseTheme(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

const (
	FontFaceSystem FontFace = iota
	FontFaceGeorgia
	FontFacePalatino
	FontFaceBaskerville
	FontFaceMenlo
	FontFaceHelvetica
	FontFaceCharter
)

var fontFaceNames = [...]string{"system", "georgia", "palatino", "baskerville", "menlo", "helvetica", "charter"}

func (f FontFace) String() string {
	if f < 0 || int(f) >= len(fontFaceNames) {
		return fmt.Sprintf("FontFace(%d)", int(f))
	}
	return fontFaceNames[f]
}

func (f FontFace) IsValid() bool {
	return f >= 0 && int(f) < len(fontFaceNames)
}

func FontFaceNames() []string {
	out := make([]string, len(fontFaceNames))
	copy(out, fontFaceNames[:])
	return out
}

func ParseFontFace(s string) (FontFace, error) {
	for i, n := range fontFaceNames {
		if n == s {
			return FontFace(i), nil
		}
	}
	return 0, fmt.Errorf("%q is not a valid FontFace, try one of: %v", s, fontFaceNames)
}

func MustParseFontFace(s string) FontFace {
	f, err := ParseFontFace(s)
	if err != nil {
		panic(err)
	}
	return f
}

func (f FontFace) MarshalText() ([]byte, error) {
	if !f.IsValid() {
		return nil, fmt.Errorf("jsonValue.MarshalText: %v is not a valid FontFace", int(f))
	}
	return []byte(f.String()), nil
}

func (f *FontFace) UnmarshalText(text []byte) error {
	v, err := ParseFontFace(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
