// Package common holds small cross-cutting types shared by the configuration,
// layout and session packages. Kept separate so that package layout mirrors
// typographic/runtime concerns without pulling session or store internals
// into config.
package common

// Theme selects the foreground colour used when building attributed text for
// both pagination and rendering (§4.8).
// ENUM(light, dark, sepia)
type Theme int

// FontFace is the fixed set of faces the reader offers, plus the platform
// default ("system"). Pagination and rendering must resolve the same face
// for the same UserSettings.
// ENUM(system, georgia, palatino, baskerville, menlo, helvetica, charter)
type FontFace int

// SepiaForeground is the fixed dark-brown triple used for the sepia theme.
var SepiaForeground = [3]uint8{0x5b, 0x40, 0x26}
