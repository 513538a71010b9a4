// Package fonts provides the metrics and encoders behind stamped text: the
// Helvetica pair of the standard 14 fonts and optionally an embedded
// TrueType face.
package fonts

import (
	"errors"

	"github.com/wudi/legalkit/ir/raw"
)

var ErrUnknownFont = errors.New("unknown standard font")

// Font measures and encodes text for one PDF font resource.
type Font interface {
	// Key identifies the font for sharing one dictionary per document.
	Key() string
	// Width returns the advance of text in glyph space (1/1000 em).
	Width(text string) (float64, error)
	// BBoxHeight is the font bounding box height in glyph space.
	BBoxHeight() float64
	// Encode converts text to the byte codes shown with Tj.
	Encode(text string) ([]byte, error)
	// TwoByte reports two-byte codes, written as hex strings.
	TwoByte() bool
	// Dict builds the font dictionary, storing auxiliary objects through add.
	Dict(add func(raw.Object) raw.RefObj) raw.Object
}

// Size converts a glyph-space measure to user space at fontSize.
func Size(glyphSpace, fontSize float64) float64 { return glyphSpace * fontSize / 1000 }
