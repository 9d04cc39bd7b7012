package ocr

import (
	"context"
	"image"

	"github.com/ironsheep/idphoto-mcp/internal/geometry"
)

// Word is a single recognized word with its location and confidence.
type Word struct {
	// Text is the recognized word.
	Text string `json:"text"`

	// Confidence is the recognizer's confidence on a 0-100 scale.
	Confidence float64 `json:"confidence"`

	// Bounds is the word's bounding box in the recognized image.
	Bounds geometry.Rect `json:"bounds"`
}

// Result contains the output of one recognition pass.
type Result struct {
	// FullText is all recognized text with original spacing and newlines.
	FullText string `json:"full_text"`

	// Words contains the individual non-empty words.
	Words []Word `json:"words"`
}

// Recognizer extracts text from an image.
//
// Implementations must be safe for concurrent use. A Recognizer may not
// support cancellation mid-pass; callers should still pass a context so
// that a cancelled request fails before the next pass begins.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (*Result, error)
}

// Info contains information about the OCR subsystem.
type Info struct {
	Available    bool   `json:"available"`
	Version      string `json:"version,omitempty"`
	Error        string `json:"error,omitempty"`
	Backend      string `json:"backend"`
	Language     string `json:"language,omitempty"`
	TessdataPath string `json:"tessdata_path,omitempty"`
}
