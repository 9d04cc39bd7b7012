//go:build cgo

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/idphoto-mcp/internal/geometry"
)

const backendName = "gosseract"

// Tesseract recognizes text with the native Tesseract engine.
//
// A fresh client is created for every pass, so a single Tesseract value can
// be shared across goroutines.
type Tesseract struct {
	language       string
	tessdataPrefix string
}

// NewTesseract creates a recognizer for the given Tesseract language code.
// tessdataPrefix may be empty to use the system's default training data.
//
// The engine is probed once on a blank image so that a missing library or
// language is reported here rather than on the first document.
func NewTesseract(language, tessdataPrefix string) (*Tesseract, error) {
	t := &Tesseract{language: language, tessdataPrefix: tessdataPrefix}

	probe := image.NewGray(image.Rect(0, 0, 8, 8))
	if _, err := t.Recognize(context.Background(), probe); err != nil {
		return nil, fmt.Errorf("tesseract unavailable for %q: %w", language, err)
	}
	return t, nil
}

func (t *Tesseract) newClient() (*gosseract.Client, error) {
	client := gosseract.NewClient()

	if t.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.tessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(t.language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	return client, nil
}

// Recognize performs OCR on an in-memory image.
//
// Word confidences are reported on Tesseract's native 0-100 scale. Words
// with empty text are dropped. If word-level boxes cannot be extracted the
// full text is still returned with no words.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	client, err := t.newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	result := &Result{FullText: text, Words: []Word{}}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return result, nil
	}
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		result.Words = append(result.Words, Word{
			Text:       word,
			Confidence: box.Confidence,
			Bounds:     geometry.FromImageRect(box.Box),
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Language returns the configured Tesseract language code.
func (t *Tesseract) Language() string {
	return t.language
}

// TesseractVersion returns the installed Tesseract version.
func TesseractVersion() (string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version(), nil
}

// GetOCRInfo returns information about OCR availability for a language.
func GetOCRInfo(language, tessdataPrefix string) Info {
	info := Info{
		Backend:      backendName,
		Language:     language,
		TessdataPath: tessdataPrefix,
	}

	if _, err := NewTesseract(language, tessdataPrefix); err != nil {
		info.Error = err.Error()
		return info
	}

	version, err := TesseractVersion()
	if err != nil {
		info.Error = err.Error()
		return info
	}

	info.Available = true
	info.Version = version
	return info
}
