// Package ocr provides text recognition using Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2) behind the
// Recognizer interface. The orientation resolver only depends on the
// interface, so tests and alternative engines can supply their own.
//
// # Prerequisites
//
// Tesseract must be installed on the system and the binary built with cgo:
//   - Ubuntu/Debian: apt-get install tesseract-ocr libtesseract-dev
//   - macOS: brew install tesseract
//
// Language data files are required for each language:
//   - Ubuntu/Debian: apt-get install tesseract-ocr-eng (for English)
//   - Other languages: tesseract-ocr-<lang> packages
//
// Set IDPHOTO_TESSDATA_PREFIX to point at a non-standard tessdata directory.
//
// Without cgo, NewTesseract returns ErrUnavailable and GetOCRInfo reports the
// subsystem as unavailable.
//
// # Confidence
//
// Word confidences keep Tesseract's native 0-100 scale.
package ocr
