// Package errors defines the error taxonomy of the photo extraction pipeline.
//
// Every failure the pipeline can report carries an ErrorCode. None of them is
// fatal to the process: the caller always keeps a usable image (the original
// document or a partial result).
package errors

import (
	"fmt"
	"time"
)

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Input errors
	ErrorInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrorSelectionTooSmall ErrorCode = "SELECTION_TOO_SMALL"

	// Engine errors
	ErrorRecognitionFailure ErrorCode = "RECOGNITION_FAILURE"
	ErrorDetectionFailure   ErrorCode = "DETECTION_FAILURE"

	// Flow conditions
	ErrorNoCandidates      ErrorCode = "NO_CANDIDATES"
	ErrorInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrorNoHit             ErrorCode = "NO_HIT"
)

// ExtractionError represents a structured pipeline error.
type ExtractionError struct {
	Code      ErrorCode
	Message   string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Is matches any *ExtractionError with the same code, so callers can test
// against the package sentinels with errors.Is.
func (e *ExtractionError) Is(target error) bool {
	t, ok := target.(*ExtractionError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidInput       = &ExtractionError{Code: ErrorInvalidInput}
	ErrSelectionTooSmall  = &ExtractionError{Code: ErrorSelectionTooSmall}
	ErrRecognitionFailure = &ExtractionError{Code: ErrorRecognitionFailure}
	ErrDetectionFailure   = &ExtractionError{Code: ErrorDetectionFailure}
	ErrNoCandidates       = &ExtractionError{Code: ErrorNoCandidates}
	ErrInvalidTransition  = &ExtractionError{Code: ErrorInvalidTransition}
	ErrNoHit              = &ExtractionError{Code: ErrorNoHit}
)

// CodeOf returns the code of the first ExtractionError in err's chain, or ""
// if there is none.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if e, ok := err.(*ExtractionError); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// Factory functions for common errors

func NewInvalidInputError(message string, details map[string]interface{}) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorInvalidInput,
		Message:   message,
		Timestamp: time.Now(),
		Details:   details,
	}
}

func NewUnsupportedFormatError(mimeType string) *ExtractionError {
	return NewInvalidInputError(
		fmt.Sprintf("Unsupported file type: %s", mimeType),
		map[string]interface{}{"mime_type": mimeType},
	)
}

func NewRecognitionFailureError(angle int, cause error) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorRecognitionFailure,
		Message:   fmt.Sprintf("Text recognition failed during %d° trial", angle),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"angle": angle,
		},
		Cause: cause,
	}
}

func NewDetectionFailureError(region string, cause error) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorDetectionFailure,
		Message:   fmt.Sprintf("Region detection failed in %s", region),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"region": region,
		},
		Cause: cause,
	}
}

func NewNoCandidatesError() *ExtractionError {
	return &ExtractionError{
		Code:      ErrorNoCandidates,
		Message:   "No photo candidates found; rotate and retry or select manually",
		Timestamp: time.Now(),
	}
}

func NewSelectionTooSmallError(width, height, minSide int) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorSelectionTooSmall,
		Message:   fmt.Sprintf("Selection %dx%d too small, both sides must exceed %d px", width, height, minSide),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"width":    width,
			"height":   height,
			"min_side": minSide,
		},
	}
}

func NewInvalidTransitionError(action, mode string) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorInvalidTransition,
		Message:   fmt.Sprintf("Action %q not allowed in mode %s", action, mode),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"action": action,
			"mode":   mode,
		},
	}
}

func NewNoHitError(x, y float64) *ExtractionError {
	return &ExtractionError{
		Code:      ErrorNoHit,
		Message:   fmt.Sprintf("No candidate contains point (%.1f,%.1f)", x, y),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"x": x,
			"y": y,
		},
	}
}

// ToMap converts error to map for JSON tool responses
func (e *ExtractionError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
