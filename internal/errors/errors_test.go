package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestExtractionError_Is(t *testing.T) {
	err := NewSelectionTooSmallError(15, 15, 20)

	if !stderrors.Is(err, ErrSelectionTooSmall) {
		t.Error("errors.Is should match ErrSelectionTooSmall")
	}
	if stderrors.Is(err, ErrInvalidInput) {
		t.Error("errors.Is should not match a different code")
	}

	wrapped := fmt.Errorf("manual crop: %w", err)
	if !stderrors.Is(wrapped, ErrSelectionTooSmall) {
		t.Error("errors.Is should see through fmt.Errorf wrapping")
	}
}

func TestExtractionError_Unwrap(t *testing.T) {
	cause := stderrors.New("engine crashed")
	err := NewRecognitionFailureError(90, cause)

	if !stderrors.Is(err, cause) {
		t.Error("Unwrap should expose the cause")
	}
	if got := err.Error(); got != "RECOGNITION_FAILURE: Text recognition failed during 90° trial (caused by: engine crashed)" {
		t.Errorf("Error(): got %q", got)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"plain", stderrors.New("x"), ""},
		{"direct", NewNoCandidatesError(), ErrorNoCandidates},
		{"wrapped", fmt.Errorf("ctx: %w", NewDetectionFailureError("left-half", nil)), ErrorDetectionFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractionError_ToMap(t *testing.T) {
	err := NewUnsupportedFormatError("text/plain")
	m := err.ToMap()

	if m["error_code"] != "INVALID_INPUT" {
		t.Errorf("error_code: got %v", m["error_code"])
	}
	if m["mime_type"] != "text/plain" {
		t.Errorf("mime_type: got %v", m["mime_type"])
	}
	if _, ok := m["cause"]; ok {
		t.Error("cause should be absent when there is no cause")
	}
}
