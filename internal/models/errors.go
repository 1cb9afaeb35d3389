// ABOUTME: Failure kinds raised around the external collaborators and their user-facing warnings
// ABOUTME: Kinds double as keys into the persona's localized message table
package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a collaborator failure
type ErrorKind string

const (
	KindGenerationFailed           ErrorKind = "GENERATION_FAILED"
	KindSummarizationFailed        ErrorKind = "SUMMARIZATION_FAILED"
	KindSpeechSynthesisUnreachable ErrorKind = "TTS_CONNECTION_FAILED"
	KindSpeechSynthesisFailed      ErrorKind = "AUDIO_GENERATION_FAILED"
	KindSpeechShapeInvalid         ErrorKind = "INVALID_AUDIO_PATH"
	KindSpeechResourceMissing      ErrorKind = "AUDIO_PATH_NOT_FOUND"
	KindTranscriptionFailed        ErrorKind = "TRANSCRIPTION_FAILED"
	KindNoSpeechDetected           ErrorKind = "NO_SPEECH_DETECTED"
	KindTranslationFailed          ErrorKind = "TRANSLATION_FAILED"
)

// AllKinds lists every kind; the persona must carry a message for each
var AllKinds = []ErrorKind{
	KindGenerationFailed,
	KindSummarizationFailed,
	KindSpeechSynthesisUnreachable,
	KindSpeechSynthesisFailed,
	KindSpeechShapeInvalid,
	KindSpeechResourceMissing,
	KindTranscriptionFailed,
	KindNoSpeechDetected,
	KindTranslationFailed,
}

// Error wraps a collaborator failure with its kind
type Error struct {
	Kind ErrorKind
	Err  error
}

// NewError creates a kinded error
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the kind from an error chain, or "" if none
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Warning is a non-fatal, user-visible failure notice. Message holds only the
// localized text; raw diagnostics go to the log.
type Warning struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}
