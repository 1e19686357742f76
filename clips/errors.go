// Package clips defines the error taxonomy for the concatenation
// pipeline. Every stage failure is wrapped in a typed error carrying the
// stage name and, where applicable, the offending clip, so callers can
// tell exactly what broke from the response alone.
package clips

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds, used as the machine-readable "kind" field in error
// responses.
const (
	KindValidation = "validation_error"
	KindFetch      = "fetch_error"
	KindProbe      = "probe_error"
	KindTranscode  = "transcode_error"
	KindConcat     = "concat_error"
	KindUpload     = "upload_error"
	KindInternal   = "internal_error"
)

// ValidationError rejects a malformed request before any resource is
// committed.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return e.Detail }

// StageError is a failure in one pipeline stage. ClipIndex and Source
// are set for per-clip stages (fetch, probe, normalize) and left zero
// valued for job-wide stages (concat, upload).
type StageError struct {
	Kind      string
	ClipIndex int
	Source    string
	Err       error
}

func (e *StageError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: clip %d (%s): %v", e.Kind, e.ClipIndex, e.Source, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewFetchError wraps a download failure for one clip.
func NewFetchError(index int, source string, err error) error {
	return &StageError{Kind: KindFetch, ClipIndex: index, Source: source, Err: err}
}

// NewProbeError wraps an unreadable or invalid media file.
func NewProbeError(index int, source string, err error) error {
	return &StageError{Kind: KindProbe, ClipIndex: index, Source: source, Err: err}
}

// NewTranscodeError wraps a normalization engine failure.
func NewTranscodeError(index int, source string, err error) error {
	return &StageError{Kind: KindTranscode, ClipIndex: index, Source: source, Err: err}
}

// NewConcatError wraps a failure of the merge step.
func NewConcatError(err error) error {
	return &StageError{Kind: KindConcat, Err: err}
}

// NewUploadError wraps a destination transfer failure. Upload errors are
// reported in-band and never fail a job whose artifact was produced.
func NewUploadError(err error) error {
	return &StageError{Kind: KindUpload, Err: err}
}

// Classify maps an error to its kind and the HTTP status the caller
// should receive. Unrecognized errors are internal.
func Classify(err error) (kind string, status int) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindValidation, http.StatusBadRequest
	}

	var se *StageError
	if errors.As(err, &se) {
		switch se.Kind {
		case KindFetch:
			return KindFetch, http.StatusBadGateway
		case KindProbe:
			return KindProbe, http.StatusUnprocessableEntity
		case KindTranscode, KindConcat:
			return se.Kind, http.StatusInternalServerError
		case KindUpload:
			return KindUpload, http.StatusBadGateway
		}
	}

	return KindInternal, http.StatusInternalServerError
}
