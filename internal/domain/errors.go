package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors.
var (
	// ErrUnauthenticated is returned when no identity can be resolved for a request.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrMissingInput is returned when the request lacks a video URL.
	ErrMissingInput = errors.New("missing video URL")

	// ErrInsufficientCredits is returned when the ledger rejects a debit
	// because the balance would go negative.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrLedgerUnavailable is returned on transport or remote errors from the
	// credit ledger. Never to be confused with ErrInsufficientCredits.
	ErrLedgerUnavailable = errors.New("credit ledger unavailable")

	// ErrFetchFailed is returned when the media URL cannot be fetched.
	ErrFetchFailed = errors.New("media fetch failed")

	// ErrNotAVideo is returned when the fetched content is conclusively not a video.
	ErrNotAVideo = errors.New("content is not a video")

	// ErrPayloadTooLarge is returned when the media exceeds the hard size ceiling.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrUploadStartFailed is returned when the provider does not hand back a
	// usable resumable upload session.
	ErrUploadStartFailed = errors.New("upload session start failed")

	// ErrUploadFinalizeFailed is returned when finalizing an upload yields no
	// usable media handle.
	ErrUploadFinalizeFailed = errors.New("upload finalize failed")

	// ErrMediaNotReady is returned when uploaded media never reaches the
	// ACTIVE state within the poll ceiling, or transitions to FAILED.
	ErrMediaNotReady = errors.New("uploaded media not ready")

	// ErrInferenceFailed is returned when the generate call fails or yields
	// no usable text.
	ErrInferenceFailed = errors.New("inference failed")
)

// FetchError carries the HTTP status of a failed media fetch.
type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return ErrFetchFailed }

// NotAVideoError carries the declared content type that was rejected.
type NotAVideoError struct {
	Declared string
}

func (e *NotAVideoError) Error() string {
	return fmt.Sprintf("content type %q is not a video", e.Declared)
}

func (e *NotAVideoError) Unwrap() error { return ErrNotAVideo }

// InferenceError preserves the provider's status and error body for diagnosis.
type InferenceError struct {
	Model  string
	Status int
	Body   string
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference with %s failed (status %d): %s", e.Model, e.Status, e.Body)
}

func (e *InferenceError) Unwrap() error { return ErrInferenceFailed }

// ConfigError enumerates every missing required configuration variable.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing required configuration: " + strings.Join(e.Missing, ", ")
}
