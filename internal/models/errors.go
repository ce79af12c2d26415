package models

import (
	"errors"
	"fmt"
)

// ErrIndexUnavailable means a query arrived before the knowledge base
// was initialized.
var ErrIndexUnavailable = errors.New("knowledge base not initialized, run ingestion first")

// ErrEmbedderMismatch means the persisted index was built with a
// different embedding function than the one configured now. Mixing
// embedding spaces silently corrupts similarity scores, so the store
// refuses to open.
var ErrEmbedderMismatch = errors.New("index was built with a different embedding function")

// IngestionError records one unreadable or corrupt document. It never
// aborts the ingestion run; the orchestrator aggregates these.
type IngestionError struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

func (e IngestionError) Error() string {
	return fmt.Sprintf("ingestion of %s failed: %s", e.Source, e.Reason)
}

// GeneratorErrorKind splits backend failures into retryable and not.
type GeneratorErrorKind string

const (
	// GeneratorTransient covers rate limits, timeouts and 5xx
	// responses; the client retries these with backoff.
	GeneratorTransient GeneratorErrorKind = "transient"
	// GeneratorFatal covers auth, quota and malformed-request
	// failures; retrying cannot succeed.
	GeneratorFatal GeneratorErrorKind = "fatal"
)

// GeneratorError wraps a backend failure with its retry class.
type GeneratorError struct {
	Kind GeneratorErrorKind
	Err  error
}

func (e *GeneratorError) Error() string {
	return fmt.Sprintf("generator %s error: %v", e.Kind, e.Err)
}

func (e *GeneratorError) Unwrap() error { return e.Err }

// ConfigurationError blocks startup; it is never surfaced per query.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}
