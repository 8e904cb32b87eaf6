package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a benchmark failure. Each kind is itself an error so
// it can be used as a sentinel with errors.Is.
type ErrorKind string

const (
	// ManifestUnreachable means the manifest could not be fetched.
	ManifestUnreachable ErrorKind = "ManifestUnreachable"

	// ManifestMalformed means the manifest is not JSON or its modules field is
	// missing, not a list, or holds non-string entries.
	ManifestMalformed ErrorKind = "ManifestMalformed"

	// ManifestModulesEmpty means the manifest lists no modules.
	ManifestModulesEmpty ErrorKind = "ManifestModulesEmpty"

	// ModuleFetchError means every attempt to fetch a module failed.
	ModuleFetchError ErrorKind = "ModuleFetchError"

	// ModuleStructureInvalid means a module payload is not an array of records
	// terminated by a checksum object.
	ModuleStructureInvalid ErrorKind = "ModuleStructureInvalid"

	// ModuleChecksumMismatch means the declared checksum differs from the
	// computed one. It is a warning; the records remain usable.
	ModuleChecksumMismatch ErrorKind = "ModuleChecksumMismatch"

	// ModuleSubjectUrlInconsistent means the records of a module do not agree
	// on the page they describe.
	ModuleSubjectUrlInconsistent ErrorKind = "ModuleSubjectUrlInconsistent" //nolint:revive // taxonomy name

	// PageExtractionError means the reference extraction of a page failed.
	PageExtractionError ErrorKind = "PageExtractionError"

	// RequestTimeout means the final attempt of a request ran out of time.
	RequestTimeout ErrorKind = "RequestTimeout"
)

// Error implements error.
func (k ErrorKind) Error() string {
	return string(k)
}

// Fatal reports whether the kind aborts the whole benchmark.
func (k ErrorKind) Fatal() bool {
	switch k {
	case ManifestUnreachable, ManifestMalformed, ManifestModulesEmpty:
		return true
	default:
		return false
	}
}

// BenchError is a classified failure attached to a result slot or to the
// result itself.
type BenchError struct {
	Kind    ErrorKind `json:"kind"`
	URL     string    `json:"url,omitempty"`
	Message string    `json:"message"`

	cause error
}

// NewBenchError creates a BenchError. The message is taken from cause when
// msg is empty.
func NewBenchError(kind ErrorKind, url, msg string, cause error) *BenchError {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &BenchError{Kind: kind, URL: url, Message: msg, cause: cause}
}

// Error implements error.
func (e *BenchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.URL == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.URL, e.Message)
}

// WithURL returns a copy of e attributed to url.
func (e *BenchError) WithURL(url string) *BenchError {
	c := *e
	c.URL = url
	return &c
}

// Unwrap exposes both the kind and the underlying cause.
func (e *BenchError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.cause}
}

// AsBenchError returns err as a *BenchError, classifying it as kind when it
// is not one already.
func AsBenchError(err error, kind ErrorKind, url string) *BenchError {
	if err == nil {
		return nil
	}
	var be *BenchError
	if errors.As(err, &be) {
		return be
	}
	return NewBenchError(kind, url, "", err)
}
