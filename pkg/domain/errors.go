package domain

import (
	"errors"
	"fmt"
)

// Stable error codes surfaced to callers. Codes never change between
// releases; messages may.
const (
	CodeUnsupportedFormat      = "UNSUPPORTED_FORMAT"
	CodeEmptyContent           = "EMPTY_CONTENT"
	CodeLoaderFailure          = "LOADER_FAILURE"
	CodeEmbeddingUnavailable   = "EMBEDDING_UNAVAILABLE"
	CodeVectorStoreUnavailable = "VECTOR_STORE_UNAVAILABLE"
	CodeVectorStoreCorrupt     = "VECTOR_STORE_CORRUPT"
	CodeNotIndexed             = "NOT_INDEXED"
	CodeModelReturnedEmpty     = "MODEL_RETURNED_EMPTY"
	CodeAlreadyProcessed       = "ALREADY_PROCESSED"
	CodeCancelled              = "CANCELLED"
	CodeNotFound               = "NOT_FOUND"
)

var (
	ErrUnsupportedFormat      = &Error{Code: CodeUnsupportedFormat, Message: "unsupported document format"}
	ErrEmptyContent           = &Error{Code: CodeEmptyContent, Message: "document has no extractable content"}
	ErrLoaderFailure          = &Error{Code: CodeLoaderFailure, Message: "document loading failed"}
	ErrEmbeddingUnavailable   = &Error{Code: CodeEmbeddingUnavailable, Message: "embedding provider unavailable"}
	ErrVectorStoreUnavailable = &Error{Code: CodeVectorStoreUnavailable, Message: "vector store unavailable"}
	ErrVectorStoreCorrupt     = &Error{Code: CodeVectorStoreCorrupt, Message: "vector collection corrupt"}
	ErrNotIndexed             = &Error{Code: CodeNotIndexed, Message: "project has no indexed documents"}
	ErrModelReturnedEmpty     = &Error{Code: CodeModelReturnedEmpty, Message: "model returned empty response"}
	ErrAlreadyProcessed       = &Error{Code: CodeAlreadyProcessed, Message: "document already processed"}
	ErrCancelled              = &Error{Code: CodeCancelled, Message: "operation cancelled"}
	ErrNotFound               = &Error{Code: CodeNotFound, Message: "record not found"}
)

// Error carries a human-readable message and a stable code, optionally
// wrapping an underlying cause.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so wrapped errors compare equal
// to the package sentinels via errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WrapError attaches a cause to a sentinel without mutating it.
func WrapError(sentinel *Error, cause error) *Error {
	return &Error{Code: sentinel.Code, Message: sentinel.Message, Err: cause}
}

// WrapErrorf attaches a formatted message to a sentinel's code.
func WrapErrorf(sentinel *Error, format string, args ...any) *Error {
	return &Error{Code: sentinel.Code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the stable code of err, or empty when err carries none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
