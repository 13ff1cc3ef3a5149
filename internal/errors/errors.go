package errors

import (
	"errors"
	"fmt"
)

// DocragError is the structured error type for docrag.
// It provides rich context for error handling, logging, and user presentation.
type DocragError struct {
	// Code is the unique error code (e.g., "ERR_409_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *DocragError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DocragError) Unwrap() error {
	return e.Cause
}

// Is matches another DocragError by code, so errors.Is works against
// sentinel values built with New.
func (e *DocragError) Is(target error) bool {
	if t, ok := target.(*DocragError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *DocragError) WithDetail(key, value string) *DocragError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *DocragError) WithSuggestion(suggestion string) *DocragError {
	e.Suggestion = suggestion
	return e
}

// New creates a new DocragError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *DocragError {
	return &DocragError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a DocragError from an existing error.
func Wrap(code string, err error) *DocragError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// InputError reports a missing or invalid source.
func InputError(message string, cause error) *DocragError {
	return New(ErrCodeInvalidInput, message, cause)
}

// PersistenceError reports a storage read or write failure.
func PersistenceError(message string, cause error) *DocragError {
	return New(ErrCodePersistence, message, cause)
}

// ModelError reports a load, tokenize or inference failure in the embedder.
func ModelError(message string, cause error) *DocragError {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// NotReadyError reports indexing or search requested before the embedder is
// initialized.
func NotReadyError(message string) *DocragError {
	return New(ErrCodeNotReady, message, nil).
		WithSuggestion("Check the embedding model with: docrag model status")
}

// NotFoundError reports an operation referencing an unknown id.
func NotFoundError(kind, id string) *DocragError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found: %s", kind, id), nil).
		WithDetail(kind+"_id", id)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *DocragError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// NetworkError creates a network-related error. Network errors are retryable.
func NetworkError(message string, cause error) *DocragError {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *DocragError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first DocragError in err's chain.
func As(err error) (*DocragError, bool) {
	var de *DocragError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

func hasCode(err error, codes ...string) bool {
	de, ok := As(err)
	if !ok {
		return false
	}
	for _, c := range codes {
		if de.Code == c {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err references an unknown document or chunk.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsNotReady reports whether err is a not-ready embedder condition.
func IsNotReady(err error) bool {
	return hasCode(err, ErrCodeNotReady)
}

// IsInput reports whether err is caused by a missing or invalid source.
func IsInput(err error) bool {
	return hasCode(err, ErrCodeInvalidInput, ErrCodeUnsupportedType, ErrCodeInvalidPath,
		ErrCodeQueryEmpty, ErrCodeFileNotFound)
}

// IsPersistence reports whether err is a storage failure.
func IsPersistence(err error) bool {
	return hasCode(err, ErrCodePersistence, ErrCodeCorruptIndex)
}

// IsModel reports whether err comes from the embedding model.
func IsModel(err error) bool {
	return hasCode(err, ErrCodeEmbeddingFailed, ErrCodeModelLoad, ErrCodeDimensionMismatch)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	de, ok := As(err)
	return ok && de.Retryable
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	de, ok := As(err)
	return ok && de.Severity == SeverityFatal
}

// GetCode extracts the error code, or "" when err is not a DocragError.
func GetCode(err error) string {
	if de, ok := As(err); ok {
		return de.Code
	}
	return ""
}

// GetCategory extracts the category, or "" when err is not a DocragError.
func GetCategory(err error) Category {
	if de, ok := As(err); ok {
		return de.Category
	}
	return ""
}
