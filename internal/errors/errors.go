package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"gocohort/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the outermost AppError in the chain, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeValidationError  = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeMalformedFeature = "MALFORMED_FEATURE"
	CodeClusteringFailed = "CLUSTERING_FAILED"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

// FromDomain classifies an engine error into an AppError, keeping the
// original as the cause. AppErrors pass through unchanged.
func FromDomain(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	return &AppError{Code: classify(err), Message: err.Error(), Cause: err}
}

func classify(err error) string {
	switch {
	case stderrors.Is(err, core.ErrNotFound),
		stderrors.Is(err, core.ErrRunNotFound),
		stderrors.Is(err, core.ErrCohortNotFound),
		stderrors.Is(err, core.ErrActorNotFound):
		return CodeNotFound
	case stderrors.Is(err, core.ErrInsufficientData):
		return CodeInsufficientData
	case stderrors.Is(err, core.ErrMalformedFeature),
		stderrors.Is(err, core.ErrDimensionMismatch):
		return CodeMalformedFeature
	case stderrors.Is(err, core.ErrUnknownAlgorithm),
		stderrors.Is(err, core.ErrUnknownMethod),
		stderrors.Is(err, core.ErrInvalidParameter),
		stderrors.Is(err, core.ErrNoFeatures):
		return CodeInvalidInput
	case stderrors.Is(err, core.ErrAllAlgorithmsFailed),
		stderrors.Is(err, core.ErrNoCohorts):
		return CodeClusteringFailed
	case stderrors.Is(err, core.ErrPersistence):
		return CodeDatabaseError
	default:
		return CodeInternalError
	}
}

// HTTPStatus maps an error code to a response status.
func HTTPStatus(err error) int {
	switch GetCode(FromDomain(err)) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInput, CodeValidationError, CodeMalformedFeature:
		return http.StatusBadRequest
	case CodeInsufficientData, CodeClusteringFailed:
		return http.StatusUnprocessableEntity
	case CodeDatabaseError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
