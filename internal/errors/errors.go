package errors

import (
	stderrors "errors"
	"fmt"

	"mhtsim/domain/core"
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

// Wrap wraps an error with additional context, keeping the code of the
// innermost AppError when there is one.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
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
	var appErr *AppError
	if stderrors.As(err, &appErr) {
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

// IsAppError checks if an error is (or wraps) an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the error code of the outermost AppError, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid        = "CONFIG_INVALID"
	CodeInternalError        = "INTERNAL_ERROR"
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"
	CodeUnsupportedPattern   = "UNSUPPORTED_PATTERN"
	CodeUnknownMethod        = "UNKNOWN_METHOD"
	CodeWorkerFailure        = "WORKER_FAILURE"
	CodeExternalService      = "EXTERNAL_SERVICE_ERROR"
)

// ConfigInvalid reports a configuration source that could not be read or parsed.
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

// InvalidConfiguration reports an out-of-range M, π0, α, N or effect size.
func InvalidConfiguration(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    CodeInvalidConfiguration,
		Message: fmt.Sprintf(format, args...),
		Cause:   core.ErrInvalidConfiguration,
	}
}

// UnsupportedPattern reports an effect-size layout other than "equal".
func UnsupportedPattern(pattern string) *AppError {
	return &AppError{
		Code:    CodeUnsupportedPattern,
		Message: fmt.Sprintf("effect pattern %q", pattern),
		Cause:   core.ErrUnsupportedPattern,
	}
}

// UnknownMethod reports a correction procedure name that is not recognized.
func UnknownMethod(name string) *AppError {
	return &AppError{
		Code:    CodeUnknownMethod,
		Message: fmt.Sprintf("method %q", name),
		Cause:   core.ErrUnknownMethod,
	}
}

// WorkerFailure attaches the failing block's description to the original error.
func WorkerFailure(block string, cause error) *AppError {
	return &AppError{
		Code:    CodeWorkerFailure,
		Message: fmt.Sprintf("block %s", block),
		Cause:   fmt.Errorf("%w: %w", core.ErrWorkerFailure, cause),
	}
}

func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code:    CodeExternalService,
		Message: fmt.Sprintf("%s service error", service),
		Cause:   cause,
	}
}
