package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType identifies the failure kind carried by a DomainError.
type ErrorType string

const (
	ErrorTypeUnsupportedFormat ErrorType = "unsupported_format"
	ErrorTypeSourceNotFound    ErrorType = "source_not_found"
	ErrorTypeConversionFailed  ErrorType = "document_conversion_failed"
	ErrorTypeOpenFailed        ErrorType = "document_open_failed"
	ErrorTypeExpansionFailed   ErrorType = "expansion_failed"
	ErrorTypeSynthesisFailed   ErrorType = "synthesis_failed"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeConfig            ErrorType = "config"
	ErrorTypeIO                ErrorType = "io"
	ErrorTypeInternal          ErrorType = "internal"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type       ErrorType
	Message    string
	PageNumber int // 0 when the failure is not tied to a page
	Err        error
}

func (e *DomainError) Error() string {
	msg := e.Message
	if e.PageNumber > 0 {
		msg = fmt.Sprintf("page %d: %s", e.PageNumber, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// ForPage returns a copy of the error tagged with a page number.
func (e *DomainError) ForPage(pageNumber int) *DomainError {
	cp := *e
	cp.PageNumber = pageNumber
	return &cp
}

// Common error constructors
func UnsupportedFormatError(message string, err error) *DomainError {
	return NewError(ErrorTypeUnsupportedFormat, message, err)
}

func SourceNotFoundError(message string, err error) *DomainError {
	return NewError(ErrorTypeSourceNotFound, message, err)
}

func ConversionError(message string, err error) *DomainError {
	return NewError(ErrorTypeConversionFailed, message, err)
}

func OpenError(message string, err error) *DomainError {
	return NewError(ErrorTypeOpenFailed, message, err)
}

func ExpansionError(message string, err error) *DomainError {
	return NewError(ErrorTypeExpansionFailed, message, err)
}

func SynthesisError(message string, err error) *DomainError {
	return NewError(ErrorTypeSynthesisFailed, message, err)
}

func TimeoutError(message string, err error) *DomainError {
	return NewError(ErrorTypeTimeout, message, err)
}

func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

// InternalError reports a broken pipeline invariant, never a caller mistake.
func InternalError(message string, err error) *DomainError {
	return NewError(ErrorTypeInternal, message, err)
}

// KindOf returns the type of the outermost DomainError in err's chain, or "" if none.
func KindOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorType) bool {
	return KindOf(err) == kind
}

// IsClientError reports whether err was caused by caller input rather than the pipeline.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case ErrorTypeUnsupportedFormat, ErrorTypeSourceNotFound, ErrorTypeValidation:
		return true
	}
	return false
}

// AsTimeout rewrites a deadline expiry into a timeout DomainError. Other errors are returned as-is.
func AsTimeout(err error, message string) error {
	if err == nil || IsKind(err, ErrorTypeTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		te := TimeoutError(message, err)
		var de *DomainError
		if errors.As(err, &de) {
			te.PageNumber = de.PageNumber
		}
		return te
	}
	return err
}
