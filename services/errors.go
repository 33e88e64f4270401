package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeMissingCredential     ErrorType = "missing_credential"
	ErrorTypeUnknownOperation      ErrorType = "unknown_operation"
	ErrorTypeInvalidRequest        ErrorType = "invalid_request"
	ErrorTypeConnectionFailed      ErrorType = "connection_failed"
	ErrorTypeImageDownloadFailed   ErrorType = "image_download_failed"
	ErrorTypeUpstreamRequestFailed ErrorType = "upstream_request_failed"
	ErrorTypeMissingImageReference ErrorType = "missing_image_reference"
	ErrorTypeInvalidImageData      ErrorType = "invalid_image_data"
	ErrorTypeInternal              ErrorType = "internal"
)

// DomainError represents a structured error with additional context.
// Message is safe to show to the caller; Err is the underlying cause and is
// only meant for server-side logs.
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Caller-facing messages
const (
	MsgMissingCredential        = "Missing API Key."
	MsgUnknownOperation         = "Unknown operation."
	MsgInvalidRequestBody       = "Invalid request body."
	MsgConnectionFailed         = "Connection failed: the API key may be invalid."
	MsgConnectionOK             = "Connection successful."
	MsgImageDownloadFailed      = "Failed to download the source image."
	MsgUpstreamRequestFailed    = "Request to the image provider failed."
	MsgInvalidUpstreamBody      = "Invalid response from the image provider."
	MsgUpstreamResponseTooLarge = "Response from the image provider exceeds the size limit."
	MsgMissingImageReference    = "No image URL found in the provider response."
	MsgMissingImage             = "An image is required for this operation."
	MsgInvalidImageData         = "Image data is not valid base64."
	MsgInternal                 = "An internal error occurred."
)

// Domain error variables. These are sentinels for errors.Is; construct new
// errors with NewDomainError when a cause or a specific message is needed.
var (
	ErrMissingCredential     = NewDomainError(ErrorTypeMissingCredential, MsgMissingCredential, nil)
	ErrUnknownOperation      = NewDomainError(ErrorTypeUnknownOperation, MsgUnknownOperation, nil)
	ErrInvalidRequest        = NewDomainError(ErrorTypeInvalidRequest, MsgInvalidRequestBody, nil)
	ErrConnectionFailed      = NewDomainError(ErrorTypeConnectionFailed, MsgConnectionFailed, nil)
	ErrImageDownloadFailed   = NewDomainError(ErrorTypeImageDownloadFailed, MsgImageDownloadFailed, nil)
	ErrUpstreamRequestFailed = NewDomainError(ErrorTypeUpstreamRequestFailed, MsgUpstreamRequestFailed, nil)
	ErrMissingImageReference = NewDomainError(ErrorTypeMissingImageReference, MsgMissingImageReference, nil)
	ErrInvalidImageData      = NewDomainError(ErrorTypeInvalidImageData, MsgInvalidImageData, nil)
	ErrInternal              = NewDomainError(ErrorTypeInternal, MsgInternal, nil)
)

// Error type checking helper functions

func isType(err error, errType ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == errType
	}
	return false
}

// IsMissingCredentialError checks if an error is a missing credential error
func IsMissingCredentialError(err error) bool {
	return isType(err, ErrorTypeMissingCredential)
}

// IsUnknownOperationError checks if an error is an unknown operation error
func IsUnknownOperationError(err error) bool {
	return isType(err, ErrorTypeUnknownOperation)
}

// IsInvalidRequestError checks if an error is a malformed request error
func IsInvalidRequestError(err error) bool {
	return isType(err, ErrorTypeInvalidRequest)
}

// IsClientError reports whether err was caused by the shape of the inbound
// request rather than by the provider or the service itself.
func IsClientError(err error) bool {
	return IsMissingCredentialError(err) || IsUnknownOperationError(err) || IsInvalidRequestError(err)
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorMessage returns the caller-facing message of a domain error, or
// the generic internal message for anything else.
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	return MsgInternal
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
