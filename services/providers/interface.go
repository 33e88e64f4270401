package providers

import (
	"context"
	"time"
)

// ImageProvider represents an image-generation provider API
type ImageProvider interface {
	// Name returns the provider name (e.g., "aimlapi")
	Name() string

	// Generate sends a JSON request to the generations endpoint
	Generate(ctx context.Context, apiKey string, req *GenerationRequest) (*ImageResponse, error)

	// Edit sends an image edit request using the configured edit mode
	Edit(ctx context.Context, apiKey string, req *EditRequest) (*ImageResponse, error)

	// Probe issues a minimal generation request and only checks the status
	Probe(ctx context.Context, apiKey string) error
}

// GenerationRequest is the JSON body sent to the generations endpoint
type GenerationRequest struct {
	// Model identifier (e.g., "flux/schnell")
	Model string `json:"model"`

	// Prompt describing the image
	Prompt string `json:"prompt"`

	// Image is a data URL for image-conditioned operations
	Image string `json:"image,omitempty"`
}

// EditRequest describes an image edit. ImageData holds the decoded bytes
// and ImageMIME their media type; ImageDataURL is the same image rendered
// as a data URL for JSON mode.
type EditRequest struct {
	Model         string
	Prompt        string
	ImageData     []byte
	ImageMIME     string
	ImageFilename string
	ImageDataURL  string
}

// ImageResponse is the subset of a provider response the proxy relies on.
// Locator holds the first image reference found.
type ImageResponse struct {
	Locator    string
	StatusCode int
}

// EditMode selects how edit requests are sent to the provider
type EditMode string

const (
	// EditModeMultipart sends multipart/form-data to the edits endpoint
	EditModeMultipart EditMode = "multipart"

	// EditModeJSON sends JSON with a forced model to the generations endpoint
	EditModeJSON EditMode = "json"
)

// Valid reports whether m is a known edit mode
func (m EditMode) Valid() bool {
	return m == EditModeMultipart || m == EditModeJSON
}

// ProviderConfig holds common configuration for providers
type ProviderConfig struct {
	// BaseURL for the API (optional override)
	BaseURL string

	// GenerationsPath is appended to BaseURL for JSON requests
	GenerationsPath string

	// EditsPath is appended to BaseURL for multipart edit requests
	EditsPath string

	// Timeout for requests; zero leaves the transport default
	Timeout time.Duration

	// ProbeModel and ProbePrompt make up the connectivity test request
	ProbeModel  string
	ProbePrompt string

	// EditModel is forced in JSON edit mode and used as the multipart fallback
	EditModel string

	// EditMode selects the edit integration path
	EditMode EditMode

	// MaxResponseBytes bounds a provider response; larger bodies fail with
	// CodeResponseTooLarge
	MaxResponseBytes int64

	// Additional headers
	Headers map[string]string
}

// DefaultProviderConfig returns a sensible default configuration
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		GenerationsPath:  "/images/generations/",
		EditsPath:        "/images/edits",
		ProbeModel:       "flux/schnell",
		ProbePrompt:      "test connection",
		EditModel:        "openai/gpt-image-1",
		EditMode:         EditModeMultipart,
		MaxResponseBytes: 32 << 20,
		Headers:          make(map[string]string),
	}
}

// Provider error codes
const (
	CodeMarshalError   = "MARSHAL_ERROR"
	CodeRequestError   = "REQUEST_ERROR"
	CodeHTTPError      = "HTTP_ERROR"
	CodeReadError      = "READ_ERROR"
	CodeStatusError    = "STATUS_ERROR"
	CodeUnmarshalError = "UNMARSHAL_ERROR"
	CodeNoImage        = "NO_IMAGE"

	CodeResponseTooLarge = "RESPONSE_TOO_LARGE"
)

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is the error code
	Code string

	// Message is the provider's own error message, empty when it sent none
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	msg := e.Code
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}
