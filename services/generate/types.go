package generate

import (
	"context"
	"encoding/json"

	"github.com/upb/imagegen-proxy/services/imaging"
)

// OperationKind names one of the supported operations
type OperationKind string

const (
	OperationTest             OperationKind = "test"
	OperationTextToImage      OperationKind = "text-to-image"
	OperationRemoveBackground OperationKind = "remove-bg"
	OperationEditImage        OperationKind = "edit-image"
)

// removeBackgroundPrompt replaces any caller prompt for remove-bg
const removeBackgroundPrompt = "remove background"

// OperationRequest is the inbound envelope. The payload stays raw on the
// wire so that its shape is only checked after the credential and the
// operation; Handle decodes RawPayload into Payload when it is set.
type OperationRequest struct {
	APIKey     string          `json:"apiKey" validate:"required"`
	Operation  OperationKind   `json:"operation" validate:"required,oneof=test text-to-image remove-bg edit-image"`
	RawPayload json.RawMessage `json:"payload,omitempty"`
	Payload    Payload         `json:"-"`

	// RequestID is set by the transport for log correlation
	RequestID string `json:"-"`
}

// Payload carries the operation arguments. Which fields matter depends on
// the operation; the rest are ignored.
type Payload struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt,omitempty"`
	Image  string `json:"image,omitempty"`
}

// Result is the operation-specific success body. Exactly one shape is
// populated per operation.
type Result struct {
	Status          string `json:"status,omitempty"`
	Message         string `json:"message,omitempty"`
	ImageURL        string `json:"imageUrl,omitempty"`
	ProductImageURL string `json:"productImageUrl,omitempty"`
	FinalImageURL   string `json:"finalImageUrl,omitempty"`
}

// ImageFetcher downloads a remote source image
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*imaging.Image, error)
}

// Options tunes the service
type Options struct {
	// MaxErrorMessageLength bounds provider text forwarded to callers, in runes
	MaxErrorMessageLength int
}

// DefaultMaxErrorMessageLength is used when Options leaves the limit unset
const DefaultMaxErrorMessageLength = 300
