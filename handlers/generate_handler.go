package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/upb/imagegen-proxy/middleware"
	"github.com/upb/imagegen-proxy/services"
	"github.com/upb/imagegen-proxy/services/generate"
	"github.com/upb/imagegen-proxy/utils"
	"go.uber.org/zap"
)

// maxRequestBodyBytes bounds the inbound envelope; base64 images make up
// most of it.
const maxRequestBodyBytes = 32 << 20

// GenerateService defines the interface for image operations
type GenerateService interface {
	// Handle validates and runs a single operation
	Handle(ctx context.Context, req generate.OperationRequest) (*generate.Result, error)
}

// GenerateHandler handles the image operation endpoint
type GenerateHandler struct {
	service GenerateService
	logger  *zap.Logger
}

// NewGenerateHandler creates a new GenerateHandler
func NewGenerateHandler(service GenerateService, logger *zap.Logger) *GenerateHandler {
	return &GenerateHandler{
		service: service,
		logger:  logger,
	}
}

// HandleGenerate handles POST /generate. It is mounted for every method so
// that anything other than POST gets a 405 with an Allow header.
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	if r.Method != http.MethodPost {
		h.logger.Debug("method not allowed",
			zap.String("request_id", requestID),
			zap.String("method", r.Method))
		_ = utils.WriteMethodNotAllowed(w, r.Method, http.MethodPost)
		return
	}

	var req generate.OperationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, services.MsgInvalidRequestBody)
		return
	}
	req.RequestID = requestID

	result, err := h.service.Handle(ctx, req)
	if err != nil {
		HandleServiceError(w, err, h.logger.With(zap.String("request_id", requestID)))
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
