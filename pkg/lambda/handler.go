// Package lambda serves API Gateway proxy events with the chi router used
// by the HTTP server.
package lambda

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"github.com/upb/imagegen-proxy/middleware"
	"go.uber.org/zap"
)

// Handler adapts API Gateway proxy events onto a chi router
type Handler struct {
	adapter *chiadapter.ChiLambda
	logger  *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(router *chi.Mux, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		adapter: chiadapter.New(router),
		logger:  logger,
	}
}

// Handle runs event through the router. Events that cannot be converted
// into a request, such as a body flagged base64 that does not decode, are
// answered with 400 rather than an invocation error.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	event = withRequestID(event)

	resp, err := h.adapter.ProxyWithContext(ctx, event)
	if err != nil {
		h.logger.Warn("invalid proxy event",
			zap.String("aws_request_id", event.RequestContext.RequestID),
			zap.String("path", event.Path),
			zap.Error(err))
		return events.APIGatewayProxyResponse{
			StatusCode:        http.StatusBadRequest,
			MultiValueHeaders: map[string][]string{"Content-Type": {"application/json"}},
			Body:              `{"error":"Invalid request body."}`,
		}, nil
	}
	return resp, nil
}

// withRequestID copies the API Gateway request ID into X-Request-ID when
// the caller sent none, so logs on both sides correlate.
func withRequestID(event events.APIGatewayProxyRequest) events.APIGatewayProxyRequest {
	id := event.RequestContext.RequestID
	if id == "" || hasHeader(event, middleware.RequestIDHeader) {
		return event
	}

	if event.MultiValueHeaders != nil {
		headers := make(map[string][]string, len(event.MultiValueHeaders)+1)
		for k, v := range event.MultiValueHeaders {
			headers[k] = v
		}
		headers[middleware.RequestIDHeader] = []string{id}
		event.MultiValueHeaders = headers
		return event
	}

	headers := make(map[string]string, len(event.Headers)+1)
	for k, v := range event.Headers {
		headers[k] = v
	}
	headers[middleware.RequestIDHeader] = id
	event.Headers = headers
	return event
}

func hasHeader(event events.APIGatewayProxyRequest, name string) bool {
	for k, v := range event.Headers {
		if strings.EqualFold(k, name) && v != "" {
			return true
		}
	}
	for k, v := range event.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return true
		}
	}
	return false
}
