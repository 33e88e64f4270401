package handlers

import (
	"net/http"

	"github.com/upb/imagegen-proxy/services"
	"github.com/upb/imagegen-proxy/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses. Request-shape
// errors are 400, everything else is 500. Only the domain message reaches
// the caller; the wrapped cause is logged.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	errType := services.GetErrorType(err)
	message := services.GetErrorMessage(err)

	status := http.StatusInternalServerError
	if services.IsClientError(err) {
		status = http.StatusBadRequest
	}

	switch {
	case status == http.StatusBadRequest:
		logger.Debug("rejected request",
			zap.String("error_type", string(errType)),
			zap.String("message", message))
	case errType == "":
		// not a domain error
		logger.Error("unhandled error type", zap.Error(err))
	default:
		logger.Error("request failed",
			zap.String("error_type", string(errType)),
			zap.Any("details", services.GetErrorDetails(err)),
			zap.Error(err))
	}

	if err := utils.WriteError(w, status, message); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}
