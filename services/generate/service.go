package generate

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/upb/imagegen-proxy/services"
	"github.com/upb/imagegen-proxy/services/imaging"
	"github.com/upb/imagegen-proxy/services/providers"
	"github.com/upb/imagegen-proxy/utils"
	"go.uber.org/zap"
)

// Service runs one operation against the image provider:
// validate, normalize the image, dispatch once, extract the locator, shape
// the result.
type Service struct {
	provider providers.ImageProvider
	fetcher  ImageFetcher
	opts     Options
	logger   *zap.Logger
}

// NewService creates a new generate service
func NewService(provider providers.ImageProvider, fetcher ImageFetcher, opts Options, logger *zap.Logger) *Service {
	if opts.MaxErrorMessageLength <= 0 {
		opts.MaxErrorMessageLength = DefaultMaxErrorMessageLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider: provider,
		fetcher:  fetcher,
		opts:     opts,
		logger:   logger,
	}
}

// Handle validates req and runs its operation. Errors are *services.DomainError.
func (s *Service) Handle(ctx context.Context, req OperationRequest) (*Result, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}
	if err := decodePayload(&req); err != nil {
		return nil, err
	}

	logger := s.logger.With(
		zap.String("request_id", req.RequestID),
		zap.String("operation", string(req.Operation)),
		zap.String("provider", s.provider.Name()),
	)
	start := time.Now()

	var (
		result *Result
		err    error
	)
	switch req.Operation {
	case OperationTest:
		result, err = s.testConnection(ctx, req.APIKey)
	case OperationTextToImage:
		result, err = s.textToImage(ctx, req.APIKey, req.Payload)
	case OperationRemoveBackground:
		result, err = s.removeBackground(ctx, req.APIKey, req.Payload)
	case OperationEditImage:
		result, err = s.editImage(ctx, req.APIKey, req.Payload)
	default:
		// unreachable once validate passes
		return nil, services.ErrUnknownOperation
	}

	latency := zap.Int64("latency_ms", time.Since(start).Milliseconds())
	if err != nil {
		logger.Warn("operation failed",
			zap.String("model", req.Payload.Model),
			zap.String("error_type", string(services.GetErrorType(err))),
			latency,
			zap.Error(err))
		return nil, err
	}

	logger.Info("operation completed", zap.String("model", req.Payload.Model), latency)
	return result, nil
}

// validate checks the credential first so a missing key is reported for
// every operation and any payload.
func validate(req *OperationRequest) error {
	err := utils.ValidateStruct(req)
	if err == nil {
		return nil
	}
	switch {
	case utils.HasFieldError(err, "apiKey"):
		return services.NewDomainError(services.ErrorTypeMissingCredential, services.MsgMissingCredential, err)
	case utils.HasFieldError(err, "operation"):
		return services.NewDomainError(services.ErrorTypeUnknownOperation, services.MsgUnknownOperation, err)
	default:
		return services.NewDomainError(services.ErrorTypeInvalidRequest, services.MsgInvalidRequestBody, err)
	}
}

// decodePayload fills req.Payload from the raw wire form. The test
// operation takes no arguments, so its payload is never inspected.
func decodePayload(req *OperationRequest) error {
	if req.Operation == OperationTest || len(req.RawPayload) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.RawPayload, &req.Payload); err != nil {
		return services.NewDomainError(services.ErrorTypeInvalidRequest, services.MsgInvalidRequestBody, err)
	}
	return nil
}

func (s *Service) testConnection(ctx context.Context, apiKey string) (*Result, error) {
	if err := s.provider.Probe(ctx, apiKey); err != nil {
		return nil, s.probeError(err)
	}
	return &Result{Status: "ok", Message: services.MsgConnectionOK}, nil
}

func (s *Service) textToImage(ctx context.Context, apiKey string, p Payload) (*Result, error) {
	resp, err := s.provider.Generate(ctx, apiKey, &providers.GenerationRequest{
		Model:  p.Model,
		Prompt: p.Prompt,
	})
	if err != nil {
		return nil, s.dispatchError(err)
	}
	return &Result{ImageURL: resp.Locator}, nil
}

func (s *Service) removeBackground(ctx context.Context, apiKey string, p Payload) (*Result, error) {
	img, err := s.resolveImage(ctx, p.Image)
	if err != nil {
		return nil, err
	}

	resp, err := s.provider.Generate(ctx, apiKey, &providers.GenerationRequest{
		Model:  p.Model,
		Prompt: removeBackgroundPrompt,
		Image:  img.DataURL(),
	})
	if err != nil {
		return nil, s.dispatchError(err)
	}
	return &Result{ProductImageURL: resp.Locator}, nil
}

func (s *Service) editImage(ctx context.Context, apiKey string, p Payload) (*Result, error) {
	img, err := s.resolveImage(ctx, p.Image)
	if err != nil {
		return nil, err
	}

	resp, err := s.provider.Edit(ctx, apiKey, &providers.EditRequest{
		Model:         p.Model,
		Prompt:        p.Prompt,
		ImageData:     img.Bytes(),
		ImageMIME:     img.MIMEType,
		ImageFilename: img.Filename(),
		ImageDataURL:  img.DataURL(),
	})
	if err != nil {
		return nil, s.dispatchError(err)
	}
	return &Result{FinalImageURL: resp.Locator}, nil
}

// resolveImage turns the payload image into a normalized data URL. Remote
// sources are downloaded once, before any provider call.
func (s *Service) resolveImage(ctx context.Context, src string) (*imaging.Image, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, services.NewDomainError(services.ErrorTypeInvalidImageData, services.MsgMissingImage, imaging.ErrEmptyImage)
	}

	if imaging.IsRemoteURL(src) {
		img, err := s.fetcher.Fetch(ctx, src)
		if err != nil {
			return nil, services.NewDomainError(services.ErrorTypeImageDownloadFailed, services.MsgImageDownloadFailed, err)
		}
		return img, nil
	}

	img, err := imaging.Normalize(src)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInvalidImageData, services.MsgInvalidImageData, err)
	}
	return img, nil
}
