package generate

import (
	"errors"

	"github.com/upb/imagegen-proxy/services"
	"github.com/upb/imagegen-proxy/services/providers"
)

// probeError maps a failed connectivity probe. The provider's own message
// wins over the generic one.
func (s *Service) probeError(err error) error {
	var pe *providers.ProviderError
	if !errors.As(err, &pe) {
		return services.WrapInternal(services.MsgInternal, err)
	}

	msg := services.MsgConnectionFailed
	if m := s.forwardable(pe.Message); m != "" {
		msg = m
	}
	return services.NewDomainError(services.ErrorTypeConnectionFailed, msg, err).
		WithDetail("upstream_status", pe.StatusCode).
		WithDetail("upstream_code", pe.Code)
}

// dispatchError maps a failed generation or edit call
func (s *Service) dispatchError(err error) error {
	var pe *providers.ProviderError
	if !errors.As(err, &pe) {
		return services.WrapInternal(services.MsgInternal, err)
	}

	var derr *services.DomainError
	switch pe.Code {
	case providers.CodeNoImage:
		derr = services.NewDomainError(services.ErrorTypeMissingImageReference, services.MsgMissingImageReference, err)
	case providers.CodeResponseTooLarge:
		derr = services.NewDomainError(services.ErrorTypeUpstreamRequestFailed, services.MsgUpstreamResponseTooLarge, err)
	case providers.CodeUnmarshalError:
		derr = services.NewDomainError(services.ErrorTypeUpstreamRequestFailed, services.MsgInvalidUpstreamBody, err)
	case providers.CodeStatusError:
		msg := services.MsgUpstreamRequestFailed
		if m := s.forwardable(pe.Message); m != "" {
			msg = m
		}
		derr = services.NewDomainError(services.ErrorTypeUpstreamRequestFailed, msg, err)
	default:
		// transport, read and encoding failures
		derr = services.NewDomainError(services.ErrorTypeUpstreamRequestFailed, services.MsgUpstreamRequestFailed, err)
	}

	return derr.WithDetail("upstream_status", pe.StatusCode).WithDetail("upstream_code", pe.Code)
}

func (s *Service) forwardable(msg string) string {
	return sanitizeMessage(msg, s.opts.MaxErrorMessageLength)
}
