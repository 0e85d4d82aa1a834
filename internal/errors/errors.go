// Package errors maps domain failures onto gofulmen error envelopes and
// writes them as JSON responses.
package errors

import (
	"context"
	stderrors "errors"
	"math"
	"net/http"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/engine"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/server/middleware"
)

// Error codes returned in envelopes.
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeValidation       = "VALIDATION_FAILED"
	CodeParse            = "PARSE_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeExternalService  = "EXTERNAL_SERVICE_ERROR"
	CodeTimeout          = "TIMEOUT"
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

var statusByCode = map[string]int{
	CodeInvalidInput:     http.StatusBadRequest,
	CodeValidation:       http.StatusBadRequest,
	CodeParse:            http.StatusBadRequest,
	CodeNotFound:         http.StatusNotFound,
	CodeMethodNotAllowed: http.StatusMethodNotAllowed,
	CodeRateLimited:      http.StatusTooManyRequests,
	CodeTimeout:          http.StatusGatewayTimeout,
	CodeExternalService:  http.StatusBadGateway,
	CodeUnavailable:      http.StatusServiceUnavailable,
}

func NewInvalidInputError(message string) *gferrors.ErrorEnvelope {
	return gferrors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewNotFoundError(message string) *gferrors.ErrorEnvelope {
	return gferrors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *gferrors.ErrorEnvelope {
	return gferrors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

func NewInternalError(message string) *gferrors.ErrorEnvelope {
	return gferrors.NewErrorEnvelope(CodeInternal, message)
}

func NewConfigInvalidError(message string) *gferrors.ErrorEnvelope {
	return gferrors.NewErrorEnvelope(CodeConfigInvalid, message)
}

// WrapInternal wraps err for callers outside a request, such as CLI commands.
func WrapInternal(ctx context.Context, err error, message string) *gferrors.ErrorEnvelope {
	return correlate(ctx, withWrappedError(NewInternalError(message), err))
}

func WrapConfigInvalid(ctx context.Context, err error, message string) *gferrors.ErrorEnvelope {
	return correlate(ctx, withWrappedError(NewConfigInvalidError(message), err))
}

func withWrappedError(env *gferrors.ErrorEnvelope, err error) *gferrors.ErrorEnvelope {
	if env == nil || err == nil {
		return env
	}
	return withContext(env, map[string]interface{}{"wrapped_error": err.Error()})
}

// withContext keeps the original envelope when gofulmen rejects the update.
func withContext(env *gferrors.ErrorEnvelope, fields map[string]interface{}) *gferrors.ErrorEnvelope {
	if updated, err := env.WithContext(fields); err == nil {
		return updated
	}
	return env
}

// classify returns the envelope for a known domain error, or nil.
func classify(err error) *gferrors.ErrorEnvelope {
	var (
		validation *errdefs.ValidationError
		parse      *errdefs.ParseError
		notFound   *errdefs.NotFoundError
		limited    *errdefs.RateLimitError
		external   *errdefs.ExternalServiceError
	)
	msg := err.Error()

	switch {
	case stderrors.As(err, &validation):
		env := gferrors.NewErrorEnvelope(CodeValidation, msg)
		if validation.Field != "" {
			env = withContext(env, map[string]interface{}{"field": validation.Field})
		}
		return env

	case stderrors.As(err, &parse):
		return withContext(gferrors.NewErrorEnvelope(CodeParse, msg), map[string]interface{}{"source": parse.Source})

	case stderrors.As(err, &notFound):
		return gferrors.NewErrorEnvelope(CodeNotFound, msg)

	case stderrors.As(err, &limited):
		seconds := int(math.Round(limited.RetryAfter.Seconds()))
		return withContext(gferrors.NewErrorEnvelope(CodeRateLimited, msg), map[string]interface{}{"retry_after_seconds": seconds})

	case stderrors.As(err, &external):
		details := map[string]interface{}{"service": external.Service}
		if external.StatusCode > 0 {
			details["upstream_status"] = external.StatusCode
		}
		if code := ailink.FailureCode(err); code != "" {
			details["provider_code"] = code
		}
		env, _ := withContext(gferrors.NewErrorEnvelope(CodeExternalService, msg), details).WithSeverity(gferrors.SeverityMedium)
		return env

	case stderrors.Is(err, ailink.ErrNotConfigured), stderrors.Is(err, engine.ErrNotConfigured):
		env, _ := gferrors.NewErrorEnvelope(CodeConfigInvalid, msg).WithSeverity(gferrors.SeverityMedium)
		return env

	case stderrors.Is(err, context.DeadlineExceeded):
		env, _ := gferrors.NewErrorEnvelope(CodeTimeout, "request timed out").WithSeverity(gferrors.SeverityMedium)
		return env
	}
	return nil
}

// FromError maps a domain error onto an envelope. Envelopes pass through;
// anything unrecognised becomes a high severity internal error.
func FromError(ctx context.Context, err error) *gferrors.ErrorEnvelope {
	if err == nil {
		env, _ := NewInternalError("unexpected nil error").WithSeverity(gferrors.SeverityCritical)
		return env
	}

	var env *gferrors.ErrorEnvelope
	if stderrors.As(err, &env) && env != nil {
		return env
	}
	if env = classify(err); env == nil {
		env, _ = withWrappedError(NewInternalError("unexpected error"), err).WithSeverity(gferrors.SeverityHigh)
	}
	return correlate(ctx, env)
}

// correlate stamps the request id, or a fresh UUID outside a request.
func correlate(ctx context.Context, env *gferrors.ErrorEnvelope) *gferrors.ErrorEnvelope {
	id := ""
	if ctx != nil {
		id = middleware.GetRequestID(ctx)
	}
	if id == "" {
		id = uuid.NewString()
	}
	return env.WithCorrelationID(id)
}

// HTTPStatusFromEnvelope resolves the HTTP status for an envelope's code.
func HTTPStatusFromEnvelope(env *gferrors.ErrorEnvelope) int {
	if env == nil {
		return http.StatusInternalServerError
	}
	if status, ok := statusByCode[env.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
