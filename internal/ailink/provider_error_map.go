package ailink

import (
	"context"
	"errors"
	"strings"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/errdefs"
)

// ProviderFailure classifies an upstream failure with a stable code.
type ProviderFailure struct {
	Code    string
	Message string
	Details string
}

func (e *ProviderFailure) Error() string {
	if e == nil {
		return "provider request failed"
	}
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

// mapProviderError wraps driver failures as ExternalServiceError so callers
// can branch on errdefs without knowing about drivers.
func mapProviderError(service string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errdefs.NewExternal(service, 0, &ProviderFailure{Code: "AILINK_PROVIDER_TIMEOUT", Message: "provider request timed out"})
	}

	var unsupported *driver.UnsupportedError
	if errors.As(err, &unsupported) && unsupported != nil {
		return errdefs.NewExternal(service, 0, &ProviderFailure{Code: "AILINK_PROVIDER_UNSUPPORTED", Message: "provider does not support operation", Details: unsupported.Operation})
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		details := safeOneLine(perr.Message)
		var failure *ProviderFailure
		switch {
		case status == 401 || status == 403:
			failure = &ProviderFailure{Code: "AILINK_PROVIDER_AUTH", Message: "provider authentication failed", Details: details}
		case status == 429:
			failure = &ProviderFailure{Code: "AILINK_PROVIDER_RATE_LIMIT", Message: "provider rate limited", Details: details}
		case status >= 500 && status <= 599:
			failure = &ProviderFailure{Code: "AILINK_PROVIDER_UNAVAILABLE", Message: "provider unavailable", Details: details}
		case status >= 400 && status <= 499:
			failure = &ProviderFailure{Code: "AILINK_PROVIDER_BAD_REQUEST", Message: "provider rejected request", Details: details}
		default:
			failure = &ProviderFailure{Code: "AILINK_PROVIDER_ERROR", Message: "provider request failed", Details: details}
		}
		return errdefs.NewExternal(service, status, failure)
	}

	return errdefs.NewExternal(service, 0, &ProviderFailure{Code: "AILINK_PROVIDER_ERROR", Message: "provider request failed", Details: safeOneLine(err.Error())})
}

// FailureCode returns the ProviderFailure code carried by err, if any.
func FailureCode(err error) string {
	var failure *ProviderFailure
	if errors.As(err, &failure) && failure != nil {
		return failure.Code
	}
	if errors.Is(err, ErrNotConfigured) {
		return "AILINK_NOT_CONFIGURED"
	}
	return ""
}

func safeOneLine(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
