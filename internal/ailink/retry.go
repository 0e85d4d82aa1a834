package ailink

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
)

const defaultRetryDelay = 500 * time.Millisecond

// withRetry runs call once plus up to MaxRetries more times while it fails
// with a retryable error. Provider 429s are not retried here; the studio
// backs the owner off instead.
func (s *Service) withRetry(ctx context.Context, call func() error) error {
	attempts := uint(1)
	delay := defaultRetryDelay
	if s != nil && s.Providers != nil {
		cfg := s.Providers.Config()
		if cfg.MaxRetries > 0 {
			attempts += uint(cfg.MaxRetries)
		}
		if cfg.RetryDelay > 0 {
			delay = cfg.RetryDelay
		}
	}

	return retry.Do(
		call,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
	)
}

// retryable reports provider 5xx answers and network failures.
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		return perr.StatusCode >= 500 && perr.StatusCode <= 599
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
