package ailink

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/ailink/driver"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/options"
)

func TestCompletionRetriesUnavailableProvider(t *testing.T) {
	drv := &recordingDriver{
		name:      "stub",
		errs:      []error{&driver.ProviderError{StatusCode: 503, Message: "overloaded"}},
		responses: []string{"", `{"options":["misty","stormy"]}`},
	}
	svc := newTestService(t, drv, Config{MaxRetries: 2, RetryDelay: time.Millisecond})

	values, err := svc.SuggestOptions(context.Background(), options.SuggestRequest{FieldPath: "mood"})
	require.NoError(t, err)
	assert.Equal(t, []string{"misty", "stormy"}, values)
	assert.Len(t, drv.requests, 2)
}

func TestCompletionDoesNotRetryRateLimit(t *testing.T) {
	drv := &recordingDriver{name: "stub", errs: []error{&driver.ProviderError{StatusCode: 429, Message: "slow down"}}}
	svc := newTestService(t, drv, Config{MaxRetries: 3, RetryDelay: time.Millisecond})

	_, err := svc.SuggestOptions(context.Background(), options.SuggestRequest{FieldPath: "mood"})
	require.Error(t, err)
	assert.Equal(t, "AILINK_PROVIDER_RATE_LIMIT", FailureCode(err))
	assert.Len(t, drv.requests, 1)
}

func TestImageRetriesStopAfterMaxRetries(t *testing.T) {
	drv := &recordingDriver{name: "stub", imageErr: &driver.ProviderError{StatusCode: 502, Message: "bad gateway"}}
	svc := newTestService(t, drv, Config{MaxRetries: 2, RetryDelay: time.Millisecond})

	_, err := svc.GenerateImage(context.Background(), ImageRequest{Prompt: "a cat"})
	require.Error(t, err)
	assert.Equal(t, "AILINK_PROVIDER_UNAVAILABLE", FailureCode(err))
	assert.Len(t, drv.generated, 3)
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(&driver.ProviderError{StatusCode: 500}))
	assert.False(t, retryable(&driver.ProviderError{StatusCode: 400}))
	assert.False(t, retryable(&driver.ProviderError{StatusCode: 429}))
	assert.True(t, retryable(&net.OpError{Op: "dial", Err: errors.New("connection refused")}))
	assert.False(t, retryable(context.DeadlineExceeded))
	assert.False(t, retryable(errors.New("bad payload")))
	assert.False(t, retryable(nil))
}
