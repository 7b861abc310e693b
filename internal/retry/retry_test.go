package retry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(retries int) Config {
	return Config{MaxRetries: retries, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader("body"))}
}

func TestShouldRetry(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, ShouldRetry(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, ShouldRetry(code), "status %d", code)
	}
}

func TestBackoff(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1*time.Second, Backoff(0, cfg))
	assert.Equal(t, 2*time.Second, Backoff(1, cfg))
	assert.Equal(t, 4*time.Second, Backoff(2, cfg))
	assert.Equal(t, 30*time.Second, Backoff(10, cfg))
}

func TestWithMaxRetries(t *testing.T) {
	assert.Equal(t, 5, DefaultConfig().WithMaxRetries(5).MaxRetries)
	assert.Equal(t, 0, DefaultConfig().WithMaxRetries(0).MaxRetries)
	assert.Equal(t, defaultMaxRetries, DefaultConfig().WithMaxRetries(-1).MaxRetries)
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	resp, err := Do(context.Background(), fastConfig(3), nil, func() (*http.Response, error) {
		calls++
		if calls < 3 {
			return response(http.StatusServiceUnavailable), nil
		}
		return response(http.StatusOK), nil
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableReturnedImmediately(t *testing.T) {
	calls := 0
	resp, err := Do(context.Background(), fastConfig(3), nil, func() (*http.Response, error) {
		calls++
		return response(http.StatusUnauthorized), nil
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestDo_Exhausted(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastConfig(2), nil, func() (*http.Response, error) {
		calls++
		return nil, errors.New("connection reset")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 3, calls)
}

func TestDo_ContextErrorsNotRetried(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastConfig(3), nil, func() (*http.Response, error) {
		calls++
		return nil, context.DeadlineExceeded
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, fastConfig(3), nil, func() (*http.Response, error) {
		t.Fatal("request should not be sent")
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
