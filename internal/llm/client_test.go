package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/retry"
)

var fastRetry = &retry.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

func sse(w http.ResponseWriter, events ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": OPENROUTER PROCESSING\n\n")
	for _, e := range events {
		fmt.Fprintf(w, "data: %s\n\n", e)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func delta(text string) string {
	return fmt.Sprintf(`{"id":"gen-1","choices":[{"delta":{"content":%q}}]}`, text)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{APIKey: "sk-or-test-key"}, nil)
	assert.Equal(t, defaultModel, client.Model())
	assert.Equal(t, defaultBaseURL, client.baseURL)
	assert.Equal(t, defaultTimeout, client.timeout)

	custom := NewClient(Config{APIKey: "k", Model: "google/gemini-2.5-pro", BaseURL: "http://x/"}, nil)
	assert.Equal(t, "google/gemini-2.5-pro", custom.Model())
	assert.Equal(t, "http://x", custom.baseURL)
}

func TestBuildRequest(t *testing.T) {
	req := NewClient(Config{APIKey: "k"}, nil).buildRequest("explain this")

	assert.Equal(t, defaultModel, req.Model)
	assert.True(t, req.Stream)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "explain this", req.Messages[0].Content[0].Text)
}

func TestComplete_CollectsStream(t *testing.T) {
	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-or-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		sse(w,
			delta("Welcome back. "),
			delta("Today we cover entropy."),
			`{"choices":[{"delta":{"content":""},"finish_reason":"stop"}]}`,
			"[DONE]",
		)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "sk-or-test", BaseURL: server.URL, Retry: fastRetry}, nil)
	text, err := client.Complete(context.Background(), "page text")

	require.NoError(t, err)
	assert.Equal(t, "Welcome back. Today we cover entropy.", text)
	assert.Equal(t, defaultModel, got.Model)
	assert.True(t, got.Stream)
}

func TestComplete_RetriesRateLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		sse(w, delta("ok"), "[DONE]")
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Retry: fastRetry}, nil)
	text, err := client.Complete(context.Background(), "p")

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestComplete_NonRetryableStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Retry: fastRetry}, nil)
	_, err := client.Complete(context.Background(), "p")

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrorTypeExpansionFailed))
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid key")
}

func TestComplete_StreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sse(w, delta("partial"), `{"error":{"code":502,"message":"provider disconnected"}}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Retry: fastRetry}, nil)
	_, err := client.Complete(context.Background(), "p")

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrorTypeExpansionFailed))
	assert.Contains(t, err.Error(), "provider disconnected")
}

func TestComplete_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, RequestTimeout: 50 * time.Millisecond, Retry: fastRetry}, nil)
	_, err := client.Complete(context.Background(), "p")

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrorTypeTimeout), "got %v", err)
}

func TestStreamParser_MessageFallbackAndEOF(t *testing.T) {
	body := strings.Join([]string{
		`data: {"choices":[{"message":{"content":"whole "}}]}`,
		`data: not-json`,
		`data:{"choices":[{"delta":{"content":"answer"}}]}`,
	}, "\n")

	var sb strings.Builder
	require.NoError(t, NewStreamParser(strings.NewReader(body)).Collect(&sb))
	assert.Equal(t, "whole answer", sb.String())
}
