// File: internal/llmclient/anthropic_test.go
package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sightline-ai/sightline/internal/config"
)

func anthropicTestConfig(endpoint string) config.LLMConfig {
	return config.LLMConfig{
		Provider:    config.ProviderAnthropic,
		Model:       "claude-3-7-sonnet-20250219",
		APIKey:      "test-key",
		Endpoint:    endpoint,
		Temperature: 0.1,
		MaxTokens:   1024,
		APITimeout:  5 * time.Second,
	}
}

func TestAnthropicClientComplete(t *testing.T) {
	var gotReq anthropicRequestPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"content": [{"type": "text", "text": "{\"action\": \"click\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(anthropicTestConfig(server.URL), zaptest.NewLogger(t))
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), "system text", "user text")
	require.NoError(t, err)
	assert.Equal(t, `{"action": "click"}`, out)

	assert.Equal(t, "system text", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "user text", gotReq.Messages[0].Content)
	assert.Equal(t, 1024, gotReq.MaxTokens)
}

func TestAnthropicClientRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"content": [{"type": "text", "text": "ok"}], "stop_reason": "end_turn"}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(anthropicTestConfig(server.URL), zaptest.NewLogger(t))
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnthropicClientPermanentErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(anthropicTestConfig(server.URL), zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnthropicClientRequiresAPIKey(t *testing.T) {
	cfg := anthropicTestConfig("http://127.0.0.1:0")
	cfg.APIKey = ""
	_, err := NewAnthropicClient(cfg, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	cfg := anthropicTestConfig("")
	cfg.Provider = "oracle"
	_, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}

func TestFactoryBuildsAnthropic(t *testing.T) {
	cfg := anthropicTestConfig("")
	cfg.RequestsPerMinute = 30
	client, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, client)
	// Rate cap set, so the factory hands back the wrapped client.
	_, ok := client.(*rateLimitedClient)
	assert.True(t, ok)
}
