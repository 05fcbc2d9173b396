package claude_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoadon/internal/config"
	"hoadon/internal/gateway"
	"hoadon/internal/gateway/claude"
	"hoadon/internal/port"
)

func newTestClient(serverURL string) *claude.Client {
	cfg := &config.ProviderConfig{
		Provider:     "claude",
		APIKey:       "test-claude-key",
		DefaultModel: "claude-sonnet-4-20250514",
		TimeoutSecs:  30,
	}
	return claude.NewClientWithEndpoint(cfg, serverURL)
}

func successResponse(text string) map[string]interface{} {
	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
		"stop_reason": "end_turn",
	}
}

func TestComplete_ProviderMaxTokensCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, float64(1024), reqBody["max_tokens"])

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(successResponse(`{}`))
	}))
	defer server.Close()

	cfg := &config.ProviderConfig{
		Provider:     "claude",
		APIKey:       "test-claude-key",
		DefaultModel: "claude-sonnet-4-20250514",
		MaxTokens:    1024,
	}
	c := claude.NewClientWithEndpoint(cfg, server.URL)

	_, err := c.Complete(context.Background(), port.CompletionRequest{
		Prompt:    "extract",
		MaxTokens: 8192,
	})
	require.NoError(t, err)
}

func TestComplete_ImageSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-claude-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "claude-sonnet-4-20250514", reqBody["model"])

		content := reqBody["messages"].([]interface{})[0].(map[string]interface{})["content"].([]interface{})
		require.Len(t, content, 2)
		imgBlock := content[0].(map[string]interface{})
		assert.Equal(t, "image", imgBlock["type"])
		source := imgBlock["source"].(map[string]interface{})
		assert.Equal(t, "base64", source["type"])
		assert.Equal(t, "image/png", source["media_type"])

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(successResponse(`{"total": 110000}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	out, err := c.Complete(context.Background(), port.CompletionRequest{
		Prompt:      "extract",
		Image:       []byte{0x89, 'P', 'N', 'G'},
		ContentType: "image/png",
	})

	require.NoError(t, err)
	assert.Equal(t, `{"total": 110000}`, out.Text)
	assert.Equal(t, "claude-sonnet-4-20250514", out.Model)
}

func TestComplete_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "45")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"type": "rate_limit_error"}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Complete(context.Background(), port.CompletionRequest{Prompt: "extract"})
	require.Error(t, err)

	var rlErr *gateway.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "claude", rlErr.Provider)
	assert.Equal(t, float64(45), rlErr.RetryAfter.Seconds())
}

func TestComplete_Forbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"type": "permission_error"}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Complete(context.Background(), port.CompletionRequest{Prompt: "extract"})
	require.Error(t, err)

	var authErr *gateway.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusForbidden, authErr.Status)
}

func TestComplete_TruncatedOutput(t *testing.T) {
	resp := successResponse("{partial")
	resp["stop_reason"] = "max_tokens"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Complete(context.Background(), port.CompletionRequest{Prompt: "extract"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}
