package gemini_test

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
	"hoadon/internal/gateway/gemini"
	"hoadon/internal/port"
)

func newTestClient(serverURL string) *gemini.Client {
	cfg := &config.ProviderConfig{
		Provider:     "gemini",
		APIKey:       "test-gemini-key",
		DefaultModel: "gemini-2.0-flash",
		TimeoutSecs:  30,
	}
	return gemini.NewClientWithEndpoint(cfg, serverURL)
}

func TestComplete_ProviderMaxTokensCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))

		gen := reqBody["generationConfig"].(map[string]interface{})
		assert.Equal(t, float64(512), gen["maxOutputTokens"])

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"parts": []map[string]interface{}{{"text": `{}`}},
					},
					"finishReason": "STOP",
				},
			},
		})
	}))
	defer server.Close()

	cfg := &config.ProviderConfig{
		Provider:     "gemini",
		APIKey:       "test-gemini-key",
		DefaultModel: "gemini-2.0-flash",
		MaxTokens:    512,
	}
	c := gemini.NewClientWithEndpoint(cfg, server.URL)

	_, err := c.Complete(context.Background(), port.CompletionRequest{
		Prompt:    "extract",
		MaxTokens: 8192,
	})
	require.NoError(t, err)
}

func TestComplete_ImageSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-gemini-key", r.Header.Get("x-goog-api-key"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))

		parts := reqBody["contents"].([]interface{})[0].(map[string]interface{})["parts"].([]interface{})
		require.Len(t, parts, 2)
		inline := parts[0].(map[string]interface{})["inline_data"].(map[string]interface{})
		assert.Equal(t, "image/jpeg", inline["mime_type"])

		gen := reqBody["generationConfig"].(map[string]interface{})
		assert.Equal(t, "application/json", gen["responseMimeType"])

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"parts": []map[string]interface{}{{"text": `{"total": 110000}`}},
					},
					"finishReason": "STOP",
				},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	out, err := c.Complete(context.Background(), port.CompletionRequest{
		Prompt:      "extract",
		Image:       []byte{0xFF, 0xD8, 0xFF},
		ContentType: "image/jpeg",
	})

	require.NoError(t, err)
	assert.Equal(t, `{"total": 110000}`, out.Text)
	assert.Equal(t, "gemini-2.0-flash", out.Model)
}

func TestComplete_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Complete(context.Background(), port.CompletionRequest{Prompt: "extract"})
	require.Error(t, err)

	var rlErr *gateway.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "gemini", rlErr.Provider)
}

func TestComplete_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Complete(context.Background(), port.CompletionRequest{Prompt: "extract"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}
