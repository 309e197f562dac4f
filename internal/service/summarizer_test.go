package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sheetwatch/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletionSummarize(t *testing.T) {
	var captured chatCompletionRequest
	var authHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "  Row 4 holds a duplicate SKU.  "}},
			},
		})
	}))
	defer server.Close()

	s := NewChatCompletionSummarizer("test-key", server.URL, "gpt-3.5-turbo", time.Second)

	text, err := s.Summarize(context.Background(), "explain these errors")
	require.NoError(t, err)

	assert.Equal(t, "Row 4 holds a duplicate SKU.", text)
	assert.Equal(t, "Bearer test-key", authHeader)
	assert.Equal(t, "gpt-3.5-turbo", captured.Model)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, "explain these errors", captured.Messages[0].Content)
}

func TestChatCompletionSummarizeUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	s := NewChatCompletionSummarizer("test-key", server.URL, "gpt-3.5-turbo", time.Second)

	_, err := s.Summarize(context.Background(), "explain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestChatCompletionSummarizeNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	s := NewChatCompletionSummarizer("test-key", server.URL, "gpt-3.5-turbo", time.Second)

	_, err := s.Summarize(context.Background(), "explain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestChatCompletionSummarizeMissingKey(t *testing.T) {
	s := NewChatCompletionSummarizer("", "https://api.openai.com/v1", "gpt-3.5-turbo", time.Second)

	_, err := s.Summarize(context.Background(), "explain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestNewSummarizerProviderSelection(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantErr  bool
	}{
		{name: "default provider is openai", provider: "", wantErr: false},
		{name: "deepseek shares the chat completions client", provider: "deepseek", wantErr: false},
		{name: "unknown provider is rejected", provider: "llama-at-home", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				AIProvider: tt.provider,
				AIAPIKey:   "test-key",
				AITimeout:  time.Second,
			}

			s, err := NewSummarizer(context.Background(), cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, &ChatCompletionSummarizer{}, s)
		})
	}
}

func TestNewGeminiSummarizerRequiresKey(t *testing.T) {
	_, err := NewGeminiSummarizer(context.Background(), "", "gemini-2.0-flash")
	require.Error(t, err)
}
