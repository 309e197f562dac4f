package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sheetwatch/internal/config"

	"google.golang.org/genai"
)

// NewSummarizer builds the configured summarizer provider. "openai" and
// "deepseek" share the chat-completions wire format, "gemini" uses the
// GenAI SDK.
func NewSummarizer(ctx context.Context, cfg *config.Config) (Summarizer, error) {
	switch cfg.AIProvider {
	case "openai", "":
		baseURL := cfg.AIBaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := cfg.AIModel
		if model == "" {
			model = "gpt-3.5-turbo"
		}
		return NewChatCompletionSummarizer(cfg.AIAPIKey, baseURL, model, cfg.AITimeout), nil
	case "deepseek":
		baseURL := cfg.AIBaseURL
		if baseURL == "" {
			baseURL = "https://api.deepseek.com/v1"
		}
		model := cfg.AIModel
		if model == "" {
			model = "deepseek-chat"
		}
		return NewChatCompletionSummarizer(cfg.AIAPIKey, baseURL, model, cfg.AITimeout), nil
	case "gemini":
		return NewGeminiSummarizer(ctx, cfg.AIAPIKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}
}

// ChatCompletionSummarizer talks to an OpenAI-compatible chat completions
// endpoint.
type ChatCompletionSummarizer struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewChatCompletionSummarizer(apiKey, baseURL, model string, timeout time.Duration) *ChatCompletionSummarizer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ChatCompletionSummarizer{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *ChatCompletionSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("AI API key is not configured")
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:       s.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
		MaxTokens:   200,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat completion returned status %d: %s", resp.StatusCode, string(data))
	}

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned by model %s", s.model)
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// GeminiSummarizer generates explanations through the Google GenAI SDK.
type GeminiSummarizer struct {
	client *genai.Client
	model  string
}

func NewGeminiSummarizer(ctx context.Context, apiKey, model string) (*GeminiSummarizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiSummarizer{client: client, model: model}, nil
}

func (s *GeminiSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	result, err := s.client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("empty response from model %s", s.model)
	}

	return text, nil
}
