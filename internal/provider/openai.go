package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxEmbedChars keeps embedding input around 8k tokens.
const maxEmbedChars = 8000 * 4

// OpenAIConfig configures an OpenAI client.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	Dimensions     int
	ChatModel      string
	RPS            float64
	Timeout        time.Duration
}

// OpenAI implements metric.Embedder and service.Generator against the OpenAI API.
type OpenAI struct {
	cfg     OpenAIConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	return &OpenAI{cfg: cfg, client: newHTTPClient(cfg.Timeout), limiter: newLimiter(cfg.RPS)}
}

// Configured reports whether an API key was supplied.
func (o *OpenAI) Configured() bool {
	return o.cfg.APIKey != ""
}

type embeddingRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding of text, truncated to maxEmbedChars characters.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	if !o.Configured() {
		return nil, ErrNotConfigured
	}
	if r := []rune(text); len(r) > maxEmbedChars {
		text = string(r[:maxEmbedChars])
	}

	var out embeddingResponse
	err := o.post(ctx, "/embeddings", embeddingRequest{
		Model:      o.cfg.EmbeddingModel,
		Input:      text,
		Dimensions: o.cfg.Dimensions,
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai: empty embedding")
	}
	vec := out.Data[0].Embedding
	if o.cfg.Dimensions > 0 && len(vec) != o.cfg.Dimensions {
		return nil, fmt.Errorf("openai: embedding has %d dimensions, want %d", len(vec), o.cfg.Dimensions)
	}
	return vec, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate runs a single-turn chat completion and returns the reply text.
func (o *OpenAI) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if !o.Configured() {
		return "", ErrNotConfigured
	}

	var out chatResponse
	err := o.post(ctx, "/chat/completions", chatRequest{
		Model:       o.cfg.ChatModel,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (o *OpenAI) post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("openai: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	return doJSON(ctx, o.client, o.limiter, "openai", req, out)
}
