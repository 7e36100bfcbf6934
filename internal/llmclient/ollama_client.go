// internal/llmclient/ollama_client.go
package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/config"
)

// DefaultOllamaEndpoint is used when no endpoint is configured.
const DefaultOllamaEndpoint = "http://127.0.0.1:11434"

// OllamaClient runs prompts against a local Ollama server.
type OllamaClient struct {
	client *api.Client
	cfg    config.LLMModelConfig
	logger *zap.Logger
}

func newOllama(endpoint string, timeout time.Duration) (*api.Client, error) {
	if endpoint == "" {
		endpoint = DefaultOllamaEndpoint
	}
	base, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama endpoint %q: %w", endpoint, err)
	}
	return api.NewClient(base, &http.Client{Timeout: timeout}), nil
}

// NewOllamaClient initializes the client. No API key is needed.
func NewOllamaClient(cfg config.LLMModelConfig, logger *zap.Logger) (*OllamaClient, error) {
	client, err := newOllama(cfg.Endpoint, cfg.APITimeout)
	if err != nil {
		return nil, err
	}
	return &OllamaClient{client: client, cfg: cfg, logger: logger.Named("llm_client.ollama")}, nil
}

// Generate sends a non-streaming chat request.
func (c *OllamaClient) Generate(ctx context.Context, req Request) (string, error) {
	var messages []api.Message
	if req.SystemPrompt != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.SystemPrompt})
	}
	user := api.Message{Role: "user", Content: req.UserPrompt}
	for _, img := range req.Images {
		user.Images = append(user.Images, api.ImageData(img))
	}
	messages = append(messages, user)

	stream := false
	chatReq := &api.ChatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   &stream,
		Options:  map[string]interface{}{},
	}
	temperature := c.cfg.Temperature
	if req.Temperature != 0 {
		temperature = req.Temperature
	}
	if temperature > 0 {
		chatReq.Options["temperature"] = temperature
	}
	if c.cfg.MaxTokens > 0 {
		chatReq.Options["num_predict"] = c.cfg.MaxTokens
	}

	start := time.Now()
	var out strings.Builder
	err := c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}
	c.logger.Info("LLM generation complete (Ollama)",
		zap.String("model", c.cfg.Model),
		zap.Int("images", len(req.Images)),
		zap.Duration("duration", time.Since(start)))
	return out.String(), nil
}

// OllamaEmbedder computes embeddings with a local Ollama model.
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

// NewOllamaEmbedder initializes an embedder.
func NewOllamaEmbedder(cfg config.EmbeddingConfig) (*OllamaEmbedder, error) {
	client, err := newOllama(cfg.Endpoint, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &OllamaEmbedder{client: client, model: cfg.Model}, nil
}

// Embed returns the embedding of text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("ollama embedding failed: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama returned no embeddings")
	}
	return resp.Embeddings[0], nil
}
