// internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/config"
)

// NewClient creates a Client for the configured provider.
func NewClient(ctx context.Context, cfg config.LLMModelConfig, logger *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg, logger)
	case config.ProviderOllama:
		return NewOllamaClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s, %s]",
			cfg.Provider, config.ProviderOpenAI, config.ProviderGemini, config.ProviderOllama)
	}
}

// NewOracleClient builds the rate limited, retrying text/vision router used
// for decisions and identity checks.
func NewOracleClient(ctx context.Context, cfg config.OracleConfig, logger *zap.Logger) (Client, error) {
	text, err := NewClient(ctx, cfg.Text, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create text oracle client: %w", err)
	}
	vision := text
	if cfg.Vision != cfg.Text {
		if vision, err = NewClient(ctx, cfg.Vision, logger); err != nil {
			return nil, fmt.Errorf("failed to create vision oracle client: %w", err)
		}
	}
	router, err := NewRouter(logger, text, vision)
	if err != nil {
		return nil, err
	}
	return NewGuarded(router, cfg.RateLimit, cfg.Burst, cfg.MaxRetries, logger), nil
}

// NewEmbedder creates an Embedder for the configured provider.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(cfg)
	case config.ProviderGemini:
		return NewGeminiEmbedder(ctx, cfg)
	case config.ProviderOllama:
		return NewOllamaEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: '%s'", cfg.Provider)
	}
}
