// internal/llmclient/router.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Router sends image-bearing requests to the vision client and everything
// else to the text client.
type Router struct {
	logger *zap.Logger
	text   Client
	vision Client
}

// NewRouter creates a router. Both clients are required; pass the same
// client twice when one model serves both.
func NewRouter(logger *zap.Logger, text, vision Client) (*Router, error) {
	if text == nil || vision == nil {
		return nil, fmt.Errorf("both text and vision clients must be provided")
	}
	return &Router{logger: logger.Named("llm_router"), text: text, vision: vision}, nil
}

// Generate routes the request by modality.
func (r *Router) Generate(ctx context.Context, req Request) (string, error) {
	if req.HasImages() {
		r.logger.Debug("Routing LLM request", zap.String("modality", "vision"), zap.Int("images", len(req.Images)))
		return r.vision.Generate(ctx, req)
	}
	r.logger.Debug("Routing LLM request", zap.String("modality", "text"))
	return r.text.Generate(ctx, req)
}
