// internal/llmclient/client.go
package llmclient

import (
	"context"
	"encoding/base64"
)

// Request is a single prompt sent to a model. Images are PNG-encoded and turn
// the request into a vision request.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Images       [][]byte
	// Temperature overrides the configured temperature when non-zero.
	Temperature float32
	// ForceJSON asks the provider for a JSON-only response where supported.
	ForceJSON bool
}

// HasImages reports whether the request carries image input.
func (r Request) HasImages() bool { return len(r.Images) > 0 }

// Client generates a free-form text completion.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req Request) (string, error)

func (f ClientFunc) Generate(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// PNGDataURL encodes a PNG as a data URL for providers that take image URLs.
func PNGDataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
