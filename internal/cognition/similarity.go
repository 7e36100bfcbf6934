// internal/cognition/similarity.go
package cognition

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/llmclient"
	"github.com/xkilldash9x/droidpilot/internal/perception"
)

var _ perception.SimilarityOracle = (*EmbeddingSimilarity)(nil)

// EmbeddingSimilarity scores an image region against a query by captioning
// the region with a vision model and comparing the caption and query
// embeddings by cosine similarity. Query embeddings are cached.
type EmbeddingSimilarity struct {
	captioner llmclient.Client
	embedder  llmclient.Embedder
	logger    *zap.Logger

	mu    sync.Mutex
	cache map[string][]float32
}

// NewEmbeddingSimilarity creates a similarity oracle.
func NewEmbeddingSimilarity(captioner llmclient.Client, embedder llmclient.Embedder, logger *zap.Logger) *EmbeddingSimilarity {
	return &EmbeddingSimilarity{
		captioner: captioner,
		embedder:  embedder,
		logger:    logger.Named("embedding_similarity"),
		cache:     make(map[string][]float32),
	}
}

// Similarity returns a score in [0, 1]. Opposed embeddings score 0.
func (s *EmbeddingSimilarity) Similarity(ctx context.Context, query string, region image.Image) (float64, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, region); err != nil {
		return 0, fmt.Errorf("failed to encode region: %w", err)
	}

	prompt, err := Render(TemplateRegionCaption, TemplateData{Query: query})
	if err != nil {
		return 0, err
	}
	caption, err := s.captioner.Generate(ctx, llmclient.Request{
		SystemPrompt: prompt.System,
		UserPrompt:   prompt.User,
		Images:       [][]byte{buf.Bytes()},
		Temperature:  0.1,
	})
	if err != nil {
		return 0, fmt.Errorf("region caption failed: %w", err)
	}

	queryVec, err := s.queryEmbedding(ctx, query)
	if err != nil {
		return 0, err
	}
	captionVec, err := s.embedder.Embed(ctx, strings.TrimSpace(caption))
	if err != nil {
		return 0, fmt.Errorf("caption embedding failed: %w", err)
	}

	score := math.Max(0, Cosine(queryVec, captionVec))
	s.logger.Debug("Region scored",
		zap.String("query", query),
		zap.String("caption", caption),
		zap.Float64("score", score))
	return score, nil
}

func (s *EmbeddingSimilarity) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	s.mu.Lock()
	vec, ok := s.cache[query]
	s.mu.Unlock()
	if ok {
		return vec, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	s.mu.Lock()
	s.cache[query] = vec
	s.mu.Unlock()
	return vec, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is empty,
// zero, or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
