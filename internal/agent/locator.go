// internal/agent/locator.go
package agent

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/perception"
	"go.uber.org/zap"
)

// Locator resolves a textual target to a screen position on a perceived frame.
type Locator struct {
	matcher *perception.Matcher
	scorer  *perception.RegionScorer
	ranker  *perception.Ranker
	grid    perception.Grid
	logger  *zap.Logger
}

// NewLocator builds a locator from the matching configuration. A nil oracle
// disables visual region scoring and Locate falls back to text matching.
func NewLocator(cfg config.MatchingConfig, oracle perception.SimilarityOracle, logger *zap.Logger) *Locator {
	matcher := perception.NewMatcher(cfg.SimilarityThreshold)
	return &Locator{
		matcher: matcher,
		scorer:  perception.NewRegionScorer(oracle, cfg.RegionConcurrency, logger),
		ranker:  perception.NewRanker(matcher, cfg.VisualWeight, cfg.OverlapBoost),
		grid:    perception.Grid{Cols: cfg.GridCols, Rows: cfg.GridRows},
		logger:  logger.Named("locator"),
	}
}

// Matcher exposes the underlying text matcher.
func (l *Locator) Matcher() *perception.Matcher { return l.matcher }

// VisualEnabled reports whether visual region scoring is available.
func (l *Locator) VisualEnabled() bool { return l.scorer.Enabled() }

// Locate returns the best match for target on frame. With visual set and an
// oracle configured, grid regions are scored and fused with text matches;
// otherwise only fuzzy text matching is used. Matches centered in exclude are
// never returned.
func (l *Locator) Locate(ctx context.Context, frame Frame, target string, visual bool, exclude []perception.Rect) (perception.Match, bool, error) {
	if visual && l.VisualEnabled() {
		regions, err := l.scorer.ScoreRegions(ctx, target, frame.Image, l.grid)
		if err != nil {
			return perception.Match{}, false, fmt.Errorf("region scoring failed: %w", err)
		}
		ranked := l.ranker.Rank(target, frame.Elements, regions, exclude)
		if len(ranked) == 0 {
			return perception.Match{}, false, nil
		}
		l.logger.Debug("Target located by hybrid ranking",
			zap.String("target", target),
			zap.String("kind", string(ranked[0].Kind)),
			zap.Float64("score", ranked[0].Score))
		return ranked[0], true, nil
	}
	if visual {
		l.logger.Debug("Visual search requested without a similarity oracle, using text matching", zap.String("target", target))
	}

	for _, m := range l.matcher.FindText(target, frame.Elements, false) {
		if inAny(m.Center, exclude) {
			continue
		}
		return m, true, nil
	}
	return perception.Match{}, false, nil
}

func inAny(p perception.Point, rects []perception.Rect) bool {
	for _, r := range rects {
		if r.Contains(p) {
			return true
		}
	}
	return false
}
