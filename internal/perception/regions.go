// File: internal/perception/regions.go
package perception

import (
	"context"
	"image"
	"image/draw"
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SimilarityOracle scores how well an image region matches a text query.
// Scores are expected in [0, 1].
type SimilarityOracle interface {
	Similarity(ctx context.Context, query string, region image.Image) (float64, error)
}

// Grid describes a cols x rows partition of a screenshot.
type Grid struct {
	Cols int
	Rows int
}

// DefaultGrid is the 3x3 partition.
var DefaultGrid = Grid{Cols: 3, Rows: 3}

// RegionMatch is one scored grid cell.
type RegionMatch struct {
	Region Rect    `json:"region"`
	Center Point   `json:"center"`
	Score  float64 `json:"score"`
}

// Partition splits bounds into grid cells in row-major order. Cells are
// floor(W/cols) x floor(H/rows) and the last row and column absorb the
// remainder, so an image at least cols x rows pixels yields exactly
// cols*rows cells. Narrower images drop the cells that would be empty.
func Partition(bounds image.Rectangle, g Grid) []image.Rectangle {
	if g.Cols <= 0 || g.Rows <= 0 || bounds.Empty() {
		return nil
	}
	cellW := bounds.Dx() / g.Cols
	cellH := bounds.Dy() / g.Rows

	cells := make([]image.Rectangle, 0, g.Cols*g.Rows)
	for r := 0; r < g.Rows; r++ {
		y0, y1 := cellEdges(bounds.Min.Y, bounds.Max.Y, cellH, r, g.Rows)
		for c := 0; c < g.Cols; c++ {
			x0, x1 := cellEdges(bounds.Min.X, bounds.Max.X, cellW, c, g.Cols)
			if cell := image.Rect(x0, y0, x1, y1); !cell.Empty() {
				cells = append(cells, cell)
			}
		}
	}
	return cells
}

// cellEdges returns the span of cell i along one axis; the last cell ends at hi.
func cellEdges(lo, hi, size, i, n int) (int, int) {
	start := lo + i*size
	if i == n-1 {
		return start, hi
	}
	return start, start + size
}

// RegionScorer scores grid cells of a screenshot against a text query with an
// external similarity oracle.
type RegionScorer struct {
	oracle      SimilarityOracle
	concurrency int
	logger      *zap.Logger
}

// NewRegionScorer creates a scorer. A nil oracle yields a scorer that returns
// no regions, which disables the visual path of the ranker.
func NewRegionScorer(oracle SimilarityOracle, concurrency int, logger *zap.Logger) *RegionScorer {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &RegionScorer{oracle: oracle, concurrency: concurrency, logger: logger.Named("regions")}
}

// Enabled reports whether an oracle is configured.
func (s *RegionScorer) Enabled() bool { return s != nil && s.oracle != nil }

// ScoreRegions scores every cell of img against query, best first. A failed
// oracle call scores its cell 0. Only context cancellation aborts the pass.
func (s *RegionScorer) ScoreRegions(ctx context.Context, query string, img image.Image, g Grid) ([]RegionMatch, error) {
	if !s.Enabled() || img == nil {
		return nil, nil
	}
	cells := Partition(img.Bounds(), g)
	results := make([]RegionMatch, len(cells))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)
	for i, cell := range cells {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			score, err := s.oracle.Similarity(egCtx, query, crop(img, cell))
			if err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				s.logger.Warn("Similarity oracle failed for region; scoring it 0",
					zap.Int("cell", i),
					zap.Stringer("region", cell),
					zap.Error(err))
				score = 0
			}
			rect := RectFromImage(cell)
			results[i] = RegionMatch{Region: rect, Center: rect.Center(), Score: clamp01(score)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// crop returns the part of img inside r, sharing pixels when the image supports it.
func crop(img image.Image, r image.Rectangle) image.Image {
	if si, ok := img.(subImager); ok {
		return si.SubImage(r)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
