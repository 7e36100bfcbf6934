package perception

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestRanker() *Ranker {
	return NewRanker(NewMatcher(0.6), DefaultVisualWeight, DefaultOverlapBoost)
}

func TestRanker_Rank(t *testing.T) {
	t.Run("text only when no regions", func(t *testing.T) {
		r := newTestRanker()
		ranked := r.Rank("设置", []TextElement{el(t, "设置项", 10, 10), el(t, "设置", 50, 50)}, nil, nil)

		require.Len(t, ranked, 2)
		assert.Equal(t, []string{"设置", "设置项"}, texts(ranked))
		assert.Equal(t, MatchText, ranked[0].Kind)
	})

	t.Run("visual scores are weighted", func(t *testing.T) {
		r := newTestRanker()
		regions := []RegionMatch{{Region: Rect{0, 0, 100, 100}, Center: Point{50, 50}, Score: 0.5}}

		ranked := r.Rank("设置", nil, regions, nil)
		require.Len(t, ranked, 1)
		assert.Equal(t, MatchVisual, ranked[0].Kind)
		assert.InDelta(t, 0.6, ranked[0].Score, 1e-9)
		assert.Empty(t, ranked[0].SourceText)
	})

	t.Run("overlap boost applies once and records the first text", func(t *testing.T) {
		r := newTestRanker()
		elements := []TextElement{el(t, "设置", 20, 20), el(t, "设置项", 80, 80)}
		regions := []RegionMatch{{Region: Rect{0, 0, 100, 100}, Center: Point{50, 50}, Score: 0.5}}

		ranked := r.Rank("设置", elements, regions, nil)
		require.Len(t, ranked, 3)

		var visual Match
		for _, m := range ranked {
			if m.Kind == MatchVisual {
				visual = m
			}
		}
		assert.InDelta(t, 0.5*1.2*1.5, visual.Score, 1e-9, "two overlapping texts still boost only once")
		assert.Equal(t, "设置", visual.SourceText)
	})

	t.Run("exact center duplicates keep the visual match", func(t *testing.T) {
		r := newTestRanker()
		elements := []TextElement{el(t, "设置", 50, 50)}
		regions := []RegionMatch{{Region: Rect{0, 0, 100, 100}, Center: Point{50, 50}, Score: 0.2}}

		ranked := r.Rank("设置", elements, regions, nil)
		require.Len(t, ranked, 1)
		assert.Equal(t, MatchVisual, ranked[0].Kind)
		assert.InDelta(t, 0.2*1.2*1.5, ranked[0].Score, 1e-9)
	})

	t.Run("excluded regions are dropped", func(t *testing.T) {
		r := newTestRanker()
		elements := []TextElement{el(t, "设置", 50, 50), el(t, "设置", 500, 500)}

		ranked := r.Rank("设置", elements, nil, []Rect{{0, 0, 100, 100}})
		require.Len(t, ranked, 1)
		assert.Equal(t, Point{500, 500}, ranked[0].Center)
	})

	t.Run("boosted visual outranks plain text", func(t *testing.T) {
		r := newTestRanker()
		elements := []TextElement{el(t, "设置", 20, 20), el(t, "设置", 600, 600)}
		regions := []RegionMatch{
			{Region: Rect{0, 0, 100, 100}, Center: Point{50, 50}, Score: 0.8},
			{Region: Rect{200, 200, 300, 300}, Center: Point{250, 250}, Score: 0.9},
		}

		ranked := r.Rank("设置", elements, regions, nil)
		require.Len(t, ranked, 4)
		assert.Equal(t, Point{50, 50}, ranked[0].Center)
		assert.InDelta(t, 0.8*1.2*1.5, ranked[0].Score, 1e-9)
		assert.Equal(t, Point{250, 250}, ranked[1].Center)
		// Text ties keep recognizer order after the visual matches.
		assert.Equal(t, Point{20, 20}, ranked[2].Center)
		assert.Equal(t, Point{600, 600}, ranked[3].Center)
	})
}

func TestRanker_RankIsIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := newTestRanker()
		words := rapid.SliceOfN(rapid.SampledFrom([]string{"设置", "设置项", "搜索", "微信"}), 0, 6).Draw(rt, "words")
		var elements []TextElement
		for i, w := range words {
			x := float64(rapid.IntRange(0, 3).Draw(rt, "x") * 50)
			elements = append(elements, el(rt, w, x, float64(i*40)))
		}
		var regions []RegionMatch
		for i := range rapid.IntRange(0, 4).Draw(rt, "regions") {
			rect := Rect{X1: float64(i * 60), Y1: 0, X2: float64(i*60 + 60), Y2: 300}
			regions = append(regions, RegionMatch{
				Region: rect,
				Center: rect.Center(),
				Score:  rapid.Float64Range(0, 1).Draw(rt, "score"),
			})
		}

		first := r.Rank("设置", elements, regions, nil)
		second := r.Rank("设置", elements, regions, nil)
		if len(first) != len(second) {
			rt.Fatalf("rank length changed: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i] != second[i] {
				rt.Fatalf("rank differs at %d: %+v vs %+v", i, first[i], second[i])
			}
		}
	})
}
