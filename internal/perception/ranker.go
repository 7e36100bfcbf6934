// File: internal/perception/ranker.go
package perception

// Default weights for fusing visual and text evidence.
const (
	DefaultVisualWeight = 1.2
	DefaultOverlapBoost = 1.5
)

// Ranker fuses text matches and scored grid regions into one ranked list.
type Ranker struct {
	matcher      *Matcher
	visualWeight float64
	overlapBoost float64
}

// NewRanker returns a ranker using matcher for the text side.
func NewRanker(matcher *Matcher, visualWeight, overlapBoost float64) *Ranker {
	if visualWeight <= 0 {
		visualWeight = DefaultVisualWeight
	}
	if overlapBoost <= 0 {
		overlapBoost = DefaultOverlapBoost
	}
	return &Ranker{matcher: matcher, visualWeight: visualWeight, overlapBoost: overlapBoost}
}

// Rank combines fuzzy text matches for query with visual region matches.
//
// Visual scores are weighted, then boosted once when the region contains the
// center of a text match; the first such text is kept as SourceText. Matches
// sharing an exact center collapse to the first seen, visual before text.
// Matches centered in an excluded rect are dropped. The result is sorted by
// score with a stable sort, so Rank is deterministic for equal inputs.
func (r *Ranker) Rank(query string, elements []TextElement, regions []RegionMatch, exclude []Rect) []Match {
	textMatches := r.matcher.FindText(query, elements, false)

	candidates := make([]Match, 0, len(regions)+len(textMatches))
	for _, region := range regions {
		vm := Match{
			Kind:   MatchVisual,
			Center: region.Center,
			Box:    region.Region,
			Score:  region.Score * r.visualWeight,
		}
		for _, tm := range textMatches {
			if region.Region.Contains(tm.Center) {
				vm.Score *= r.overlapBoost
				vm.SourceText = tm.SourceText
				break
			}
		}
		candidates = append(candidates, vm)
	}
	candidates = append(candidates, textMatches...)

	seen := make(map[Point]struct{}, len(candidates))
	ranked := make([]Match, 0, len(candidates))
	for _, m := range candidates {
		if _, dup := seen[m.Center]; dup {
			continue
		}
		seen[m.Center] = struct{}{}
		if excluded(m.Center, exclude) {
			continue
		}
		ranked = append(ranked, m)
	}

	sortByScore(ranked)
	return ranked
}

func excluded(p Point, exclude []Rect) bool {
	for _, rect := range exclude {
		if rect.Contains(p) {
			return true
		}
	}
	return false
}
