// File: internal/perception/matcher.go
package perception

import (
	"sort"
	"strings"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// MatchKind tells where a match came from.
type MatchKind string

const (
	MatchText   MatchKind = "text"
	MatchVisual MatchKind = "visual_region"
)

// Match is a ranked candidate tap target.
type Match struct {
	Kind   MatchKind `json:"kind"`
	Center Point     `json:"center"`
	Box    Rect      `json:"box"`
	Score  float64   `json:"score"`
	// SourceText is the matched element text, or for a boosted visual match
	// the text that overlapped it.
	SourceText string `json:"source_text,omitempty"`
}

// ContentType classifies element text for FindByContentType.
type ContentType string

const (
	ContentNumber ContentType = "number"
	ContentPrice  ContentType = "price"
	ContentDate   ContentType = "date"
)

// DefaultSimilarityThreshold is the minimum fuzzy score a text match must reach.
const DefaultSimilarityThreshold = 0.6

// Matcher finds text elements by query, position, region and content type.
// All methods are pure and safe for concurrent use.
type Matcher struct {
	threshold float64
	dmp       *diffmatchpatch.DiffMatchPatch
}

// NewMatcher returns a matcher with the given fuzzy threshold. A threshold
// outside [0, 1] falls back to DefaultSimilarityThreshold.
func NewMatcher(threshold float64) *Matcher {
	if threshold < 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	return &Matcher{threshold: threshold, dmp: newDiffer()}
}

// Threshold returns the fuzzy acceptance threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Similarity scores a against b with the matcher's edit distance.
func (m *Matcher) Similarity(a, b string) float64 { return similarity(m.dmp, a, b) }

// FindText returns the elements matching query, best first. Exact mode keeps
// only identical text with score 1.0. Fuzzy mode keeps every element whose
// similarity is at least the threshold. Ties keep recognizer order.
func (m *Matcher) FindText(query string, elements []TextElement, exact bool) []Match {
	var matches []Match
	for _, el := range elements {
		var score float64
		if exact {
			if el.Text != query {
				continue
			}
			score = 1.0
		} else {
			score = m.Similarity(query, el.Text)
			if score < m.threshold {
				continue
			}
		}
		matches = append(matches, textMatch(el, score))
	}
	sortByScore(matches)
	return matches
}

// FindBestMatch returns the highest scoring fuzzy match.
func (m *Matcher) FindBestMatch(query string, elements []TextElement) (Match, bool) {
	matches := m.FindText(query, elements, false)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

// FindClosest returns the element whose center is nearest to p.
// The first element wins on equal distance.
func (m *Matcher) FindClosest(p Point, elements []TextElement) (Match, bool) {
	best := -1
	bestDist := 0.0
	for i, el := range elements {
		d := p.Distance(el.Center)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Match{}, false
	}
	return textMatch(elements[best], 1.0), true
}

// FindInRegion fuzzy matches query among the elements centered inside region.
func (m *Matcher) FindInRegion(query string, elements []TextElement, region Rect) []Match {
	return m.FindText(query, filterRegion(elements, &region), false)
}

// FindByContentType returns elements whose text looks like the given content
// type, optionally restricted to a region first. Unknown types match nothing.
func (m *Matcher) FindByContentType(elements []TextElement, ct ContentType, region *Rect) []Match {
	classify, ok := contentClassifiers[ct]
	if !ok {
		return nil
	}
	var matches []Match
	for _, el := range filterRegion(elements, region) {
		if classify(el.Text) {
			matches = append(matches, textMatch(el, 1.0))
		}
	}
	return matches
}

var contentClassifiers = map[ContentType]func(string) bool{
	ContentNumber: isNumber,
	ContentPrice:  isPrice,
	ContentDate:   isDate,
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isPrice(s string) bool {
	if strings.ContainsAny(s, "¥￥$€£") {
		return true
	}
	return hasDigit(s) && strings.Contains(s, ".")
}

func isDate(s string) bool {
	return hasDigit(s) && strings.ContainsAny(s, "-/年月")
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func filterRegion(elements []TextElement, region *Rect) []TextElement {
	if region == nil {
		return elements
	}
	var out []TextElement
	for _, el := range elements {
		if region.Contains(el.Center) {
			out = append(out, el)
		}
	}
	return out
}

func textMatch(el TextElement, score float64) Match {
	return Match{Kind: MatchText, Center: el.Center, Box: el.Box, Score: score, SourceText: el.Text}
}

func sortByScore(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
}
