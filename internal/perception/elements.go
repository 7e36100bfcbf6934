// File: internal/perception/elements.go
package perception

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrMalformedBox is returned when a detection does not carry a four point box.
var ErrMalformedBox = errors.New("detection box must have exactly 4 points")

// Detection is the raw output of a text recognizer for one text line.
type Detection struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Points     []Point `json:"points"`
}

// Recognizer turns a PNG screenshot into text detections.
type Recognizer interface {
	Recognize(ctx context.Context, png []byte) ([]Detection, error)
}

// TextElement is a recognized text line with its geometry resolved.
type TextElement struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Quad       [4]Point `json:"quad"`
	Box        Rect     `json:"box"`
	Center     Point    `json:"center"`
}

// NewTextElement builds an element from a four point quadrilateral. The center
// is the mean of the corners and the box is their min/max envelope.
func NewTextElement(text string, confidence float64, points []Point) (TextElement, error) {
	if len(points) != 4 {
		return TextElement{}, fmt.Errorf("%w: got %d", ErrMalformedBox, len(points))
	}
	el := TextElement{Text: text, Confidence: confidence}
	copy(el.Quad[:], points)
	el.Box, el.Center = boundingBox(points)
	return el, nil
}

// FromDetections converts recognizer output into elements, skipping malformed
// detections with a warning. Recognizer order is preserved.
func FromDetections(dets []Detection, logger *zap.Logger) []TextElement {
	elements := make([]TextElement, 0, len(dets))
	for i, d := range dets {
		el, err := NewTextElement(d.Text, d.Confidence, d.Points)
		if err != nil {
			logger.Warn("Skipping malformed detection",
				zap.Int("index", i),
				zap.String("text", d.Text),
				zap.Error(err))
			continue
		}
		elements = append(elements, el)
	}
	return elements
}
