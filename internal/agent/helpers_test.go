// internal/agent/helpers_test.go
package agent_test

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/droidpilot/internal/perception"
)

// blankScreen returns an encoded and a decoded blank screenshot.
func blankScreen(t *testing.T, w, h int) ([]byte, image.Image) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes(), img
}

// det builds a 20x20 detection centered on (cx, cy).
func det(text string, cx, cy float64) perception.Detection {
	return perception.Detection{
		Text:       text,
		Confidence: 0.95,
		Points: []perception.Point{
			{X: cx - 10, Y: cy - 10},
			{X: cx + 10, Y: cy - 10},
			{X: cx + 10, Y: cy + 10},
			{X: cx - 10, Y: cy + 10},
		},
	}
}
