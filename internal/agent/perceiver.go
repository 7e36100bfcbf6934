// internal/agent/perceiver.go
package agent

import (
	"context"
	"fmt"
	"image"

	"github.com/xkilldash9x/droidpilot/internal/clock"
	"github.com/xkilldash9x/droidpilot/internal/perception"
	"go.uber.org/zap"
)

// Capturer grabs the current screen.
type Capturer interface {
	Capture(ctx context.Context) ([]byte, image.Image, error)
}

// Perceiver captures a frame, runs text recognition over it and records the
// screenshot in the history.
type Perceiver struct {
	capturer      Capturer
	recognizer    perception.Recognizer
	history       *History
	clock         clock.Clock
	minConfidence float64
	logger        *zap.Logger
}

// NewPerceiver creates a perceiver. history may be nil.
func NewPerceiver(capturer Capturer, recognizer perception.Recognizer, history *History, c clock.Clock, minConfidence float64, logger *zap.Logger) *Perceiver {
	if c == nil {
		c = clock.New()
	}
	return &Perceiver{
		capturer:      capturer,
		recognizer:    recognizer,
		history:       history,
		clock:         c,
		minConfidence: minConfidence,
		logger:        logger.Named("perceiver"),
	}
}

// Observe captures and recognizes the current screen.
func (p *Perceiver) Observe(ctx context.Context) (Frame, error) {
	data, img, err := p.capturer.Capture(ctx)
	if err != nil {
		return Frame{}, fmt.Errorf("capture failed: %w", err)
	}
	at := p.clock.Now()
	if p.history != nil {
		p.history.RecordScreenshot(data, at)
	}

	dets, err := p.recognizer.Recognize(ctx, data)
	if err != nil {
		return Frame{}, fmt.Errorf("text recognition failed: %w", err)
	}

	elements := perception.FromDetections(dets, p.logger)
	if p.minConfidence > 0 {
		kept := elements[:0]
		for _, el := range elements {
			if el.Confidence >= p.minConfidence {
				kept = append(kept, el)
			}
		}
		elements = kept
	}

	frame := Frame{PNG: data, Image: img, Elements: elements, At: at}
	if img != nil {
		frame.Width, frame.Height = img.Bounds().Dx(), img.Bounds().Dy()
	}
	p.logger.Debug("Frame observed",
		zap.Int("detections", len(dets)),
		zap.Int("elements", len(elements)))
	return frame, nil
}
