// internal/ocr/client.go
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/perception"
)

var _ perception.Recognizer = (*Client)(nil)

// statusOK is the success status reported by the PaddleOCR serving module.
const statusOK = "000"

type request struct {
	Images []string `json:"images"`
}

type detection struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	TextRegion [][]float64 `json:"text_region"`
}

type response struct {
	Msg     string        `json:"msg"`
	Status  string        `json:"status"`
	Results [][]detection `json:"results"`
}

// Client recognizes screen text through a PaddleOCR serving endpoint
// (ocr_system module).
type Client struct {
	endpoint   string
	httpClient *http.Client
	maxRetries int
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

// NewClient creates an OCR client.
func NewClient(cfg config.OCRConfig, logger *zap.Logger) *Client {
	return &Client{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
		logger: logger.Named("ocr"),
	}
}

// Recognize returns the text detections on a PNG screenshot, in server order.
// Network failures and 5xx answers are retried; malformed payloads are not.
func (c *Client) Recognize(ctx context.Context, png []byte) ([]perception.Detection, error) {
	body, err := json.Marshal(request{Images: []string{base64.StdEncoding.EncodeToString(png)}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal OCR request: %w", err)
	}

	var parsed response
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create OCR request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Warn("Network error during OCR request, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute OCR request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read OCR response: %w", err)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("OCR server error (status %d): %s", resp.StatusCode, data)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("OCR request rejected (status %d): %s", resp.StatusCode, data))
		}
		if err := json.Unmarshal(data, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode OCR response: %w", err))
		}
		if parsed.Status != statusOK {
			return backoff.Permanent(fmt.Errorf("OCR failed (status %s): %s", parsed.Status, parsed.Msg))
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(max(c.maxRetries, 0))), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}

	var dets []perception.Detection
	for _, image := range parsed.Results {
		for _, d := range image {
			points := make([]perception.Point, 0, len(d.TextRegion))
			for _, xy := range d.TextRegion {
				if len(xy) < 2 {
					continue
				}
				points = append(points, perception.Point{X: xy[0], Y: xy[1]})
			}
			dets = append(dets, perception.Detection{Text: d.Text, Confidence: d.Confidence, Points: points})
		}
	}
	c.logger.Debug("OCR complete", zap.Int("detections", len(dets)))
	return dets, nil
}
