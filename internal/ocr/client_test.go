// internal/ocr/client_test.go
package ocr

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/perception"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(config.OCRConfig{Endpoint: srv.URL + "/predict/ocr_system", Timeout: 5 * time.Second, MaxRetries: 2}, zaptest.NewLogger(t))
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c, &calls
}

func TestClient_Recognize(t *testing.T) {
	png := []byte("fake-png")
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict/ocr_system", r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		var req request
		assert.NoError(t, json.Unmarshal(data, &req))
		assert.Equal(t, []string{base64.StdEncoding.EncodeToString(png)}, req.Images)

		_, _ = io.WriteString(w, `{"msg":"","status":"000","results":[[
			{"text":"搜索","confidence":0.98,"text_region":[[10,20],[50,20],[50,40],[10,40]]},
			{"text":"设置","confidence":0.91,"text_region":[[10,60],[50,60],[50,80]]}
		]]}`)
	})

	dets, err := c.Recognize(context.Background(), png)
	require.NoError(t, err)
	require.Len(t, dets, 2)
	assert.Equal(t, "搜索", dets[0].Text)
	assert.Equal(t, 0.98, dets[0].Confidence)
	assert.Equal(t, []perception.Point{{X: 10, Y: 20}, {X: 50, Y: 20}, {X: 50, Y: 40}, {X: 10, Y: 40}}, dets[0].Points)
	assert.Len(t, dets[1].Points, 3, "malformed boxes are passed through for the caller to reject")
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var n int32
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"msg":"","status":"000","results":[[]]}`)
	})

	dets, err := c.Recognize(context.Background(), []byte("png"))
	require.NoError(t, err)
	assert.Empty(t, dets)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
}

func TestClient_PermanentFailures(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
		errMsg  string
	}{
		{
			name: "Bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
			errMsg: "status 400",
		},
		{
			name: "Module error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"msg":"image decode failed","status":"101","results":[]}`)
			},
			errMsg: "image decode failed",
		},
		{
			name: "Garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `<html>`)
			},
			errMsg: "decode OCR response",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, calls := newTestClient(t, tc.handler)
			_, err := c.Recognize(context.Background(), []byte("png"))
			assert.ErrorContains(t, err, tc.errMsg)
			assert.EqualValues(t, 1, atomic.LoadInt32(calls))
		})
	}
}
