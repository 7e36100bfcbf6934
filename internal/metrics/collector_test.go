package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/droidpilot/internal/agent"
	"go.uber.org/zap"
)

func TestCollector_TransportCall(t *testing.T) {
	c := NewCollector("test", zap.NewNop())

	c.TransportCall("tap", nil)
	c.TransportCall("tap", nil)
	c.TransportCall("screenshot", errors.New("device offline"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.transportCalls.WithLabelValues("tap", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transportCalls.WithLabelValues("screenshot", "failure")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.transportCalls))
}

func TestCollector_ActionExecuted(t *testing.T) {
	c := NewCollector("test", zap.NewNop())

	c.ActionExecuted(agent.ActionClick, true, "", 300*time.Millisecond)
	c.ActionExecuted(agent.ActionClick, false, agent.ErrCodeTargetNotFound, 2*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.actionsTotal.WithLabelValues("CLICK", "success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actionsTotal.WithLabelValues("CLICK", "failure", string(agent.ErrCodeTargetNotFound))))
	assert.Equal(t, 1, testutil.CollectAndCount(c.actionDuration))
}

func TestCollector_LaunchFinished(t *testing.T) {
	c := NewCollector("test", zap.NewNop())

	c.LaunchFinished("component", true, 3*time.Second)
	c.LaunchFinished("", false, 12*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.launchesTotal.WithLabelValues("component", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.launchesTotal.WithLabelValues("none", "failure")))
}

func TestCollector_IndependentRegistries(t *testing.T) {
	// Two collectors with the same namespace must not collide.
	a := NewCollector("dup", zap.NewNop())
	b := NewCollector("dup", zap.NewNop())
	a.TransportCall("tap", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.transportCalls.WithLabelValues("tap", "success")))
	assert.Equal(t, 0, testutil.CollectAndCount(b.transportCalls))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("droidpilot", zap.NewNop())
	c.LaunchFinished("drawer", true, time.Second)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `droidpilot_app_launches_total{status="success",strategy="drawer"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
