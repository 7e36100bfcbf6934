// Package metrics exposes device, action and launch metrics in prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/launcher"
	"go.uber.org/zap"
)

// Collector records outcomes reported by the bridge, the executor and the launcher.
// Each collector owns its registry so several can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	transportCalls *prometheus.CounterVec

	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec

	launchesTotal  *prometheus.CounterVec
	launchDuration *prometheus.HistogramVec

	logger *zap.Logger
}

var (
	_ device.Observer      = (*Collector)(nil)
	_ agent.ActionObserver = (*Collector)(nil)
	_ launcher.Observer    = (*Collector)(nil)
)

// NewCollector creates a collector whose metrics live under namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.Named("metrics"),
	}

	c.transportCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_commands_total",
			Help:      "Total number of device transport commands",
		},
		[]string{"verb", "status"},
	)

	c.actionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Total number of executed UI actions",
		},
		[]string{"action", "status", "error_code"},
	)

	c.actionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "UI action duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"action"},
	)

	c.launchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "app_launches_total",
			Help:      "Total number of app launches by strategy",
		},
		[]string{"strategy", "status"},
	)

	c.launchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "app_launch_duration_seconds",
			Help:      "App launch duration including verification, in seconds",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"strategy"},
	)

	return c
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// TransportCall implements device.Observer.
func (c *Collector) TransportCall(verb string, err error) {
	c.transportCalls.WithLabelValues(verb, status(err == nil)).Inc()
}

// ActionExecuted implements agent.ActionObserver.
func (c *Collector) ActionExecuted(action agent.ActionType, success bool, code agent.ErrorCode, elapsed time.Duration) {
	c.actionsTotal.WithLabelValues(string(action), status(success), string(code)).Inc()
	c.actionDuration.WithLabelValues(string(action)).Observe(elapsed.Seconds())
}

// LaunchFinished implements launcher.Observer.
func (c *Collector) LaunchFinished(strategy string, success bool, elapsed time.Duration) {
	if strategy == "" {
		strategy = "none"
	}
	c.launchesTotal.WithLabelValues(strategy, status(success)).Inc()
	c.launchDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// Handler serves the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("Metrics endpoint listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
		<-errCh
		return nil
	}
}
