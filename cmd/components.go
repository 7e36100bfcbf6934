// File: cmd/components.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/appconfig"
	"github.com/xkilldash9x/droidpilot/internal/clock"
	"github.com/xkilldash9x/droidpilot/internal/cognition"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/launcher"
	"github.com/xkilldash9x/droidpilot/internal/llmclient"
	"github.com/xkilldash9x/droidpilot/internal/metrics"
	"github.com/xkilldash9x/droidpilot/internal/observability"
	"github.com/xkilldash9x/droidpilot/internal/ocr"
	"github.com/xkilldash9x/droidpilot/internal/perception"
	"github.com/xkilldash9x/droidpilot/internal/tools"
	"go.uber.org/zap"
)

// Transport and oracle constructors are variables so tests can swap in fakes.
var (
	newTransport = func(ctx context.Context, cfg config.DeviceConfig, logger *zap.Logger) (device.Transport, func(), error) {
		switch cfg.Transport {
		case config.TransportADB, "":
			return device.NewADBTransport(cfg.ADBPath, device.ExecRunner, logger), func() {}, nil
		case config.TransportCDP:
			t, err := device.NewCDPTransport(ctx, cfg.CDP, logger)
			if err != nil {
				return nil, nil, err
			}
			return t, t.Close, nil
		default:
			return nil, nil, fmt.Errorf("unknown or unsupported transport configured: '%s'. Supported: [adb, cdp]", cfg.Transport)
		}
	}
	newOracleClient = llmclient.NewOracleClient
	newEmbedder     = llmclient.NewEmbedder
)

// components holds the wired services for one command invocation.
type components struct {
	Bridge    *device.Bridge
	Metrics   *metrics.Collector
	History   *agent.History
	Perceiver *agent.Perceiver
	Locator   *agent.Locator
	Executor  *agent.Executor
	Decider   *cognition.Decider
	Extractor *cognition.DataExtractor
	Identity  *cognition.IdentityOracle
	Store     appconfig.Store
	Launcher  *launcher.Orchestrator
	Tasks     *tools.TaskManager

	historyPath string
	closers     []func()
	stopMetrics context.CancelFunc
	logger      *zap.Logger
}

// Shutdown exports the history, stops the metrics endpoint and releases
// the transport and the app store.
func (c *components) Shutdown() {
	if c.History != nil && c.historyPath != "" && c.History.Len() > 0 {
		if err := c.History.Save(c.historyPath); err != nil {
			c.logger.Warn("Failed to export action history", zap.Error(err))
		} else {
			c.logger.Info("Action history exported", zap.String("path", c.historyPath))
		}
	}
	if c.stopMetrics != nil {
		c.stopMetrics()
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			c.logger.Warn("Error closing app store", zap.Error(err))
		}
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// initializeComponents handles dependency injection for commands that drive
// the device. The bridge is connected before anything else is built.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	c := &components{logger: logger}
	sysClock := clock.New()

	// 1. Metrics
	c.Metrics = metrics.NewCollector(cfg.Metrics().Namespace, logger)
	if mc := cfg.Metrics(); mc.Enabled {
		metricsCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c.stopMetrics = cancel
		go func() {
			if err := c.Metrics.Serve(metricsCtx, mc.ListenAddr); err != nil {
				logger.Error("Metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	// 2. Device
	t, closeTransport, err := newTransport(ctx, cfg.Device(), logger)
	if err != nil {
		return c, fmt.Errorf("failed to initialize device transport: %w", err)
	}
	c.closers = append(c.closers, closeTransport)
	c.Bridge = device.NewBridge(t, cfg.Device(), logger, device.WithObserver(c.Metrics))
	if _, err := c.Bridge.Connect(ctx); err != nil {
		return c, fmt.Errorf("failed to connect to a device: %w", err)
	}

	// 3. Oracles
	oracle, err := newOracleClient(ctx, cfg.Oracle(), logger)
	if err != nil {
		return c, fmt.Errorf("failed to initialize oracle client: %w", err)
	}
	var similarity perception.SimilarityOracle
	if ec := cfg.Embedding(); ec.Enabled {
		embedder, err := newEmbedder(ctx, ec)
		if err != nil {
			return c, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		similarity = cognition.NewEmbeddingSimilarity(oracle, embedder, logger)
	}

	// 4. Perception and execution
	hc := cfg.History()
	c.History = agent.NewHistory(hc.Capacity)
	c.historyPath = hc.ExportPath
	if c.historyPath != "" {
		if expanded, err := config.ExpandPath(c.historyPath); err == nil {
			c.historyPath = expanded
		}
	}
	recognizer := ocr.NewClient(cfg.OCR(), logger)
	c.Perceiver = agent.NewPerceiver(c.Bridge, recognizer, c.History, sysClock, cfg.OCR().MinConfidence, logger)
	c.Locator = agent.NewLocator(cfg.Matching(), similarity, logger)
	c.Executor = agent.NewExecutor(c.Bridge, c.Perceiver, c.Locator, c.History, cfg.Matching().SwipeFraction, logger,
		agent.WithActionObserver(c.Metrics))

	// 5. Cognition
	c.Decider = cognition.NewDecider(oracle, c.History, hc.RecentCount, logger)
	c.Extractor = cognition.NewDataExtractor(oracle, logger)
	c.Identity = cognition.NewIdentityOracle(oracle, logger)

	// 6. App launching
	c.Store, err = appconfig.New(ctx, cfg.AppStore(), logger)
	if err != nil {
		return c, fmt.Errorf("failed to initialize app store: %w", err)
	}
	c.Launcher = launcher.New(c.Bridge, c.Perceiver, c.Locator.Matcher(), c.Identity, c.Store, cfg.Launch(), logger,
		launcher.WithObserver(c.Metrics))

	// 7. Tools
	registry := tools.NewRegistry()
	if err := tools.RegisterBuiltins(registry); err != nil {
		return c, fmt.Errorf("failed to register built-in tools: %w", err)
	}
	env := &tools.Env{
		Launcher:  c.Launcher,
		Perceiver: c.Perceiver,
		Executor:  c.Executor,
		Decider:   c.Decider,
		Extractor: c.Extractor,
	}
	c.Tasks = tools.NewTaskManager(registry, env, cfg.Tasks(), logger)

	logger.Info("Components initialized",
		zap.String("device", c.Bridge.Serial()),
		zap.String("transport", string(cfg.Device().Transport)),
		zap.Bool("visual_search", similarity != nil),
		zap.String("app_store", string(cfg.AppStore().Type)))
	return c, nil
}

// withComponents builds the components, runs fn and shuts everything down.
func withComponents(ctx context.Context, fn func(ctx context.Context, c *components) error) error {
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return err
	}
	logger := observability.GetLogger()

	c, err := initializeComponents(ctx, cfg, logger)
	defer func() {
		if c != nil {
			c.Shutdown()
		}
	}()
	if err != nil {
		return err
	}
	start := time.Now()
	err = fn(ctx, c)
	logger.Debug("Command finished", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
	return err
}
