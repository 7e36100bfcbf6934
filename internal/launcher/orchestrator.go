// internal/launcher/orchestrator.go
package launcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/appconfig"
	"github.com/xkilldash9x/droidpilot/internal/clock"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/perception"
	"go.uber.org/zap"
)

var (
	// ErrLaunchTimeout is returned when the identity check never confirmed the app.
	ErrLaunchTimeout = errors.New("app launch verification timed out")
	// ErrAppNotFound is returned when no strategy located the app on screen.
	ErrAppNotFound = errors.New("app not found on device")
)

// State names a step of the launch cascade.
type State string

const (
	StateTryConfig       State = "TRY_CONFIG"
	StateTryDrawer       State = "TRY_VISUAL_DRAWER"
	StateTrySearchEntry  State = "TRY_VISUAL_SEARCH_ENTRY"
	StateTryHomeFallback State = "TRY_HOME_SCREEN_FALLBACK"
	StateVerifying       State = "VERIFYING"
	StateSuccess         State = "SUCCESS"
	StateFailure         State = "FAILURE"
)

// Strategy records which step got the app on screen.
type Strategy string

const (
	StrategyComponent Strategy = "component"
	StrategyPackage   Strategy = "package"
	StrategyDrawer    Strategy = "drawer"
	StrategyDrawerTap Strategy = "drawer_icon"
	StrategyHome      Strategy = "home_screen"
	StrategyPaging    Strategy = "drawer_paging"
)

// Device is the subset of the device bridge the cascade drives.
type Device interface {
	agent.Capturer
	Home(ctx context.Context) error
	Tap(ctx context.Context, x, y int) error
	SwipeDirection(ctx context.Context, dir device.Direction, fraction float64) error
	ScreenSize(ctx context.Context) device.Size
	ForegroundApp(ctx context.Context) (pkg, component string, err error)
	LaunchByComponent(ctx context.Context, component string) (bool, error)
	LaunchByPackage(ctx context.Context, pkg string) (bool, error)
}

// Perceiver turns the current screen into recognized text elements.
type Perceiver interface {
	Observe(ctx context.Context) (agent.Frame, error)
}

// Identifier decides whether a screenshot shows the named app.
type Identifier interface {
	IsApp(ctx context.Context, appName string, screenshot []byte) (bool, error)
}

// Observer is told the outcome of every launch.
type Observer interface {
	LaunchFinished(strategy string, success bool, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) LaunchFinished(string, bool, time.Duration) {}

// Result describes a successful launch.
type Result struct {
	App       string
	Strategy  Strategy
	Polls     int
	Component string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the clock used for settle sleeps and verification polling.
func WithClock(c clock.Clock) Option { return func(o *Orchestrator) { o.clock = c } }

// WithObserver reports launch outcomes, e.g. to metrics.
func WithObserver(obs Observer) Option { return func(o *Orchestrator) { o.observer = obs } }

// Orchestrator launches apps by cascading through stored configs and visual search.
type Orchestrator struct {
	mu sync.Mutex

	device     Device
	perceiver  Perceiver
	matcher    *perception.Matcher
	identifier Identifier
	store      appconfig.Store
	cfg        config.LaunchConfig
	clock      clock.Clock
	observer   Observer
	logger     *zap.Logger
}

// New creates an orchestrator.
func New(dev Device, perceiver Perceiver, matcher *perception.Matcher, identifier Identifier, store appconfig.Store, cfg config.LaunchConfig, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		device:     dev,
		perceiver:  perceiver,
		matcher:    matcher,
		identifier: identifier,
		store:      store,
		cfg:        cfg,
		clock:      clock.New(),
		observer:   nopObserver{},
		logger:     logger.Named("launcher"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Launch brings appName to the foreground and verifies it. Calls are serialized.
func (o *Orchestrator) Launch(ctx context.Context, appName string) (Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	start := o.clock.Now()
	logger := o.logger.With(zap.String("app", appName))
	logger.Info("Starting app launch")

	res, err := o.launch(ctx, logger, appName)
	o.observer.LaunchFinished(string(res.Strategy), err == nil, o.clock.Now().Sub(start))
	if err != nil {
		o.transition(logger, StateFailure)
		logger.Warn("App launch failed", zap.String("strategy", string(res.Strategy)), zap.Error(err))
		return res, err
	}
	o.transition(logger, StateSuccess)
	logger.Info("App launched", zap.String("strategy", string(res.Strategy)), zap.Int("polls", res.Polls))
	return res, nil
}

func (o *Orchestrator) transition(logger *zap.Logger, to State) {
	logger.Debug("Launch state transition", zap.String("to", string(to)))
}

func (o *Orchestrator) launch(ctx context.Context, logger *zap.Logger, appName string) (Result, error) {
	res := Result{App: appName}

	o.transition(logger, StateTryConfig)
	if strategy, ok := o.tryConfig(ctx, logger, appName); ok {
		res.Strategy = strategy
		polls, err := o.verify(ctx, logger, appName)
		res.Polls = polls
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	match, strategy, err := o.locateVisually(ctx, logger, appName)
	res.Strategy = strategy
	if err != nil {
		return res, err
	}

	x, y := match.Center.Rounded()
	logger.Info("App icon located", zap.String("text", match.SourceText), zap.Int("x", x), zap.Int("y", y))
	if err := o.device.Tap(ctx, x, y); err != nil {
		return res, fmt.Errorf("failed to tap app icon: %w", err)
	}

	polls, err := o.verify(ctx, logger, appName)
	res.Polls = polls
	if err != nil {
		return res, err
	}
	if o.cfg.PersistOnLaunch {
		res.Component = o.persist(ctx, logger, appName)
	}
	return res, nil
}

// tryConfig launches from the stored config, component first.
func (o *Orchestrator) tryConfig(ctx context.Context, logger *zap.Logger, appName string) (Strategy, bool) {
	if o.store == nil {
		return "", false
	}
	stored, err := o.store.Get(ctx, appName)
	if err != nil {
		if !errors.Is(err, appconfig.ErrNotFound) {
			logger.Warn("Failed to read app config, falling back to visual launch", zap.Error(err))
		}
		return "", false
	}
	logger.Info("Found app config", zap.String("package", stored.Package), zap.String("component", stored.Component))

	if stored.Component != "" {
		ok, err := o.device.LaunchByComponent(ctx, stored.Component)
		if err != nil {
			logger.Warn("Component launch failed", zap.Error(err))
		}
		if ok {
			return StrategyComponent, true
		}
	}
	if stored.Package != "" {
		ok, err := o.device.LaunchByPackage(ctx, stored.Package)
		if err != nil {
			logger.Warn("Package launch failed", zap.Error(err))
		}
		if ok {
			return StrategyPackage, true
		}
	}
	logger.Info("Config launch did not reach the app, using visual launch")
	return "", false
}

// locateVisually runs the drawer, drawer icon, home screen and paging steps.
func (o *Orchestrator) locateVisually(ctx context.Context, logger *zap.Logger, appName string) (perception.Match, Strategy, error) {
	o.transition(logger, StateTryDrawer)
	if err := o.device.Home(ctx); err != nil {
		return perception.Match{}, StrategyDrawer, fmt.Errorf("failed to return home: %w", err)
	}
	if err := o.clock.Sleep(ctx, o.cfg.HomeSettle); err != nil {
		return perception.Match{}, StrategyDrawer, err
	}

	drawerOpen := false
	for _, fraction := range o.cfg.DrawerSwipes {
		if err := o.swipeUp(ctx, fraction, o.cfg.HomeSettle); err != nil {
			return perception.Match{}, StrategyDrawer, err
		}
		elements := o.observe(ctx, logger)
		if m, ok := o.find(appName, elements); ok {
			logger.Debug("App visible after drawer swipe", zap.Float64("fraction", fraction))
			return m, StrategyDrawer, nil
		}
		if o.hasDrawerMarker(elements) {
			drawerOpen = true
			break
		}
	}

	if !drawerOpen {
		o.transition(logger, StateTrySearchEntry)
		size := o.device.ScreenSize(ctx)
		x, y := size.Width/2, size.Height-o.cfg.BottomOffset
		logger.Debug("Tapping bottom center to open the drawer", zap.Int("x", x), zap.Int("y", y))
		if err := o.device.Tap(ctx, x, y); err != nil {
			return perception.Match{}, StrategyDrawerTap, fmt.Errorf("failed to tap drawer icon: %w", err)
		}
		if err := o.clock.Sleep(ctx, o.cfg.HomeSettle); err != nil {
			return perception.Match{}, StrategyDrawerTap, err
		}
		if m, ok := o.find(appName, o.observe(ctx, logger)); ok {
			return m, StrategyDrawerTap, nil
		}

		o.transition(logger, StateTryHomeFallback)
		logger.Warn("Could not open the app drawer, searching the home screen")
		if m, ok := o.find(appName, o.observe(ctx, logger)); ok {
			return m, StrategyHome, nil
		}
		return perception.Match{}, StrategyHome, fmt.Errorf("%w: %s", ErrAppNotFound, appName)
	}

	logger.Info("App drawer open, searching it")
	if m, ok := o.find(appName, o.observe(ctx, logger)); ok {
		return m, StrategyDrawer, nil
	}
	for page := 1; page <= o.cfg.MaxPages; page++ {
		if err := o.swipeUp(ctx, o.cfg.PageSwipe, o.cfg.PageSettle); err != nil {
			return perception.Match{}, StrategyPaging, err
		}
		if m, ok := o.find(appName, o.observe(ctx, logger)); ok {
			logger.Debug("App found after paging", zap.Int("page", page))
			return m, StrategyPaging, nil
		}
	}
	return perception.Match{}, StrategyPaging, fmt.Errorf("%w: %s", ErrAppNotFound, appName)
}

func (o *Orchestrator) swipeUp(ctx context.Context, fraction float64, settle time.Duration) error {
	if err := o.device.SwipeDirection(ctx, device.DirectionUp, fraction); err != nil {
		return fmt.Errorf("failed to swipe up: %w", err)
	}
	return o.clock.Sleep(ctx, settle)
}

// observe returns the recognized elements, or none when perception fails.
func (o *Orchestrator) observe(ctx context.Context, logger *zap.Logger) []perception.TextElement {
	frame, err := o.perceiver.Observe(ctx)
	if err != nil {
		logger.Warn("Perception failed during launch, treating screen as empty", zap.Error(err))
		return nil
	}
	return frame.Elements
}

func (o *Orchestrator) find(appName string, elements []perception.TextElement) (perception.Match, bool) {
	matches := o.matcher.FindText(appName, elements, false)
	if len(matches) == 0 {
		return perception.Match{}, false
	}
	return matches[0], true
}

func (o *Orchestrator) hasDrawerMarker(elements []perception.TextElement) bool {
	for _, marker := range o.cfg.SearchMarkers {
		if len(o.matcher.FindText(marker, elements, false)) > 0 {
			return true
		}
	}
	for _, el := range elements {
		for _, marker := range o.cfg.DrawerMarkers {
			if strings.Contains(el.Text, marker) {
				return true
			}
		}
	}
	return false
}

// verify polls the identity check until it confirms appName or the timeout elapses.
// It returns the number of polls made.
func (o *Orchestrator) verify(ctx context.Context, logger *zap.Logger, appName string) (int, error) {
	o.transition(logger, StateVerifying)
	start := o.clock.Now()
	polls := 0
	for o.clock.Now().Sub(start) < o.cfg.VerifyTimeout {
		polls++
		if o.confirmed(ctx, logger, appName, polls) {
			return polls, nil
		}
		if err := o.clock.Sleep(ctx, o.cfg.PollInterval); err != nil {
			return polls, err
		}
	}
	return polls, fmt.Errorf("%w: %s not confirmed after %d polls", ErrLaunchTimeout, appName, polls)
}

func (o *Orchestrator) confirmed(ctx context.Context, logger *zap.Logger, appName string, poll int) bool {
	png, _, err := o.device.Capture(ctx)
	if err != nil {
		logger.Warn("Screenshot failed during verification", zap.Int("poll", poll), zap.Error(err))
		return false
	}
	ok, err := o.identifier.IsApp(ctx, appName, png)
	if err != nil {
		logger.Warn("Identity check unavailable, treating as not confirmed", zap.Int("poll", poll), zap.Error(err))
		return false
	}
	logger.Debug("Identity check", zap.Int("poll", poll), zap.Bool("confirmed", ok))
	return ok
}

// persist stores the foreground component so the next launch can skip visual search.
func (o *Orchestrator) persist(ctx context.Context, logger *zap.Logger, appName string) string {
	if o.store == nil {
		return ""
	}
	pkg, component, err := o.device.ForegroundApp(ctx)
	if err != nil || component == "" {
		logger.Warn("Could not read the foreground component, app config not saved", zap.Error(err))
		return ""
	}
	if err := o.store.Put(ctx, appName, appconfig.AppConfig{Package: pkg, Component: component}); err != nil {
		logger.Warn("Failed to save app config", zap.Error(err))
		return component
	}
	logger.Info("Saved app config", zap.String("component", component))
	return component
}
