// File: internal/device/bridge.go
package device

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/droidpilot/internal/clock"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"go.uber.org/zap"
)

// Direction is the direction the finger travels during a swipe.
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// ParseDirection validates a direction name.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return d, nil
	}
	return "", fmt.Errorf("unknown swipe direction %q", s)
}

// DefaultSwipeFraction is the share of the screen a directional swipe covers.
const DefaultSwipeFraction = 0.5

// Fallback screen size when the device cannot report one.
const (
	defaultWidth  = 1080
	defaultHeight = 2340
)

// Observer receives the outcome of every transport command.
type Observer interface {
	TransportCall(verb string, err error)
}

type nopObserver struct{}

func (nopObserver) TransportCall(string, error) {}

// Option customizes a Bridge.
type Option func(*Bridge)

// WithClock sets the clock used for settle times, retries and typing delays.
func WithClock(c clock.Clock) Option { return func(b *Bridge) { b.clock = c } }

// WithObserver reports transport outcomes, e.g. to metrics.
func WithObserver(o Observer) Option { return func(b *Bridge) { b.observer = o } }

// WithRand replaces the jitter source. It must return a value in [0, n).
func WithRand(intN func(n int) int) Option { return func(b *Bridge) { b.intN = intN } }

// Bridge wraps a Transport with logging, timeouts, the connection bootstrap,
// the text input ladder and verified app launches.
type Bridge struct {
	transport Transport
	cfg       config.DeviceConfig
	clock     clock.Clock
	observer  Observer
	intN      func(n int) int
	logger    *zap.Logger

	mu     sync.Mutex
	serial string
	size   *Size
}

// NewBridge creates a bridge over transport.
func NewBridge(transport Transport, cfg config.DeviceConfig, logger *zap.Logger, opts ...Option) *Bridge {
	b := &Bridge{
		transport: transport,
		cfg:       cfg,
		clock:     clock.New(),
		observer:  nopObserver{},
		intN:      rand.IntN,
		logger:    logger.Named("device"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Serial returns the device the bridge is bound to, if any.
func (b *Bridge) Serial() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.serial
}

func (b *Bridge) bind(serial string) {
	b.mu.Lock()
	b.serial = serial
	b.size = nil
	b.mu.Unlock()
	b.transport.UseDevice(serial)
	b.logger.Info("Bound to device", zap.String("serial", serial))
}

// call runs one transport command under the configured timeout, reporting
// and logging failures as *TransportError.
func (b *Bridge) call(ctx context.Context, verb string, fn func(context.Context) error) error {
	if b.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.CommandTimeout)
		defer cancel()
	}
	err := fn(ctx)
	b.observer.TransportCall(verb, err)
	if err != nil {
		b.logger.Warn("Device command failed", zap.String("verb", verb), zap.Error(err))
		return &TransportError{Verb: verb, Err: err}
	}
	return nil
}

// Connect binds the bridge to a device. An explicit serial wins. Otherwise a
// wireless endpoint is tried with disconnect/connect cycles, then the first
// attached device in "device" state, then the default local endpoint.
func (b *Bridge) Connect(ctx context.Context) (string, error) {
	if b.cfg.Serial != "" {
		b.bind(b.cfg.Serial)
		return b.cfg.Serial, nil
	}

	if endpoint := b.cfg.WirelessEndpoint; endpoint != "" {
		if b.connectWireless(ctx, endpoint) {
			b.bind(endpoint)
			return endpoint, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		b.logger.Warn("Wireless connection exhausted retries; looking for attached devices",
			zap.String("endpoint", endpoint),
			zap.Int("max_retries", b.cfg.MaxRetries))
	}

	var devices []DeviceInfo
	err := b.call(ctx, "list_devices", func(ctx context.Context) error {
		var err error
		devices, err = b.transport.ListDevices(ctx)
		return err
	})
	if err == nil {
		for _, d := range devices {
			if d.State == StateDevice {
				b.bind(d.Serial)
				return d.Serial, nil
			}
		}
	}

	fallback := b.cfg.DefaultEndpoint
	if fallback == "" {
		return "", ErrNoDevice
	}
	b.logger.Info("No attached device; trying default endpoint", zap.String("endpoint", fallback))
	if err := b.call(ctx, "connect", func(ctx context.Context) error {
		return b.transport.Connect(ctx, fallback)
	}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	b.bind(fallback)
	return fallback, nil
}

func (b *Bridge) connectWireless(ctx context.Context, endpoint string) bool {
	attempts := max(b.cfg.MaxRetries, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		// A stale session makes connect report success without a usable device.
		_ = b.call(ctx, "disconnect", func(ctx context.Context) error {
			return b.transport.Disconnect(ctx, endpoint)
		})
		err := b.call(ctx, "connect", func(ctx context.Context) error {
			return b.transport.Connect(ctx, endpoint)
		})
		if err == nil && b.isListed(ctx, endpoint) {
			return true
		}
		b.logger.Warn("Wireless connection attempt failed",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", attempts))
		if attempt < attempts {
			if err := b.clock.Sleep(ctx, b.cfg.RetryDelay); err != nil {
				return false
			}
		}
	}
	return false
}

func (b *Bridge) isListed(ctx context.Context, serial string) bool {
	var devices []DeviceInfo
	err := b.call(ctx, "list_devices", func(ctx context.Context) error {
		var err error
		devices, err = b.transport.ListDevices(ctx)
		return err
	})
	if err != nil {
		return false
	}
	for _, d := range devices {
		if d.Serial == serial && d.State == StateDevice {
			return true
		}
	}
	return false
}

// Devices lists what the transport can see.
func (b *Bridge) Devices(ctx context.Context) ([]DeviceInfo, error) {
	var devices []DeviceInfo
	err := b.call(ctx, "list_devices", func(ctx context.Context) error {
		var err error
		devices, err = b.transport.ListDevices(ctx)
		return err
	})
	return devices, err
}

// Tap taps (x, y), offset by up to TapJitterPx on each axis.
func (b *Bridge) Tap(ctx context.Context, x, y int) error {
	if j := b.cfg.TapJitterPx; j > 0 {
		x += b.intN(2*j+1) - j
		y += b.intN(2*j+1) - j
	}
	return b.call(ctx, "tap", func(ctx context.Context) error {
		return b.transport.Tap(ctx, x, y)
	})
}

// Swipe drags from (x1, y1) to (x2, y2) over the configured duration.
func (b *Bridge) Swipe(ctx context.Context, x1, y1, x2, y2 int) error {
	return b.call(ctx, "swipe", func(ctx context.Context) error {
		return b.transport.Swipe(ctx, x1, y1, x2, y2, b.cfg.SwipeDuration)
	})
}

// SwipeDirection swipes across fraction of the screen's height (up/down) or
// width (left/right), centered on the screen midpoint.
func (b *Bridge) SwipeDirection(ctx context.Context, dir Direction, fraction float64) error {
	x1, y1, x2, y2, err := SwipeVector(b.ScreenSize(ctx), dir, fraction)
	if err != nil {
		return err
	}
	return b.Swipe(ctx, x1, y1, x2, y2)
}

// SwipeVector computes midpoint-anchored swipe endpoints for a screen.
func SwipeVector(size Size, dir Direction, fraction float64) (x1, y1, x2, y2 int, err error) {
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultSwipeFraction
	}
	cx, cy := size.Width/2, size.Height/2
	dy := int(float64(size.Height) * fraction / 2)
	dx := int(float64(size.Width) * fraction / 2)
	switch dir {
	case DirectionUp:
		return cx, cy + dy, cx, cy - dy, nil
	case DirectionDown:
		return cx, cy - dy, cx, cy + dy, nil
	case DirectionLeft:
		return cx + dx, cy, cx - dx, cy, nil
	case DirectionRight:
		return cx - dx, cy, cx + dx, cy, nil
	}
	return 0, 0, 0, 0, fmt.Errorf("unknown swipe direction %q", dir)
}

// InputText types text, degrading through three tiers: the whole string at
// once, then one character at a time, then key events for ASCII letters and
// digits. Each tier only runs when the previous one failed, and key events
// resume from the first character the per-character tier did not deliver.
func (b *Bridge) InputText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if err := b.call(ctx, "input_text", func(ctx context.Context) error {
		return b.transport.InputText(ctx, text)
	}); err == nil {
		return nil
	}

	runes := []rune(text)
	b.logger.Info("Whole-string input failed; typing per character", zap.Int("runes", len(runes)))
	typed, err := b.typePerCharacter(ctx, runes)
	if err == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.logger.Info("Per-character input failed; synthesizing key events", zap.Int("typed", typed))
	return b.typeKeyCodes(ctx, string(runes[typed:]))
}

// typePerCharacter returns how many runes were delivered before a failure.
func (b *Bridge) typePerCharacter(ctx context.Context, runes []rune) (int, error) {
	for i, r := range runes {
		if err := b.call(ctx, "input_char", func(ctx context.Context) error {
			return b.transport.InputText(ctx, string(r))
		}); err != nil {
			return i, err
		}
		if i < len(runes)-1 {
			if err := b.clock.Sleep(ctx, b.cfg.CharDelay); err != nil {
				return i + 1, err
			}
		}
	}
	return len(runes), nil
}

func (b *Bridge) typeKeyCodes(ctx context.Context, text string) error {
	skipped := 0
	for _, r := range text {
		code, ok := KeyCodeFor(r)
		if !ok {
			skipped++
			continue
		}
		if err := b.PressKey(ctx, code); err != nil {
			return err
		}
	}
	if skipped > 0 {
		b.logger.Warn("Characters without a key code were skipped", zap.Int("skipped", skipped))
	}
	return nil
}

// PressKey sends an Android key event.
func (b *Bridge) PressKey(ctx context.Context, code int) error {
	return b.call(ctx, "key_event", func(ctx context.Context) error {
		return b.transport.KeyEvent(ctx, code)
	})
}

// Back presses the back key.
func (b *Bridge) Back(ctx context.Context) error { return b.PressKey(ctx, KeyCodeBack) }

// Home presses the home key.
func (b *Bridge) Home(ctx context.Context) error { return b.PressKey(ctx, KeyCodeHome) }

// Screenshot returns the current screen as PNG bytes.
func (b *Bridge) Screenshot(ctx context.Context) ([]byte, error) {
	var data []byte
	err := b.call(ctx, "screenshot", func(ctx context.Context) error {
		var err error
		data, err = b.transport.Screenshot(ctx)
		return err
	})
	return data, err
}

// Capture returns the current screen both encoded and decoded.
func (b *Bridge) Capture(ctx context.Context) ([]byte, image.Image, error) {
	data, err := b.Screenshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	b.mu.Lock()
	if b.size == nil {
		b.size = &Size{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	}
	b.mu.Unlock()
	return data, img, nil
}

// ScreenSize returns the device resolution. The first successful answer is
// cached until the bridge binds to another device; failures fall back to the
// configured default.
func (b *Bridge) ScreenSize(ctx context.Context) Size {
	b.mu.Lock()
	if b.size != nil {
		s := *b.size
		b.mu.Unlock()
		return s
	}
	b.mu.Unlock()

	var size Size
	err := b.call(ctx, "screen_size", func(ctx context.Context) error {
		var err error
		size, err = b.transport.ScreenSize(ctx)
		return err
	})
	if err != nil || size.Width <= 0 || size.Height <= 0 {
		return b.defaultSize()
	}
	b.mu.Lock()
	b.size = &size
	b.mu.Unlock()
	return size
}

func (b *Bridge) defaultSize() Size {
	s := Size{Width: b.cfg.DefaultWidth, Height: b.cfg.DefaultHeight}
	if s.Width <= 0 || s.Height <= 0 {
		s = Size{Width: defaultWidth, Height: defaultHeight}
	}
	return s
}

// ForegroundApp returns the package and full component of the focused app.
func (b *Bridge) ForegroundApp(ctx context.Context) (pkg, component string, err error) {
	err = b.call(ctx, "foreground_component", func(ctx context.Context) error {
		var err error
		component, err = b.transport.ForegroundComponent(ctx)
		return err
	})
	if err != nil {
		return "", "", err
	}
	pkg, _ = SplitComponent(component)
	return pkg, component, nil
}

// LaunchByComponent starts an explicit "package/activity" and reports whether
// its package reached the foreground after the settle time.
func (b *Bridge) LaunchByComponent(ctx context.Context, component string) (bool, error) {
	pkg, _ := SplitComponent(component)
	return b.launch(ctx, pkg, "start_component", func(ctx context.Context) error {
		return b.transport.StartComponent(ctx, component)
	})
}

// LaunchByPackage starts a package's launcher activity and reports whether it
// reached the foreground after the settle time.
func (b *Bridge) LaunchByPackage(ctx context.Context, pkg string) (bool, error) {
	return b.launch(ctx, pkg, "start_package", func(ctx context.Context) error {
		return b.transport.StartPackage(ctx, pkg)
	})
}

func (b *Bridge) launch(ctx context.Context, pkg, verb string, start func(context.Context) error) (bool, error) {
	if pkg == "" {
		return false, fmt.Errorf("empty package for %s", verb)
	}
	if err := b.call(ctx, verb, start); err != nil {
		return false, err
	}
	if err := b.clock.Sleep(ctx, b.cfg.LaunchSettle); err != nil {
		return false, err
	}
	current, _, err := b.ForegroundApp(ctx)
	if err != nil {
		return false, err
	}
	ok := current == pkg
	b.logger.Debug("Launch settled",
		zap.String("expected", pkg),
		zap.String("foreground", current),
		zap.Bool("ok", ok))
	return ok, nil
}

// Sleep pauses on the bridge's clock.
func (b *Bridge) Sleep(ctx context.Context, d time.Duration) error {
	return b.clock.Sleep(ctx, d)
}
