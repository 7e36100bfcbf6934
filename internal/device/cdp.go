// File: internal/device/cdp.go
package device

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"go.uber.org/zap"
)

// CDPTransport drives a mobile-emulated Chrome tab, for apps that ship as web
// pages. A package is a web host and a component is "host/path".
type CDPTransport struct {
	cfg    config.CDPConfig
	logger *zap.Logger

	browserCtx  context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

var _ Transport = (*CDPTransport)(nil)

// swipeSteps is the number of touch moves between touchStart and touchEnd.
const swipeSteps = 10

// NewCDPTransport launches Chrome with mobile emulation and opens cfg.StartURL.
func NewCDPTransport(ctx context.Context, cfg config.CDPConfig, logger *zap.Logger) (*CDPTransport, error) {
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("headless", cfg.Headless),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelTab := chromedp.NewContext(allocCtx)
	t := &CDPTransport{
		cfg:         cfg,
		logger:      logger.Named("cdp"),
		browserCtx:  browserCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}

	err := chromedp.Run(browserCtx,
		emulation.SetDeviceMetricsOverride(int64(cfg.Width), int64(cfg.Height), cfg.Scale, true),
		emulation.SetTouchEmulationEnabled(true),
		chromedp.Navigate(startURL(cfg)),
	)
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to start emulated browser: %w", err)
	}
	return t, nil
}

// Close shuts the tab and the browser down.
func (t *CDPTransport) Close() {
	t.cancelTab()
	t.cancelAlloc()
}

// run executes actions in the tab, aborting when the caller's ctx is done.
func (t *CDPTransport) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(t.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// css converts screenshot pixels to CSS pixels.
func (t *CDPTransport) css(px int) float64 { return float64(px) / t.cfg.Scale }

func (t *CDPTransport) UseDevice(string) {}

func (t *CDPTransport) Tap(ctx context.Context, x, y int) error {
	return t.run(ctx, chromedp.MouseClickXY(t.css(x), t.css(y)))
}

func (t *CDPTransport) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	step := duration / swipeSteps
	touch := func(typ input.TouchType, x, y float64) chromedp.Action {
		var points []*input.TouchPoint
		if typ != input.TouchEnd {
			points = []*input.TouchPoint{{X: x, Y: y}}
		}
		return input.DispatchTouchEvent(typ, points)
	}

	sx, sy, ex, ey := t.css(x1), t.css(y1), t.css(x2), t.css(y2)
	actions := []chromedp.Action{touch(input.TouchStart, sx, sy)}
	for i := 1; i <= swipeSteps; i++ {
		f := float64(i) / swipeSteps
		actions = append(actions, chromedp.Sleep(step), touch(input.TouchMove, sx+(ex-sx)*f, sy+(ey-sy)*f))
	}
	actions = append(actions, touch(input.TouchEnd, ex, ey))
	return t.run(ctx, actions...)
}

func (t *CDPTransport) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := t.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (t *CDPTransport) InputText(ctx context.Context, text string) error {
	return t.run(ctx, input.InsertText(text))
}

func (t *CDPTransport) KeyEvent(ctx context.Context, code int) error {
	switch code {
	case KeyCodeBack:
		return t.run(ctx, chromedp.NavigateBack())
	case KeyCodeHome:
		return t.run(ctx, chromedp.Navigate(startURL(t.cfg)))
	case keyCodeEnter:
		return t.run(ctx, chromedp.KeyEvent(kb.Enter))
	}
	r, ok := runeForKeyCode(code)
	if !ok {
		return fmt.Errorf("key code %d has no browser equivalent", code)
	}
	return t.run(ctx, chromedp.KeyEvent(string(r)))
}

func (t *CDPTransport) ListDevices(context.Context) ([]DeviceInfo, error) {
	return []DeviceInfo{{Serial: "cdp", State: StateDevice}}, nil
}

func (t *CDPTransport) ForegroundComponent(ctx context.Context) (string, error) {
	var loc string
	if err := t.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return ComponentFromURL(loc)
}

func (t *CDPTransport) StartComponent(ctx context.Context, component string) error {
	return t.run(ctx, chromedp.Navigate(URLForApp(component)))
}

func (t *CDPTransport) StartPackage(ctx context.Context, pkg string) error {
	return t.run(ctx, chromedp.Navigate(URLForApp(pkg)))
}

func (t *CDPTransport) Connect(context.Context, string) error    { return nil }
func (t *CDPTransport) Disconnect(context.Context, string) error { return nil }

func (t *CDPTransport) ScreenSize(context.Context) (Size, error) {
	return Size{
		Width:  int(float64(t.cfg.Width) * t.cfg.Scale),
		Height: int(float64(t.cfg.Height) * t.cfg.Scale),
	}, nil
}

const keyCodeEnter = 66

func runeForKeyCode(code int) (rune, bool) {
	switch {
	case code >= keyCode0 && code <= keyCode0+9:
		return rune('0' + code - keyCode0), true
	case code >= keyCodeA && code <= keyCodeA+25:
		return rune('a' + code - keyCodeA), true
	}
	return 0, false
}

func startURL(cfg config.CDPConfig) string {
	if cfg.StartURL == "" {
		return "about:blank"
	}
	return cfg.StartURL
}

// URLForApp turns a web package ("shop.example.com") or component
// ("shop.example.com/cart") into a URL. Full URLs pass through.
func URLForApp(app string) string {
	if strings.Contains(app, "://") {
		return app
	}
	return "https://" + strings.TrimPrefix(app, "/")
}

// ComponentFromURL maps a page URL to "host/path", with "index" for the root.
func ComponentFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid page url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("page url %q has no host", raw)
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		path = "index"
	}
	return u.Host + "/" + path, nil
}
