// File: internal/device/transport.go
package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Android key codes used by the bridge.
const (
	KeyCodeHome = 3
	KeyCodeBack = 4
)

// StateDevice is the state an attached, authorized device reports.
const StateDevice = "device"

// DeviceInfo is one line of the transport's device listing.
type DeviceInfo struct {
	Serial string `json:"serial"`
	State  string `json:"state"`
}

// Size is a screen size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Transport is the raw command surface of a device. Implementations issue
// exactly one command per call and never retry.
type Transport interface {
	Tap(ctx context.Context, x, y int) error
	Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error
	Screenshot(ctx context.Context) ([]byte, error)
	InputText(ctx context.Context, text string) error
	KeyEvent(ctx context.Context, code int) error
	ListDevices(ctx context.Context) ([]DeviceInfo, error)
	// ForegroundComponent returns "package/activity" of the focused window.
	ForegroundComponent(ctx context.Context) (string, error)
	StartComponent(ctx context.Context, component string) error
	StartPackage(ctx context.Context, pkg string) error
	Connect(ctx context.Context, endpoint string) error
	Disconnect(ctx context.Context, endpoint string) error
	ScreenSize(ctx context.Context) (Size, error)
	// UseDevice pins subsequent commands to serial.
	UseDevice(serial string)
}

// ErrNoDevice is returned when bootstrap finds nothing to talk to.
var ErrNoDevice = errors.New("no device available")

// TransportError wraps a failed transport command.
type TransportError struct {
	Verb string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Verb, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SplitComponent splits "package/activity" into its parts. A bare package
// yields an empty activity.
func SplitComponent(component string) (pkg, activity string) {
	pkg, activity, _ = strings.Cut(strings.TrimSpace(component), "/")
	return pkg, activity
}
