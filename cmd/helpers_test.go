// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/llmclient"
	"go.uber.org/zap"
)

// fakeTransport is an in-memory device that is always in the given foreground.
type fakeTransport struct {
	mu         sync.Mutex
	foreground string
	calls      []string
	png        []byte
}

func newFakeTransport(t *testing.T, foreground string) *fakeTransport {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 108, 234))))
	return &fakeTransport{foreground: foreground, png: buf.Bytes()}
}

func (f *fakeTransport) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeTransport) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeTransport) Tap(context.Context, int, int) error { f.record("tap"); return nil }
func (f *fakeTransport) Swipe(context.Context, int, int, int, int, time.Duration) error {
	f.record("swipe")
	return nil
}
func (f *fakeTransport) Screenshot(context.Context) ([]byte, error) {
	f.record("screenshot")
	return f.png, nil
}
func (f *fakeTransport) InputText(context.Context, string) error { f.record("input"); return nil }
func (f *fakeTransport) KeyEvent(context.Context, int) error     { f.record("key"); return nil }
func (f *fakeTransport) ListDevices(context.Context) ([]device.DeviceInfo, error) {
	return []device.DeviceInfo{{Serial: "emulator-5554", State: device.StateDevice}, {Serial: "R58M", State: "unauthorized"}}, nil
}
func (f *fakeTransport) ForegroundComponent(context.Context) (string, error) {
	f.record("foreground")
	return f.foreground, nil
}
func (f *fakeTransport) StartComponent(_ context.Context, component string) error {
	f.record("start_component " + component)
	return nil
}
func (f *fakeTransport) StartPackage(_ context.Context, pkg string) error {
	f.record("start_package " + pkg)
	return nil
}
func (f *fakeTransport) Connect(context.Context, string) error    { return nil }
func (f *fakeTransport) Disconnect(context.Context, string) error { return nil }
func (f *fakeTransport) ScreenSize(context.Context) (device.Size, error) {
	return device.Size{Width: 1080, Height: 2340}, nil
}
func (f *fakeTransport) UseDevice(string) {}

// useFakes swaps the transport and oracle constructors for the test's lifetime.
func useFakes(t *testing.T, transport device.Transport, oracle llmclient.ClientFunc) {
	t.Helper()
	origTransport, origOracle := newTransport, newOracleClient
	t.Cleanup(func() { newTransport, newOracleClient = origTransport, origOracle })

	newTransport = func(context.Context, config.DeviceConfig, *zap.Logger) (device.Transport, func(), error) {
		return transport, func() {}, nil
	}
	newOracleClient = func(context.Context, config.OracleConfig, *zap.Logger) (llmclient.Client, error) {
		return oracle, nil
	}
}

// writeConfig writes a config that keeps everything inside the test's temp dir.
func writeConfig(t *testing.T, extra string) (path, dir string) {
	t.Helper()
	dir = t.TempDir()
	content := `
logger:
  level: error
device:
  serial: emulator-5554
  launch_settle: 0s
appstore:
  type: file
  path: ` + filepath.Join(dir, "apps.yaml") + `
  watch: false
tasks:
  output_dir: ` + filepath.Join(dir, "out") + `
  wait_after: 0s
  step_delay: 0s
` + extra
	path = filepath.Join(dir, "droidpilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path, dir
}

// executeCommand runs the root command with args and returns its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := NewRootCommand()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}
