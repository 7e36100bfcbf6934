// File: internal/device/adb.go
package device

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CommandRunner executes a binary and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// ADBTransport drives a device through the adb command line tool.
type ADBTransport struct {
	adbPath string
	run     CommandRunner
	logger  *zap.Logger

	mu     sync.RWMutex
	serial string
}

var _ Transport = (*ADBTransport)(nil)

// NewADBTransport creates a transport invoking adbPath. A nil runner uses os/exec.
func NewADBTransport(adbPath string, run CommandRunner, logger *zap.Logger) *ADBTransport {
	if adbPath == "" {
		adbPath = "adb"
	}
	if run == nil {
		run = ExecRunner
	}
	return &ADBTransport{adbPath: adbPath, run: run, logger: logger.Named("adb")}
}

func (a *ADBTransport) UseDevice(serial string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.serial = serial
}

func (a *ADBTransport) adb(ctx context.Context, args ...string) ([]byte, error) {
	a.mu.RLock()
	serial := a.serial
	a.mu.RUnlock()
	if serial != "" {
		args = append([]string{"-s", serial}, args...)
	}
	a.logger.Debug("adb", zap.Strings("args", args))
	return a.run(ctx, a.adbPath, args...)
}

func (a *ADBTransport) shell(ctx context.Context, args ...string) ([]byte, error) {
	return a.adb(ctx, append([]string{"shell"}, args...)...)
}

func (a *ADBTransport) Tap(ctx context.Context, x, y int) error {
	_, err := a.shell(ctx, "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

func (a *ADBTransport) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	_, err := a.shell(ctx, "input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1), strconv.Itoa(x2), strconv.Itoa(y2),
		strconv.FormatInt(duration.Milliseconds(), 10))
	return err
}

func (a *ADBTransport) Screenshot(ctx context.Context) ([]byte, error) {
	out, err := a.adb(ctx, "exec-out", "screencap", "-p")
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("screencap returned no data")
	}
	return out, nil
}

func (a *ADBTransport) InputText(ctx context.Context, text string) error {
	out, err := a.shell(ctx, "input", "text", EscapeInputText(text))
	if err != nil {
		return err
	}
	// input text reports some failures on stdout with a zero exit status.
	if s := string(out); strings.Contains(s, "Exception") || strings.Contains(s, "Error") {
		return fmt.Errorf("input text rejected: %s", strings.TrimSpace(s))
	}
	return nil
}

func (a *ADBTransport) KeyEvent(ctx context.Context, code int) error {
	_, err := a.shell(ctx, "input", "keyevent", strconv.Itoa(code))
	return err
}

func (a *ADBTransport) ListDevices(ctx context.Context) ([]DeviceInfo, error) {
	out, err := a.run(ctx, a.adbPath, "devices")
	if err != nil {
		return nil, err
	}
	return ParseDevices(out), nil
}

func (a *ADBTransport) ForegroundComponent(ctx context.Context) (string, error) {
	out, err := a.shell(ctx, "dumpsys", "window")
	if err != nil {
		return "", err
	}
	component, ok := ParseFocusedComponent(out)
	if !ok {
		return "", fmt.Errorf("no focused window in dumpsys output")
	}
	return component, nil
}

func (a *ADBTransport) StartComponent(ctx context.Context, component string) error {
	out, err := a.shell(ctx, "am", "start", "-n", component)
	if err != nil {
		return err
	}
	if s := string(out); strings.Contains(s, "Error") {
		return fmt.Errorf("am start failed: %s", strings.TrimSpace(s))
	}
	return nil
}

func (a *ADBTransport) StartPackage(ctx context.Context, pkg string) error {
	out, err := a.shell(ctx, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
	if err != nil {
		return err
	}
	if s := string(out); strings.Contains(s, "No activities found") || strings.Contains(s, "aborted") {
		return fmt.Errorf("monkey could not start %s: %s", pkg, strings.TrimSpace(s))
	}
	return nil
}

func (a *ADBTransport) Connect(ctx context.Context, endpoint string) error {
	out, err := a.run(ctx, a.adbPath, "connect", endpoint)
	if err != nil {
		return err
	}
	s := strings.ToLower(string(out))
	if strings.Contains(s, "connected to") {
		return nil
	}
	return fmt.Errorf("adb connect %s: %s", endpoint, strings.TrimSpace(string(out)))
}

func (a *ADBTransport) Disconnect(ctx context.Context, endpoint string) error {
	_, err := a.run(ctx, a.adbPath, "disconnect", endpoint)
	return err
}

func (a *ADBTransport) ScreenSize(ctx context.Context) (Size, error) {
	out, err := a.shell(ctx, "wm", "size")
	if err != nil {
		return Size{}, err
	}
	return ParseScreenSize(out)
}

// EscapeInputText prepares text for "adb shell input text": spaces become %s
// and shell metacharacters are backslash escaped.
func EscapeInputText(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == ' ':
			b.WriteString("%s")
		case strings.ContainsRune(`\'"&|;<>()$*?~#!`+"`", r):
			b.WriteRune('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseDevices parses "adb devices" output.
func ParseDevices(out []byte) []DeviceInfo {
	var devices []DeviceInfo
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		devices = append(devices, DeviceInfo{Serial: fields[0], State: fields[1]})
	}
	return devices
}

var (
	focusLineRe = regexp.MustCompile(`(?m)^\s*(mCurrentFocus|mFocusedApp)=.*$`)
	componentRe = regexp.MustCompile(`([A-Za-z0-9_.]+)/([A-Za-z0-9_.$]+)`)
	sizeRe      = regexp.MustCompile(`(Physical|Override) size:\s*(\d+)x(\d+)`)
)

// ParseFocusedComponent extracts "package/activity" from dumpsys window output,
// preferring mCurrentFocus over mFocusedApp.
func ParseFocusedComponent(out []byte) (string, bool) {
	var fallback string
	for _, line := range focusLineRe.FindAllString(string(out), -1) {
		m := componentRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if strings.Contains(line, "mCurrentFocus") {
			return m[0], true
		}
		if fallback == "" {
			fallback = m[0]
		}
	}
	return fallback, fallback != ""
}

// ParseScreenSize parses "wm size" output. An override size wins over the
// physical size.
func ParseScreenSize(out []byte) (Size, error) {
	var size Size
	found := false
	for _, m := range sizeRe.FindAllStringSubmatch(string(out), -1) {
		w, _ := strconv.Atoi(m[2])
		h, _ := strconv.Atoi(m[3])
		if !found || m[1] == "Override" {
			size = Size{Width: w, Height: h}
			found = true
		}
	}
	if !found {
		return Size{}, fmt.Errorf("unrecognized wm size output: %q", strings.TrimSpace(string(out)))
	}
	return size, nil
}
