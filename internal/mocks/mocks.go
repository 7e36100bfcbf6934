// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"image"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/appconfig"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/launcher"
	"github.com/xkilldash9x/droidpilot/internal/llmclient"
	"github.com/xkilldash9x/droidpilot/internal/perception"
)

// -- Device Transport Mock --

// MockTransport mocks device.Transport.
type MockTransport struct {
	mock.Mock
}

var _ device.Transport = (*MockTransport)(nil)

func (m *MockTransport) Tap(ctx context.Context, x, y int) error {
	return m.Called(ctx, x, y).Error(0)
}

func (m *MockTransport) Swipe(ctx context.Context, x1, y1, x2, y2 int, d time.Duration) error {
	return m.Called(ctx, x1, y1, x2, y2, d).Error(0)
}

func (m *MockTransport) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockTransport) InputText(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockTransport) KeyEvent(ctx context.Context, code int) error {
	return m.Called(ctx, code).Error(0)
}

func (m *MockTransport) ListDevices(ctx context.Context) ([]device.DeviceInfo, error) {
	args := m.Called(ctx)
	devices, _ := args.Get(0).([]device.DeviceInfo)
	return devices, args.Error(1)
}

func (m *MockTransport) ForegroundComponent(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockTransport) StartComponent(ctx context.Context, component string) error {
	return m.Called(ctx, component).Error(0)
}

func (m *MockTransport) StartPackage(ctx context.Context, pkg string) error {
	return m.Called(ctx, pkg).Error(0)
}

func (m *MockTransport) Connect(ctx context.Context, endpoint string) error {
	return m.Called(ctx, endpoint).Error(0)
}

func (m *MockTransport) Disconnect(ctx context.Context, endpoint string) error {
	return m.Called(ctx, endpoint).Error(0)
}

func (m *MockTransport) ScreenSize(ctx context.Context) (device.Size, error) {
	args := m.Called(ctx)
	return args.Get(0).(device.Size), args.Error(1)
}

func (m *MockTransport) UseDevice(serial string) {
	m.Called(serial)
}

// -- Perception Mocks --

// MockRecognizer mocks perception.Recognizer.
type MockRecognizer struct {
	mock.Mock
}

var _ perception.Recognizer = (*MockRecognizer)(nil)

func (m *MockRecognizer) Recognize(ctx context.Context, png []byte) ([]perception.Detection, error) {
	args := m.Called(ctx, png)
	dets, _ := args.Get(0).([]perception.Detection)
	return dets, args.Error(1)
}

// MockSimilarityOracle mocks perception.SimilarityOracle.
type MockSimilarityOracle struct {
	mock.Mock
}

var _ perception.SimilarityOracle = (*MockSimilarityOracle)(nil)

func (m *MockSimilarityOracle) Similarity(ctx context.Context, query string, region image.Image) (float64, error) {
	args := m.Called(ctx, query, region)
	return args.Get(0).(float64), args.Error(1)
}

// -- Agent Mocks --

// MockDevice mocks agent.Device and launcher.Device.
type MockDevice struct {
	mock.Mock
}

var (
	_ agent.Device    = (*MockDevice)(nil)
	_ launcher.Device = (*MockDevice)(nil)
)

func (m *MockDevice) Capture(ctx context.Context) ([]byte, image.Image, error) {
	args := m.Called(ctx)
	data, _ := args.Get(0).([]byte)
	img, _ := args.Get(1).(image.Image)
	return data, img, args.Error(2)
}

func (m *MockDevice) Tap(ctx context.Context, x, y int) error {
	return m.Called(ctx, x, y).Error(0)
}

func (m *MockDevice) SwipeDirection(ctx context.Context, dir device.Direction, fraction float64) error {
	return m.Called(ctx, dir, fraction).Error(0)
}

func (m *MockDevice) InputText(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockDevice) Back(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDevice) Home(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDevice) ScreenSize(ctx context.Context) device.Size {
	return m.Called(ctx).Get(0).(device.Size)
}

func (m *MockDevice) ForegroundApp(ctx context.Context) (string, string, error) {
	args := m.Called(ctx)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockDevice) LaunchByComponent(ctx context.Context, component string) (bool, error) {
	args := m.Called(ctx, component)
	return args.Bool(0), args.Error(1)
}

func (m *MockDevice) LaunchByPackage(ctx context.Context, pkg string) (bool, error) {
	args := m.Called(ctx, pkg)
	return args.Bool(0), args.Error(1)
}

// MockPerceiver mocks launcher.Perceiver.
type MockPerceiver struct {
	mock.Mock
}

var _ launcher.Perceiver = (*MockPerceiver)(nil)

func (m *MockPerceiver) Observe(ctx context.Context) (agent.Frame, error) {
	args := m.Called(ctx)
	frame, _ := args.Get(0).(agent.Frame)
	return frame, args.Error(1)
}

// MockIdentifier mocks launcher.Identifier.
type MockIdentifier struct {
	mock.Mock
}

var _ launcher.Identifier = (*MockIdentifier)(nil)

func (m *MockIdentifier) IsApp(ctx context.Context, appName string, screenshot []byte) (bool, error) {
	args := m.Called(ctx, appName, screenshot)
	return args.Bool(0), args.Error(1)
}

// -- Storage Mocks --

// MockAppStore mocks appconfig.Store.
type MockAppStore struct {
	mock.Mock
}

var _ appconfig.Store = (*MockAppStore)(nil)

func (m *MockAppStore) Get(ctx context.Context, name string) (appconfig.AppConfig, error) {
	args := m.Called(ctx, name)
	cfg, _ := args.Get(0).(appconfig.AppConfig)
	return cfg, args.Error(1)
}

func (m *MockAppStore) Put(ctx context.Context, name string, cfg appconfig.AppConfig) error {
	return m.Called(ctx, name, cfg).Error(0)
}

func (m *MockAppStore) List(ctx context.Context) (map[string]appconfig.AppConfig, error) {
	args := m.Called(ctx)
	configs, _ := args.Get(0).(map[string]appconfig.AppConfig)
	return configs, args.Error(1)
}

func (m *MockAppStore) Close() error {
	return m.Called().Error(0)
}

// -- LLM Mocks --

// MockLLMClient mocks llmclient.Client.
type MockLLMClient struct {
	mock.Mock
}

var _ llmclient.Client = (*MockLLMClient)(nil)

func (m *MockLLMClient) Generate(ctx context.Context, req llmclient.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockEmbedder mocks llmclient.Embedder.
type MockEmbedder struct {
	mock.Mock
}

var _ llmclient.Embedder = (*MockEmbedder)(nil)

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	vec, _ := args.Get(0).([]float32)
	return vec, args.Error(1)
}
