// internal/agent/executor_test.go
package agent_test

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/clock"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/mocks"
	"github.com/xkilldash9x/droidpilot/internal/perception"
	"go.uber.org/zap/zaptest"
)

type executorFixture struct {
	device     *mocks.MockDevice
	recognizer *mocks.MockRecognizer
	oracle     *mocks.MockSimilarityOracle
	history    *agent.History
	observed   *recordingActionObserver
	executor   *agent.Executor
}

type recordingActionObserver struct {
	calls []agent.ErrorCode
}

func (r *recordingActionObserver) ActionExecuted(_ agent.ActionType, _ bool, code agent.ErrorCode, _ time.Duration) {
	r.calls = append(r.calls, code)
}

func newExecutorFixture(t *testing.T, withOracle bool) *executorFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	f := &executorFixture{
		device:     new(mocks.MockDevice),
		recognizer: new(mocks.MockRecognizer),
		history:    agent.NewHistory(10),
		observed:   &recordingActionObserver{},
	}
	var oracle perception.SimilarityOracle
	if withOracle {
		f.oracle = new(mocks.MockSimilarityOracle)
		oracle = f.oracle
	}
	clk := clock.NewFake(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	perceiver := agent.NewPerceiver(f.device, f.recognizer, f.history, clk, 0, logger)
	locator := agent.NewLocator(config.NewDefaultConfig().Matching(), oracle, logger)
	f.executor = agent.NewExecutor(f.device, perceiver, locator, f.history, 0, logger,
		agent.WithActionObserver(f.observed),
		agent.WithExecutorClock(clk))
	t.Cleanup(func() {
		f.device.AssertExpectations(t)
		f.recognizer.AssertExpectations(t)
	})
	return f
}

func (f *executorFixture) screen(t *testing.T, dets ...perception.Detection) {
	data, img := blankScreen(t, 90, 90)
	f.device.On("Capture", mock.Anything).Return(data, img, nil).Once()
	f.recognizer.On("Recognize", mock.Anything, data).Return(dets, nil).Once()
}

func TestExecutor_ClickPoint(t *testing.T) {
	f := newExecutorFixture(t, false)
	f.device.On("Tap", mock.Anything, 100, 200).Return(nil).Once()

	res := f.executor.Execute(context.Background(), agent.Action{Type: agent.ActionClick, Point: &perception.Point{X: 100.2, Y: 199.6}})

	assert.True(t, res.Success)
	assert.Nil(t, res.Match)
	assert.Equal(t, 1, f.history.Len())
}

func TestExecutor_ClickText(t *testing.T) {
	f := newExecutorFixture(t, false)
	f.screen(t, det("搜索", 30, 20), det("设置", 30, 70))
	f.device.On("Tap", mock.Anything, 30, 20).Return(nil).Once()

	res := f.executor.Execute(context.Background(), agent.Action{Type: agent.ActionClick, Target: "搜索"})

	require.True(t, res.Success, res.Message)
	require.NotNil(t, res.Match)
	assert.Equal(t, "搜索", res.Match.SourceText)
	assert.Equal(t, 1.0, res.Match.Score)
	_, ok := f.history.LastScreenshot()
	assert.True(t, ok, "the observed frame is recorded")
}

func TestExecutor_ClickTextHonorsExcludedRegions(t *testing.T) {
	f := newExecutorFixture(t, false)
	f.screen(t, det("搜索", 30, 20), det("搜索", 30, 70))
	f.device.On("Tap", mock.Anything, 30, 70).Return(nil).Once()

	res := f.executor.Execute(context.Background(), agent.Action{
		Type:    agent.ActionClick,
		Target:  "搜索",
		Exclude: []perception.Rect{{X1: 0, Y1: 0, X2: 90, Y2: 40}},
	})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, perception.Point{X: 30, Y: 70}, res.Match.Center)
}

func TestExecutor_ClickTargetNotFound(t *testing.T) {
	f := newExecutorFixture(t, false)
	f.screen(t, det("设置", 30, 70))

	res := f.executor.Execute(context.Background(), agent.Action{Type: agent.ActionClick, Target: "微信"})

	assert.False(t, res.Success)
	assert.Equal(t, agent.ErrCodeTargetNotFound, res.ErrorCode)
	f.device.AssertNotCalled(t, "Tap", mock.Anything, mock.Anything, mock.Anything)
	require.Equal(t, 1, f.history.Len())
	assert.Equal(t, agent.ErrCodeTargetNotFound, f.history.Entries()[0].Result.ErrorCode)
}

func TestExecutor_ClickPerceptionFailure(t *testing.T) {
	f := newExecutorFixture(t, false)
	f.device.On("Capture", mock.Anything).Return(nil, nil, errors.New("device offline")).Once()

	res := f.executor.Execute(context.Background(), agent.Action{Type: agent.ActionClick, Target: "微信"})

	assert.Equal(t, agent.ErrCodePerceptionFailure, res.ErrorCode)
	assert.Equal(t, 1, f.history.Len())
}

func TestExecutor_ClickVisualSearch(t *testing.T) {
	f := newExecutorFixture(t, true)
	f.screen(t)
	center := mock.MatchedBy(func(img image.Image) bool { return img.Bounds().Min == image.Pt(30, 30) })
	f.oracle.On("Similarity", mock.Anything, "购物车", center).Return(0.9, nil)
	f.oracle.On("Similarity", mock.Anything, "购物车", mock.Anything).Return(0.1, nil)
	f.device.On("Tap", mock.Anything, 45, 45).Return(nil).Once()

	res := f.executor.Execute(context.Background(), agent.Action{Type: agent.ActionClick, Target: "购物车", UseVisualSearch: true})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, perception.MatchVisual, res.Match.Kind)
	assert.InDelta(t, 0.9*perception.DefaultVisualWeight, res.Match.Score, 1e-9)
	f.oracle.AssertNumberOfCalls(t, "Similarity", 9)
}

func TestExecutor_VisualSearchWithoutOracleUsesText(t *testing.T) {
	f := newExecutorFixture(t, false)
	f.screen(t, det("购物车", 60, 60))
	f.device.On("Tap", mock.Anything, 60, 60).Return(nil).Once()

	res := f.executor.Execute(context.Background(), agent.Action{Type: agent.ActionClick, Target: "购物车", UseVisualSearch: true})

	require.True(t, res.Success, res.Message)
	assert.Equal(t, perception.MatchText, res.Match.Kind)
}

func TestExecutor_Swipe(t *testing.T) {
	f := newExecutorFixture(t, false)
	f.device.On("SwipeDirection", mock.Anything, device.DirectionUp, device.DefaultSwipeFraction).Return(nil).Once()
	f.device.On("SwipeDirection", mock.Anything, device.DirectionLeft, 0.3).Return(nil).Once()

	assert.True(t, f.executor.Execute(context.Background(), agent.Action{Type: agent.ActionSwipe, Direction: device.DirectionUp}).Success)
	assert.True(t, f.executor.Execute(context.Background(), agent.Action{Type: agent.ActionSwipe, Direction: device.DirectionLeft, Distance: 0.3}).Success)
	assert.Equal(t, 2, f.history.Len())
}

func TestExecutor_KeysAndInput(t *testing.T) {
	f := newExecutorFixture(t, false)
	f.device.On("Back", mock.Anything).Return(nil).Once()
	f.device.On("Home", mock.Anything).Return(nil).Once()
	f.device.On("InputText", mock.Anything, "hello").
		Return(&device.TransportError{Verb: "key_event", Err: errors.New("closed")}).Once()

	ctx := context.Background()
	assert.True(t, f.executor.Execute(ctx, agent.Action{Type: agent.ActionBack}).Success)
	assert.True(t, f.executor.Execute(ctx, agent.Action{Type: agent.ActionHome}).Success)

	res := f.executor.Execute(ctx, agent.Action{Type: agent.ActionInput, Text: "hello"})
	assert.False(t, res.Success)
	assert.Equal(t, agent.ErrCodeTransportFailure, res.ErrorCode)

	assert.Equal(t, []agent.ErrorCode{"", "", agent.ErrCodeTransportFailure}, f.observed.calls)
	assert.Equal(t, 3, f.history.Len())
}

func TestExecutor_RejectsBadActions(t *testing.T) {
	f := newExecutorFixture(t, false)
	ctx := context.Background()

	res := f.executor.Execute(ctx, agent.Action{Type: "DANCE"})
	assert.Equal(t, agent.ErrCodeUnknownAction, res.ErrorCode)

	res = f.executor.Execute(ctx, agent.Action{Type: agent.ActionClick})
	assert.Equal(t, agent.ErrCodeInvalidParameters, res.ErrorCode)

	res = f.executor.Execute(ctx, agent.Action{Type: agent.ActionSwipe, Direction: "sideways"})
	assert.Equal(t, agent.ErrCodeInvalidParameters, res.ErrorCode)

	assert.Equal(t, 3, f.history.Len(), "failed validations are still recorded")
}

func TestExecutor_Cancelled(t *testing.T) {
	f := newExecutorFixture(t, false)
	f.device.On("Tap", mock.Anything, 1, 1).Return(context.Canceled).Once()

	res := f.executor.Execute(context.Background(), agent.Action{Type: agent.ActionClick, Point: &perception.Point{X: 1, Y: 1}})
	assert.Equal(t, agent.ErrCodeCancelled, res.ErrorCode)
}

func TestExecutor_RecoversFromPanic(t *testing.T) {
	f := newExecutorFixture(t, false)
	f.device.On("Home", mock.Anything).Run(func(mock.Arguments) { panic("boom") }).Return(nil).Once()

	res := f.executor.Execute(context.Background(), agent.Action{Type: agent.ActionHome})

	assert.False(t, res.Success)
	assert.Equal(t, agent.ErrCodeExecutorPanic, res.ErrorCode)
	assert.Contains(t, res.Message, "boom")
	assert.Equal(t, 1, f.history.Len())
}
