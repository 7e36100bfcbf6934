package tools

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/cognition"
	"github.com/xkilldash9x/droidpilot/internal/launcher"
)

type mockLauncher struct{ mock.Mock }

func (m *mockLauncher) Launch(ctx context.Context, appName string) (launcher.Result, error) {
	args := m.Called(ctx, appName)
	res, _ := args.Get(0).(launcher.Result)
	return res, args.Error(1)
}

type mockPerceiver struct{ mock.Mock }

func (m *mockPerceiver) Observe(ctx context.Context) (agent.Frame, error) {
	args := m.Called(ctx)
	frame, _ := args.Get(0).(agent.Frame)
	return frame, args.Error(1)
}

type mockExecutor struct{ mock.Mock }

func (m *mockExecutor) Execute(ctx context.Context, action agent.Action) agent.ActionResult {
	return m.Called(ctx, action).Get(0).(agent.ActionResult)
}

type mockDecider struct{ mock.Mock }

func (m *mockDecider) Decide(ctx context.Context, objective string, frame agent.Frame) cognition.Decision {
	return m.Called(ctx, objective, frame).Get(0).(cognition.Decision)
}

func (m *mockDecider) IsTaskComplete(ctx context.Context, objective string, frame agent.Frame) (bool, error) {
	args := m.Called(ctx, objective, frame)
	return args.Bool(0), args.Error(1)
}

type mockExtractor struct{ mock.Mock }

func (m *mockExtractor) ExtractProduct(ctx context.Context, frame agent.Frame, vision bool) (cognition.Record, error) {
	args := m.Called(ctx, frame, vision)
	rec, _ := args.Get(0).(cognition.Record)
	return rec, args.Error(1)
}

func (m *mockExtractor) ExtractList(ctx context.Context, frame agent.Frame, itemType string) ([]cognition.Record, error) {
	args := m.Called(ctx, frame, itemType)
	recs, _ := args.Get(0).([]cognition.Record)
	return recs, args.Error(1)
}

func (m *mockExtractor) ExtractFormFields(ctx context.Context, frame agent.Frame) ([]cognition.Record, error) {
	args := m.Called(ctx, frame)
	recs, _ := args.Get(0).([]cognition.Record)
	return recs, args.Error(1)
}

// scriptedTool records its lifecycle calls.
type scriptedTool struct {
	calls    []string
	setupErr error
	run      func(ctx context.Context, params Params) (Result, error)
}

func (s *scriptedTool) Setup(context.Context) error {
	s.calls = append(s.calls, "setup")
	return s.setupErr
}

func (s *scriptedTool) Run(ctx context.Context, params Params) (Result, error) {
	s.calls = append(s.calls, "run")
	return s.run(ctx, params)
}

func (s *scriptedTool) Cleanup(context.Context) error {
	s.calls = append(s.calls, "cleanup")
	return nil
}
