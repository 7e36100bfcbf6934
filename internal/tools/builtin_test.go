package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/clock"
	"github.com/xkilldash9x/droidpilot/internal/cognition"
	"github.com/xkilldash9x/droidpilot/internal/launcher"
)

func builtinManager(t *testing.T, env *Env) (*TaskManager, *clock.Fake) {
	t.Helper()
	m, reg, fake := newManager(t, env)
	require.NoError(t, RegisterBuiltins(reg))
	return m, fake
}

func TestLaunchTool(t *testing.T) {
	ml := new(mockLauncher)
	m, _ := builtinManager(t, &Env{Launcher: ml})
	ctx := context.Background()

	ml.On("Launch", ctx, "微信").Return(launcher.Result{App: "微信", Strategy: launcher.StrategyDrawer, Polls: 2}, nil).Once()
	rec := m.Execute(ctx, Task{Tool: ToolLaunch, Params: Params{"app": "微信"}})
	require.True(t, rec.Result.Success, rec.Result.Error)
	assert.Equal(t, "微信 launched via drawer", rec.Result.Message)

	rec = m.Execute(ctx, Task{Tool: ToolLaunch})
	assert.Contains(t, rec.Result.Error, "'app' parameter")

	noLauncher, _ := builtinManager(t, &Env{})
	rec = noLauncher.Execute(ctx, Task{Tool: ToolLaunch, Params: Params{"app": "微信"}})
	assert.Contains(t, rec.Result.Error, "tool environment has no launcher")
	ml.AssertExpectations(t)
}

func TestGoalTool_ReachesObjective(t *testing.T) {
	mp, md, me := new(mockPerceiver), new(mockDecider), new(mockExecutor)
	m, fake := builtinManager(t, &Env{Perceiver: mp, Decider: md, Executor: me})
	ctx := context.Background()
	objective := "搜索牛奶"

	frame := agent.Frame{Width: 1080, Height: 2340}
	mp.On("Observe", ctx).Return(frame, nil)
	md.On("IsTaskComplete", ctx, objective, frame).Return(false, nil).Once()
	md.On("IsTaskComplete", ctx, objective, frame).Return(false, errors.New("rate limited")).Once()
	md.On("IsTaskComplete", ctx, objective, frame).Return(true, nil).Once()

	click := agent.Action{Type: agent.ActionClick, Target: "搜索"}
	input := agent.Action{Type: agent.ActionInput, Text: "牛奶"}
	md.On("Decide", ctx, objective, frame).Return(cognition.Decision{Action: click}).Once()
	md.On("Decide", ctx, objective, frame).Return(cognition.Decision{Action: input}).Once()
	me.On("Execute", ctx, click).Return(agent.ActionResult{Success: true}).Once()
	me.On("Execute", ctx, input).Return(agent.ActionResult{Success: true}).Once()

	rec := m.Execute(ctx, Task{Tool: ToolGoal, Params: Params{"objective": objective}})
	require.True(t, rec.Result.Success, rec.Result.Error)
	steps, ok := rec.Result.Data.([]GoalStep)
	require.True(t, ok)
	require.Len(t, steps, 2)
	assert.Equal(t, click, steps[0].Action)
	assert.Equal(t, input, steps[1].Action)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, fake.Sleeps())

	mp.AssertExpectations(t)
	md.AssertExpectations(t)
	me.AssertExpectations(t)
}

func TestGoalTool_StepLimit(t *testing.T) {
	mp, md, me := new(mockPerceiver), new(mockDecider), new(mockExecutor)
	m, _ := builtinManager(t, &Env{Perceiver: mp, Decider: md, Executor: me})
	ctx := context.Background()

	back := agent.Action{Type: agent.ActionBack}
	mp.On("Observe", ctx).Return(agent.Frame{}, nil)
	md.On("IsTaskComplete", ctx, "x", agent.Frame{}).Return(false, nil)
	md.On("Decide", ctx, "x", agent.Frame{}).Return(cognition.Decision{Action: back, Fallback: true})
	me.On("Execute", ctx, back).Return(agent.ActionResult{Success: true})

	rec := m.Execute(ctx, Task{Tool: ToolGoal, Params: Params{"objective": "x", "max_steps": 3}})
	assert.False(t, rec.Result.Success)
	assert.Equal(t, "objective not reached within 3 steps", rec.Result.Error)
	me.AssertNumberOfCalls(t, "Execute", 3)
	steps := rec.Result.Data.([]GoalStep)
	assert.True(t, steps[0].Fallback)
}

func TestGoalTool_LaunchesAppAndStopsOnPerceptionFailure(t *testing.T) {
	ml, mp, md, me := new(mockLauncher), new(mockPerceiver), new(mockDecider), new(mockExecutor)
	m, _ := builtinManager(t, &Env{Launcher: ml, Perceiver: mp, Decider: md, Executor: me})
	ctx := context.Background()

	ml.On("Launch", ctx, "盒马").Return(launcher.Result{}, nil).Once()
	mp.On("Observe", ctx).Return(agent.Frame{}, errors.New("ocr offline")).Once()

	rec := m.Execute(ctx, Task{Tool: ToolGoal, Params: Params{"objective": "x", "app": "盒马"}})
	assert.False(t, rec.Result.Success)
	assert.Contains(t, rec.Result.Error, "perception failed at step 1")
	md.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything, mock.Anything)
	ml.AssertExpectations(t)
}

func TestExtractTool(t *testing.T) {
	mp, mx := new(mockPerceiver), new(mockExtractor)
	m, _ := builtinManager(t, &Env{Perceiver: mp, Extractor: mx})
	ctx := context.Background()
	frame := agent.Frame{Width: 1080}
	mp.On("Observe", ctx).Return(frame, nil)

	mx.On("ExtractProduct", ctx, frame, true).Return(cognition.Record{"name": "牛奶", "price": "¥12.9"}, nil).Once()
	rec := m.Execute(ctx, Task{Tool: ToolExtract, Params: Params{"vision": true}})
	require.True(t, rec.Result.Success, rec.Result.Error)
	assert.Equal(t, cognition.Record{"name": "牛奶", "price": "¥12.9"}, rec.Result.Data)

	mx.On("ExtractList", ctx, frame, "商品").Return([]cognition.Record{{"name": "a"}, {"name": "b"}}, nil).Once()
	rec = m.Execute(ctx, Task{Tool: ToolExtract, Params: Params{"mode": "list"}})
	require.True(t, rec.Result.Success)
	assert.Len(t, rec.Result.Data, 2)

	mx.On("ExtractFormFields", ctx, frame).Return(nil, errors.New("parse failed")).Once()
	rec = m.Execute(ctx, Task{Tool: ToolExtract, Params: Params{"mode": "form"}})
	assert.Equal(t, "parse failed", rec.Result.Error)

	rec = m.Execute(ctx, Task{Tool: ToolExtract, Params: Params{"mode": "table"}})
	assert.Contains(t, rec.Result.Error, "unknown extract mode")
	mx.AssertExpectations(t)
}
