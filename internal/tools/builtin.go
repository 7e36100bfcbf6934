// internal/tools/builtin.go
package tools

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/cognition"
	"go.uber.org/zap"
)

// Built-in tool names.
const (
	ToolLaunch  = "launch"
	ToolGoal    = "goal"
	ToolExtract = "extract"
)

const defaultGoalSteps = 15

// RegisterBuiltins adds the launch, goal and extract tools to r.
func RegisterBuiltins(r *Registry) error {
	builtins := []Registration{
		{
			Descriptor: Descriptor{Name: ToolLaunch, Description: "Launch an app by display name and verify it is in the foreground", Version: "1.0.0"},
			Factory:    func(env *Env) Tool { return &launchTool{env: env} },
		},
		{
			Descriptor: Descriptor{Name: ToolGoal, Description: "Reach an objective with a perceive, decide and act loop", Version: "1.0.0"},
			Factory:    func(env *Env) Tool { return &goalTool{env: env} },
		},
		{
			Descriptor: Descriptor{Name: ToolExtract, Description: "Extract product, list or form data from the current screen", Version: "1.0.0"},
			Factory:    func(env *Env) Tool { return &extractTool{env: env} },
		},
	}
	for _, b := range builtins {
		if err := r.Register(b.Descriptor, b.Factory); err != nil {
			return err
		}
	}
	return nil
}

// noLifecycle provides empty Setup and Cleanup.
type noLifecycle struct{}

func (noLifecycle) Setup(context.Context) error   { return nil }
func (noLifecycle) Cleanup(context.Context) error { return nil }

// -- launch --

type launchTool struct {
	noLifecycle
	env *Env
}

func (t *launchTool) Setup(context.Context) error {
	return t.env.require("launcher", t.env.Launcher != nil)
}

func (t *launchTool) Run(ctx context.Context, params Params) (Result, error) {
	app := params.String("app")
	if app == "" {
		return Result{}, fmt.Errorf("launch requires the 'app' parameter")
	}
	res, err := t.env.Launcher.Launch(ctx, app)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("%s launched via %s", app, res.Strategy),
		Data:    res,
	}, nil
}

// -- goal --

// GoalStep records one iteration of the goal loop.
type GoalStep struct {
	Step     int                `json:"step"`
	Action   agent.Action       `json:"action"`
	Result   agent.ActionResult `json:"result"`
	Fallback bool               `json:"fallback,omitempty"`
}

type goalTool struct {
	noLifecycle
	env *Env
}

func (t *goalTool) Setup(context.Context) error {
	if err := t.env.require("perceiver", t.env.Perceiver != nil); err != nil {
		return err
	}
	if err := t.env.require("decider", t.env.Decider != nil); err != nil {
		return err
	}
	return t.env.require("executor", t.env.Executor != nil)
}

func (t *goalTool) Run(ctx context.Context, params Params) (Result, error) {
	objective := params.String("objective")
	if objective == "" {
		return Result{}, fmt.Errorf("goal requires the 'objective' parameter")
	}
	maxSteps := params.Int("max_steps", t.env.Tasks.GoalMaxSteps)
	if maxSteps <= 0 {
		maxSteps = defaultGoalSteps
	}
	logger := t.env.Logger.Named("goal").With(zap.String("objective", objective))

	if app := params.String("app"); app != "" {
		if err := t.env.require("launcher", t.env.Launcher != nil); err != nil {
			return Result{}, err
		}
		if _, err := t.env.Launcher.Launch(ctx, app); err != nil {
			return Result{}, fmt.Errorf("failed to launch %s: %w", app, err)
		}
	}

	var steps []GoalStep
	for step := 1; step <= maxSteps; step++ {
		frame, err := t.env.Perceiver.Observe(ctx)
		if err != nil {
			return Result{Success: false, Error: fmt.Sprintf("perception failed at step %d: %v", step, err), Data: steps}, nil
		}

		done, err := t.env.Decider.IsTaskComplete(ctx, objective, frame)
		if err != nil {
			logger.Warn("Completion check failed, continuing", zap.Int("step", step), zap.Error(err))
		}
		if done {
			logger.Info("Objective reached", zap.Int("steps", len(steps)))
			return Result{
				Success: true,
				Message: fmt.Sprintf("objective reached after %d actions", len(steps)),
				Data:    steps,
			}, nil
		}

		decision := t.env.Decider.Decide(ctx, objective, frame)
		res := t.env.Executor.Execute(ctx, decision.Action)
		steps = append(steps, GoalStep{Step: step, Action: decision.Action, Result: res, Fallback: decision.Fallback})
		logger.Info("Goal step executed",
			zap.Int("step", step),
			zap.String("action", decision.Action.String()),
			zap.Bool("success", res.Success))

		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if t.env.Tasks.StepDelay > 0 {
			if err := t.env.Clock.Sleep(ctx, t.env.Tasks.StepDelay); err != nil {
				return Result{}, err
			}
		}
	}
	return Result{
		Success: false,
		Error:   fmt.Sprintf("objective not reached within %d steps", maxSteps),
		Data:    steps,
	}, nil
}

// -- extract --

type extractTool struct {
	noLifecycle
	env *Env
}

func (t *extractTool) Setup(context.Context) error {
	if err := t.env.require("perceiver", t.env.Perceiver != nil); err != nil {
		return err
	}
	return t.env.require("extractor", t.env.Extractor != nil)
}

func (t *extractTool) Run(ctx context.Context, params Params) (Result, error) {
	frame, err := t.env.Perceiver.Observe(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("perception failed: %w", err)
	}

	mode := params.String("mode")
	var data any
	switch mode {
	case "", "product":
		var rec cognition.Record
		rec, err = t.env.Extractor.ExtractProduct(ctx, frame, params.Bool("vision"))
		data = rec
	case "list":
		itemType := params.String("item_type")
		if itemType == "" {
			itemType = "商品"
		}
		data, err = t.env.Extractor.ExtractList(ctx, frame, itemType)
	case "form":
		data, err = t.env.Extractor.ExtractFormFields(ctx, frame)
	default:
		return Result{}, fmt.Errorf("unknown extract mode %q: supported [product, list, form]", mode)
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: fmt.Sprintf("extracted %s data", firstNonEmpty(mode, "product")), Data: data}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
