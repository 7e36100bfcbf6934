// internal/tools/tool.go
package tools

import (
	"context"
	"fmt"
	"math"

	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/clock"
	"github.com/xkilldash9x/droidpilot/internal/cognition"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/launcher"
	"go.uber.org/zap"
)

// Descriptor identifies a tool. RequiredApp, when set, is launched before the tool runs.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	RequiredApp string `json:"required_app,omitempty"`
}

// Params are the free-form arguments of a task.
type Params map[string]any

// String returns the string stored under key, or "".
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Int returns the integer stored under key, or def when absent or not a whole number.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	}
	return def
}

// Bool returns the boolean stored under key, or false.
func (p Params) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// Result is the outcome of one tool run.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Failed builds an unsuccessful result from err.
func Failed(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// Tool is a unit of automation run by the task manager. A new instance is
// created for every run; Cleanup is called whenever Setup succeeded.
type Tool interface {
	Setup(ctx context.Context) error
	Run(ctx context.Context, params Params) (Result, error)
	Cleanup(ctx context.Context) error
}

// Factory creates a tool bound to env.
type Factory func(env *Env) Tool

// Launcher brings an app to the foreground.
type Launcher interface {
	Launch(ctx context.Context, appName string) (launcher.Result, error)
}

// Perceiver captures and recognizes the current screen.
type Perceiver interface {
	Observe(ctx context.Context) (agent.Frame, error)
}

// Executor performs a UI action.
type Executor interface {
	Execute(ctx context.Context, action agent.Action) agent.ActionResult
}

// Decider chooses the next action toward an objective.
type Decider interface {
	Decide(ctx context.Context, objective string, frame agent.Frame) cognition.Decision
	IsTaskComplete(ctx context.Context, objective string, frame agent.Frame) (bool, error)
}

// Extractor pulls structured records out of a screen.
type Extractor interface {
	ExtractProduct(ctx context.Context, frame agent.Frame, vision bool) (cognition.Record, error)
	ExtractList(ctx context.Context, frame agent.Frame, itemType string) ([]cognition.Record, error)
	ExtractFormFields(ctx context.Context, frame agent.Frame) ([]cognition.Record, error)
}

// Env is what tools can drive. Fields a tool does not use may be nil.
type Env struct {
	Launcher  Launcher
	Perceiver Perceiver
	Executor  Executor
	Decider   Decider
	Extractor Extractor
	Clock     clock.Clock
	Tasks     config.TasksConfig
	Logger    *zap.Logger
}

func (e *Env) require(what string, present bool) error {
	if !present {
		return fmt.Errorf("tool environment has no %s", what)
	}
	return nil
}
