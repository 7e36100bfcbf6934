// internal/agent/executor.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xkilldash9x/droidpilot/internal/clock"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/perception"
	"go.uber.org/zap"
)

// ErrTargetNotFound is returned when neither text nor visual search located a target.
var ErrTargetNotFound = errors.New("target not found")

var errPerception = errors.New("perception failed")

// Device is the subset of the device bridge the executor drives.
type Device interface {
	Capturer
	Tap(ctx context.Context, x, y int) error
	SwipeDirection(ctx context.Context, dir device.Direction, fraction float64) error
	InputText(ctx context.Context, text string) error
	Back(ctx context.Context) error
	Home(ctx context.Context) error
}

// ActionObserver is notified once per executed action.
type ActionObserver interface {
	ActionExecuted(action ActionType, success bool, code ErrorCode, elapsed time.Duration)
}

type nopActionObserver struct{}

func (nopActionObserver) ActionExecuted(ActionType, bool, ErrorCode, time.Duration) {}

// ActionHandler runs one action type and returns the tapped match, if any.
type ActionHandler func(ctx context.Context, action Action) (*perception.Match, error)

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithActionObserver reports every executed action to o.
func WithActionObserver(o ActionObserver) ExecutorOption {
	return func(e *Executor) { e.observer = o }
}

// WithExecutorClock sets the clock used to time actions.
func WithExecutorClock(c clock.Clock) ExecutorOption {
	return func(e *Executor) { e.clock = c }
}

// Executor dispatches UI actions to the device and records every outcome.
type Executor struct {
	device        Device
	perceiver     *Perceiver
	locator       *Locator
	history       *History
	swipeFraction float64
	handlers      map[ActionType]ActionHandler
	observer      ActionObserver
	clock         clock.Clock
	logger        *zap.Logger
}

// NewExecutor wires an executor. swipeFraction is the default swipe distance.
func NewExecutor(dev Device, perceiver *Perceiver, locator *Locator, history *History, swipeFraction float64, logger *zap.Logger, opts ...ExecutorOption) *Executor {
	if swipeFraction <= 0 || swipeFraction > 1 {
		swipeFraction = device.DefaultSwipeFraction
	}
	e := &Executor{
		device:        dev,
		perceiver:     perceiver,
		locator:       locator,
		history:       history,
		swipeFraction: swipeFraction,
		handlers:      make(map[ActionType]ActionHandler),
		observer:      nopActionObserver{},
		clock:         clock.New(),
		logger:        logger.Named("executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registerHandlers()
	return e
}

// History returns the history the executor appends to.
func (e *Executor) History() *History { return e.history }

func (e *Executor) registerHandlers() {
	e.handlers[ActionClick] = e.handleClick
	e.handlers[ActionSwipe] = e.handleSwipe
	e.handlers[ActionInput] = e.handleInput
	e.handlers[ActionBack] = func(ctx context.Context, _ Action) (*perception.Match, error) {
		return nil, e.device.Back(ctx)
	}
	e.handlers[ActionHome] = func(ctx context.Context, _ Action) (*perception.Match, error) {
		return nil, e.device.Home(ctx)
	}
}

// Execute runs a single action. It never returns an error; failures are
// reported in the result. Exactly one history entry is appended per call.
func (e *Executor) Execute(ctx context.Context, action Action) (result ActionResult) {
	start := e.clock.Now()
	logger := e.logger.With(zap.String("action", action.String()))
	logger.Debug("Action state transition", zap.String("from", string(StateIdle)), zap.String("to", string(StateDispatching)))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic during action execution", zap.Any("panic_value", r), zap.Stack("stack"))
			result = failure(ErrCodeExecutorPanic, fmt.Sprintf("executor panic: %v", r))
		}
		final := StateCompleted
		if !result.Success {
			final = StateFailed
		}
		logger.Debug("Action state transition",
			zap.String("from", string(StateDispatching)),
			zap.String("to", string(final)),
			zap.String("error_code", string(result.ErrorCode)))
		if e.history != nil {
			e.history.Append(action, result)
		}
		e.observer.ActionExecuted(action.Type, result.Success, result.ErrorCode, e.clock.Now().Sub(start))
	}()

	handler, ok := e.handlers[action.Type]
	if !ok {
		return failure(ErrCodeUnknownAction, fmt.Sprintf("no handler for action type %q", action.Type))
	}
	if err := action.Validate(); err != nil {
		return failure(ErrCodeInvalidParameters, err.Error())
	}

	match, err := handler(ctx, action)
	if err != nil {
		code := classify(err)
		logger.Warn("Action execution failed", zap.String("error_code", string(code)), zap.Error(err))
		res := failure(code, err.Error())
		res.Match = match
		return res
	}
	return ActionResult{Success: true, Message: fmt.Sprintf("%s executed", action.Type), Match: match}
}

func failure(code ErrorCode, msg string) ActionResult {
	return ActionResult{Success: false, Message: msg, ErrorCode: code}
}

// classify maps a handler error to its error code.
func classify(err error) ErrorCode {
	var te *device.TransportError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeCancelled
	case errors.Is(err, ErrTargetNotFound):
		return ErrCodeTargetNotFound
	case errors.Is(err, errPerception):
		return ErrCodePerceptionFailure
	case errors.As(err, &te):
		return ErrCodeTransportFailure
	}
	return ErrCodeExecutionFailure
}

func (e *Executor) handleClick(ctx context.Context, action Action) (*perception.Match, error) {
	if action.Point != nil {
		x, y := action.Point.Rounded()
		return nil, e.device.Tap(ctx, x, y)
	}

	frame, err := e.perceiver.Observe(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errPerception, err)
	}
	match, found, err := e.locator.Locate(ctx, frame, action.Target, action.UseVisualSearch, action.Exclude)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errPerception, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrTargetNotFound, action.Target)
	}

	x, y := match.Center.Rounded()
	e.logger.Info("Tapping located target",
		zap.String("target", action.Target),
		zap.String("kind", string(match.Kind)),
		zap.Float64("score", match.Score),
		zap.Int("x", x), zap.Int("y", y))
	if err := e.device.Tap(ctx, x, y); err != nil {
		return &match, err
	}
	return &match, nil
}

func (e *Executor) handleSwipe(ctx context.Context, action Action) (*perception.Match, error) {
	fraction := action.Distance
	if fraction == 0 {
		fraction = e.swipeFraction
	}
	return nil, e.device.SwipeDirection(ctx, action.Direction, fraction)
}

func (e *Executor) handleInput(ctx context.Context, action Action) (*perception.Match, error) {
	return nil, e.device.InputText(ctx, action.Text)
}
