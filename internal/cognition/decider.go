// internal/cognition/decider.go
package cognition

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/llmclient"
	"github.com/xkilldash9x/droidpilot/internal/llmutil"
	"github.com/xkilldash9x/droidpilot/internal/perception"
)

// DefaultRecentActions is how many past actions a decision prompt shows.
const DefaultRecentActions = 5

// Decision is the next action chosen for an objective.
type Decision struct {
	Action agent.Action
	// Fallback is set when the model answer was unusable and BACK was chosen instead.
	Fallback bool
}

// rawDecision is the JSON shape the decision template asks for.
type rawDecision struct {
	ActionType      string `json:"action_type"`
	Target          any    `json:"target"`
	Direction       string `json:"direction"`
	Text            string `json:"text"`
	UseVisualSearch bool   `json:"use_visual_search"`
	Reason          string `json:"reason"`
}

// ScreenAnalysis is the structured description of a screen.
type ScreenAnalysis struct {
	ScreenType               string `json:"screen_type"`
	KeyElements              []any  `json:"key_elements"`
	SuggestedActions         []any  `json:"suggested_actions"`
	AdditionalVisualElements []any  `json:"additional_visual_elements,omitempty"`
}

// Decider chooses actions toward an objective with a language model.
type Decider struct {
	client  llmclient.Client
	history *agent.History
	recent  int
	logger  *zap.Logger
}

// NewDecider creates a decider. history supplies the recent actions shown to
// the model and may be nil.
func NewDecider(client llmclient.Client, history *agent.History, recent int, logger *zap.Logger) *Decider {
	if recent <= 0 {
		recent = DefaultRecentActions
	}
	return &Decider{client: client, history: history, recent: recent, logger: logger.Named("decider")}
}

func (d *Decider) recentEntries() []agent.HistoryEntry {
	if d.history == nil {
		return nil
	}
	return d.history.Recent(d.recent)
}

// Decide picks the next action for objective on frame. It never fails: an
// oracle error or an unparsable answer yields a BACK fallback.
func (d *Decider) Decide(ctx context.Context, objective string, frame agent.Frame) Decision {
	prompt, err := Render(TemplateDecisionMaking, TemplateData{
		Objective: objective,
		Elements:  frame.Elements,
		Recent:    d.recentEntries(),
	})
	if err != nil {
		return fallback(err.Error())
	}

	resp, err := d.client.Generate(ctx, llmclient.Request{
		SystemPrompt: prompt.System,
		UserPrompt:   prompt.User,
		ForceJSON:    true,
	})
	if err != nil {
		d.logger.Warn("Decision oracle failed, falling back to BACK", zap.Error(err))
		return fallback("decision oracle failed: " + err.Error())
	}

	raw, perr := llmutil.ParseJSON[rawDecision](resp)
	if perr != nil {
		d.logger.Warn("Could not parse decision, falling back to BACK",
			zap.String("kind", string(perr.Kind)),
			zap.Error(perr))
		return fallback("unparsable decision")
	}

	action, err := raw.toAction()
	if err != nil {
		d.logger.Warn("Invalid decision, falling back to BACK", zap.Error(err))
		return fallback("invalid decision: " + err.Error())
	}
	d.logger.Info("Decided next action", zap.Stringer("action", action), zap.String("reason", action.Reason))
	return Decision{Action: action}
}

func fallback(reason string) Decision {
	return Decision{Action: agent.Action{Type: agent.ActionBack, Reason: reason}, Fallback: true}
}

func (r rawDecision) toAction() (agent.Action, error) {
	action := agent.Action{
		Type:            agent.ActionType(strings.ToUpper(strings.TrimSpace(r.ActionType))),
		UseVisualSearch: r.UseVisualSearch,
		Text:            r.Text,
		Reason:          r.Reason,
	}

	switch t := r.Target.(type) {
	case nil:
	case string:
		action.Target = t
	case []any:
		p, err := pointFrom(t)
		if err != nil {
			return agent.Action{}, err
		}
		action.Point = &p
	default:
		return agent.Action{}, fmt.Errorf("unsupported target %v", t)
	}

	if action.Type == agent.ActionSwipe {
		dir := r.Direction
		if dir == "" {
			dir = action.Target
		}
		parsed, err := device.ParseDirection(dir)
		if err != nil {
			return agent.Action{}, err
		}
		action.Direction, action.Target = parsed, ""
	}
	if action.Type == agent.ActionInput && action.Text == "" {
		action.Text, action.Target = action.Target, ""
	}
	return action, action.Validate()
}

func pointFrom(v []any) (perception.Point, error) {
	if len(v) != 2 {
		return perception.Point{}, fmt.Errorf("coordinate target needs 2 values, got %d", len(v))
	}
	x, okX := v[0].(float64)
	y, okY := v[1].(float64)
	if !okX || !okY {
		return perception.Point{}, fmt.Errorf("coordinate target must be numeric: %v", v)
	}
	return perception.Point{X: x, Y: y}, nil
}

// IsTaskComplete asks whether objective has been reached on frame.
func (d *Decider) IsTaskComplete(ctx context.Context, objective string, frame agent.Frame) (bool, error) {
	prompt, err := Render(TemplateTaskCompletion, TemplateData{
		Objective: objective,
		Elements:  frame.Elements,
		Recent:    d.recentEntries(),
	})
	if err != nil {
		return false, err
	}
	resp, err := d.client.Generate(ctx, llmclient.Request{
		SystemPrompt: prompt.System,
		UserPrompt:   prompt.User,
		Temperature:  0.1,
	})
	if err != nil {
		return false, fmt.Errorf("completion check failed: %w", err)
	}
	return strings.Contains(resp, CompletionMarker), nil
}

// AnalyzeScreen describes frame. With vision set the screenshot is sent along
// with the recognized text.
func (d *Decider) AnalyzeScreen(ctx context.Context, frame agent.Frame, vision bool) (ScreenAnalysis, error) {
	prompt, err := Render(TemplateScreenAnalysis, TemplateData{Elements: frame.Elements})
	if err != nil {
		return ScreenAnalysis{}, err
	}
	req := llmclient.Request{SystemPrompt: prompt.System, UserPrompt: prompt.User, ForceJSON: true}
	if vision && len(frame.PNG) > 0 {
		req.Images = [][]byte{frame.PNG}
	}
	resp, err := d.client.Generate(ctx, req)
	if err != nil {
		return ScreenAnalysis{}, fmt.Errorf("screen analysis failed: %w", err)
	}
	analysis, perr := llmutil.ParseJSON[ScreenAnalysis](resp)
	if perr != nil {
		return ScreenAnalysis{}, perr
	}
	return analysis, nil
}
