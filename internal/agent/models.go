// internal/agent/models.go
package agent

import (
	"fmt"
	"image"
	"time"

	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/perception"
)

// ActionType enumerates the UI actions the executor can dispatch.
type ActionType string

const (
	ActionClick ActionType = "CLICK" // Tap a coordinate or a located target.
	ActionSwipe ActionType = "SWIPE" // Directional swipe across the screen.
	ActionInput ActionType = "INPUT" // Type text into the focused field.
	ActionBack  ActionType = "BACK"  // Press the back key.
	ActionHome  ActionType = "HOME"  // Press the home key.
)

// Action is a request for one UI action. Which fields apply depends on Type:
// CLICK uses Point or Target (+UseVisualSearch, Exclude), SWIPE uses
// Direction (+Distance), INPUT uses Text.
type Action struct {
	Type            ActionType        `json:"type"`
	Target          string            `json:"target,omitempty"`
	Point           *perception.Point `json:"point,omitempty"`
	UseVisualSearch bool              `json:"use_visual_search,omitempty"`
	Exclude         []perception.Rect `json:"exclude,omitempty"`
	Direction       device.Direction  `json:"direction,omitempty"`
	// Distance is the share of the screen to swipe across; 0 means the default.
	Distance float64 `json:"distance,omitempty"`
	Text     string  `json:"text,omitempty"`
	// Reason carries the decision rationale when the action came from an oracle.
	Reason string `json:"reason,omitempty"`
}

// Validate checks that the fields required by the action type are present.
func (a Action) Validate() error {
	switch a.Type {
	case ActionClick:
		if a.Point == nil && a.Target == "" {
			return fmt.Errorf("click requires a point or a target")
		}
	case ActionSwipe:
		if _, err := device.ParseDirection(string(a.Direction)); err != nil {
			return err
		}
		if a.Distance < 0 || a.Distance > 1 {
			return fmt.Errorf("swipe distance must be in [0, 1], got %v", a.Distance)
		}
	case ActionInput:
		if a.Text == "" {
			return fmt.Errorf("input requires text")
		}
	case ActionBack, ActionHome:
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

// String renders a compact description for logs and prompts.
func (a Action) String() string {
	switch a.Type {
	case ActionClick:
		if a.Point != nil {
			return fmt.Sprintf("CLICK %s", a.Point)
		}
		return fmt.Sprintf("CLICK %q", a.Target)
	case ActionSwipe:
		return fmt.Sprintf("SWIPE %s", a.Direction)
	case ActionInput:
		return fmt.Sprintf("INPUT %q", a.Text)
	}
	return string(a.Type)
}

// ActionResult is the outcome of one executed action.
type ActionResult struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Match     *perception.Match `json:"match,omitempty"`
	ErrorCode ErrorCode         `json:"error_code,omitempty"`
}

// HistoryEntry records one executed action.
type HistoryEntry struct {
	ID        string       `json:"id"`
	Action    Action       `json:"action"`
	Result    ActionResult `json:"result"`
	Timestamp time.Time    `json:"timestamp"`
}

// ExecState is the phase of a single Execute call.
type ExecState string

const (
	StateIdle        ExecState = "IDLE"
	StateDispatching ExecState = "DISPATCHING"
	StateCompleted   ExecState = "COMPLETED"
	StateFailed      ExecState = "FAILED"
)

// Frame is one perceived screen.
type Frame struct {
	PNG      []byte                   `json:"-"`
	Image    image.Image              `json:"-"`
	Width    int                      `json:"width"`
	Height   int                      `json:"height"`
	Elements []perception.TextElement `json:"elements"`
	At       time.Time                `json:"at"`
}
