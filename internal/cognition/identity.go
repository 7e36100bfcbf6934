// internal/cognition/identity.go
package cognition

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/llmclient"
	"github.com/xkilldash9x/droidpilot/internal/llmutil"
)

var (
	negativeMarkers = []string{"不是", "否"}
	negativeWords   = []string{"no", "not"}
)

// IdentityOracle asks a vision model whether a screenshot shows a given app.
type IdentityOracle struct {
	client llmclient.Client
	logger *zap.Logger
}

// NewIdentityOracle creates an oracle backed by client.
func NewIdentityOracle(client llmclient.Client, logger *zap.Logger) *IdentityOracle {
	return &IdentityOracle{client: client, logger: logger.Named("identity")}
}

// IsApp reports whether screenshot shows appName. Errors come only from the
// model call; an unclear answer is reported as false.
func (o *IdentityOracle) IsApp(ctx context.Context, appName string, screenshot []byte) (bool, error) {
	prompt, err := Render(TemplateAppIdentification, TemplateData{AppName: appName})
	if err != nil {
		return false, err
	}
	resp, err := o.client.Generate(ctx, llmclient.Request{
		SystemPrompt: prompt.System,
		UserPrompt:   prompt.User,
		Images:       [][]byte{screenshot},
		Temperature:  0.1,
	})
	if err != nil {
		return false, fmt.Errorf("app identification failed: %w", err)
	}
	ok := ParseIdentityAnswer(resp)
	o.logger.Info("App identification result", zap.String("app", appName), zap.Bool("is_target_app", ok))
	return ok, nil
}

type identityVerdict struct {
	IsTargetApp *bool `json:"is_target_app"`
}

// ParseIdentityAnswer interprets a model's identification answer. Only the
// text after the last separator counts. A JSON verdict wins; otherwise
// negative markers are checked before affirmative ones, so "不是" never
// reads as "是".
func ParseIdentityAnswer(response string) bool {
	answer := llmutil.AnswerAfter(response, AnswerSeparator)
	if v, perr := llmutil.ParseJSON[identityVerdict](answer); perr == nil && v.IsTargetApp != nil {
		return *v.IsTargetApp
	}

	for _, m := range negativeMarkers {
		if strings.Contains(answer, m) {
			return false
		}
	}
	words := strings.FieldsFunc(strings.ToLower(answer), func(r rune) bool {
		return !unicode.IsLetter(r) || unicode.Is(unicode.Han, r)
	})
	for _, w := range words {
		for _, neg := range negativeWords {
			if w == neg {
				return false
			}
		}
	}
	if strings.Contains(answer, "是") {
		return true
	}
	for _, w := range words {
		if w == "yes" {
			return true
		}
	}
	return false
}
