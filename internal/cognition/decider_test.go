// internal/cognition/decider_test.go
package cognition_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/cognition"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/llmclient"
	"github.com/xkilldash9x/droidpilot/internal/mocks"
	"github.com/xkilldash9x/droidpilot/internal/perception"
)

func newDecider(t *testing.T, response string, err error) (*cognition.Decider, *mocks.MockLLMClient) {
	t.Helper()
	client := new(mocks.MockLLMClient)
	client.On("Generate", mock.Anything, mock.Anything).Return(response, err)
	return cognition.NewDecider(client, agent.NewHistory(10), 0, zaptest.NewLogger(t)), client
}

func TestDecider_Decide(t *testing.T) {
	testCases := []struct {
		name     string
		response string
		expected agent.Action
	}{
		{
			name:     "Click by text",
			response: `{"action_type":"click","target":"搜索","reason":"open search"}`,
			expected: agent.Action{Type: agent.ActionClick, Target: "搜索", Reason: "open search"},
		},
		{
			name:     "Click by coordinate in a fence",
			response: "```json\n{\"action_type\":\"click\",\"target\":[540,1200],\"use_visual_search\":false}\n```",
			expected: agent.Action{Type: agent.ActionClick, Point: &perception.Point{X: 540, Y: 1200}},
		},
		{
			name:     "Visual click",
			response: `{"action_type":"CLICK","target":"购物车图标","use_visual_search":true}`,
			expected: agent.Action{Type: agent.ActionClick, Target: "购物车图标", UseVisualSearch: true},
		},
		{
			name:     "Swipe with direction in target",
			response: `{"action_type":"swipe","target":"up"}`,
			expected: agent.Action{Type: agent.ActionSwipe, Direction: device.DirectionUp},
		},
		{
			name:     "Input with text in target",
			response: `好的 {"action_type":"input","target":"牛奶"}`,
			expected: agent.Action{Type: agent.ActionInput, Text: "牛奶"},
		},
		{
			name:     "Home",
			response: `{"action_type":"home","target":null}`,
			expected: agent.Action{Type: agent.ActionHome},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, _ := newDecider(t, tc.response, nil)
			got := d.Decide(context.Background(), "买牛奶", agent.Frame{})
			assert.False(t, got.Fallback)
			assert.Equal(t, tc.expected, got.Action)
		})
	}
}

func TestDecider_FallsBackToBack(t *testing.T) {
	testCases := []struct {
		name     string
		response string
		err      error
	}{
		{"Oracle error", "", errors.New("timeout")},
		{"Prose only", "I think you should go back.", nil},
		{"Unknown action", `{"action_type":"dance"}`, nil},
		{"Bad coordinate", `{"action_type":"click","target":[1]}`, nil},
		{"Bad swipe", `{"action_type":"swipe","direction":"diagonal"}`, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, _ := newDecider(t, tc.response, tc.err)
			got := d.Decide(context.Background(), "x", agent.Frame{})
			assert.True(t, got.Fallback)
			assert.Equal(t, agent.ActionBack, got.Action.Type)
			assert.NotEmpty(t, got.Action.Reason)
		})
	}
}

func TestDecider_PromptIncludesRecentHistory(t *testing.T) {
	client := new(mocks.MockLLMClient)
	history := agent.NewHistory(10)
	for i := 0; i < 7; i++ {
		history.Append(agent.Action{Type: agent.ActionInput, Text: strings.Repeat("a", i+1)}, agent.ActionResult{Success: true})
	}
	client.On("Generate", mock.Anything, mock.MatchedBy(func(r llmclient.Request) bool {
		return r.ForceJSON &&
			!strings.Contains(r.UserPrompt, `INPUT "aa" `) &&
			strings.Contains(r.UserPrompt, `5. INPUT "aaaaaaa"`)
	})).Return(`{"action_type":"back"}`, nil).Once()

	d := cognition.NewDecider(client, history, 5, zaptest.NewLogger(t))
	got := d.Decide(context.Background(), "x", agent.Frame{})
	assert.Equal(t, agent.ActionBack, got.Action.Type)
	assert.False(t, got.Fallback)
	client.AssertExpectations(t)
}

func TestDecider_IsTaskComplete(t *testing.T) {
	d, _ := newDecider(t, "已完成", nil)
	done, err := d.IsTaskComplete(context.Background(), "x", agent.Frame{})
	require.NoError(t, err)
	assert.True(t, done)

	d, _ = newDecider(t, "未完成", nil)
	done, err = d.IsTaskComplete(context.Background(), "x", agent.Frame{})
	require.NoError(t, err)
	assert.False(t, done)

	d, _ = newDecider(t, "", errors.New("down"))
	_, err = d.IsTaskComplete(context.Background(), "x", agent.Frame{})
	assert.Error(t, err)
}

func TestDecider_AnalyzeScreen(t *testing.T) {
	d, client := newDecider(t, `{"screen_type":"商品列表","key_elements":["搜索框"],"suggested_actions":["点击商品"]}`, nil)
	analysis, err := d.AnalyzeScreen(context.Background(), agent.Frame{PNG: []byte("png")}, true)
	require.NoError(t, err)
	assert.Equal(t, "商品列表", analysis.ScreenType)
	assert.Equal(t, []any{"搜索框"}, analysis.KeyElements)

	req := client.Calls[0].Arguments.Get(1).(llmclient.Request)
	assert.True(t, req.HasImages())
}
