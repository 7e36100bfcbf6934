// internal/llmutil/parser_test.go
package llmutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type decision struct {
	ActionType string `json:"action_type"`
	Target     any    `json:"target"`
	Reason     string `json:"reason"`
}

func TestParseJSON(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected decision
	}{
		{
			name:     "Bare object",
			input:    `{"action_type":"CLICK","target":"搜索","reason":"open search"}`,
			expected: decision{ActionType: "CLICK", Target: "搜索", Reason: "open search"},
		},
		{
			name:     "Markdown fence with language tag",
			input:    "```json\n{\"action_type\": \"BACK\"}\n```",
			expected: decision{ActionType: "BACK"},
		},
		{
			name:     "Prose around the object",
			input:    "I will tap the icon.\n{\"action_type\":\"CLICK\",\"target\":[540, 1200]}\nDone.",
			expected: decision{ActionType: "CLICK", Target: []any{float64(540), float64(1200)}},
		},
		{
			name:     "Braces inside strings are ignored",
			input:    `Answer: {"action_type":"INPUT","reason":"type \"}{\" literally"} trailing }`,
			expected: decision{ActionType: "INPUT", Reason: `type "}{" literally`},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, perr := ParseJSON[decision](tc.input)
			require.Nil(t, perr)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestParseJSON_Failures(t *testing.T) {
	_, perr := ParseJSON[decision]("   ")
	require.NotNil(t, perr)
	assert.Equal(t, ParseEmpty, perr.Kind)

	_, perr = ParseJSON[decision]("I cannot decide.")
	require.NotNil(t, perr)
	assert.Equal(t, ParseNoJSON, perr.Kind)

	_, perr = ParseJSON[decision](`{"action_type": "CLICK"`)
	require.NotNil(t, perr)
	assert.Equal(t, ParseUnbalanced, perr.Kind)

	_, perr = ParseJSON[decision](`{"action_type": 42}`)
	require.NotNil(t, perr)
	assert.Equal(t, ParseInvalid, perr.Kind)
	assert.Error(t, perr.Unwrap())
	assert.Contains(t, perr.Error(), "INVALID")
}

func TestParseJSON_SkipsBracketedProse(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"Bracketed word before the object", "I will tap the [OK] button now:\n{\"action_type\":\"CLICK\",\"target\":\"OK\"}"},
		{"Unclosed brace before the object", "Options {CLICK or BACK:\n{\"action_type\":\"CLICK\",\"target\":\"OK\"}"},
		{"Valid array before the object", "Candidates [1, 2] considered.\n{\"action_type\":\"CLICK\",\"target\":\"OK\"}"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, perr := ParseJSON[decision](tc.input)
			require.Nil(t, perr)
			assert.Equal(t, decision{ActionType: "CLICK", Target: "OK"}, got)
		})
	}
}

func TestExtractJSON_SkipsMalformedCandidates(t *testing.T) {
	got, perr := ExtractJSON(`see [OK] then {"a": 1}`)
	require.Nil(t, perr)
	assert.Equal(t, `{"a": 1}`, got)

	_, perr = ExtractJSON("press [OK] or [Cancel]")
	require.NotNil(t, perr)
	assert.Equal(t, ParseInvalid, perr.Kind)
	assert.Equal(t, "[OK]", perr.Snippet)
}

func TestExtractJSON_Array(t *testing.T) {
	got, perr := ExtractJSON("result: [1, [2, 3], {\"a\": [4]}] ok")
	require.Nil(t, perr)
	assert.Equal(t, `[1, [2, 3], {"a": [4]}]`, got)
}

func TestExtractJSON_BalancedAlwaysRecovered(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		prefix := rapid.StringMatching(`[a-zA-Z .,:]{0,20}`).Draw(t, "prefix")
		suffix := rapid.StringMatching(`[a-zA-Z .,:]{0,20}`).Draw(t, "suffix")
		value := rapid.StringMatching(`[a-z{}\[\] ]{0,12}`).Draw(t, "value")
		payload := `{"reason":` + quote(value) + `}`

		got, perr := ExtractJSON(prefix + payload + suffix)
		if perr != nil {
			t.Fatalf("unexpected parse error: %v", perr)
		}
		if got != payload {
			t.Fatalf("expected %q, got %q", payload, got)
		}
	})
}

func quote(s string) string { return `"` + s + `"` }

func TestAnswerAfter(t *testing.T) {
	assert.Equal(t, "是", AnswerAfter("分析... #### 不确定 #### 是", "####"))
	assert.Equal(t, "no", AnswerAfter("  no  ", "####"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "ab...", truncateString("abcdef", 2))
	assert.Equal(t, "", truncateString("abcdef", 0))
}
