package llmclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/droidpilot/internal/config"
)

// capturingServer records the last request body and answers with response.
func capturingServer(t *testing.T, response string) (*httptest.Server, *map[string]any, *string) {
	t.Helper()
	var body map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		body = map[string]any{}
		assert.NoError(t, json.Unmarshal(data, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, &body, &path
}

func TestOpenAIClient_VisionRequest(t *testing.T) {
	srv, body, path := capturingServer(t, `{
		"id": "chatcmpl-1", "object": "chat.completion", "model": "test-model",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"is_target_app\": true}"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
	}`)
	logger, _ := setupTestLogger(t)
	client, err := NewOpenAIClient(getValidLLMConfig(config.ProviderOpenAI, srv.URL+"/v1"), logger)
	require.NoError(t, err)

	got, err := client.Generate(context.Background(), Request{
		SystemPrompt: "You identify apps.",
		UserPrompt:   "Is this 微信?",
		Images:       [][]byte{[]byte("png-bytes")},
		ForceJSON:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"is_target_app": true}`, got)
	assert.Equal(t, "/v1/chat/completions", *path)

	messages := (*body)["messages"].([]any)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.True(t, strings.HasPrefix(image["url"].(string), "data:image/png;base64,"))
	assert.Equal(t, "json_object", (*body)["response_format"].(map[string]any)["type"])
}

func TestOpenAIEmbedder(t *testing.T) {
	srv, body, _ := capturingServer(t, `{
		"object": "list", "model": "text-embedding-3-small",
		"data": [{"object": "embedding", "index": 0, "embedding": [0.25, -0.5, 1]}],
		"usage": {"prompt_tokens": 2, "total_tokens": 2}
	}`)
	e, err := NewOpenAIEmbedder(config.EmbeddingConfig{Provider: config.ProviderOpenAI, Model: "text-embedding-3-small", APIKey: "k", Endpoint: srv.URL + "/v1"})
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "购物车")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, vec)
	assert.Equal(t, "text-embedding-3-small", (*body)["model"])
}

func TestOllamaClient_Generate(t *testing.T) {
	srv, body, path := capturingServer(t,
		`{"model":"test-model","created_at":"2024-05-01T00:00:00Z","message":{"role":"assistant","content":"是"},"done":true}`+"\n")
	logger, _ := setupTestLogger(t)
	client, err := NewOllamaClient(getValidLLMConfig(config.ProviderOllama, srv.URL), logger)
	require.NoError(t, err)

	got, err := client.Generate(context.Background(), Request{UserPrompt: "是微信吗?", Images: [][]byte{[]byte("img")}})
	require.NoError(t, err)
	assert.Equal(t, "是", got)
	assert.Equal(t, "/api/chat", *path)
	assert.Equal(t, false, (*body)["stream"])

	messages := (*body)["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Len(t, messages[0].(map[string]any)["images"], 1)
}

func TestGeminiClient_Generate(t *testing.T) {
	srv, body, path := capturingServer(t, `{
		"candidates": [{"content": {"role": "model", "parts": [{"text": "否"}]}, "finishReason": "STOP"}],
		"usageMetadata": {"promptTokenCount": 9, "candidatesTokenCount": 1, "totalTokenCount": 10}
	}`)
	logger, _ := setupTestLogger(t)
	client, err := NewGeminiClient(context.Background(), getValidLLMConfig(config.ProviderGemini, srv.URL), logger)
	require.NoError(t, err)

	got, err := client.Generate(context.Background(), Request{SystemPrompt: "sys", UserPrompt: "是盒马吗?", Images: [][]byte{[]byte("img")}})
	require.NoError(t, err)
	assert.Equal(t, "否", got)
	assert.Contains(t, *path, "test-model:generateContent")

	contents := (*body)["contents"].([]any)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	assert.Len(t, parts, 2)
}

func TestPNGDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,aGk=", PNGDataURL([]byte("hi")))
}
