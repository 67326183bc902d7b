package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageServer(t *testing.T, check func(body map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		if check != nil {
			check(body)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":   "msg_001",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": `{"answer":"Yes",`},
				{"type": "text", "text": `"rationale":"on file"}`},
			},
			"model":       "claude-haiku-4-5-20251001",
			"stop_reason": "end_turn",
			"usage": map[string]any{
				"input_tokens":                120,
				"output_tokens":               30,
				"cache_creation_input_tokens": 0,
				"cache_read_input_tokens":     80,
			},
		})
	}))
}

func TestCreateMessage_JoinsTextBlocks(t *testing.T) {
	ts := messageServer(t, nil)
	defer ts.Close()

	c := NewClient("test-key", WithBaseURL(ts.URL), WithMaxRetries(0))
	resp, err := c.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 256,
		Messages:  []Message{{Role: "user", Content: "Do you have a -80 freezer?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_001", resp.ID)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, `{"answer":"Yes","rationale":"on file"}`, resp.Text)
	assert.Equal(t, int64(120), resp.Usage.InputTokens)
	assert.Equal(t, int64(80), resp.Usage.CacheReadInputTokens)
}

func TestCreateMessage_SendsCachedSystemAndTemperature(t *testing.T) {
	ts := messageServer(t, func(body map[string]any) {
		system, ok := body["system"].([]any)
		require.True(t, ok, "system should be a block list")
		require.Len(t, system, 1)
		block := system[0].(map[string]any)
		assert.Equal(t, "judge instructions", block["text"])
		cc, ok := block["cache_control"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "ephemeral", cc["type"])
		assert.Equal(t, "1h", cc["ttl"])
		assert.InDelta(t, 0.0, body["temperature"], 0.0001)
	})
	defer ts.Close()

	temp := 0.0
	c := NewClient("test-key", WithBaseURL(ts.URL), WithMaxRetries(0))
	_, err := c.CreateMessage(context.Background(), MessageRequest{
		Model:       "claude-haiku-4-5-20251001",
		MaxTokens:   256,
		System:      "judge instructions",
		CacheTTL:    "1h",
		Temperature: &temp,
		Messages:    []Message{{Role: "user", Content: "q"}},
	})
	require.NoError(t, err)
}

func TestCreateMessage_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)) //nolint:errcheck
	}))
	defer ts.Close()

	c := NewClient("test-key", WithBaseURL(ts.URL), WithMaxRetries(0))
	_, err := c.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 16,
		Messages:  []Message{{Role: "user", Content: "q"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
}

func TestToSDKMessages_Roles(t *testing.T) {
	out := toSDKMessages([]Message{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
		{Role: "system", Content: "c"},
	})
	require.Len(t, out, 3)
	assert.Equal(t, "user", string(out[0].Role))
	assert.Equal(t, "assistant", string(out[1].Role))
	assert.Equal(t, "user", string(out[2].Role))
}

func TestSystemBlock_NoTTL(t *testing.T) {
	b := systemBlock("text", "")
	assert.Equal(t, "text", b.Text)
	assert.Empty(t, string(b.CacheControl.TTL))
}
