package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontdesk-ai/frontdesk/internal/models"
)

// completionsStub answers chat completion requests the way an
// OpenAI-compatible upstream would.
func completionsStub(t *testing.T, reply string, promptTokens, completionTokens int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content any    `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)
		assert.Equal(t, "system", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": reply,
					},
				},
			},
			"usage": map[string]any{
				"prompt_tokens":     promptTokens,
				"completion_tokens": completionTokens,
				"total_tokens":      promptTokens + completionTokens,
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestNew_SeedsSystemPrompt(t *testing.T) {
	e := New(models.EngineConfig{APIKey: "k", SystemPrompt: "You answer for Joe's Pizza."}, "m1")

	transcript := e.Transcript()
	require.Len(t, transcript.Turns, 1)
	assert.Equal(t, models.RoleSystem, transcript.Turns[0].Role)
	assert.Equal(t, "You answer for Joe's Pizza.", transcript.Turns[0].Content)
}

func TestNew_FallsBackToDefaultModel(t *testing.T) {
	server := completionsStub(t, "hi", 1, 1)
	defer server.Close()

	e := New(models.EngineConfig{APIKey: "k", BaseURL: server.URL, DefaultModel: "fallback-model"}, "")
	assert.Equal(t, "fallback-model", e.model)
}

func TestGreet_RecordsAssistantTurnWithoutTokens(t *testing.T) {
	e := New(models.EngineConfig{APIKey: "k"}, "m1")
	e.Greet("Thanks for calling, how can I help?")
	e.Greet("")

	transcript := e.Transcript()
	require.Len(t, transcript.Turns, 2)
	greeting := transcript.Turns[1]
	assert.Equal(t, models.RoleAssistant, greeting.Role)
	assert.Zero(t, greeting.TokensInput)
	assert.Zero(t, greeting.TokensOutput)
	assert.Equal(t, int64(len("Thanks for calling, how can I help?")), transcript.TTSCharacters())
}

func TestRespond_RecordsReplyAndUsage(t *testing.T) {
	server := completionsStub(t, "We open at nine.", 25, 4)
	defer server.Close()

	e := New(models.EngineConfig{APIKey: "k", BaseURL: server.URL}, "m1")

	reply, err := e.Respond(context.Background(), "When do you open?")
	require.NoError(t, err)
	assert.Equal(t, "We open at nine.", reply)

	transcript := e.Transcript()
	require.Len(t, transcript.Turns, 3) // system, user, assistant
	assert.Equal(t, int64(25), transcript.InputTokens())
	assert.Equal(t, int64(4), transcript.OutputTokens())

	last := transcript.Turns[2]
	assert.Equal(t, models.RoleAssistant, last.Role)
	assert.Equal(t, "We open at nine.", last.Content)
}

func TestRespond_UpstreamErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	e := New(models.EngineConfig{APIKey: "k", BaseURL: server.URL}, "m1")

	_, err := e.Respond(context.Background(), "hello?")
	assert.Error(t, err)
}

func TestTranscript_ReturnsCopy(t *testing.T) {
	e := New(models.EngineConfig{APIKey: "k"}, "m1")
	e.Greet("Hello.")

	first := e.Transcript()
	first.Turns[0].Content = "mutated"

	second := e.Transcript()
	assert.Equal(t, defaultSystemPrompt, second.Turns[0].Content)
}
