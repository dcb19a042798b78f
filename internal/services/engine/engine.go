package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/frontdesk-ai/frontdesk/internal/models"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/openai/openai-go/v2"
	openaiOption "github.com/openai/openai-go/v2/option"
)

const defaultSystemPrompt = "You are a friendly and professional receptionist."

// Engine is the conversation half of a session: it turns transcribed caller
// utterances into assistant replies and accumulates the transcript the
// billing path consumes. Speech recognition and synthesis live outside this
// process; the engine only sees and produces text.
type Engine struct {
	client openai.Client
	model  string

	mu    sync.Mutex
	turns []models.Turn
}

// New builds an engine for one session. modelID is the client's configured
// model; cfg carries the upstream endpoint and credentials.
func New(cfg models.EngineConfig, modelID string) *Engine {
	opts := []openaiOption.RequestOption{
		openaiOption.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openaiOption.WithBaseURL(cfg.BaseURL))
	}

	if modelID == "" {
		modelID = cfg.DefaultModel
	}

	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt
	}

	return &Engine{
		client: openai.NewClient(opts...),
		model:  modelID,
		turns: []models.Turn{
			{Role: models.RoleSystem, Content: prompt},
		},
	}
}

// Greet records the canned opening line the agent speaks before the caller
// says anything. It costs synthesis characters but no tokens.
func (e *Engine) Greet(text string) {
	if text == "" {
		return
	}
	e.mu.Lock()
	e.turns = append(e.turns, models.Turn{Role: models.RoleAssistant, Content: text})
	e.mu.Unlock()
}

// Respond appends the caller's utterance, runs one assistant turn against
// the upstream model, and records the reply with the token usage the model
// reported.
func (e *Engine) Respond(ctx context.Context, userText string) (string, error) {
	e.mu.Lock()
	e.turns = append(e.turns, models.Turn{Role: models.RoleUser, Content: userText})
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(e.turns))
	for _, turn := range e.turns {
		switch turn.Role {
		case models.RoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))
		case models.RoleUser:
			messages = append(messages, openai.UserMessage(turn.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		}
	}
	e.mu.Unlock()

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(e.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	reply := resp.Choices[0].Message.Content
	turn := models.Turn{
		Role:         models.RoleAssistant,
		Content:      reply,
		TokensInput:  resp.Usage.PromptTokens,
		TokensOutput: resp.Usage.CompletionTokens,
	}

	e.mu.Lock()
	e.turns = append(e.turns, turn)
	e.mu.Unlock()

	fiberlog.Debugf("Engine: turn completed, %d prompt / %d completion tokens",
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return reply, nil
}

// Transcript returns a copy of the conversation so far.
func (e *Engine) Transcript() *models.Transcript {
	e.mu.Lock()
	defer e.mu.Unlock()

	turns := make([]models.Turn, len(e.turns))
	copy(turns, e.turns)
	return &models.Transcript{Turns: turns}
}
