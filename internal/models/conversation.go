package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// End reasons recorded on finished conversations.
const (
	EndReasonCompleted         = "completed"
	EndReasonInsufficientFunds = "insufficient_funds"
	EndReasonTransferred       = "transferred"
	EndReasonError             = "error"
)

// ToolInvocation records one tool call an assistant turn made.
type ToolInvocation struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
	Result    string `json:"result,omitempty"`
}

// Turn is one utterance of the conversation, with the token usage the LLM
// reported for producing it (assistant turns only).
type Turn struct {
	Role         Role             `json:"role"`
	Content      string           `json:"content"`
	ToolCalls    []ToolInvocation `json:"tool_calls,omitempty"`
	TokensInput  int64            `json:"tokens_input,omitempty"`
	TokensOutput int64            `json:"tokens_output,omitempty"`
}

// Transcript is the ordered record of a finished session.
type Transcript struct {
	Turns []Turn `json:"turns"`
}

// InputTokens sums the prompt tokens consumed across all turns.
func (t *Transcript) InputTokens() int64 {
	if t == nil {
		return 0
	}
	var n int64
	for _, turn := range t.Turns {
		n += turn.TokensInput
	}
	return n
}

// OutputTokens sums the completion tokens produced across all turns.
func (t *Transcript) OutputTokens() int64 {
	if t == nil {
		return 0
	}
	var n int64
	for _, turn := range t.Turns {
		n += turn.TokensOutput
	}
	return n
}

// TTSCharacters counts the characters synthesized to speech: the text of
// every assistant turn.
func (t *Transcript) TTSCharacters() int64 {
	if t == nil {
		return 0
	}
	var n int64
	for _, turn := range t.Turns {
		if turn.Role == RoleAssistant {
			n += int64(len([]rune(turn.Content)))
		}
	}
	return n
}

// Value implements driver.Valuer so a transcript persists as JSON.
func (t Transcript) Value() (driver.Value, error) {
	b, err := json.Marshal(t)
	return string(b), err
}

func (t *Transcript) Scan(value any) error {
	if value == nil {
		*t = Transcript{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for Transcript: %T", value)
	}
	return json.Unmarshal(bytes, t)
}

func (Transcript) GormDataType() string {
	return "json"
}

func (Transcript) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "JSONB"
	case "mysql":
		return "JSON"
	case "sqlite":
		return "TEXT"
	case "clickhouse":
		return "String"
	default:
		return "TEXT"
	}
}

// Conversation is the persisted record of one finished call.
type Conversation struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID        string     `gorm:"size:64;not null;index" json:"client_id"`
	SessionID       string     `gorm:"size:64;uniqueIndex" json:"session_id"`
	CallerPhone     string     `gorm:"size:32;default:''" json:"caller_phone,omitempty"`
	DurationSeconds int64      `gorm:"not null;default:0" json:"duration_seconds"`
	EndReason       string     `gorm:"size:32;default:''" json:"end_reason,omitempty"`
	Transcript      Transcript `json:"transcript"`
	CreatedAt       time.Time  `gorm:"not null;autoCreateTime;index" json:"created_at"`
}
