// Package core contains the core domain types for disputa.
package core

import (
	"time"
)

// Roles in a chat transcript.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Agent tags used throughout dialogues. Every dialogue has exactly two
// speaking agents plus synthetic system notices.
const (
	AgentA      = "Agent A"
	AgentB      = "Agent B"
	AgentSystem = "System"
)

// Mode identifies which dialogue protocol produced a transcript.
type Mode string

const (
	ModeSimulated Mode = "simulated"
	ModeDual      Mode = "dual"
)

// AnswerFormat describes the canonical shape of a benchmark's answers.
type AnswerFormat string

const (
	FormatLetter  AnswerFormat = "letter"
	FormatInteger AnswerFormat = "integer"
	FormatWord    AnswerFormat = "word"
	FormatCustom  AnswerFormat = "custom"
)

// Message is a single entry in a dialogue transcript. Agent is set on result
// transcripts so downstream analysis does not have to re-parse speaker
// prefixes out of content.
type Message struct {
	Role    string `json:"role"`
	Agent   string `json:"agent,omitempty"`
	Content string `json:"content"`
}

// TokenUsage accumulates token accounting across the gateway calls of a
// dialogue or a whole evaluation run.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage sample into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// SessionStatus represents the lifecycle of a live dialogue session.
type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
)

// Session represents one live dialogue run (both protocols for one question)
// tracked by the session store and streamed by the web layer.
type Session struct {
	ID          string        `json:"id"`
	Question    string        `json:"question"`
	Strategy    string        `json:"strategy"`
	Status      SessionStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// SessionTurn is a single completed turn persisted for live streaming.
type SessionTurn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Mode      Mode      `json:"mode"`
	Agent     string    `json:"agent"`
	Number    int       `json:"number"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionSummary is a lightweight representation for listing sessions.
type SessionSummary struct {
	ID        string        `json:"id"`
	Question  string        `json:"question"`
	Strategy  string        `json:"strategy"`
	Status    SessionStatus `json:"status"`
	TurnCount int           `json:"turn_count"`
	CreatedAt time.Time     `json:"created_at"`
}
