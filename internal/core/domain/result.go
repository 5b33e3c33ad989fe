package domain

import "time"

// SourceSet is the categorized provenance of one query cycle. Web always
// carries all eight category keys, possibly with empty lists.
type SourceSet struct {
	KnowledgeBase []string              `json:"knowledge_base"`
	Web           map[Category][]string `json:"web"`
}

// AskRequest is one incoming query. UserID and SessionID are optional;
// the orchestrator fills in defaults for anonymous conversations.
type AskRequest struct {
	Query     string `json:"query"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResult is the immutable snapshot handed to the caller once per cycle.
type QueryResult struct {
	Query          string    `json:"query"`
	Answer         string    `json:"answer"`
	Sources        SourceSet `json:"sources"`
	RelatedPrompts []string  `json:"related_prompts"`
}

type TurnStatus string

const (
	TurnStatusCompleted TurnStatus = "completed"
)

// ChatTurn is one completed query-answer exchange persisted to history.
type ChatTurn struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	SessionID string     `json:"session_id"`
	Query     string     `json:"query"`
	Answer    string     `json:"answer"`
	Role      string     `json:"role"`
	Status    TurnStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
