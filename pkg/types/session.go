package types

import "time"

// ConversationMessage is one entry of a session's ordered history.
type ConversationMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// WorkflowState tracks step progress inside a session.
type WorkflowState struct {
	CurrentStep    string     `json:"current_step"`
	CompletedSteps []string   `json:"completed_steps"`
	PendingSteps   []string   `json:"pending_steps"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// SessionContext is the per-session scope and history record. It is mutated
// append-only by completed workflow steps and expires on its own TTL,
// refreshed on every write.
type SessionContext struct {
	SessionID           string                 `json:"session_id"`
	AgentType           StepName               `json:"agent_type"`
	BusinessUnit        BusinessUnit           `json:"business_unit"`
	LineOfBusiness      *LineOfBusiness        `json:"line_of_business,omitempty"`
	InitialPrompt       string                 `json:"initial_prompt"`
	ConversationHistory []ConversationMessage  `json:"conversation_history"`
	WorkflowState       WorkflowState          `json:"workflow_state"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           *time.Time             `json:"updated_at,omitempty"`
}

// ConversationRecord is one immutable similarity-index entry. Records are
// keyed by session, creation timestamp and a random suffix, and outlive the
// session they were created under.
type ConversationRecord struct {
	SessionID    string            `json:"session_id"`
	Timestamp    int64             `json:"timestamp"`
	QueryText    string            `json:"query_text"`
	ResponseText string            `json:"response_text"`
	Embedding    []float64         `json:"embedding"`
	Metadata     map[string]string `json:"metadata"`
}

// SimilarConversation is one ranked result of a top-K similarity query.
type SimilarConversation struct {
	Query      string            `json:"query"`
	Response   string            `json:"response"`
	Similarity float64           `json:"similarity"`
	Timestamp  int64             `json:"timestamp"`
	Metadata   map[string]string `json:"metadata"`
}
