package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartinprabhu/newgpt/internal/logger"
	"github.com/smartinprabhu/newgpt/internal/storage"
	"github.com/smartinprabhu/newgpt/pkg/types"
)

// Manager owns session contexts. All operations are best-effort with boolean
// success reporting: session bookkeeping must never abort a running workflow.
// Every write refreshes the session's TTL in the store.
type Manager struct {
	store storage.Store
	now   func() time.Time
}

func NewManager(store storage.Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// NewSessionID returns a fresh session identifier of the form sess_<16 hex>.
func NewSessionID() string {
	return "sess_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// Create stores a fresh session context for an execution.
func (m *Manager) Create(ctx context.Context, sessionID string, req *types.ExecuteRequest, agentType types.StepName) bool {
	session := &types.SessionContext{
		SessionID:           sessionID,
		AgentType:           agentType,
		BusinessUnit:        req.BusinessUnit,
		LineOfBusiness:      req.LineOfBusiness,
		InitialPrompt:       req.Prompt,
		ConversationHistory: []types.ConversationMessage{},
		WorkflowState: types.WorkflowState{
			CompletedSteps: []string{},
			PendingSteps:   []string{},
		},
		Metadata:  map[string]interface{}{},
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.SaveSession(ctx, session); err != nil {
		logger.Logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to store session")
		return false
	}
	return true
}

// Get returns the session context, or storage.ErrNotFound.
func (m *Manager) Get(ctx context.Context, sessionID string) (*types.SessionContext, error) {
	return m.store.GetSession(ctx, sessionID)
}

// Delete removes the session context. Conversation records outlive it.
func (m *Manager) Delete(ctx context.Context, sessionID string) bool {
	if err := m.store.DeleteSession(ctx, sessionID); err != nil {
		logger.Logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to delete session")
		return false
	}
	return true
}

// AppendMessage appends one message to the session's conversation history.
// A missing session is a logged no-op failure, not an error.
func (m *Manager) AppendMessage(ctx context.Context, sessionID, role, content string) bool {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		logger.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("append to missing session")
		return false
	}

	session.ConversationHistory = append(session.ConversationHistory, types.ConversationMessage{
		Role:      role,
		Content:   content,
		Timestamp: m.now().UTC(),
	})
	return m.save(ctx, session)
}

// UpdateWorkflowState replaces the session's workflow state. Missing session
// is a logged no-op failure.
func (m *Manager) UpdateWorkflowState(ctx context.Context, sessionID, currentStep string, completed, pending []string) bool {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		logger.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("workflow state update for missing session")
		return false
	}

	updatedAt := m.now().UTC()
	session.WorkflowState = types.WorkflowState{
		CurrentStep:    currentStep,
		CompletedSteps: completed,
		PendingSteps:   pending,
		UpdatedAt:      &updatedAt,
	}
	return m.save(ctx, session)
}

func (m *Manager) save(ctx context.Context, session *types.SessionContext) bool {
	updatedAt := m.now().UTC()
	session.UpdatedAt = &updatedAt
	if err := m.store.SaveSession(ctx, session); err != nil {
		logger.Logger.Error().Err(err).Str("session_id", session.SessionID).Msg("failed to persist session update")
		return false
	}
	return true
}
