package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smartinprabhu/newgpt/internal/logger"
	"github.com/smartinprabhu/newgpt/internal/storage"
	"github.com/smartinprabhu/newgpt/pkg/types"
)

// Manager owns the task lifecycle. Every write refreshes the task's TTL in
// the store. Single writer per task id is assumed: the workflow execution
// that owns a task is the only goroutine updating it.
type Manager struct {
	store storage.Store
	now   func() time.Time
}

func NewManager(store storage.Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// NewTaskID returns a fresh task identifier.
func NewTaskID() string {
	return "task_" + uuid.NewString()
}

// Create writes a new pending task snapshotting the originating request.
// A false return means the store is unavailable or the id is already live;
// callers treat it as "system busy" rather than a hard error.
func (m *Manager) Create(ctx context.Context, taskID string, req *types.ExecuteRequest) bool {
	if _, err := m.store.GetTask(ctx, taskID); err == nil {
		logger.Logger.Warn().Str("task_id", taskID).Msg("task id already exists")
		return false
	} else if !errors.Is(err, storage.ErrNotFound) {
		logger.Logger.Error().Err(err).Str("task_id", taskID).Msg("task store unavailable")
		return false
	}

	now := m.now().UTC()
	task := &types.Task{
		TaskID: taskID,
		Status: types.TaskStatusPending,
		Progress: types.TaskProgress{
			Progress:   "Task created",
			Percentage: 0,
		},
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.SaveTask(ctx, task); err != nil {
		logger.Logger.Error().Err(err).Str("task_id", taskID).Msg("failed to create task")
		return false
	}
	return true
}

// UpdateProgress merges a partial update into the task's progress. Fields not
// present in the update are preserved. Best-effort: a missing task or store
// failure is logged and reported as false, never raised, so progress updates
// can never abort a running workflow.
func (m *Manager) UpdateProgress(ctx context.Context, taskID string, update types.TaskProgressUpdate) bool {
	task, err := m.store.GetTask(ctx, taskID)
	if err != nil {
		logger.Logger.Warn().Err(err).Str("task_id", taskID).Msg("progress update for missing task")
		return false
	}
	if types.IsTerminalTaskStatus(task.Status) {
		logger.Logger.Debug().Str("task_id", taskID).Str("status", string(task.Status)).Msg("ignoring progress update on terminal task")
		return false
	}

	if update.Status != nil {
		task.Status = *update.Status
	}
	if update.Progress != nil {
		task.Progress.Progress = *update.Progress
	}
	if update.CurrentAgent != nil {
		task.Progress.CurrentAgent = update.CurrentAgent
	}
	if update.Percentage != nil {
		task.Progress.Percentage = *update.Percentage
	}
	task.UpdatedAt = m.now().UTC()

	if err := m.store.SaveTask(ctx, task); err != nil {
		logger.Logger.Warn().Err(err).Str("task_id", taskID).Msg("failed to persist progress update")
		return false
	}
	return true
}

// Complete marks the task completed and attaches the result. Last write wins
// if called twice; callers are expected to invoke it once per task.
func (m *Manager) Complete(ctx context.Context, taskID string, result *types.ExecutionResult) bool {
	task, err := m.store.GetTask(ctx, taskID)
	if err != nil {
		logger.Logger.Warn().Err(err).Str("task_id", taskID).Msg("completing missing task")
		return false
	}

	task.Status = types.TaskStatusCompleted
	task.Progress.Progress = "Completed"
	task.Progress.Percentage = 100
	task.Result = result
	task.Error = nil
	task.UpdatedAt = m.now().UTC()

	if err := m.store.SaveTask(ctx, task); err != nil {
		logger.Logger.Error().Err(err).Str("task_id", taskID).Msg("failed to persist task completion")
		return false
	}
	return true
}

// Fail marks the task errored with a structured error payload.
func (m *Manager) Fail(ctx context.Context, taskID string, message, code string) bool {
	task, err := m.store.GetTask(ctx, taskID)
	if err != nil {
		logger.Logger.Warn().Err(err).Str("task_id", taskID).Msg("failing missing task")
		return false
	}

	task.Status = types.TaskStatusError
	task.Progress.Progress = fmt.Sprintf("Failed: %s", message)
	task.Result = nil
	task.Error = &types.TaskError{Message: message, Code: code}
	task.UpdatedAt = m.now().UTC()

	if err := m.store.SaveTask(ctx, task); err != nil {
		logger.Logger.Error().Err(err).Str("task_id", taskID).Msg("failed to persist task failure")
		return false
	}
	return true
}

// Get returns the full current task snapshot, or storage.ErrNotFound for an
// unknown or expired id.
func (m *Manager) Get(ctx context.Context, taskID string) (*types.Task, error) {
	return m.store.GetTask(ctx, taskID)
}
