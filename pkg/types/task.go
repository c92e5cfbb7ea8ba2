package types

import (
	"encoding/json"
	"time"
)

// TaskStatus enumerates the lifecycle states of an asynchronous task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusError     TaskStatus = "error"
)

// IsTerminalTaskStatus reports whether a status admits no further transitions.
func IsTerminalTaskStatus(status TaskStatus) bool {
	return status == TaskStatusCompleted || status == TaskStatusError
}

// TaskProgress carries the polled progress snapshot for a running task.
// CurrentAgent is nil until the first agent node starts. Percentage is
// monotonically non-decreasing while the task is running.
type TaskProgress struct {
	Progress     string  `json:"progress"`
	CurrentAgent *string `json:"current_agent"`
	Percentage   int     `json:"percentage"`
}

// TaskError is the structured error payload attached to a failed task.
type TaskError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Task captures one asynchronous execution unit with a polled lifecycle.
// Exactly one of Result / Error is set once the task leaves the
// pending/running states.
type Task struct {
	TaskID    string           `json:"task_id"`
	Status    TaskStatus       `json:"status"`
	Progress  TaskProgress     `json:"progress"`
	Request   *ExecuteRequest  `json:"request,omitempty"`
	Result    *ExecutionResult `json:"result,omitempty"`
	Error     *TaskError       `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// TaskProgressUpdate is a partial progress update. Nil fields are preserved
// on merge so callers can update a single field without resetting the rest.
type TaskProgressUpdate struct {
	Status       *TaskStatus `json:"status,omitempty"`
	Progress     *string     `json:"progress,omitempty"`
	CurrentAgent *string     `json:"current_agent,omitempty"`
	Percentage   *int        `json:"percentage,omitempty"`
}

// TaskStatusView is the wire shape returned to polling clients.
type TaskStatusView struct {
	TaskID       string           `json:"task_id"`
	Status       TaskStatus       `json:"status"`
	Progress     string           `json:"progress"`
	CurrentAgent *string          `json:"current_agent"`
	Percentage   int              `json:"percentage"`
	Result       *ExecutionResult `json:"result,omitempty"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	ErrorCode    *string          `json:"error_code,omitempty"`
}

// StatusView renders the polled snapshot of a task.
func (t *Task) StatusView() TaskStatusView {
	view := TaskStatusView{
		TaskID:       t.TaskID,
		Status:       t.Status,
		Progress:     t.Progress.Progress,
		CurrentAgent: t.Progress.CurrentAgent,
		Percentage:   t.Progress.Percentage,
		Result:       t.Result,
	}
	if t.Error != nil {
		view.ErrorMessage = &t.Error.Message
		view.ErrorCode = &t.Error.Code
	}
	return view
}

// Marshal serializes a task for storage.
func (t *Task) Marshal() ([]byte, error) {
	return json.Marshal(t)
}

// UnmarshalTask deserializes a stored task snapshot.
func UnmarshalTask(data []byte) (*Task, error) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, err
	}
	return &task, nil
}
