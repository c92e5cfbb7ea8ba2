package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartinprabhu/newgpt/internal/storage"
	"github.com/smartinprabhu/newgpt/internal/task"
	"github.com/smartinprabhu/newgpt/pkg/types"
)

// AgentExecutor captures the orchestration operations required by the agent
// execution handlers.
type AgentExecutor interface {
	Execute(ctx context.Context, req *types.ExecuteRequest) *types.ExecutionResult
	ExecuteAsync(ctx context.Context, req *types.ExecuteRequest) (string, bool)
}

// TaskReader resolves task snapshots for status polling.
type TaskReader interface {
	Get(ctx context.Context, taskID string) (*types.Task, error)
}

var _ TaskReader = (*task.Manager)(nil)

// AsyncExecuteResponse is returned when an execution is accepted for
// background processing.
type AsyncExecuteResponse struct {
	Success           bool   `json:"success"`
	TaskID            string `json:"task_id"`
	EstimatedDuration string `json:"estimated_duration"`
	Message           string `json:"message"`
}

// ExecuteAgentHandler handles POST /api/agent/execute. The request is queued
// and the client polls the returned task_id for progress.
func ExecuteAgentHandler(executor AgentExecutor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.ExecuteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request body: %v", err)})
			return
		}

		taskID, ok := executor.ExecuteAsync(c.Request.Context(), &req)
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "System is busy, please try again shortly",
			})
			return
		}

		c.JSON(http.StatusAccepted, AsyncExecuteResponse{
			Success:           true,
			TaskID:            taskID,
			EstimatedDuration: "30-120 seconds",
			Message:           "Task accepted, poll /api/agent/status/" + taskID,
		})
	}
}

// ExecuteAgentSyncHandler handles POST /api/agent/execute/sync and blocks
// until the full result is available.
func ExecuteAgentSyncHandler(executor AgentExecutor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.ExecuteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request body: %v", err)})
			return
		}

		result := executor.Execute(c.Request.Context(), &req)
		status := http.StatusOK
		if !result.Success {
			status = http.StatusInternalServerError
		}
		c.JSON(status, result)
	}
}

// GetTaskStatusHandler handles GET /api/agent/status/:task_id. Expired and
// unknown tasks are indistinguishable and both produce 404.
func GetTaskStatusHandler(tasks TaskReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("task_id")
		if taskID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "task_id is required"})
			return
		}

		t, err := tasks.Get(c.Request.Context(), taskID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Task %s not found or expired", taskID)})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to load task: %v", err)})
			return
		}

		c.JSON(http.StatusOK, t.StatusView())
	}
}
