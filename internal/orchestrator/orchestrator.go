package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/smartinprabhu/newgpt/internal/capability"
	"github.com/smartinprabhu/newgpt/internal/config"
	"github.com/smartinprabhu/newgpt/internal/logger"
	"github.com/smartinprabhu/newgpt/internal/router"
	"github.com/smartinprabhu/newgpt/internal/session"
	"github.com/smartinprabhu/newgpt/internal/similarity"
	"github.com/smartinprabhu/newgpt/internal/storage"
	"github.com/smartinprabhu/newgpt/internal/task"
	"github.com/smartinprabhu/newgpt/internal/workflow"
	"github.com/smartinprabhu/newgpt/pkg/types"
)

// DatasetFetcher retrieves the historical dataset for a business scope.
// It is optional; a nil fetcher means every node sees the no-dataset marker.
type DatasetFetcher interface {
	FetchScopeDataset(ctx context.Context, bu types.BusinessUnit, lob *types.LineOfBusiness) (string, error)
}

type asyncJob struct {
	taskID string
	req    *types.ExecuteRequest
}

// Orchestrator composes routing, session state, context enrichment, and the
// workflow engine into a single execution path. Async executions run on a
// bounded worker pool; a saturated queue is reported as system-busy at
// submission time, never as a workflow error.
type Orchestrator struct {
	store    storage.Store
	provider capability.Provider
	datasets DatasetFetcher
	tasks    *task.Manager
	sessions *session.Manager
	index    *similarity.Index
	engine   *workflow.Engine

	topK  int
	queue chan asyncJob
	now   func() time.Time
}

// New builds an orchestrator and starts its worker pool. The caller owns the
// lifecycle and must Close to stop the workers.
func New(cfg config.OrchestrationConfig, store storage.Store, provider capability.Provider, datasets DatasetFetcher) *Orchestrator {
	sessions := session.NewManager(store)
	o := &Orchestrator{
		store:    store,
		provider: provider,
		datasets: datasets,
		tasks:    task.NewManager(store),
		sessions: sessions,
		index:    similarity.NewIndex(store, provider, cfg.SimilarityScanCap, cfg.EmbeddingDimension),
		engine:   workflow.NewEngine(provider, sessions),
		topK:     cfg.SimilarityTopK,
		queue:    make(chan asyncJob, cfg.QueueSize),
		now:      time.Now,
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		go func() {
			for job := range o.queue {
				o.process(job)
			}
		}()
	}
	logger.Logger.Info().
		Int("workers", cfg.WorkerCount).
		Int("queue_capacity", cfg.QueueSize).
		Msg("orchestrator worker pool started")

	return o
}

// Close stops the worker pool. In-flight jobs run to completion.
func (o *Orchestrator) Close() {
	close(o.queue)
}

// Tasks exposes the task registry for status polling.
func (o *Orchestrator) Tasks() *task.Manager { return o.tasks }

// Sessions exposes the session registry.
func (o *Orchestrator) Sessions() *session.Manager { return o.sessions }

// ExecuteAsync registers a task and schedules it on the worker pool. ok is
// false when the task cannot be registered or the pool is saturated; the
// caller should report system-busy and ask the client to retry.
func (o *Orchestrator) ExecuteAsync(ctx context.Context, req *types.ExecuteRequest) (string, bool) {
	taskID := task.NewTaskID()
	if !o.tasks.Create(ctx, taskID, req) {
		return "", false
	}

	select {
	case o.queue <- asyncJob{taskID: taskID, req: req}:
		return taskID, true
	default:
		logger.Logger.Warn().Str("task_id", taskID).Msg("worker pool saturated, rejecting task")
		if err := o.store.DeleteTask(ctx, taskID); err != nil {
			logger.Logger.Warn().Err(err).Str("task_id", taskID).Msg("failed to delete rejected task")
		}
		return "", false
	}
}

// Execute runs a request synchronously and returns a structured result.
// Failures are folded into the result; Execute never panics outward.
func (o *Orchestrator) Execute(ctx context.Context, req *types.ExecuteRequest) *types.ExecutionResult {
	return o.run(ctx, "", req)
}

func (o *Orchestrator) process(job asyncJob) {
	// The pool outlives any single request; jobs carry their own context.
	ctx := context.Background()
	result := o.run(ctx, job.taskID, job.req)
	if result.Success {
		o.tasks.Complete(ctx, job.taskID, result)
	}
}

// run drives one execution: route, resolve session, enrich context, run the
// workflow, persist the exchange. A non-empty taskID streams progress into
// the task registry and routes fatal errors to its fail path.
func (o *Orchestrator) run(ctx context.Context, taskID string, req *types.ExecuteRequest) (result *types.ExecutionResult) {
	started := o.now()

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("internal error: %v", r)
			logger.Logger.Error().Str("task_id", taskID).Interface("panic", r).Msg("execution panicked")
			result = o.failResult(ctx, taskID, req, msg, started)
		}
	}()

	if req == nil || req.Prompt == "" {
		return o.failResult(ctx, taskID, req, "prompt is required", started)
	}

	step := router.Classify(req.Prompt, req.SuggestedAgentType)

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = session.NewSessionID()
		o.sessions.Create(ctx, sessionID, req, step)
	} else if _, err := o.sessions.Get(ctx, sessionID); err != nil {
		o.sessions.Create(ctx, sessionID, req, step)
	}
	o.sessions.AppendMessage(ctx, sessionID, "user", req.Prompt)

	o.reportProgress(ctx, taskID, "Analyzing request...", string(step), 5)

	similar := o.index.TopK(ctx, sessionID, req.Prompt, o.topK)

	dataset := ""
	if o.datasets != nil {
		var err error
		dataset, err = o.datasets.FetchScopeDataset(ctx, req.BusinessUnit, req.LineOfBusiness)
		if err != nil {
			// Degrades to the no-dataset marker downstream.
			logger.Logger.Warn().Err(err).
				Str("business_unit", req.BusinessUnit.Code).
				Msg("dataset fetch failed")
			dataset = ""
		}
	}

	state := &workflow.State{
		SessionID:      sessionID,
		Step:           step,
		BusinessUnit:   req.BusinessUnit,
		LineOfBusiness: req.LineOfBusiness,
		Prompt:         req.Prompt,
		Dataset:        dataset,
		Similar:        similar,
	}

	runResult, err := o.engine.Run(ctx, state, func(progress, agent string, pct int) {
		o.reportProgress(ctx, taskID, progress, agent, pct)
	})
	if err != nil {
		return o.failResult(ctx, taskID, req, err.Error(), started)
	}

	o.index.Append(ctx, sessionID, req.Prompt, runResult.Response, map[string]string{
		"agent_type": string(step),
	})

	return &types.ExecutionResult{
		Success:       true,
		Response:      runResult.Response,
		SessionID:     sessionID,
		AgentType:     step,
		WorkflowSteps: runResult.Steps,
		ExecutionTime: o.now().Sub(started).Seconds(),
		Metadata:      runResult.Metadata,
	}
}

func (o *Orchestrator) reportProgress(ctx context.Context, taskID, progress, agent string, pct int) {
	if taskID == "" {
		return
	}
	status := types.TaskStatusRunning
	o.tasks.UpdateProgress(ctx, taskID, types.TaskProgressUpdate{
		Status:       &status,
		Progress:     &progress,
		CurrentAgent: &agent,
		Percentage:   &pct,
	})
}

func (o *Orchestrator) failResult(ctx context.Context, taskID string, req *types.ExecuteRequest, msg string, started time.Time) *types.ExecutionResult {
	if taskID != "" {
		o.tasks.Fail(ctx, taskID, msg, "EXECUTION_ERROR")
	}
	sessionID := ""
	if req != nil {
		sessionID = req.SessionID
	}
	return &types.ExecutionResult{
		Success:       false,
		Response:      msg,
		SessionID:     sessionID,
		WorkflowSteps: []types.WorkflowStep{},
		ExecutionTime: o.now().Sub(started).Seconds(),
	}
}
