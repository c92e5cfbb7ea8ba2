package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smartinprabhu/newgpt/internal/capability"
	"github.com/smartinprabhu/newgpt/internal/logger"
	"github.com/smartinprabhu/newgpt/internal/session"
	"github.com/smartinprabhu/newgpt/pkg/types"
)

// outputSummaryLimit caps the trace's per-step output summary.
const outputSummaryLimit = 200

// ProgressReporter receives progress updates as the run advances. Updates
// for one run are issued sequentially by a single goroutine.
type ProgressReporter func(progress string, currentAgent string, percentage int)

// State is the immutable input of one workflow run.
type State struct {
	SessionID      string
	Step           types.StepName
	BusinessUnit   types.BusinessUnit
	LineOfBusiness *types.LineOfBusiness
	Prompt         string
	Dataset        string
	Similar        []types.SimilarConversation
}

// Result carries the run's combined response and execution trace.
type Result struct {
	Response string
	Steps    []types.WorkflowStep
	Metadata map[string]interface{}
}

// Engine executes workflow plans. Compound steps run the four-node
// forecasting plan, every other step runs a single node. Node failures are
// absorbed as placeholder outputs; the run itself only fails on a nil state
// precondition, before any node executes.
type Engine struct {
	provider capability.Provider
	sessions *session.Manager
	now      func() time.Time
}

// NewEngine builds an engine. sessions may be nil; workflow state tracking
// is then skipped.
func NewEngine(provider capability.Provider, sessions *session.Manager) *Engine {
	return &Engine{provider: provider, sessions: sessions, now: time.Now}
}

type node struct {
	step         types.StepName
	internalName string
	startPct     int
}

// Run executes the plan selected by state.Step. Progress percentages are
// monotone non-decreasing: node start marks climb the ladder and completion
// stays capped below the synthesis terminal 100.
func (e *Engine) Run(ctx context.Context, state *State, report ProgressReporter) (*Result, error) {
	if state == nil || state.Prompt == "" {
		return nil, fmt.Errorf("workflow state missing prompt")
	}
	if report == nil {
		report = func(string, string, int) {}
	}

	if types.IsCompoundStep(state.Step) {
		return e.runForecastingPlan(ctx, state, report), nil
	}
	return e.runSinglePlan(ctx, state, report), nil
}

func (e *Engine) runSinglePlan(ctx context.Context, state *State, report ProgressReporter) *Result {
	run := &runState{engine: e, state: state, report: report}

	run.executeNode(ctx, node{
		step:         state.Step,
		internalName: string(state.Step) + "_main",
		startPct:     40,
	})

	response := "No response generated"
	if len(run.outputs) > 0 {
		response = run.outputs[len(run.outputs)-1]
	}
	return &Result{Response: response, Steps: run.trace, Metadata: run.metadata()}
}

func (e *Engine) runForecastingPlan(ctx context.Context, state *State, report ProgressReporter) *Result {
	run := &runState{engine: e, state: state, report: report}

	nodes := []node{
		{step: types.StepOnboarding, internalName: "onboarding", startPct: 10},
		{step: types.StepDataAnalysis, internalName: "data_analysis", startPct: 35},
		{step: state.Step, internalName: "forecasting", startPct: 60},
	}
	for _, n := range nodes {
		run.executeNode(ctx, n)
	}

	report("Synthesizing final response...", "Synthesis", 85)
	start := e.now().UTC()
	response := synthesize(state, run.outputs)
	run.appendTrace(types.StepName("Synthesis"), "Synthesis", "synthesis", "completed", start, response)
	report("Completed", "Synthesis", 100)

	return &Result{Response: response, Steps: run.trace, Metadata: run.metadata()}
}

// synthesize joins the header lines and the accumulated agent outputs into
// one combined document.
func synthesize(state *State, outputs []string) string {
	lobName := "All LOBs"
	if state.LineOfBusiness != nil {
		lobName = state.LineOfBusiness.Name
	}

	parts := []string{
		"# Multi-Agent Forecasting Analysis",
		fmt.Sprintf("**Business Unit:** %s", state.BusinessUnit.DisplayName),
		fmt.Sprintf("**LOB:** %s", lobName),
		"",
		"## Analysis Results:",
	}
	parts = append(parts, outputs...)
	return strings.Join(parts, "\n\n---\n\n")
}

// runState accumulates trace, outputs, and per-step metadata over one run.
type runState struct {
	engine    *Engine
	state     *State
	report    ProgressReporter
	trace     []types.WorkflowStep
	outputs   []string
	completed []string
	steps     map[string]interface{}
}

func (r *runState) executeNode(ctx context.Context, n node) {
	agent, _ := capability.AgentForStep(n.step)
	agentName := agent.Name
	if agentName == "" {
		agentName = string(n.step)
	}

	r.report(fmt.Sprintf("%s starting...", agentName), string(n.step), n.startPct)

	start := r.engine.now().UTC()
	prompt := capability.BuildContextPrompt(capability.ContextInput{
		BusinessUnit:   r.state.BusinessUnit,
		LineOfBusiness: r.state.LineOfBusiness,
		UserPrompt:     r.state.Prompt,
		Dataset:        r.state.Dataset,
		Similar:        r.state.Similar,
	})

	output, err := r.engine.provider.Invoke(ctx, n.step, prompt)
	status := "completed"
	if err != nil {
		// The run continues; a failed node degrades output quality only.
		logger.Logger.Warn().Err(err).Str("step", n.internalName).Msg("agent node failed")
		output = fmt.Sprintf("Error in %s: %s", n.internalName, err.Error())
		status = "failed"
	}

	r.outputs = append(r.outputs, output)
	r.appendTrace(n.step, agentName, n.internalName, status, start, output)

	// Only successful nodes count as completed or reach the session record;
	// the placeholder output still feeds synthesis through the accumulator.
	if status != "completed" {
		return
	}
	r.completed = append(r.completed, n.internalName)

	if r.engine.sessions != nil && r.state.SessionID != "" {
		r.engine.sessions.UpdateWorkflowState(ctx, r.state.SessionID, n.internalName, r.completed, nil)
		r.engine.sessions.AppendMessage(ctx, r.state.SessionID, "assistant",
			fmt.Sprintf("[%s] %s", n.step, truncate(output, outputSummaryLimit)))
	}
}

func (r *runState) appendTrace(step types.StepName, agentName, internalName, status string, start time.Time, output string) {
	end := r.engine.now().UTC()
	r.trace = append(r.trace, types.WorkflowStep{
		StepNumber:    len(r.trace) + 1,
		AgentName:     agentName,
		AgentType:     string(step),
		Status:        status,
		StartTime:     start,
		EndTime:       end,
		DurationMS:    end.Sub(start).Milliseconds(),
		OutputSummary: truncate(output, outputSummaryLimit),
	})
	if r.steps == nil {
		r.steps = make(map[string]interface{})
	}
	r.steps[internalName] = map[string]interface{}{
		"agent_type":      string(step),
		"agent_name":      agentName,
		"timestamp":       end.Format(time.RFC3339),
		"response_length": len(output),
	}
}

func (r *runState) metadata() map[string]interface{} {
	if r.steps == nil {
		return map[string]interface{}{}
	}
	return r.steps
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
