package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartinprabhu/newgpt/internal/session"
	"github.com/smartinprabhu/newgpt/internal/storage"
	"github.com/smartinprabhu/newgpt/pkg/types"
)

// scriptedProvider answers per-step; steps listed in failSteps fail.
type scriptedProvider struct {
	responses map[types.StepName]string
	failSteps map[types.StepName]error
	invoked   []types.StepName
}

func (p *scriptedProvider) Invoke(_ context.Context, step types.StepName, _ string) (string, error) {
	p.invoked = append(p.invoked, step)
	if err, ok := p.failSteps[step]; ok {
		return "", err
	}
	if resp, ok := p.responses[step]; ok {
		return resp, nil
	}
	return fmt.Sprintf("output of %s", step), nil
}

func (p *scriptedProvider) Embed(context.Context, string) ([]float64, error) {
	return nil, errors.New("not implemented")
}

type progressCall struct {
	progress string
	agent    string
	pct      int
}

func collectProgress(calls *[]progressCall) ProgressReporter {
	return func(progress, agent string, pct int) {
		*calls = append(*calls, progressCall{progress, agent, pct})
	}
}

func forecastState(step types.StepName) *State {
	lob := &types.LineOfBusiness{ID: 1, Name: "Customer Support"}
	return &State{
		SessionID:      "sess_wf",
		Step:           step,
		BusinessUnit:   types.BusinessUnit{Code: "BU1", DisplayName: "Retail"},
		LineOfBusiness: lob,
		Prompt:         "forecast call volume",
	}
}

func TestSingleStepPlan(t *testing.T) {
	provider := &scriptedProvider{responses: map[types.StepName]string{
		types.StepDataAnalysis: "trend analysis done",
	}}
	engine := NewEngine(provider, nil)

	var calls []progressCall
	result, err := engine.Run(context.Background(), forecastState(types.StepDataAnalysis), collectProgress(&calls))
	require.NoError(t, err)

	require.Equal(t, "trend analysis done", result.Response)
	require.Len(t, result.Steps, 1)
	require.Equal(t, "completed", result.Steps[0].Status)
	require.Equal(t, 1, result.Steps[0].StepNumber)
	require.Equal(t, string(types.StepDataAnalysis), result.Steps[0].AgentType)
	require.Equal(t, []types.StepName{types.StepDataAnalysis}, provider.invoked)

	require.NotEmpty(t, calls)
	require.Equal(t, 40, calls[0].pct)
}

func TestForecastingPlanRunsFourNodes(t *testing.T) {
	provider := &scriptedProvider{}
	engine := NewEngine(provider, nil)

	var calls []progressCall
	result, err := engine.Run(context.Background(), forecastState(types.StepForecasting), collectProgress(&calls))
	require.NoError(t, err)

	require.Len(t, result.Steps, 4)
	require.Equal(t, []types.StepName{
		types.StepOnboarding,
		types.StepDataAnalysis,
		types.StepForecasting,
	}, provider.invoked)
	require.Equal(t, "synthesis", strings.ToLower(result.Steps[3].AgentType))

	// Response is the synthesized document.
	require.Contains(t, result.Response, "# Multi-Agent Forecasting Analysis")
	require.Contains(t, result.Response, "**Business Unit:** Retail")
	require.Contains(t, result.Response, "**LOB:** Customer Support")
	require.Contains(t, result.Response, "## Analysis Results:")
	require.Contains(t, result.Response, "\n\n---\n\n")
	require.Contains(t, result.Response, "output of Onboarding")
	require.Contains(t, result.Response, "output of Forecasting")
}

func TestProgressLadderMonotone(t *testing.T) {
	provider := &scriptedProvider{}
	engine := NewEngine(provider, nil)

	var calls []progressCall
	_, err := engine.Run(context.Background(), forecastState(types.StepShortTermForecasting), collectProgress(&calls))
	require.NoError(t, err)

	pcts := make([]int, 0, len(calls))
	for _, c := range calls {
		pcts = append(pcts, c.pct)
	}
	require.Equal(t, []int{10, 35, 60, 85, 100}, pcts)

	last := 0
	for _, pct := range pcts {
		require.GreaterOrEqual(t, pct, last)
		last = pct
	}
}

func TestNodeFailureContinuesToSynthesis(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	sessions := session.NewManager(store)

	req := &types.ExecuteRequest{
		Prompt:       "forecast call volume",
		BusinessUnit: types.BusinessUnit{Code: "BU1", DisplayName: "Retail"},
	}
	require.True(t, sessions.Create(ctx, "sess_wf", req, types.StepForecasting))

	provider := &scriptedProvider{failSteps: map[types.StepName]error{
		types.StepDataAnalysis: errors.New("model timeout"),
	}}
	engine := NewEngine(provider, sessions)

	result, err := engine.Run(ctx, forecastState(types.StepForecasting), nil)
	require.NoError(t, err)

	// All four trace records are present despite the mid-run failure.
	require.Len(t, result.Steps, 4)
	require.Equal(t, "failed", result.Steps[1].Status)
	require.Contains(t, result.Steps[1].OutputSummary, "Error in data_analysis: model timeout")

	// Synthesis still ran and produced a non-empty combined document
	// containing the placeholder output.
	require.Equal(t, "completed", result.Steps[3].Status)
	require.Contains(t, result.Response, "Error in data_analysis: model timeout")
	require.Contains(t, result.Response, "# Multi-Agent Forecasting Analysis")

	// The failed node never counts as completed and leaves no session trace.
	sess, err := sessions.Get(ctx, "sess_wf")
	require.NoError(t, err)
	require.Equal(t, []string{"onboarding", "forecasting"}, sess.WorkflowState.CompletedSteps)
	require.Len(t, sess.ConversationHistory, 2)
	for _, msg := range sess.ConversationHistory {
		require.NotContains(t, msg.Content, "Error in data_analysis")
	}
}

func TestLongOutputSummaryTruncated(t *testing.T) {
	provider := &scriptedProvider{responses: map[types.StepName]string{
		types.StepOnboarding: strings.Repeat("a", 500),
	}}
	engine := NewEngine(provider, nil)

	result, err := engine.Run(context.Background(), forecastState(types.StepOnboarding), nil)
	require.NoError(t, err)
	require.Len(t, result.Steps, 1)
	require.Len(t, []rune(result.Steps[0].OutputSummary), outputSummaryLimit+3)
	require.True(t, strings.HasSuffix(result.Steps[0].OutputSummary, "..."))
}

func TestNilStateRejected(t *testing.T) {
	engine := NewEngine(&scriptedProvider{}, nil)
	_, err := engine.Run(context.Background(), nil, nil)
	require.Error(t, err)

	_, err = engine.Run(context.Background(), &State{Step: types.StepOnboarding}, nil)
	require.Error(t, err)
}

func TestWorkflowStateTrackedInSession(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	sessions := session.NewManager(store)

	req := &types.ExecuteRequest{
		Prompt:       "forecast call volume",
		BusinessUnit: types.BusinessUnit{Code: "BU1", DisplayName: "Retail"},
	}
	require.True(t, sessions.Create(ctx, "sess_wf", req, types.StepForecasting))

	provider := &scriptedProvider{}
	engine := NewEngine(provider, sessions)

	_, err := engine.Run(ctx, forecastState(types.StepForecasting), nil)
	require.NoError(t, err)

	sess, err := sessions.Get(ctx, "sess_wf")
	require.NoError(t, err)
	require.Equal(t, "forecasting", sess.WorkflowState.CurrentStep)
	require.Equal(t, []string{"onboarding", "data_analysis", "forecasting"}, sess.WorkflowState.CompletedSteps)
	require.Len(t, sess.ConversationHistory, 3)
	require.Contains(t, sess.ConversationHistory[0].Content, "[Onboarding]")
}
