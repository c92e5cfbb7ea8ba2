package capability

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartinprabhu/newgpt/pkg/types"
)

func TestAgentForStepCoversCatalogue(t *testing.T) {
	steps := []types.StepName{
		types.StepOnboarding,
		types.StepDataAnalysis,
		types.StepForecasting,
		types.StepShortTermForecasting,
		types.StepLongTermForecasting,
		types.StepTacticalCapacityPlanning,
		types.StepStrategicCapacityPlanning,
		types.StepScenarioAnalysis,
		types.StepOccupancyModeling,
	}
	for _, step := range steps {
		spec, ok := AgentForStep(step)
		require.True(t, ok, "missing agent for %s", step)
		require.NotEmpty(t, spec.Name)
		require.NotEmpty(t, spec.Role)
		require.NotEmpty(t, spec.Instructions)
		require.Contains(t, spec.SystemPrompt(), spec.Role)
	}

	_, ok := AgentForStep("Nonsense Step")
	require.False(t, ok)
}

func TestBuildContextPromptWithLOB(t *testing.T) {
	lob := &types.LineOfBusiness{ID: 7, Code: "CS", Name: "Customer Support"}
	prompt := BuildContextPrompt(ContextInput{
		BusinessUnit:   types.BusinessUnit{Code: "BU1", DisplayName: "Retail"},
		LineOfBusiness: lob,
		UserPrompt:     "forecast call volume",
		Dataset:        "date,volume\n2025-01-01,120",
	})

	require.Contains(t, prompt, "Business Unit: Retail")
	require.Contains(t, prompt, "Line of Business: Customer Support")
	require.Contains(t, prompt, "date,volume")
	require.Contains(t, prompt, "forecast call volume")
	require.Contains(t, prompt, "LOB (Customer Support)")
	require.NotContains(t, prompt, NoDatasetMarker)
}

func TestBuildContextPromptNoDatasetMarker(t *testing.T) {
	prompt := BuildContextPrompt(ContextInput{
		BusinessUnit: types.BusinessUnit{DisplayName: "Retail"},
		UserPrompt:   "analyze trends",
	})

	require.Contains(t, prompt, NoDatasetMarker)
	require.Contains(t, prompt, "No specific LOB selected (analyzing entire BU)")
}

func TestBuildContextPromptIncludesSimilarConversations(t *testing.T) {
	prompt := BuildContextPrompt(ContextInput{
		BusinessUnit: types.BusinessUnit{DisplayName: "Retail"},
		UserPrompt:   "forecast again",
		Similar: []types.SimilarConversation{
			{Query: "forecast volume", Response: strings.Repeat("x", 400)},
		},
	})

	require.Contains(t, prompt, "Relevant Prior Conversations")
	require.Contains(t, prompt, "Q: forecast volume")
	// Long responses get truncated in the digest.
	require.Contains(t, prompt, "...")
	require.NotContains(t, prompt, strings.Repeat("x", 400))
}
