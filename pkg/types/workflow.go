package types

import "time"

// StepName identifies one of the fixed agent steps in the catalogue. Routing
// resolves to this closed set so an unknown agent can never surface at
// execution time.
type StepName string

const (
	StepOnboarding                StepName = "Onboarding"
	StepDataAnalysis              StepName = "Data Analysis"
	StepForecasting               StepName = "Forecasting"
	StepShortTermForecasting      StepName = "Short Term Forecasting"
	StepLongTermForecasting       StepName = "Long Term Forecasting"
	StepTacticalCapacityPlanning  StepName = "Tactical Capacity Planning"
	StepStrategicCapacityPlanning StepName = "Strategic Capacity Planning"
	StepScenarioAnalysis          StepName = "What If & Scenario Analyst"
	StepOccupancyModeling         StepName = "Occupancy Modeling"
)

// IsCompoundStep reports whether a step selects the four-node forecasting
// plan instead of the single-node plan.
func IsCompoundStep(step StepName) bool {
	switch step {
	case StepForecasting, StepShortTermForecasting, StepLongTermForecasting:
		return true
	}
	return false
}

// ParseStepName maps a raw string onto the catalogue. The boolean is false
// for anything outside the closed set.
func ParseStepName(raw string) (StepName, bool) {
	switch StepName(raw) {
	case StepOnboarding, StepDataAnalysis, StepForecasting,
		StepShortTermForecasting, StepLongTermForecasting,
		StepTacticalCapacityPlanning, StepStrategicCapacityPlanning,
		StepScenarioAnalysis, StepOccupancyModeling:
		return StepName(raw), true
	}
	return "", false
}

// WorkflowStep is one immutable entry of the execution trace returned to the
// caller. StepNumber is the ordinal position within a single task execution.
type WorkflowStep struct {
	StepNumber    int       `json:"step_number"`
	AgentName     string    `json:"agent_name"`
	AgentType     string    `json:"agent_type"`
	Status        string    `json:"status"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	DurationMS    int64     `json:"duration_ms"`
	OutputSummary string    `json:"output_summary"`
}

// ExecutionResult is the terminal payload of one orchestrated execution.
type ExecutionResult struct {
	Success       bool                   `json:"success"`
	Response      string                 `json:"response"`
	SessionID     string                 `json:"session_id"`
	AgentType     StepName               `json:"agent_type"`
	WorkflowSteps []WorkflowStep         `json:"workflow_steps"`
	ExecutionTime float64                `json:"execution_time"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// BusinessUnit is the top-level business scope a query is interpreted under.
type BusinessUnit struct {
	ID          *int   `json:"id,omitempty"`
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

// LineOfBusiness narrows a BusinessUnit to one operational line.
type LineOfBusiness struct {
	ID          int    `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ExecuteRequest is the orchestration input accepted at the boundary.
// SuggestedAgentType is honored only when its routing pattern matches the
// prompt. SessionID is generated when empty.
type ExecuteRequest struct {
	Prompt             string          `json:"prompt" binding:"required"`
	BusinessUnit       BusinessUnit    `json:"business_unit" binding:"required"`
	LineOfBusiness     *LineOfBusiness `json:"line_of_business,omitempty"`
	SuggestedAgentType string          `json:"suggested_agent_type,omitempty"`
	SessionID          string          `json:"session_id,omitempty"`
}
