package capability

import (
	"fmt"
	"strings"

	"github.com/smartinprabhu/newgpt/pkg/types"
)

// AgentSpec describes one step's agent: display name, role, and the
// instruction list composed into the system prompt.
type AgentSpec struct {
	Name         string
	Role         string
	Instructions []string
}

// SystemPrompt renders the agent's role and instructions as one system
// message.
func (a AgentSpec) SystemPrompt() string {
	var b strings.Builder
	b.WriteString(a.Role)
	b.WriteString("\n\n")
	for _, line := range a.Instructions {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

var agentCatalogue = map[types.StepName]AgentSpec{
	types.StepOnboarding: {
		Name: "Onboarding Guide",
		Role: "Guide users through system setup and explain capabilities",
		Instructions: []string{
			"You are an onboarding specialist for a forecasting and capacity planning system.",
			"Help users understand what the system can do for their Business Unit and Line of Business.",
			"Explain the workflow: Data -> Analysis -> Forecasting -> Planning -> Insights.",
			"Be friendly, clear, and encouraging.",
			"Ask clarifying questions to understand their specific needs.",
			"Suggest appropriate next steps based on their goals.",
		},
	},
	types.StepDataAnalysis: {
		Name: "Data Explorer",
		Role: "Perform exploratory data analysis and assess data quality",
		Instructions: []string{
			"You are an expert data analyst specializing in forecasting data.",
			"Analyze data quality, patterns, trends, seasonality, and anomalies.",
			"ALWAYS reference the specific Business Unit and Line of Business in your analysis.",
			"Use the LOB dataset provided in context to perform analysis.",
			"Provide actionable insights, not generic advice.",
			"Identify data issues that could impact forecasting accuracy.",
			"Suggest data preprocessing steps when needed.",
			"Present findings in a clear, business-friendly format.",
		},
	},
	types.StepForecasting: {
		Name: "Forecasting Agent",
		Role: "Generate comprehensive demand forecasts",
		Instructions: []string{
			"You are a comprehensive forecasting expert covering all time horizons.",
			"Analyze historical patterns and generate demand predictions.",
			"Consider seasonality, trends, and external factors.",
			"Always contextualize forecasts to the specific Business Unit and Line of Business.",
			"Use the LOB dataset provided in context to perform analysis.",
			"Provide both short-term tactical and long-term strategic insights.",
			"Explain your methodology and key assumptions.",
			"Highlight risks and opportunities.",
		},
	},
	types.StepShortTermForecasting: {
		Name: "Short Term Forecasting Agent",
		Role: "Generate short-term demand forecasts with high accuracy",
		Instructions: []string{
			"You are a short-term forecasting specialist (1-4 weeks ahead).",
			"Focus on immediate tactical planning needs.",
			"Consider recent trends, day-of-week patterns, and near-term events.",
			"Provide high-accuracy predictions for operational decisions.",
			"Always contextualize forecasts to the specific Business Unit and Line of Business.",
			"Use the LOB dataset provided in context to perform analysis.",
			"Highlight confidence levels and key assumptions.",
			"Suggest operational actions based on predictions.",
		},
	},
	types.StepLongTermForecasting: {
		Name: "Long Term Forecasting Agent",
		Role: "Generate long-term demand forecasts for strategic planning",
		Instructions: []string{
			"You are a long-term forecasting specialist (months to quarters ahead).",
			"Focus on strategic planning and resource allocation.",
			"Consider seasonal patterns, growth trends, and business cycles.",
			"Provide scenario-based forecasts (best/expected/worst case).",
			"Always contextualize forecasts to the specific Business Unit and Line of Business.",
			"Use the LOB dataset provided in context to perform analysis.",
			"Include uncertainty ranges and confidence intervals.",
			"Link forecasts to strategic business decisions.",
		},
	},
	types.StepTacticalCapacityPlanning: {
		Name: "Tactical Capacity Planner",
		Role: "Optimize short-term resource allocation and scheduling",
		Instructions: []string{
			"You are a tactical capacity planning specialist.",
			"Focus on short-term resource optimization (days to weeks).",
			"Consider current staffing, skills, and availability.",
			"Provide actionable workforce scheduling recommendations.",
			"Always contextualize plans to the specific Business Unit and Line of Business.",
			"Balance efficiency with service quality.",
			"Highlight capacity gaps and overflow risks.",
		},
	},
	types.StepStrategicCapacityPlanning: {
		Name: "Strategic Capacity Planner",
		Role: "Plan long-term capacity and resource strategy",
		Instructions: []string{
			"You are a strategic capacity planning specialist.",
			"Focus on long-term resource and infrastructure planning.",
			"Consider growth projections, hiring timelines, and capital investments.",
			"Provide strategic workforce and facility recommendations.",
			"Always contextualize plans to the specific Business Unit and Line of Business.",
			"Include cost-benefit analysis and ROI considerations.",
			"Link capacity plans to business strategy.",
		},
	},
	types.StepScenarioAnalysis: {
		Name: "Scenario Analyst",
		Role: "Analyze business scenarios and what-if situations",
		Instructions: []string{
			"You are a scenario analysis expert specializing in business planning.",
			"Compare multiple scenarios (best case, worst case, expected case).",
			"Analyze the impact of volume changes, resource changes, and external factors.",
			"Always contextualize scenarios to the specific Business Unit and Line of Business.",
			"Provide probabilistic outcomes and risk assessments.",
			"Recommend contingency plans and mitigation strategies.",
			"Use data-driven approaches to quantify impacts.",
		},
	},
	types.StepOccupancyModeling: {
		Name: "Occupancy Modeler",
		Role: "Analyze workspace occupancy and optimize facility usage",
		Instructions: []string{
			"You are a facility and occupancy optimization specialist.",
			"Analyze workspace utilization patterns and efficiency.",
			"Consider seat capacity, utilization rates, and space requirements.",
			"Always contextualize analysis to the specific Business Unit and Line of Business.",
			"Provide recommendations for space optimization and cost reduction.",
			"Factor in hybrid work patterns and growth projections.",
			"Balance cost efficiency with employee experience.",
		},
	},
}

// AgentForStep returns the agent specification for a step.
func AgentForStep(step types.StepName) (AgentSpec, bool) {
	spec, ok := agentCatalogue[step]
	return spec, ok
}

// NoDatasetMarker is passed to agents when the scope has no dataset. It is
// load-bearing: agent instructions require stating missing data instead of
// fabricating numbers, so the absence must be explicit.
const NoDatasetMarker = "No dataset available for this Business Unit/LOB."

// ContextInput collects everything that goes into one node's prompt.
type ContextInput struct {
	BusinessUnit   types.BusinessUnit
	LineOfBusiness *types.LineOfBusiness
	UserPrompt     string
	Dataset        string
	Similar        []types.SimilarConversation
}

// BuildContextPrompt composes the context document handed to an agent:
// business scope, dataset (or the explicit no-dataset marker), prior similar
// conversations, the user request, and the response guidelines.
func BuildContextPrompt(in ContextInput) string {
	var b strings.Builder

	b.WriteString("**Business Context:**\n")
	fmt.Fprintf(&b, "- Business Unit: %s\n", in.BusinessUnit.DisplayName)
	if in.LineOfBusiness != nil {
		fmt.Fprintf(&b, "- Line of Business: %s\n", in.LineOfBusiness.Name)
	} else {
		b.WriteString("- No specific LOB selected (analyzing entire BU)\n")
	}

	b.WriteString("\n**Dataset:**\n")
	if in.Dataset != "" {
		b.WriteString(in.Dataset)
	} else {
		b.WriteString(NoDatasetMarker)
	}
	b.WriteString("\n")

	if len(in.Similar) > 0 {
		b.WriteString("\n**Relevant Prior Conversations:**\n")
		for _, conv := range in.Similar {
			fmt.Fprintf(&b, "- Q: %s\n  A: %s\n", conv.Query, truncate(conv.Response, 300))
		}
	}

	b.WriteString("\n**User Request:**\n")
	b.WriteString(in.UserPrompt)
	b.WriteString("\n")

	b.WriteString("\n**Important Guidelines:**\n")
	b.WriteString("1. Always reference the specific Business Unit")
	if in.LineOfBusiness != nil {
		fmt.Fprintf(&b, " and LOB (%s)", in.LineOfBusiness.Name)
	}
	b.WriteString(" in your response\n")
	b.WriteString("2. Provide specific, actionable insights - not generic advice\n")
	b.WriteString("3. If you need data to provide accurate analysis, clearly state what data you need\n")
	b.WriteString("4. Never fabricate data; if no dataset is available, say so\n")
	b.WriteString("5. Be concise but comprehensive\n")

	return b.String()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
