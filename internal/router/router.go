package router

import (
	"strings"

	"github.com/smartinprabhu/newgpt/pkg/types"
)

// pattern maps a set of trigger phrases onto one step. Patterns are evaluated
// in declared order, so multi-word phrases ("short term forecast") must come
// before their generic prefixes ("forecast").
type pattern struct {
	step     types.StepName
	triggers []string
}

var patterns = []pattern{
	{types.StepShortTermForecasting, []string{
		"short term forecast", "short-term forecast", "next week", "next 30 days",
		"daily forecast", "weekly forecast",
	}},
	{types.StepLongTermForecasting, []string{
		"long term forecast", "long-term forecast", "annual forecast",
		"yearly forecast", "next year", "next quarter",
	}},
	{types.StepForecasting, []string{
		"forecast", "predict", "projection", "demand planning",
	}},
	{types.StepTacticalCapacityPlanning, []string{
		"tactical capacity", "staffing plan", "shift plan", "schedule agents",
	}},
	{types.StepStrategicCapacityPlanning, []string{
		"strategic capacity", "capacity planning", "headcount", "hiring plan",
	}},
	{types.StepScenarioAnalysis, []string{
		"what if", "what-if", "scenario", "simulate", "sensitivity",
	}},
	{types.StepOccupancyModeling, []string{
		"occupancy", "utilization", "shrinkage",
	}},
	{types.StepDataAnalysis, []string{
		"analyze", "analysis", "trend", "pattern", "outlier", "explore",
		"statistics", "summary",
	}},
	{types.StepOnboarding, []string{
		"hello", "hi ", "help", "what can you do", "get started", "onboard",
	}},
}

// DefaultStep is returned when no pattern matches the query.
const DefaultStep = types.StepOnboarding

// Classify resolves a query to a step name. A caller suggestion is honored
// only when the suggested step's own pattern matches the query; otherwise the
// catalogue is evaluated in priority order. Pure function.
func Classify(query, suggested string) types.StepName {
	lowered := strings.ToLower(query)

	if step, ok := types.ParseStepName(suggested); ok && matchesStep(lowered, step) {
		return step
	}

	for _, p := range patterns {
		if matchesAny(lowered, p.triggers) {
			return p.step
		}
	}
	return DefaultStep
}

func matchesStep(lowered string, step types.StepName) bool {
	for _, p := range patterns {
		if p.step == step {
			return matchesAny(lowered, p.triggers)
		}
	}
	return false
}

func matchesAny(lowered string, triggers []string) bool {
	for _, trigger := range triggers {
		if strings.Contains(lowered, trigger) {
			return true
		}
	}
	return false
}
