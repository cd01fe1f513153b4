// Package agents holds the built-in handlers wired into the registry at
// startup: the investigation, security-scan, and remediation agents, and an
// in-memory incident entity store.
package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// symptomRules maps known symptom keywords to findings and recommendations.
// The investigation agent is deliberately rule-based so its output is
// deterministic for a given input.
var symptomRules = []struct {
	keyword        string
	finding        string
	recommendation string
	weight         float64
}{
	{"latency", "elevated request latency observed", "check downstream dependency response times", 0.25},
	{"timeout", "upstream calls exceeding their deadlines", "raise client timeouts or shed load", 0.3},
	{"error", "error rate above baseline", "inspect recent deploys and roll back if correlated", 0.3},
	{"memory", "memory pressure on service instances", "review recent allocations and heap profiles", 0.2},
	{"crash", "instances restarting repeatedly", "inspect crash loops and exit codes", 0.35},
	{"disk", "disk utilization trending toward capacity", "expand volumes or prune retention", 0.2},
}

// InvestigationAgent analyzes reported symptoms and produces findings,
// recommendations, and a confidence score. It exposes the specific RunTask
// entry point, the generic Run, and a validator for dry runs.
type InvestigationAgent struct {
	logger *slog.Logger
}

// NewInvestigationAgent creates an investigation agent
func NewInvestigationAgent(logger *slog.Logger) *InvestigationAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvestigationAgent{logger: logger}
}

// RunTask is the specific entry point: it tags findings with the task that
// produced them. It takes priority over Run when both are present.
func (a *InvestigationAgent) RunTask(ctx context.Context, taskID, logicalType string, input map[string]interface{}) (map[string]interface{}, error) {
	payload, err := a.Run(ctx, input)
	if err != nil {
		return nil, err
	}
	payload["source_task"] = taskID
	return payload, nil
}

// Run analyzes the input's symptoms against the rule table
func (a *InvestigationAgent) Run(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	service := stringField(input, "service")
	symptoms := stringListField(input, "symptoms")

	a.logger.Debug("investigating", "service", service, "symptoms", len(symptoms))

	findings := []string{}
	recommendations := []string{}
	confidence := 0.0

	for _, symptom := range symptoms {
		lowered := strings.ToLower(symptom)
		for _, rule := range symptomRules {
			if strings.Contains(lowered, rule.keyword) {
				findings = append(findings, prefixService(service, rule.finding))
				recommendations = append(recommendations, rule.recommendation)
				confidence += rule.weight
			}
		}
	}

	if len(findings) == 0 {
		findings = append(findings, prefixService(service, "no known symptom patterns matched"))
		recommendations = append(recommendations, "collect more telemetry before acting")
		confidence = 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	return map[string]interface{}{
		"findings":        findings,
		"recommendations": recommendations,
		"confidence":      confidence,
	}, nil
}

// Validate rejects inputs with no symptoms to investigate
func (a *InvestigationAgent) Validate(item map[string]interface{}, operation string) string {
	if len(stringListField(item, "symptoms")) == 0 {
		return "investigation requires at least one symptom"
	}
	return ""
}

// prefixService prepends the service name to a finding when one is known
func prefixService(service, finding string) string {
	if service == "" {
		return finding
	}
	return fmt.Sprintf("%s: %s", service, finding)
}

// stringField reads a string field from an opaque input map
func stringField(input map[string]interface{}, key string) string {
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}

// stringListField reads a list-of-strings field, tolerating the
// []interface{} shape YAML decoding produces
func stringListField(input map[string]interface{}, key string) []string {
	switch v := input[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
