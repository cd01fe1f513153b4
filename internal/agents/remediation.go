package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// remediationActions maps finding keywords to the actions the agent would
// take for them. Ordered so repeated runs emit actions deterministically.
var remediationActions = []struct {
	keyword string
	action  string
}{
	{"latency", "scale out the affected service"},
	{"memory", "restart instances over the memory threshold"},
	{"crash", "roll back to the last stable release"},
	{"disk", "prune logs and expand the data volume"},
	{"port", "close the unexpected port and audit firewall rules"},
}

// RemediationAgent turns findings into concrete remediation actions
type RemediationAgent struct {
	logger *slog.Logger
}

// NewRemediationAgent creates a remediation agent
func NewRemediationAgent(logger *slog.Logger) *RemediationAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemediationAgent{logger: logger}
}

// Run derives actions from the findings carried in the input
func (a *RemediationAgent) Run(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	findings := stringListField(input, "findings")
	if len(findings) == 0 {
		return nil, fmt.Errorf("remediation requires findings to act on")
	}

	a.logger.Debug("planning remediation", "findings", len(findings))

	actions := []string{}
	recommendations := []string{}

	for _, finding := range findings {
		lowered := strings.ToLower(finding)
		matched := false
		for _, rule := range remediationActions {
			if strings.Contains(lowered, rule.keyword) {
				actions = append(actions, rule.action)
				matched = true
			}
		}
		if !matched {
			recommendations = append(recommendations, "manual review: "+finding)
		}
	}

	return map[string]interface{}{
		"actions":         actions,
		"recommendations": recommendations,
	}, nil
}

// Validate rejects items without findings, so dry runs surface the same
// failure the live path would
func (a *RemediationAgent) Validate(item map[string]interface{}, operation string) string {
	if len(stringListField(item, "findings")) == 0 {
		return "remediation requires findings to act on"
	}
	return ""
}
