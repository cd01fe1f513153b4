package agents

import (
	"context"
	"log/slog"
)

// SecurityScanAgent checks an input's declared exposure settings and flags
// risky configurations. It exposes only the generic Run entry point.
type SecurityScanAgent struct {
	logger *slog.Logger
}

// NewSecurityScanAgent creates a security-scan agent
func NewSecurityScanAgent(logger *slog.Logger) *SecurityScanAgent {
	if logger == nil {
		logger = slog.Default()
	}
	return &SecurityScanAgent{logger: logger}
}

// Run scans the input for risky exposure settings
func (a *SecurityScanAgent) Run(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	service := stringField(input, "service")
	a.logger.Debug("scanning", "service", service)

	findings := []string{}
	confidence := 0.5

	if public, ok := input["public"].(bool); ok && public {
		findings = append(findings, prefixService(service, "endpoint is publicly reachable"))
		confidence += 0.2
	}
	if tls, ok := input["tls"].(bool); ok && !tls {
		findings = append(findings, prefixService(service, "transport encryption disabled"))
		confidence += 0.2
	}
	for _, port := range stringListField(input, "open_ports") {
		findings = append(findings, prefixService(service, "unexpected open port "+port))
		confidence += 0.05
	}

	if len(findings) == 0 {
		findings = append(findings, prefixService(service, "no exposure issues detected"))
		confidence = 0.3
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	return map[string]interface{}{
		"findings":   findings,
		"confidence": confidence,
	}, nil
}

// Validate accepts any item; the scan has no preconditions beyond a
// readable input map
func (a *SecurityScanAgent) Validate(item map[string]interface{}, operation string) string {
	return ""
}
