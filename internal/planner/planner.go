// Package planner builds execution plans from an input payload and a
// priority tier. The tier-to-tasks mapping is policy, not mechanism: the
// rest of the system only depends on the planner producing a well-formed
// plan.
package planner

import (
	"log/slog"

	"github.com/arjunmalhotra/opsrun/internal/job"
)

// Well-known logical types routed by the default rule table
const (
	// TypeInvestigate is the investigation agent type
	TypeInvestigate = "investigate"

	// TypeSecurityScan is the security-scan agent type
	TypeSecurityScan = "security_scan"

	// TypeRemediate is the remediation agent type
	TypeRemediate = "remediate"
)

// route describes how one tier's tasks are grouped
type route struct {
	parallel    []string
	sequential  []string
	stopOnError bool
}

// tierRoutes is the default rule table. Elevated tiers fan investigation
// and security scanning out concurrently; lower tiers run a single
// sequential investigation.
var tierRoutes = map[job.Priority]route{
	job.PriorityCritical: {parallel: []string{TypeInvestigate, TypeSecurityScan}},
	job.PriorityHigh:     {parallel: []string{TypeInvestigate, TypeSecurityScan}},
	job.PriorityMedium:   {sequential: []string{TypeInvestigate}, stopOnError: true},
	job.PriorityLow:      {sequential: []string{TypeInvestigate}, stopOnError: true},
}

// Builder produces execution plans from the configured rule table
type Builder struct {
	// routes maps priority tiers to task groupings
	routes map[job.Priority]route

	// logger for structured logging
	logger *slog.Logger
}

// NewBuilder creates a plan builder with the default rule table
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Builder{
		routes: tierRoutes,
		logger: logger,
	}
}

// Build produces an execution plan for the given input and priority tier.
// The same (input shape, tier) always yields the same task grouping; task
// IDs are freshly generated per plan. Unrecognized tiers fall back to the
// medium route.
func (b *Builder) Build(input map[string]interface{}, tier job.Priority) *job.Plan {
	r, ok := b.routes[tier]
	if !ok {
		b.logger.Debug("unknown priority tier, using medium route", "tier", tier)
		r = b.routes[job.PriorityMedium]
	}

	plan := job.NewPlan(tier)
	plan.StopOnError = r.stopOnError

	for _, logicalType := range r.parallel {
		task := job.NewTask(logicalType, job.OpRun, cloneInput(input))
		task.Priority = tier
		plan.Parallel = append(plan.Parallel, task)
	}

	for _, logicalType := range r.sequential {
		task := job.NewTask(logicalType, job.OpRun, cloneInput(input))
		task.Priority = tier
		plan.Sequential = append(plan.Sequential, task)
	}

	b.logger.Debug("built execution plan",
		"plan_id", plan.ID,
		"tier", tier,
		"parallel", len(plan.Parallel),
		"sequential", len(plan.Sequential))

	return plan
}

// cloneInput copies the input map so concurrently running tasks never share
// a mutable payload
func cloneInput(input map[string]interface{}) map[string]interface{} {
	if input == nil {
		return nil
	}
	out := make(map[string]interface{}, len(input))
	for k, v := range input {
		out[k] = v
	}
	return out
}
