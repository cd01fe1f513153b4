package agents

import (
	"log/slog"

	"github.com/arjunmalhotra/opsrun/internal/planner"
	"github.com/arjunmalhotra/opsrun/internal/registry"
)

// EntityTypeIncident is the logical type the incident store registers under
const EntityTypeIncident = "incident"

// RegisterBuiltins wires the built-in handlers into a registry. Called
// during startup wiring; registrations are last-write-wins, so callers may
// override any of them afterwards.
func RegisterBuiltins(reg *registry.Registry, logger *slog.Logger) {
	reg.Register(planner.TypeInvestigate, NewInvestigationAgent(logger))
	reg.Register(planner.TypeSecurityScan, NewSecurityScanAgent(logger))
	reg.Register(planner.TypeRemediate, NewRemediationAgent(logger))
	reg.Register(EntityTypeIncident, NewIncidentStore(logger))
}
