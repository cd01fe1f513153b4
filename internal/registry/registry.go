// Package registry maps logical task types to registered handler
// implementations and their resolved capability sets.
package registry

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/arjunmalhotra/opsrun/internal/util"
)

// Creator is the capability for creating a domain entity
type Creator interface {
	Create(ctx context.Context, item map[string]interface{}) (map[string]interface{}, error)
}

// Updater is the capability for updating a domain entity
type Updater interface {
	Update(ctx context.Context, item map[string]interface{}) (map[string]interface{}, error)
}

// Deleter is the capability for deleting a domain entity
type Deleter interface {
	Delete(ctx context.Context, item map[string]interface{}) (map[string]interface{}, error)
}

// Validator is the capability used by dry runs. A non-empty message means
// the item was rejected; an empty message means it passed.
type Validator interface {
	Validate(item map[string]interface{}, operation string) string
}

// Runner is the generic agent-style capability: run with an opaque input
// and return a result map
type Runner interface {
	Run(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}

// TaskRunner is the more specific agent entry point: it receives the task's
// ID and logical type alongside the input. When a handler exposes both,
// TaskRunner takes priority over Runner.
type TaskRunner interface {
	RunTask(ctx context.Context, taskID, logicalType string, input map[string]interface{}) (map[string]interface{}, error)
}

// Capability identifies one handler entry point
type Capability string

const (
	// CapCreate marks a handler that implements Creator
	CapCreate Capability = "create"
	// CapUpdate marks a handler that implements Updater
	CapUpdate Capability = "update"
	// CapDelete marks a handler that implements Deleter
	CapDelete Capability = "delete"
	// CapValidate marks a handler that implements Validator
	CapValidate Capability = "validate"
	// CapRun marks a handler that implements Runner
	CapRun Capability = "run"
	// CapRunTask marks a handler that implements the specific TaskRunner entry point
	CapRunTask Capability = "run_task"
)

// Registration pairs a handler with its capability set, resolved once at
// registration time rather than probed per dispatch.
type Registration struct {
	// Type is the normalized logical type the handler is registered under
	Type string

	// Handler is the registered implementation
	Handler interface{}

	// Capabilities is the set of entry points the handler exposes
	Capabilities map[Capability]bool
}

// Has returns true if the registration exposes the given capability
func (r Registration) Has(c Capability) bool {
	return r.Capabilities[c]
}

// CapabilityList returns the sorted capability names, for logging and output
func (r Registration) CapabilityList() []string {
	caps := make([]string, 0, len(r.Capabilities))
	for c := range r.Capabilities {
		caps = append(caps, string(c))
	}
	sort.Strings(caps)
	return caps
}

// resolveCapabilities derives the capability set from the handler's
// interface assertions. This happens exactly once, at registration.
func resolveCapabilities(handler interface{}) map[Capability]bool {
	caps := make(map[Capability]bool)
	if _, ok := handler.(Creator); ok {
		caps[CapCreate] = true
	}
	if _, ok := handler.(Updater); ok {
		caps[CapUpdate] = true
	}
	if _, ok := handler.(Deleter); ok {
		caps[CapDelete] = true
	}
	if _, ok := handler.(Validator); ok {
		caps[CapValidate] = true
	}
	if _, ok := handler.(Runner); ok {
		caps[CapRun] = true
	}
	if _, ok := handler.(TaskRunner); ok {
		caps[CapRunTask] = true
	}
	return caps
}

// Registry maps logical task types to handler registrations.
// Registration is last-write-wins: re-registering a type silently replaces
// the prior handler. The registry performs no validation of the capability
// set; capability mismatches surface at dispatch time.
type Registry struct {
	// handlers maps normalized logical type to registration
	handlers map[string]Registration

	// mu protects concurrent access to the handler map
	// Using RWMutex for read-heavy dispatch lookups
	mu sync.RWMutex

	// logger for structured logging
	logger *slog.Logger
}

// New creates an empty handler registry
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		handlers: make(map[string]Registration),
		logger:   logger,
	}
}

// Register records a handler under a logical type, replacing any prior
// handler for the same type. The capability set is resolved here, once.
func (r *Registry) Register(logicalType string, handler interface{}) {
	key := util.NormalizeTypeName(logicalType)

	reg := Registration{
		Type:         key,
		Handler:      handler,
		Capabilities: resolveCapabilities(handler),
	}

	r.mu.Lock()
	_, replaced := r.handlers[key]
	r.handlers[key] = reg
	r.mu.Unlock()

	r.logger.Debug("handler registered",
		"type", key,
		"capabilities", strings.Join(reg.CapabilityList(), ","),
		"replaced", replaced)
}

// Get returns the registration for a logical type
func (r *Registry) Get(logicalType string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.handlers[util.NormalizeTypeName(logicalType)]
	return reg, ok
}

// Has returns true if a handler is registered for the logical type
func (r *Registry) Has(logicalType string) bool {
	_, ok := r.Get(logicalType)
	return ok
}

// Types returns the sorted set of registered logical types
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Count returns the number of registered types
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
