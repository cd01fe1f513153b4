package job

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operation identifies which handler capability a task requests
type Operation string

const (
	// OpCreate requests the handler's create capability
	OpCreate Operation = "create"
	// OpUpdate requests the handler's update capability
	OpUpdate Operation = "update"
	// OpDelete requests the handler's delete capability
	OpDelete Operation = "delete"
	// OpRun requests the handler's run capability (agent-style handlers)
	OpRun Operation = "run"
)

// Valid returns true if the operation is one of the dispatchable operations
func (o Operation) Valid() bool {
	switch o {
	case OpCreate, OpUpdate, OpDelete, OpRun:
		return true
	}
	return false
}

// Priority is the policy tier used by the plan builder to decide
// which tasks run and whether they run in parallel
type Priority string

const (
	// PriorityCritical is the highest tier
	PriorityCritical Priority = "critical"
	// PriorityHigh is the elevated tier
	PriorityHigh Priority = "high"
	// PriorityMedium is the default tier
	PriorityMedium Priority = "medium"
	// PriorityLow is the lowest tier
	PriorityLow Priority = "low"
)

// ParsePriority converts a string to a Priority, defaulting to medium
// for unrecognized values
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s)
	}
	return PriorityMedium
}

// Task is one unit of work dispatched to exactly one handler capability
type Task struct {
	// ID uniquely identifies the task within its plan; generated at
	// creation and never reused
	ID string `yaml:"id" json:"id"`

	// Type is the logical task type used to resolve a handler
	Type string `yaml:"type" json:"type"`

	// Operation selects the handler capability to invoke
	Operation Operation `yaml:"operation" json:"operation"`

	// Input is the opaque key/value payload passed to the handler
	Input map[string]interface{} `yaml:"input,omitempty" json:"input,omitempty"`

	// Timeout bounds the handler invocation; zero means the engine default
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Priority is the tier the task was planned under
	Priority Priority `yaml:"priority,omitempty" json:"priority,omitempty"`
}

// NewTask creates a task with a generated ID for the given logical type
// and operation
func NewTask(logicalType string, op Operation, input map[string]interface{}) Task {
	return Task{
		ID:        uuid.NewString(),
		Type:      logicalType,
		Operation: op,
		Input:     input,
	}
}

// TaskResult is the finalized outcome of a single task.
// Results are created at dispatch time and never mutated after finalization.
type TaskResult struct {
	// TaskID links the result back to its originating task
	TaskID string `yaml:"taskId" json:"taskId"`

	// Type is the task's logical type
	Type string `yaml:"type" json:"type"`

	// Operation is the capability that was (or would have been) invoked
	Operation Operation `yaml:"operation" json:"operation"`

	// Status is the final task status
	Status TaskStatus `yaml:"status" json:"status"`

	// Payload is the handler's result for COMPLETED tasks, nil otherwise
	Payload map[string]interface{} `yaml:"payload,omitempty" json:"payload,omitempty"`

	// Error is the failure message, captured verbatim from the handler
	Error string `yaml:"error,omitempty" json:"error,omitempty"`

	// Duration is how long the task was in flight
	Duration time.Duration `yaml:"duration" json:"duration"`

	// StartedAt is when the task was dispatched (zero for SKIPPED tasks)
	StartedAt time.Time `yaml:"startedAt,omitempty" json:"startedAt,omitempty"`

	// CompletedAt is when the task reached a terminal status
	CompletedAt time.Time `yaml:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// Failed returns true if the result counts as a failure (FAILED or TIMEOUT)
func (r TaskResult) Failed() bool {
	return r.Status == StatusFailed || r.Status == StatusTimeout
}

// Plan groups tasks into a parallel set and a sequential set for one
// invocation. A plan is immutable once built and consumed exactly once.
type Plan struct {
	// ID uniquely identifies the plan (and the job it produces)
	ID string

	// Parallel holds the tasks to run concurrently
	Parallel []Task

	// Sequential holds the tasks to run one at a time, in order,
	// after the parallel group finishes
	Sequential []Task

	// Priority is the tier the plan was built for
	Priority Priority

	// MaxParallel caps concurrency for this plan; zero means the engine
	// default. The effective ceiling is min(plan, engine).
	MaxParallel int

	// StopOnError marks remaining sequential tasks SKIPPED after a
	// sequential failure
	StopOnError bool

	// DryRun restricts execution to the validate capability; no mutating
	// capability is ever invoked
	DryRun bool
}

// NewPlan creates an empty plan with a generated ID
func NewPlan(priority Priority) *Plan {
	return &Plan{
		ID:       uuid.NewString(),
		Priority: priority,
	}
}

// TaskCount returns the total number of tasks in the plan
func (p *Plan) TaskCount() int {
	return len(p.Parallel) + len(p.Sequential)
}

// Tasks returns all tasks in submission order: the parallel group first,
// then the sequential group
func (p *Plan) Tasks() []Task {
	tasks := make([]Task, 0, p.TaskCount())
	tasks = append(tasks, p.Parallel...)
	tasks = append(tasks, p.Sequential...)
	return tasks
}

// Validate checks that the plan is well-formed: every task has a logical
// type and a valid operation, and no task ID appears twice
func (p *Plan) Validate() error {
	seen := make(map[string]bool, p.TaskCount())
	for _, t := range p.Tasks() {
		if t.ID == "" {
			return fmt.Errorf("task of type %q has no id", t.Type)
		}
		if t.Type == "" {
			return fmt.Errorf("task %s has no logical type", t.ID)
		}
		if !t.Operation.Valid() {
			return fmt.Errorf("task %s has invalid operation %q", t.ID, t.Operation)
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate task id %s", t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

// MergedPayload is the type-keyed combination of completed task payloads.
// List-valued fields are concatenated across results; scalar fields are
// recorded per logical type rather than overwritten.
type MergedPayload struct {
	// Lists maps a payload field name to the concatenation of that
	// field's entries across all completed results
	Lists map[string][]interface{} `yaml:"lists,omitempty" json:"lists,omitempty"`

	// Scalars maps a payload field name to a per-logical-type map of
	// values, so contributions from different types never clobber each other
	Scalars map[string]map[string]interface{} `yaml:"scalars,omitempty" json:"scalars,omitempty"`
}

// Empty returns true if the payload holds no merged data
func (m *MergedPayload) Empty() bool {
	return m == nil || (len(m.Lists) == 0 && len(m.Scalars) == 0)
}

// Clone returns a deep copy of the merged payload
func (m *MergedPayload) Clone() *MergedPayload {
	if m == nil {
		return nil
	}
	out := &MergedPayload{}
	if m.Lists != nil {
		out.Lists = make(map[string][]interface{}, len(m.Lists))
		for k, v := range m.Lists {
			out.Lists[k] = append([]interface{}(nil), v...)
		}
	}
	if m.Scalars != nil {
		out.Scalars = make(map[string]map[string]interface{}, len(m.Scalars))
		for k, v := range m.Scalars {
			inner := make(map[string]interface{}, len(v))
			for t, val := range v {
				inner[t] = val
			}
			out.Scalars[k] = inner
		}
	}
	return out
}

// Result is the job-level aggregate of all task outcomes.
// It is created at submission with status RUNNING, mutated only by the
// single execution flow that owns it, and finalized exactly once.
type Result struct {
	// JobID uniquely identifies the job (the plan ID that produced it)
	JobID string `yaml:"jobId" json:"jobId"`

	// Status is the aggregate job status
	Status JobStatus `yaml:"status" json:"status"`

	// Total is the number of tasks submitted
	Total int `yaml:"total" json:"total"`

	// Succeeded counts COMPLETED tasks
	Succeeded int `yaml:"succeeded" json:"succeeded"`

	// Failed counts FAILED and TIMEOUT tasks
	Failed int `yaml:"failed" json:"failed"`

	// Skipped counts SKIPPED tasks
	Skipped int `yaml:"skipped" json:"skipped"`

	// TaskResults holds every task's outcome in original submission order
	TaskResults []TaskResult `yaml:"taskResults" json:"taskResults"`

	// Merged is the type-keyed combination of completed payloads
	Merged *MergedPayload `yaml:"merged,omitempty" json:"merged,omitempty"`

	// TotalDuration is the wall-clock time of the whole job
	TotalDuration time.Duration `yaml:"totalDuration" json:"totalDuration"`

	// DryRun indicates the job only ran validation
	DryRun bool `yaml:"dryRun" json:"dryRun"`

	// CreatedAt is when the job was submitted
	CreatedAt time.Time `yaml:"createdAt" json:"createdAt"`

	// CompletedAt is when the job reached a terminal status
	CompletedAt time.Time `yaml:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// NewResult creates a job result in the RUNNING state
func NewResult(jobID string) *Result {
	return &Result{
		JobID:     jobID,
		Status:    JobRunning,
		CreatedAt: time.Now(),
	}
}

// Append records a finalized task result and updates the counters
func (r *Result) Append(tr TaskResult) {
	r.TaskResults = append(r.TaskResults, tr)
	switch tr.Status {
	case StatusCompleted:
		r.Succeeded++
	case StatusSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// Finalize classifies the job status from the counters and stamps the
// completion time. It must be called exactly once, after all task results
// have been appended.
func (r *Result) Finalize() {
	r.Total = len(r.TaskResults)
	r.Status = Classify(r.Failed, r.Total)
	r.CompletedAt = time.Now()
	r.TotalDuration = r.CompletedAt.Sub(r.CreatedAt)
}

// Clone returns a deep copy of the result so external readers can never
// write back into the ledger's entry
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := *r
	out.TaskResults = make([]TaskResult, len(r.TaskResults))
	copy(out.TaskResults, r.TaskResults)
	out.Merged = r.Merged.Clone()
	return &out
}
