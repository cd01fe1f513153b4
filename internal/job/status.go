package job

// TaskStatus represents the lifecycle state of a single task.
// Transitions are monotonic: PENDING -> RUNNING -> {COMPLETED | FAILED | TIMEOUT}.
// SKIPPED is reachable only from PENDING (a sequential task never dispatched
// because an earlier task failed under stop-on-error).
type TaskStatus string

const (
	// StatusPending means the task has been created but not dispatched
	StatusPending TaskStatus = "PENDING"

	// StatusRunning means the task's handler is currently executing
	StatusRunning TaskStatus = "RUNNING"

	// StatusCompleted means the handler returned normally
	StatusCompleted TaskStatus = "COMPLETED"

	// StatusFailed means the handler returned an error, no handler was
	// registered, or validation rejected the item
	StatusFailed TaskStatus = "FAILED"

	// StatusTimeout means the handler exceeded the task's allotted duration
	StatusTimeout TaskStatus = "TIMEOUT"

	// StatusSkipped means the task was never dispatched because an earlier
	// sequential task failed under stop-on-error
	StatusSkipped TaskStatus = "SKIPPED"
)

// Terminal returns true if the status is a final task state
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimeout, StatusSkipped:
		return true
	}
	return false
}

// JobStatus represents the aggregate state of a job
type JobStatus string

const (
	// JobRunning means the job has been submitted and is still executing
	JobRunning JobStatus = "RUNNING"

	// JobCompleted means every task succeeded (or the job was empty)
	JobCompleted JobStatus = "COMPLETED"

	// JobPartial means some, but not all, tasks failed
	JobPartial JobStatus = "PARTIAL"

	// JobFailed means every task failed
	JobFailed JobStatus = "FAILED"
)

// Terminal returns true if the status is a final job state
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobPartial, JobFailed:
		return true
	}
	return false
}

// Classify derives the job status from the failure counters.
// It is a pure function of (failed, total):
//
//	failed == 0            -> COMPLETED (vacuously true for total == 0)
//	0 < failed < total     -> PARTIAL
//	failed == total > 0    -> FAILED
//
// The rule is applied identically whether failures came from timeouts,
// handler errors, validation rejections, or missing-handler short-circuits.
func Classify(failed, total int) JobStatus {
	switch {
	case failed == 0:
		return JobCompleted
	case failed < total:
		return JobPartial
	default:
		return JobFailed
	}
}
