package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/arjunmalhotra/opsrun/internal/job"
)

// CountByStatus returns the number of results with the given status
func CountByStatus(results []job.TaskResult, status job.TaskStatus) int {
	count := 0
	for _, r := range results {
		if r.Status == status {
			count++
		}
	}
	return count
}

// FilterByStatus returns only the results with the given status
func FilterByStatus(results []job.TaskResult, status job.TaskStatus) []job.TaskResult {
	filtered := make([]job.TaskResult, 0, len(results))
	for _, r := range results {
		if r.Status == status {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// FilterFailed returns the results that count as failures (FAILED or TIMEOUT)
func FilterFailed(results []job.TaskResult) []job.TaskResult {
	filtered := make([]job.TaskResult, 0, len(results))
	for _, r := range results {
		if r.Failed() {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// GroupByType groups results by logical task type
func GroupByType(results []job.TaskResult) map[string][]job.TaskResult {
	grouped := make(map[string][]job.TaskResult)
	for _, r := range results {
		grouped[r.Type] = append(grouped[r.Type], r)
	}
	return grouped
}

// HasFailures returns true if any result counts as a failure
func HasFailures(results []job.TaskResult) bool {
	for _, r := range results {
		if r.Failed() {
			return true
		}
	}
	return false
}

// AverageDuration calculates the average duration of dispatched results.
// Skipped results are excluded since they were never in flight.
func AverageDuration(results []job.TaskResult) time.Duration {
	var total time.Duration
	dispatched := 0
	for _, r := range results {
		if r.Status == job.StatusSkipped {
			continue
		}
		total += r.Duration
		dispatched++
	}
	if dispatched == 0 {
		return 0
	}
	return total / time.Duration(dispatched)
}

// MaxDuration returns the maximum duration among all results
func MaxDuration(results []job.TaskResult) time.Duration {
	var max time.Duration
	for _, r := range results {
		if r.Duration > max {
			max = r.Duration
		}
	}
	return max
}

// Summary provides a compact view of a job's task outcomes
type Summary struct {
	Total       int
	Succeeded   int
	Failed      int
	Skipped     int
	TimedOut    int
	AvgDuration time.Duration
	MaxDuration time.Duration
}

// Summarize creates a summary of the results
func Summarize(results []job.TaskResult) Summary {
	return Summary{
		Total:       len(results),
		Succeeded:   CountByStatus(results, job.StatusCompleted),
		Failed:      CountByStatus(results, job.StatusFailed) + CountByStatus(results, job.StatusTimeout),
		Skipped:     CountByStatus(results, job.StatusSkipped),
		TimedOut:    CountByStatus(results, job.StatusTimeout),
		AvgDuration: AverageDuration(results),
		MaxDuration: MaxDuration(results),
	}
}

// String returns a human-readable string representation of the summary
func (s Summary) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total: %d, ", s.Total))
	sb.WriteString(fmt.Sprintf("Succeeded: %d, ", s.Succeeded))
	sb.WriteString(fmt.Sprintf("Failed: %d, ", s.Failed))
	sb.WriteString(fmt.Sprintf("Skipped: %d", s.Skipped))

	if s.Total > s.Skipped {
		sb.WriteString(fmt.Sprintf(", Avg: %s", s.AvgDuration.Round(time.Millisecond)))
		sb.WriteString(fmt.Sprintf(", Max: %s", s.MaxDuration.Round(time.Millisecond)))
	}

	return sb.String()
}
