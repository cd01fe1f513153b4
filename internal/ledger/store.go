// Package ledger keeps an in-memory record of job results with
// retention-based eviction.
package ledger

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/arjunmalhotra/opsrun/internal/job"
	"github.com/arjunmalhotra/opsrun/internal/util"
)

// DefaultRetention is how long terminal jobs are kept when no retention
// window is configured
const DefaultRetention = 24 * time.Hour

// Store is the in-memory job ledger. The execution flow that produced a job
// is its only writer; readers always receive deep copies and can never
// write back into an entry.
type Store struct {
	// jobs maps job ID to the stored result
	jobs map[string]*job.Result

	// mu protects concurrent access to the jobs map
	// Using RWMutex for read-heavy lookup patterns
	mu sync.RWMutex

	// retention is the age past which terminal jobs are evicted
	retention time.Duration

	// logger for structured logging
	logger *slog.Logger

	// now is the clock, swappable in tests
	now func() time.Time
}

// NewStore creates a job ledger with the given retention window.
// Non-positive retention falls back to DefaultRetention.
func NewStore(retention time.Duration, logger *slog.Logger) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		jobs:      make(map[string]*job.Result),
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Create records a new job result. The ledger never contains two entries
// with the same job ID, so a duplicate is an error.
func (s *Store) Create(res *job.Result) error {
	if res == nil || res.JobID == "" {
		return fmt.Errorf("%w: result has no job id", util.ErrInvalidPlan)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[res.JobID]; exists {
		return fmt.Errorf("%w: %s", util.ErrDuplicateJob, res.JobID)
	}

	s.jobs[res.JobID] = res.Clone()
	s.sweepLocked()

	s.logger.Debug("job recorded", "job_id", res.JobID, "status", res.Status)
	return nil
}

// Put replaces (or inserts) a job entry. It is intended for the single
// execution flow that owns the job, to publish the finalized result.
func (s *Store) Put(res *job.Result) {
	if res == nil || res.JobID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[res.JobID] = res.Clone()
	s.sweepLocked()
}

// Get returns a copy of the job with the given ID
func (s *Store) Get(jobID string) (*job.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", util.ErrJobNotFound, jobID)
	}
	return res.Clone(), nil
}

// List returns copies of the most recent jobs, newest first. A non-positive
// limit returns all entries.
func (s *Store) List(limit int) []*job.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*job.Result, 0, len(s.jobs))
	for _, res := range s.jobs {
		all = append(all, res)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	out := make([]*job.Result, len(all))
	for i, res := range all {
		out[i] = res.Clone()
	}
	return out
}

// Delete removes a job from the ledger
func (s *Store) Delete(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[jobID]; !ok {
		return fmt.Errorf("%w: %s", util.ErrJobNotFound, jobID)
	}

	delete(s.jobs, jobID)
	s.logger.Debug("job deleted", "job_id", jobID)
	return nil
}

// Count returns the number of jobs currently in the ledger
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Sweep evicts terminal jobs older than the retention window and returns
// how many were removed. RUNNING jobs are never evicted, whatever their
// age; eviction by age alone would drop jobs that are still executing.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

// sweepLocked removes expired terminal entries. Must be called with mu held.
func (s *Store) sweepLocked() int {
	cutoff := s.now().Add(-s.retention)
	removed := 0

	for id, res := range s.jobs {
		if !res.Status.Terminal() {
			continue
		}
		if res.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("retention sweep evicted jobs", "count", removed)
	}
	return removed
}
