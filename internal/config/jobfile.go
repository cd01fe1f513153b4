package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arjunmalhotra/opsrun/internal/job"
	"gopkg.in/yaml.v3"
)

// JobFile is the on-disk YAML description of one execution plan
type JobFile struct {
	// Name is a human-readable label for the job
	Name string `yaml:"name,omitempty"`

	// Priority is the policy tier the job was written for
	Priority string `yaml:"priority,omitempty"`

	// MaxParallel caps concurrency for this job; zero means the engine default
	MaxParallel int `yaml:"maxParallel,omitempty"`

	// StopOnError marks remaining sequential tasks SKIPPED after a failure
	StopOnError bool `yaml:"stopOnError,omitempty"`

	// DryRun restricts the job to validation only
	DryRun bool `yaml:"dryRun,omitempty"`

	// Parallel holds the task specs to run concurrently
	Parallel []TaskSpec `yaml:"parallel,omitempty"`

	// Sequential holds the task specs to run one at a time, in order
	Sequential []TaskSpec `yaml:"sequential,omitempty"`
}

// TaskSpec is the on-disk form of a single task
type TaskSpec struct {
	// Type is the logical task type
	Type string `yaml:"type"`

	// Operation selects the handler capability; defaults to run
	Operation string `yaml:"operation,omitempty"`

	// Input is the opaque payload passed to the handler
	Input map[string]interface{} `yaml:"input,omitempty"`

	// Timeout bounds the handler invocation; zero means the engine default
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// LoadJobFile parses a single YAML job file
func LoadJobFile(path string) (*JobFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	var jf JobFile
	if err := yaml.Unmarshal(data, &jf); err != nil {
		return nil, fmt.Errorf("failed to parse job file %s: %w", path, err)
	}

	if len(jf.Parallel) == 0 && len(jf.Sequential) == 0 {
		return nil, fmt.Errorf("job file %s contains no tasks", path)
	}

	if jf.Name == "" {
		jf.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &jf, nil
}

// LoadJobFiles parses job files from a path. A directory expands to its
// .yaml/.yml entries, sorted by name; recursive walks subdirectories too.
func LoadJobFiles(path string, recursive bool) ([]*JobFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	if !info.IsDir() {
		jf, err := LoadJobFile(path)
		if err != nil {
			return nil, err
		}
		return []*JobFile{jf}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if p != path && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no job files found in %s", path)
	}

	jobs := make([]*JobFile, 0, len(files))
	for _, f := range files {
		jf, err := LoadJobFile(f)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, jf)
	}
	return jobs, nil
}

// ToPlan converts the job file to an execution plan, generating task IDs
// and defaulting operations to run
func (jf *JobFile) ToPlan() (*job.Plan, error) {
	plan := job.NewPlan(job.ParsePriority(jf.Priority))
	plan.MaxParallel = jf.MaxParallel
	plan.StopOnError = jf.StopOnError
	plan.DryRun = jf.DryRun

	for i, spec := range jf.Parallel {
		t, err := spec.toTask(plan.Priority)
		if err != nil {
			return nil, fmt.Errorf("parallel task %d: %w", i, err)
		}
		plan.Parallel = append(plan.Parallel, t)
	}
	for i, spec := range jf.Sequential {
		t, err := spec.toTask(plan.Priority)
		if err != nil {
			return nil, fmt.Errorf("sequential task %d: %w", i, err)
		}
		plan.Sequential = append(plan.Sequential, t)
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// toTask converts one task spec, applying defaults
func (s TaskSpec) toTask(priority job.Priority) (job.Task, error) {
	if s.Type == "" {
		return job.Task{}, fmt.Errorf("task has no type")
	}

	op := job.Operation(s.Operation)
	if s.Operation == "" {
		op = job.OpRun
	}
	if !op.Valid() {
		return job.Task{}, fmt.Errorf("invalid operation %q", s.Operation)
	}

	t := job.NewTask(s.Type, op, s.Input)
	t.Timeout = s.Timeout
	t.Priority = priority
	return t, nil
}
