package run

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/arjunmalhotra/opsrun/internal/agents"
	"github.com/arjunmalhotra/opsrun/internal/config"
	"github.com/arjunmalhotra/opsrun/internal/executor"
	"github.com/arjunmalhotra/opsrun/internal/job"
	"github.com/arjunmalhotra/opsrun/internal/ledger"
	"github.com/arjunmalhotra/opsrun/internal/output"
	"github.com/arjunmalhotra/opsrun/internal/planner"
	"github.com/arjunmalhotra/opsrun/internal/registry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	var filename string
	var recursive bool
	var dryRun bool
	var priority string
	var inputs []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run jobs against the built-in handlers",
		Long: `Run one or more jobs described in YAML job files, or build a plan from
a priority tier and a set of key=value inputs.

Tasks in a job are dispatched with a bounded worker pool and per-task
timeouts. Results are reported in submission order together with job
counters and a merged payload.`,
		Example: `  # Run a single job file
  opsrun run -f job.yaml

  # Run every job file under a directory
  opsrun run -f ./jobs/ -R

  # Validate without invoking any handlers
  opsrun run -f job.yaml --dry-run

  # Build a plan from the high-priority route
  opsrun run --priority high --input service=checkout --input symptom=latency

  # Limit concurrency and emit JSON
  opsrun run -f job.yaml -p 2 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if filename == "" && priority == "" {
				return fmt.Errorf("either a job file (-f) or a priority tier (--priority) is required")
			}

			ctx := cmd.Context()
			return runJobs(ctx, filename, recursive, dryRun, priority, inputs)
		},
	}

	cmd.Flags().StringVarP(&filename, "filename", "f", "", "Path to job file or directory")
	cmd.Flags().BoolVarP(&recursive, "recursive", "R", false, "Process directories recursively")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate tasks without invoking handlers")
	cmd.Flags().StringVar(&priority, "priority", "", "Build a plan for a priority tier (critical, high, medium, low)")
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "Plan input as key=value (repeatable, used with --priority)")

	return cmd
}

func runJobs(ctx context.Context, filename string, recursive bool, dryRun bool, priority string, inputs []string) error {
	logger := slog.Default()

	plans, err := buildPlans(filename, recursive, priority, inputs, logger)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		return fmt.Errorf("no jobs found in %s", filename)
	}

	if dryRun {
		for _, p := range plans {
			p.DryRun = true
		}
	}

	logger.Info("loaded jobs", "count", len(plans), "dry_run", dryRun)

	// Build the engine from flag and config values
	engineCfg := executor.Config{
		MaxParallel:    viper.GetInt("defaults.parallel"),
		MaxBatchSize:   viper.GetInt("defaults.maxBatch"),
		DefaultTimeout: viper.GetDuration("defaults.timeout"),
	}

	reg := registry.New(logger)
	agents.RegisterBuiltins(reg, logger)

	led := ledger.NewStore(viper.GetDuration("retention"), logger)
	engine := executor.NewEngine(engineCfg, reg, led, logger)

	formatter := newFormatter()

	// Execute plans one at a time; each plan fans out internally
	var failed int
	for _, plan := range plans {
		total := plan.TaskCount()
		progress := func(completed, total int) {
			logger.Debug("job progress", "job_id", plan.ID, "completed", completed, "total", total)
		}

		fmt.Printf("Running job %s (%d task(s), priority %s)...\n", plan.ID, total, plan.Priority)

		res, err := engine.ExecuteWithProgress(ctx, plan, progress)
		if err != nil {
			return fmt.Errorf("job %s did not run: %w", plan.ID, err)
		}

		if err := formatter.FormatJob(os.Stdout, res); err != nil {
			return fmt.Errorf("failed to format job %s: %w", res.JobID, err)
		}

		if res.Status == job.JobFailed || res.Status == job.JobPartial {
			failed++
		}
	}

	// Recap every job recorded in this invocation
	if len(plans) > 1 {
		fmt.Println("\nJob recap:")
		if err := formatter.FormatJobs(os.Stdout, led.List(0)); err != nil {
			return fmt.Errorf("failed to format job recap: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d job(s) finished with failures", failed, len(plans))
	}
	return nil
}

// buildPlans resolves the plans to execute, either from job files or
// from the priority-tier route table.
func buildPlans(filename string, recursive bool, priority string, inputs []string, logger *slog.Logger) ([]*job.Plan, error) {
	if filename != "" {
		files, err := config.LoadJobFiles(filename, recursive)
		if err != nil {
			return nil, fmt.Errorf("failed to load job files: %w", err)
		}

		plans := make([]*job.Plan, 0, len(files))
		for _, jf := range files {
			plan, err := jf.ToPlan()
			if err != nil {
				return nil, fmt.Errorf("invalid job %q: %w", jf.Name, err)
			}
			plans = append(plans, plan)
		}
		return plans, nil
	}

	tier := job.ParsePriority(priority)

	input, err := parseInputs(inputs)
	if err != nil {
		return nil, err
	}

	builder := planner.NewBuilder(logger)
	return []*job.Plan{builder.Build(input, tier)}, nil
}

// parseInputs turns repeated key=value flags into a plan input map
func parseInputs(pairs []string) (map[string]interface{}, error) {
	input := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input %q, expected key=value", pair)
		}
		input[key] = value
	}
	return input, nil
}

func newFormatter() output.Formatter {
	format := viper.GetString("output")
	if format == "" {
		format = viper.GetString("defaults.outputFormat")
	}

	noColor := viper.GetBool("no-color")
	return output.NewFormatter(output.Format(format), output.WithNoColor(noColor))
}
