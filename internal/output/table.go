package output

import (
	"fmt"
	"io"
	"time"

	"github.com/arjunmalhotra/opsrun/internal/job"
	"github.com/arjunmalhotra/opsrun/internal/util"
	"github.com/olekukonko/tablewriter"
)

// TableFormatter formats output as a table (kubectl-style)
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// FormatJob outputs one job result with a row per task and a summary line
func (f *TableFormatter) FormatJob(w io.Writer, res *job.Result) error {
	if res == nil {
		fmt.Fprintln(w, "No result")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)

	headers := []string{"TASK", "TYPE", "OPERATION", "STATUS", "DURATION"}
	if f.options.Wide {
		headers = append(headers, "DETAIL")
	}
	f.setHeaders(table, headers, colors)

	for _, tr := range res.TaskResults {
		table.Append(f.taskRow(tr, colors))
	}

	table.Render()
	f.printJobSummary(w, res, colors)
	return nil
}

// FormatJobs outputs a listing of job results
func (f *TableFormatter) FormatJobs(w io.Writer, results []*job.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No jobs")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)

	headers := []string{"JOB", "STATUS", "TOTAL", "OK", "FAILED", "SKIPPED", "DURATION"}
	f.setHeaders(table, headers, colors)

	for _, res := range results {
		status := string(res.Status)
		if !colors.Disabled {
			status = colors.JobStatusColor(res.Status)(status)
		}
		table.Append([]string{
			shortID(res.JobID),
			status,
			fmt.Sprintf("%d", res.Total),
			fmt.Sprintf("%d", res.Succeeded),
			fmt.Sprintf("%d", res.Failed),
			fmt.Sprintf("%d", res.Skipped),
			res.TotalDuration.String(),
		})
	}

	table.Render()
	return nil
}

// taskRow formats a single task result as a table row
func (f *TableFormatter) taskRow(tr job.TaskResult, colors *ColorScheme) []string {
	taskType := util.ShortTypeName(tr.Type)
	if !colors.Disabled {
		taskType = colors.TaskType(taskType)
	}

	status := string(tr.Status)
	if !colors.Disabled {
		status = colors.TaskStatusColor(tr.Status)(status)
	}

	duration := tr.Duration.String()
	if tr.Status == job.StatusSkipped {
		duration = "-"
	} else if !colors.Disabled {
		duration = colors.Duration(duration)
	}

	row := []string{shortID(tr.TaskID), taskType, string(tr.Operation), status, duration}

	if f.options.Wide {
		detail := tr.Error
		if detail == "" && tr.Payload != nil {
			detail = fmt.Sprintf("%v", tr.Payload)
		}
		if len(detail) > 50 {
			detail = detail[:47] + "..."
		}
		row = append(row, detail)
	}

	return row
}

// printJobSummary prints the job-level counters below the task table
func (f *TableFormatter) printJobSummary(w io.Writer, res *job.Result, colors *ColorScheme) {
	status := string(res.Status)
	if !colors.Disabled {
		status = colors.JobStatusColor(res.Status)(status)
	}

	mode := ""
	if res.DryRun {
		mode = " (dry run)"
	}

	fmt.Fprintf(w, "\nJob %s: %s%s — %d total, %d succeeded, %d failed, %d skipped in %s\n",
		shortID(res.JobID), status, mode,
		res.Total, res.Succeeded, res.Failed, res.Skipped,
		res.TotalDuration.Round(time.Millisecond))

	if !res.Merged.Empty() {
		for field, items := range res.Merged.Lists {
			fmt.Fprintf(w, "  %s:\n", field)
			for _, item := range items {
				fmt.Fprintf(w, "    - %v\n", item)
			}
		}
		for field, byType := range res.Merged.Scalars {
			for logicalType, value := range byType {
				fmt.Fprintf(w, "  %s[%s]: %v\n", field, logicalType, value)
			}
		}
	}
}

// setHeaders applies (optionally colored) headers to the table
func (f *TableFormatter) setHeaders(table *tablewriter.Table, headers []string, colors *ColorScheme) {
	if f.options.NoHeaders {
		return
	}
	if colors.Disabled {
		table.SetHeader(headers)
		return
	}
	coloredHeaders := make([]string, len(headers))
	for i, h := range headers {
		coloredHeaders[i] = colors.Header(h)
	}
	table.SetHeader(coloredHeaders)
}

// createTable creates a new table with kubectl-style configuration
func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	return table
}

// shortID truncates generated UUIDs to their first segment for display
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
