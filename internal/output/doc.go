// Package output renders job results in table, JSON, and YAML formats.
//
// The table formatter produces kubectl-style output with status-aware
// coloring; colors are disabled automatically for non-TTY writers. The JSON
// and YAML formatters encode results directly for machine consumption.
//
// Create a formatter by name and render a job:
//
//	f := output.NewFormatter(output.FormatTable, output.WithNoColor(noColor))
//	f.FormatJob(os.Stdout, result)
package output
