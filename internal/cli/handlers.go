package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/arjunmalhotra/opsrun/internal/agents"
	"github.com/arjunmalhotra/opsrun/internal/registry"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// newHandlersCmd creates the handlers command, which lists the built-in
// handler types and the capabilities each one exposes.
func newHandlersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handlers",
		Short: "List registered task handlers",
		Long:  "Display the built-in handler types and the operations each one supports.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHandlers()
		},
	}

	return cmd
}

func runHandlers() error {
	reg := registry.New(slog.Default())
	agents.RegisterBuiltins(reg, slog.Default())

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"TYPE", "CAPABILITIES"})
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)

	for _, t := range reg.Types() {
		r, ok := reg.Get(t)
		if !ok {
			continue
		}
		table.Append([]string{t, strings.Join(r.CapabilityList(), ",")})
	}

	table.Render()
	return nil
}
