package cli

import (
	"fmt"
	"os"

	"github.com/arjunmalhotra/opsrun/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newConfigCmd creates the config command group
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage opsrun configuration",
		Long:  "View or initialize the opsrun configuration file.",
	}

	cmd.AddCommand(newConfigViewCmd())
	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

// newConfigViewCmd creates the config view command
func newConfigViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := config.NewManager(cfgFile)
			cfg, err := mgr.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal configuration: %w", err)
			}

			fmt.Print(string(data))
			return nil
		},
	}
}

// newConfigInitCmd creates the config init command
func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := config.NewManager(cfgFile)
			if _, err := mgr.Load(); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			if err := mgr.Save(); err != nil {
				return fmt.Errorf("failed to write configuration: %w", err)
			}

			fmt.Fprintln(os.Stdout, "configuration written")
			return nil
		},
	}
}
