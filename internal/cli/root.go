// Package cli defines the fieldops command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fieldops/internal/config"
)

// Version is stamped at build time via -ldflags.
var Version = "0.1.0"

var configPath string

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fieldops",
		Short: "Field task coordination server",
		Long: "fieldops coordinates field tasks between dispatchers, requesters, " +
			"and executors: role-gated lifecycle, audit trail, realtime " +
			"notifications, and client sync.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMCPCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newResetCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fieldops v%s\n", Version)
		},
	}
}
