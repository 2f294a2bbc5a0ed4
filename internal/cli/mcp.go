package cli

import (
	"log"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"fieldops/internal/opstools"
	"fieldops/internal/report"
	"fieldops/internal/store"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the read-only MCP tool surface over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() {
				if err := st.Close(); err != nil {
					log.Printf("WARNING: store close: %v", err)
				}
			}()

			reports := report.NewGenerator(st, cfg.ReportsDir)
			s := opstools.NewServer(st, reports, Version)
			return server.ServeStdio(s)
		},
	}
}
