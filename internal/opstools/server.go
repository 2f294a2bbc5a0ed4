package opstools

import (
	"github.com/mark3labs/mcp-go/server"

	"fieldops/internal/report"
	"fieldops/internal/store"
)

// NewServer assembles the MCP server with every read-only tool
// registered. The caller owns the store's lifetime.
func NewServer(st *store.Store, reports *report.Generator, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"fieldops",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(
			"Read-only view of the field task coordination server. "+
				"Use fieldops_list_tasks to see the fleet, fieldops_task_logs "+
				"for one task's history, and fieldops_daily_report for daily "+
				"statistics. Mutations go through the HTTP API, never here.",
		),
	)

	listTool := NewListTasksTool(st)
	s.AddTool(listTool.Definition(), listTool.Handle)

	logsTool := NewTaskLogsTool(st)
	s.AddTool(logsTool.Definition(), logsTool.Handle)

	reportTool := NewDailyReportTool(reports)
	s.AddTool(reportTool.Definition(), reportTool.Handle)

	return s
}
