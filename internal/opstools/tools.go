// Package opstools exposes a read-only MCP surface over the task store,
// so an operations assistant can inspect the fleet without write access.
package opstools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"fieldops/internal/report"
	"fieldops/internal/store"
	"fieldops/internal/task"
)

// ListTasksTool handles the fieldops_list_tasks MCP tool.
type ListTasksTool struct {
	store *store.Store
}

// NewListTasksTool creates the tool over the given store.
func NewListTasksTool(st *store.Store) *ListTasksTool {
	return &ListTasksTool{store: st}
}

// Definition returns the MCP tool definition for registration.
func (t *ListTasksTool) Definition() mcp.Tool {
	return mcp.NewTool("fieldops_list_tasks",
		mcp.WithDescription(
			"List field tasks with their status, assignee, and location. "+
				"Optionally filter by status: new, in_progress, completed, issue_reported.",
		),
		mcp.WithString("status",
			mcp.Description("Only return tasks in this lifecycle state."),
		),
	)
}

// Handle processes the fieldops_list_tasks tool call.
func (t *ListTasksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := task.Status(req.GetString("status", ""))
	if filter != "" {
		if err := task.ValidateStatus(filter); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	tasks, err := t.store.ListTasks()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing tasks: %v", err)), nil
	}

	var b strings.Builder
	count := 0
	for _, tsk := range tasks {
		if filter != "" && tsk.Status != filter {
			continue
		}
		count++
		fmt.Fprintf(&b, "#%d [%s] %s (assigned to user %d, at %.4f, %.4f)\n",
			tsk.ID, tsk.Status, tsk.Title, tsk.AssignedTo,
			tsk.Location.Latitude, tsk.Location.Longitude)
	}
	if count == 0 {
		return mcp.NewToolResultText("No tasks match."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d task(s):\n%s", count, b.String())), nil
}

// TaskLogsTool handles the fieldops_task_logs MCP tool.
type TaskLogsTool struct {
	store *store.Store
}

// NewTaskLogsTool creates the tool over the given store.
func NewTaskLogsTool(st *store.Store) *TaskLogsTool {
	return &TaskLogsTool{store: st}
}

// Definition returns the MCP tool definition for registration.
func (t *TaskLogsTool) Definition() mcp.Tool {
	return mcp.NewTool("fieldops_task_logs",
		mcp.WithDescription(
			"Show the audit trail of one task: every status change, "+
				"reassignment, and note, newest first.",
		),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("ID of the task to inspect."),
		),
	)
}

// Handle processes the fieldops_task_logs tool call.
func (t *TaskLogsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := int64(req.GetInt("task_id", 0))
	if id <= 0 {
		return mcp.NewToolResultError("'task_id' is required and must be a positive task ID"), nil
	}

	tsk, err := t.store.GetTask(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading task %d: %v", id, err)), nil
	}
	if tsk == nil {
		return mcp.NewToolResultError(fmt.Sprintf("task %d not found", id)), nil
	}

	logs, err := t.store.TaskLogs(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading logs: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Audit trail for task #%d (%s):\n", tsk.ID, tsk.Title)
	for _, e := range logs {
		fmt.Fprintf(&b, "%s  status=%s assignee=%d by user %d", e.Timestamp, e.Status, e.AssignedTo, e.ModifiedBy)
		if e.Note != "" {
			fmt.Fprintf(&b, "  note: %s", e.Note)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// DailyReportTool handles the fieldops_daily_report MCP tool.
type DailyReportTool struct {
	reports *report.Generator
}

// NewDailyReportTool creates the tool over the given generator.
func NewDailyReportTool(g *report.Generator) *DailyReportTool {
	return &DailyReportTool{reports: g}
}

// Definition returns the MCP tool definition for registration.
func (t *DailyReportTool) Definition() mcp.Tool {
	return mcp.NewTool("fieldops_daily_report",
		mcp.WithDescription(
			"Render the operational summary for one day: totals, "+
				"status distribution, tasks created and completed that day.",
		),
		mcp.WithString("date",
			mcp.Description("Day to report on, YYYY-MM-DD. Defaults to today."),
		),
	)
}

// Handle processes the fieldops_daily_report tool call.
func (t *DailyReportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, _, err := t.reports.Generate(req.GetString("date", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(report.Render(stats)), nil
}
