// Package report generates daily operational summaries: how many tasks
// exist, how they split across lifecycle states, what changed on a
// given day, and the detail of every open reported issue. Reports are
// rendered as plain text and kept on disk so they can be listed and
// downloaded later.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fieldops/internal/task"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Store is the subset of persistence the generator needs.
type Store interface {
	ListTasks() ([]task.Task, error)
	// TaskLogs returns a task's audit entries, newest first.
	TaskLogs(taskID int64) ([]task.LogEntry, error)
}

// Issue is the detail of one open reported issue: the task and the
// latest note attached to it.
type Issue struct {
	TaskID     int64         `json:"task_id"`
	Title      string        `json:"title"`
	AssignedTo int64         `json:"assigned_to"`
	Location   task.Location `json:"location"`
	Note       string        `json:"note,omitempty"`
}

// Stats is one day's aggregate numbers. The "today" counters come from
// the audit log, not task rows, so a row touched on a later day does
// not shift the day it completed.
type Stats struct {
	Date           string              `json:"date"`
	TotalTasks     int                 `json:"total_tasks"`
	ByStatus       map[task.Status]int `json:"by_status"`
	CreatedToday   int                 `json:"created_today"`
	CompletedToday int                 `json:"completed_today"`
	ReportedToday  int                 `json:"reported_today"`
	OpenIssues     int                 `json:"open_issues"`
	Issues         []Issue             `json:"issues,omitempty"`
}

// FileInfo describes one stored report file.
type FileInfo struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified_time"`
}

// Generator builds and persists daily reports.
type Generator struct {
	store Store
	dir   string
}

// NewGenerator creates a generator writing reports under dir.
func NewGenerator(store Store, dir string) *Generator {
	return &Generator{store: store, dir: dir}
}

// Collect computes statistics for the given day (YYYY-MM-DD).
func (g *Generator) Collect(date string) (*Stats, error) {
	tasks, err := g.store.ListTasks()
	if err != nil {
		return nil, fmt.Errorf("report: list tasks: %w", err)
	}

	stats := &Stats{Date: date, ByStatus: make(map[task.Status]int)}
	for _, t := range tasks {
		stats.TotalTasks++
		stats.ByStatus[t.Status]++
		if strings.HasPrefix(t.CreatedAt, date) {
			stats.CreatedToday++
		}

		logs, err := g.store.TaskLogs(t.ID)
		if err != nil {
			return nil, fmt.Errorf("report: logs for task %d: %w", t.ID, err)
		}
		for _, e := range logs {
			if !strings.HasPrefix(e.Timestamp, date) {
				continue
			}
			switch e.Status {
			case task.StatusCompleted:
				stats.CompletedToday++
			case task.StatusIssueReported:
				stats.ReportedToday++
			}
		}

		if t.Status == task.StatusIssueReported {
			stats.OpenIssues++
			stats.Issues = append(stats.Issues, Issue{
				TaskID:     t.ID,
				Title:      t.Title,
				AssignedTo: t.AssignedTo,
				Location:   t.Location,
				Note:       latestNote(logs),
			})
		}
	}
	return stats, nil
}

// latestNote returns the newest non-empty note. Logs arrive newest
// first from the store.
func latestNote(logs []task.LogEntry) string {
	for _, e := range logs {
		if e.Note != "" {
			return e.Note
		}
	}
	return ""
}

// Generate collects statistics for the given day (YYYY-MM-DD, empty
// means today), renders them, and writes the report file. It returns
// the stats and the file name. Future dates are rejected.
func (g *Generator) Generate(date string) (*Stats, string, error) {
	today := timeNow().UTC().Format("2006-01-02")
	if date == "" {
		date = today
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, "", fmt.Errorf("report: invalid date %q: want YYYY-MM-DD", date)
	}
	if date > today {
		return nil, "", fmt.Errorf("report: cannot report on future date %s", date)
	}
	stats, err := g.Collect(date)
	if err != nil {
		return nil, "", err
	}

	if err := os.MkdirAll(g.dir, 0o700); err != nil {
		return nil, "", fmt.Errorf("report: create dir: %w", err)
	}
	name := fmt.Sprintf("report-%s.txt", date)
	if err := os.WriteFile(filepath.Join(g.dir, name), []byte(Render(stats)), 0o600); err != nil {
		return nil, "", fmt.Errorf("report: write %s: %w", name, err)
	}
	return stats, name, nil
}

// Render formats statistics as the plain-text report body.
func Render(s *Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Field Operations Daily Report for %s\n", s.Date)
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", 42))
	fmt.Fprintf(&b, "Total tasks:      %d\n", s.TotalTasks)
	fmt.Fprintf(&b, "Created today:    %d\n", s.CreatedToday)
	fmt.Fprintf(&b, "Completed today:  %d\n", s.CompletedToday)
	fmt.Fprintf(&b, "Reported today:   %d\n", s.ReportedToday)
	fmt.Fprintf(&b, "Open issues:      %d\n\n", s.OpenIssues)

	b.WriteString("By status:\n")
	statuses := make([]string, 0, len(s.ByStatus))
	for st := range s.ByStatus {
		statuses = append(statuses, string(st))
	}
	sort.Strings(statuses)
	for _, st := range statuses {
		fmt.Fprintf(&b, "  %-16s %d\n", st, s.ByStatus[task.Status(st)])
	}

	if len(s.Issues) > 0 {
		b.WriteString("\nReported issue details:\n")
		for _, is := range s.Issues {
			fmt.Fprintf(&b, "  #%d %s (assigned to user %d, at %.4f, %.4f)\n",
				is.TaskID, is.Title, is.AssignedTo,
				is.Location.Latitude, is.Location.Longitude)
			if is.Note != "" {
				fmt.Fprintf(&b, "      latest note: %s\n", is.Note)
			}
		}
	}
	return b.String()
}

// List returns name, size, and modification time for every stored
// report file, newest first.
func (g *Generator) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(g.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("report: list dir: %w", err)
	}

	var out []FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "report-") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("report: stat %s: %w", e.Name(), err)
		}
		out = append(out, FileInfo{
			Name:     e.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().UTC().Format(time.RFC3339),
		})
	}
	// Names embed the date, so lexical order is chronological.
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

// Path resolves a stored report name to its file path. Names that
// escape the report directory are rejected.
func (g *Generator) Path(name string) (string, error) {
	if name != filepath.Base(name) || !strings.HasPrefix(name, "report-") {
		return "", fmt.Errorf("report: invalid report name %q", name)
	}
	path := filepath.Join(g.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("report: %q not found", name)
	}
	return path, nil
}
