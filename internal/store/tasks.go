package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"fieldops/internal/task"
)

// CreateTask persists a new task and its initial audit entry in one
// transaction, filling in the generated IDs. The insert trigger bumps
// the global counter as a side effect of the same transaction.
func (s *Store) CreateTask(t *task.Task, entry *task.LogEntry) error {
	assignees, err := json.Marshal(t.HistoricalAssignees)
	if err != nil {
		return fmt.Errorf("store: marshal assignees: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`
		INSERT INTO tasks (title, description, status, created_by, assigned_to,
			location_lat, location_lon, historical_assignees, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Title, nullString(t.Description), string(t.Status), t.CreatedBy, t.AssignedTo,
		t.Location.Latitude, t.Location.Longitude, string(assignees), t.CreatedAt, nullString(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("store: insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: task id: %w", err)
	}
	t.ID = id
	entry.TaskID = id

	if err := insertLog(tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateTask persists a task mutation and one audit entry in one
// transaction. The update trigger bumps the global counter.
func (s *Store) UpdateTask(t *task.Task, entry *task.LogEntry) error {
	assignees, err := json.Marshal(t.HistoricalAssignees)
	if err != nil {
		return fmt.Errorf("store: marshal assignees: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`
		UPDATE tasks
		SET title = ?, description = ?, status = ?, assigned_to = ?,
			historical_assignees = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, nullString(t.Description), string(t.Status), t.AssignedTo,
		string(assignees), nullString(t.UpdatedAt), t.ID,
	)
	if err != nil {
		return fmt.Errorf("store: update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("store: task %d vanished during update", t.ID)
	}

	if err := insertLog(tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// GetTask returns the task with the given ID, or (nil, nil) if it does
// not exist.
func (s *Store) GetTask(id int64) (*task.Task, error) {
	row := s.db.QueryRow(`
		SELECT id, title, description, status, created_by, assigned_to,
			location_lat, location_lon, historical_assignees, created_at, updated_at
		FROM tasks WHERE id = ?`, id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load task %d: %w", id, err)
	}
	return t, nil
}

// ListTasks returns all tasks ordered by ID.
func (s *Store) ListTasks() ([]task.Task, error) {
	rows, err := s.db.Query(`
		SELECT id, title, description, status, created_by, assigned_to,
			location_lat, location_lon, historical_assignees, created_at, updated_at
		FROM tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list tasks: %w", err)
	}
	defer rows.Close()

	var out []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan task: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// DeleteTask removes a task and, through the cascade, its audit entries.
// Administrative escape hatch: not reachable from the HTTP API. The
// delete trigger still bumps the counter so clients resync.
func (s *Store) DeleteTask(id int64) error {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete task %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("store: task %d not found", id)
	}
	return nil
}

// TaskLogs returns a task's audit entries, newest first.
func (s *Store) TaskLogs(taskID int64) ([]task.LogEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, task_id, timestamp, status, assigned_to, modified_by, note
		FROM task_logs
		WHERE task_id = ?
		ORDER BY timestamp DESC, id DESC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("store: task logs: %w", err)
	}
	defer rows.Close()

	var out []task.LogEntry
	for rows.Next() {
		var e task.LogEntry
		var status string
		var assignedTo sql.NullInt64
		var note sql.NullString
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Timestamp, &status, &assignedTo, &e.ModifiedBy, &note); err != nil {
			return nil, fmt.Errorf("store: scan log: %w", err)
		}
		e.Status = task.Status(status)
		e.AssignedTo = assignedTo.Int64
		e.Note = note.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var t task.Task
	var status string
	var description, updatedAt, assignees sql.NullString
	var assignedTo sql.NullInt64

	err := row.Scan(&t.ID, &t.Title, &description, &status, &t.CreatedBy, &assignedTo,
		&t.Location.Latitude, &t.Location.Longitude, &assignees, &t.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.Status = task.Status(status)
	t.Description = description.String
	t.AssignedTo = assignedTo.Int64
	t.UpdatedAt = updatedAt.String
	if assignees.Valid && assignees.String != "" {
		if err := json.Unmarshal([]byte(assignees.String), &t.HistoricalAssignees); err != nil {
			return nil, fmt.Errorf("parsing historical assignees: %w", err)
		}
	}
	return &t, nil
}

func insertLog(tx *sql.Tx, entry *task.LogEntry) error {
	res, err := tx.Exec(`
		INSERT INTO task_logs (task_id, timestamp, status, assigned_to, modified_by, note)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.TaskID, entry.Timestamp, string(entry.Status), entry.AssignedTo,
		entry.ModifiedBy, nullString(entry.Note),
	)
	if err != nil {
		return fmt.Errorf("store: insert log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: log id: %w", err)
	}
	entry.ID = id
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
