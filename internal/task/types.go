// Package task implements the field-task lifecycle: role-gated creation
// and status transitions, the append-only audit trail, and the change
// notifications that follow every accepted mutation.
//
// The package follows the same design principles as the rest of the server:
// - SRP: types, transition rules, and the lifecycle service in separate files
// - DIP: Store and Publisher are interfaces; the service depends on abstractions
package task

import (
	"fmt"
	"strings"
)

// --- Status enum ---

// Status is the lifecycle state of a task.
type Status string

const (
	StatusNew           Status = "new"
	StatusInProgress    Status = "in_progress"
	StatusCompleted     Status = "completed"
	StatusIssueReported Status = "issue_reported"
)

// validStatuses is the set of recognized task statuses.
var validStatuses = map[Status]bool{
	StatusNew:           true,
	StatusInProgress:    true,
	StatusCompleted:     true,
	StatusIssueReported: true,
}

// ValidateStatus returns an error if the status is not recognized.
func ValidateStatus(s Status) error {
	if !validStatuses[s] {
		return validationf("invalid status %q: must be one of: new, in_progress, completed, issue_reported", s)
	}
	return nil
}

// --- Role enum ---

// Role identifies what an actor is allowed to do to a task.
type Role string

const (
	// RoleDispatcher supervises the fleet: creates tasks for anyone and
	// can override status/assignee directly.
	RoleDispatcher Role = "dispatcher"
	// RoleRequester reports work in the field; its tasks are self-assigned
	// and it may only attach notes afterwards.
	RoleRequester Role = "requester"
	// RoleExecutor carries out tasks and moves them through the
	// transition table.
	RoleExecutor Role = "executor"
)

// validRoles is the set of recognized actor roles.
var validRoles = map[Role]bool{
	RoleDispatcher: true,
	RoleRequester:  true,
	RoleExecutor:   true,
}

// ValidateRole returns an error if the role is not recognized.
func ValidateRole(r Role) error {
	if !validRoles[r] {
		return validationf("invalid role %q: must be one of: dispatcher, requester, executor", r)
	}
	return nil
}

// --- Core data structures ---

// Location is a geographic point. Latitude must be within [-90, 90] and
// longitude within [-180, 180]; a Task never carries a location outside
// those ranges.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks the coordinate ranges.
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 || l.Longitude < -180 || l.Longitude > 180 {
		return validationf("invalid location coordinates (%v, %v)", l.Latitude, l.Longitude)
	}
	return nil
}

// Actor is an already-resolved (identity, role) pair. Credential parsing
// happens upstream; the lifecycle never sees tokens.
type Actor struct {
	ID   int64
	Role Role
}

// Task is the unit of work tracked through its lifecycle.
type Task struct {
	ID                  int64    `json:"id"`
	Title               string   `json:"title"`
	Description         string   `json:"description,omitempty"`
	Status              Status   `json:"status"`
	CreatedBy           int64    `json:"created_by"`
	AssignedTo          int64    `json:"assigned_to"`
	HistoricalAssignees []int64  `json:"historical_assignees"`
	Location            Location `json:"location"`
	CreatedAt           string   `json:"created_at"`
	UpdatedAt           string   `json:"updated_at,omitempty"`
}

// LogEntry is one immutable audit record: the task's status and assignee
// at the moment of a mutation, who caused it, and an optional note.
// Entries are append-only; canonical read order is timestamp descending.
type LogEntry struct {
	ID         int64  `json:"id"`
	TaskID     int64  `json:"task_id"`
	Timestamp  string `json:"timestamp"`
	Status     Status `json:"status"`
	AssignedTo int64  `json:"assigned_to"`
	ModifiedBy int64  `json:"modified_by"`
	Note       string `json:"note,omitempty"`
}

// Draft holds the caller-supplied fields for task creation.
type Draft struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    *Location `json:"location"`
	AssignedTo  int64     `json:"assigned_to,omitempty"`
}

// Patch holds the caller-supplied fields for a task mutation. Which
// fields are required depends on the actor's role.
type Patch struct {
	Status     Status `json:"status,omitempty"`
	AssignedTo int64  `json:"assigned_to,omitempty"`
	Note       string `json:"note,omitempty"`
}

// HasNote reports whether the patch carries a non-empty note.
func (p Patch) HasNote() bool {
	return strings.TrimSpace(p.Note) != ""
}

func (t *Task) String() string {
	return fmt.Sprintf("Task %d [%s] assigned to %d", t.ID, t.Status, t.AssignedTo)
}
