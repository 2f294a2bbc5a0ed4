package task

import (
	"fmt"
	"strings"
)

// Store defines the persistence contract for the lifecycle.
// Abstracted for testability (DIP). Implementations must guarantee that
// CreateTask and UpdateTask commit the task row and its audit entry in
// a single transaction, and that any task write advances the global
// version counter regardless of the calling code path.
type Store interface {
	// CreateTask persists a new task together with its initial audit
	// entry, filling in the generated IDs.
	CreateTask(t *Task, entry *LogEntry) error
	// GetTask returns the task with the given ID, or (nil, nil) if it
	// does not exist.
	GetTask(id int64) (*Task, error)
	// UpdateTask persists a task mutation together with one audit entry.
	UpdateTask(t *Task, entry *LogEntry) error
	// UserExists reports whether an identity is known.
	UserExists(id int64) (bool, error)
	// CurrentVersion returns the global change counter.
	CurrentVersion() (int64, error)
}

// Publisher delivers change notifications to live connections.
// Both methods are best-effort: implementations must never fail a
// mutation that has already committed.
type Publisher interface {
	// BroadcastTask pushes the full task state plus the version counter
	// to every subscribed connection.
	BroadcastTask(t *Task, version int64)
	// Notify delivers a human-readable message to the given identities;
	// identities with no live connection are silently skipped.
	Notify(recipients []int64, message string)
}

// NopPublisher discards all notifications. Used by offline tooling and
// in tests that only care about lifecycle semantics.
type NopPublisher struct{}

func (NopPublisher) BroadcastTask(*Task, int64) {}
func (NopPublisher) Notify([]int64, string)     {}

// Service validates and applies role-gated task mutations.
type Service struct {
	store Store
	pub   Publisher
}

// NewService creates a lifecycle service. A nil publisher disables
// notifications.
func NewService(store Store, pub Publisher) *Service {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Service{store: store, pub: pub}
}

// Create validates a draft and persists a new task in state "new",
// together with its initial audit entry, in one transaction.
//
// Requesters self-assign; dispatchers must name an existing assignee.
// Executors cannot create tasks.
func (s *Service) Create(draft Draft, actor Actor) (*Task, error) {
	if actor.Role != RoleRequester && actor.Role != RoleDispatcher {
		return nil, deniedf("access denied: only requester or dispatcher users can create tasks")
	}

	if strings.TrimSpace(draft.Title) == "" {
		return nil, validationf("missing required field: title")
	}
	if draft.Location == nil {
		return nil, validationf("missing location details: latitude, longitude")
	}
	if err := draft.Location.Validate(); err != nil {
		return nil, err
	}

	assignee := actor.ID
	if actor.Role == RoleDispatcher {
		if draft.AssignedTo == 0 {
			return nil, validationf("missing required field: assigned_to for dispatcher")
		}
		ok, err := s.store.UserExists(draft.AssignedTo)
		if err != nil {
			return nil, fmt.Errorf("checking assignee: %w", err)
		}
		if !ok {
			return nil, notFoundf("assigned user %d does not exist", draft.AssignedTo)
		}
		assignee = draft.AssignedTo
	}

	now := nowRFC3339()
	t := &Task{
		Title:               strings.TrimSpace(draft.Title),
		Description:         draft.Description,
		Status:              StatusNew,
		CreatedBy:           actor.ID,
		AssignedTo:          assignee,
		HistoricalAssignees: []int64{assignee},
		Location:            *draft.Location,
		CreatedAt:           now,
	}
	entry := &LogEntry{
		Timestamp:  now,
		Status:     StatusNew,
		AssignedTo: assignee,
		ModifiedBy: actor.ID,
		Note:       fmt.Sprintf("Task created by %s %d", actor.Role, actor.ID),
	}

	if err := s.store.CreateTask(t, entry); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	s.publish(t, fmt.Sprintf("Task %d created by %s %d", t.ID, actor.Role, actor.ID), []int64{assignee})
	return t, nil
}

// Transition loads a task and applies a role-gated mutation.
//
// Requesters (creator or current assignee only) attach a note without
// touching status or assignee. Executors move the task through the
// transition table; taking a new or issue_reported task to in_progress
// reassigns it to the acting executor. Dispatchers set status and
// assignee directly, bypassing the table.
func (s *Service) Transition(taskID int64, patch Patch, actor Actor) (*Task, error) {
	t, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("loading task %d: %w", taskID, err)
	}
	if t == nil {
		return nil, notFoundf("task with ID %d does not exist", taskID)
	}
	if IsTerminal(t.Status) {
		return nil, terminalf("task %d is terminal: cannot modify completed tasks", t.ID)
	}

	prevStatus := t.Status
	prevAssignee := t.AssignedTo

	switch actor.Role {
	case RoleRequester:
		if actor.ID != t.CreatedBy && actor.ID != t.AssignedTo {
			return nil, deniedf("access denied: you can only modify your own tasks")
		}
		if !patch.HasNote() {
			return nil, validationf("note is required")
		}
		// Status and assignee stay as they are; the audit entry below
		// records them at their current values.

	case RoleExecutor:
		if patch.Status == "" {
			return nil, validationf("missing required field: status")
		}
		if err := ValidateStatus(patch.Status); err != nil {
			return nil, err
		}
		if !CanTransition(t.Status, patch.Status) {
			return nil, statef("invalid status transition from %s to %s", t.Status, patch.Status)
		}
		switch t.Status {
		case StatusInProgress:
			if actor.ID != t.AssignedTo {
				return nil, deniedf("access denied: task is assigned to another user")
			}
		case StatusIssueReported:
			if patch.Status == StatusIssueReported && actor.ID != t.AssignedTo {
				return nil, deniedf("access denied: only the assigned user can add more issue details")
			}
		}
		// Picking up a new or reported task reassigns it to the actor.
		if patch.Status == StatusInProgress && t.Status != StatusInProgress {
			t.AssignedTo = actor.ID
		}
		t.Status = patch.Status

	case RoleDispatcher:
		if patch.Status == "" || patch.AssignedTo == 0 {
			return nil, validationf("dispatchers must provide 'status' and 'assigned_to' fields")
		}
		if err := ValidateStatus(patch.Status); err != nil {
			return nil, err
		}
		ok, err := s.store.UserExists(patch.AssignedTo)
		if err != nil {
			return nil, fmt.Errorf("checking assignee: %w", err)
		}
		if !ok {
			return nil, notFoundf("assigned user %d does not exist", patch.AssignedTo)
		}
		// Supervisory override: no transition-table validation.
		t.Status = patch.Status
		t.AssignedTo = patch.AssignedTo

	default:
		return nil, deniedf("access denied: unknown role %q", actor.Role)
	}

	if t.AssignedTo != prevAssignee {
		t.HistoricalAssignees = append(t.HistoricalAssignees, t.AssignedTo)
	}

	now := nowRFC3339()
	t.UpdatedAt = now
	entry := &LogEntry{
		TaskID:     t.ID,
		Timestamp:  now,
		Status:     t.Status,
		AssignedTo: t.AssignedTo,
		ModifiedBy: actor.ID,
		Note:       strings.TrimSpace(patch.Note),
	}

	if err := s.store.UpdateTask(t, entry); err != nil {
		return nil, fmt.Errorf("updating task %d: %w", t.ID, err)
	}

	s.publish(t, describeChange(prevStatus, prevAssignee, t, entry.Note), recipients(prevAssignee, t.AssignedTo))
	return t, nil
}

// describeChange builds the human-readable message for targeted
// notifications: what changed, in audit-trail vocabulary.
func describeChange(prevStatus Status, prevAssignee int64, t *Task, note string) string {
	var parts []string
	if t.Status != prevStatus {
		parts = append(parts, fmt.Sprintf("Status changed from %s to %s", prevStatus, t.Status))
	}
	if t.AssignedTo != prevAssignee {
		parts = append(parts, fmt.Sprintf("Reassigned from %d to %d", prevAssignee, t.AssignedTo))
	}
	if note != "" {
		parts = append(parts, "Note updated")
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("Task %d: %s", t.ID, strings.Join(parts, "; "))
}

// recipients returns the identities relevant to a change: the current
// assignee plus, on reassignment, the previous one.
func recipients(prevAssignee, assignee int64) []int64 {
	if prevAssignee == assignee || prevAssignee == 0 {
		return []int64{assignee}
	}
	return []int64{prevAssignee, assignee}
}

// publish pushes the broadcast and targeted notifications for an
// accepted mutation. Best-effort by contract: errors from the counter
// read degrade to version 0 rather than failing the mutation.
func (s *Service) publish(t *Task, message string, targets []int64) {
	version, err := s.store.CurrentVersion()
	if err != nil {
		version = 0
	}
	s.pub.BroadcastTask(t, version)
	if message != "" {
		s.pub.Notify(targets, message)
	}
}
