package task

// --- Transition table for executor mutations ---
//
// new → in_progress → {completed, issue_reported}
// issue_reported → in_progress (takeover by any executor)
// issue_reported → issue_reported (re-report, new audit note)
// in_progress → in_progress (re-affirm, new audit note)
//
// completed is terminal: nothing leaves it, for any role.
// Dispatchers bypass this table entirely (supervisory override).

var transitions = map[Status][]Status{
	StatusNew:           {StatusInProgress},
	StatusInProgress:    {StatusInProgress, StatusCompleted, StatusIssueReported},
	StatusIssueReported: {StatusInProgress, StatusIssueReported},
	StatusCompleted:     {},
}

// CanTransition reports whether the executor transition table allows
// moving from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status admits no further mutation.
func IsTerminal(s Status) bool {
	return s == StatusCompleted
}
