package types

// LogEntry is one append-only record of an administrative action.
type LogEntry struct {
	// ID increases with insertion order.
	ID int64 `json:"id" db:"id"`

	// Admin is the username of who performed the action.
	Admin string `json:"admin" db:"admin"`

	// TargetUser is who the action was applied to.
	TargetUser string `json:"targetUser" db:"target_user"`

	Action  string `json:"action" db:"action"`
	Details string `json:"details" db:"details"`

	// Time is the caller-supplied timestamp, stored verbatim.
	Time string `json:"time" db:"occurred_at"`
}
