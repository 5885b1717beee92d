package applications

import "time"

// Application is one user's participation record for one round. Rows are never
// physically deleted; cancellation history feeds the reapplication cooldown.
type Application struct {
	ID          int64
	UserID      int64
	PeriodID    int64
	Applied     bool
	AppliedAt   time.Time
	Cancelled   bool
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Active reports whether this application still participates in the round.
func (a Application) Active() bool {
	return a.Applied && !a.Cancelled
}

// Status is the read-only view returned by getStatus, tolerant of "no
// application": all fields stay false/nil in that case.
type Status struct {
	Applied     bool       `json:"applied"`
	Cancelled   bool       `json:"cancelled"`
	AppliedAt   *time.Time `json:"applied_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// Active reports whether the status describes a live application.
func (s Status) Active() bool {
	return s.Applied && !s.Cancelled
}
