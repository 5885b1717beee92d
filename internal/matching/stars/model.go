package stars

import "time"

// Balance is a user's spendable star count. Never negative.
type Balance struct {
	UserID    int64
	Stars     int64
	UpdatedAt time.Time
}

// Transaction records the provenance of a single debit or credit.
// Reason is unique per ledger movement ("apply:<application_id>",
// "refund:<application_id>") so a retried credit can be detected and skipped.
type Transaction struct {
	ID        int64
	UserID    int64
	Amount    int64
	Reason    string
	CreatedAt time.Time
}
