package results

import "time"

// Outcome is the pairing verdict for a user in a round. It is deliberately a
// three-valued enum rather than a nullable bool: every call site has to handle
// "pending" distinctly from "failed".
type Outcome string

const (
	OutcomeUnknown   Outcome = "UNKNOWN"
	OutcomeMatched   Outcome = "MATCHED"
	OutcomeUnmatched Outcome = "UNMATCHED"
)

// MatchResult is written exclusively by the pairing collaborator and read-only
// here. Once an outcome leaves UNKNOWN it is immutable for the round.
type MatchResult struct {
	UserID        int64
	PeriodID      int64
	Outcome       Outcome
	PartnerUserID *int64
	DecidedAt     *time.Time
}
