package periods

import (
	"time"

	"github.com/astromeet/astromeet/internal/matching/shared"
)

// Period represents one matching round and its five governing timestamps.
// MatchingRun, MatchingAnnounce and Finish may be nil only transiently, before
// the administrative collaborator finishes configuring the round.
type Period struct {
	ID               int64
	ApplicationStart time.Time
	ApplicationEnd   time.Time
	MatchingRun      *time.Time
	MatchingAnnounce *time.Time
	Finish           *time.Time
	Executed         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate rejects rounds whose timestamps are missing or out of order.
func (p Period) Validate() error {
	if p.ApplicationStart.IsZero() || p.ApplicationEnd.IsZero() {
		return shared.ErrInvalidPeriod
	}
	if !p.ApplicationStart.Before(p.ApplicationEnd) {
		return shared.ErrInvalidPeriod
	}
	if p.MatchingRun != nil && p.MatchingRun.Before(p.ApplicationEnd) {
		return shared.ErrInvalidPeriod
	}
	if p.MatchingAnnounce != nil && p.MatchingRun != nil && p.MatchingAnnounce.Before(*p.MatchingRun) {
		return shared.ErrInvalidPeriod
	}
	if p.Finish != nil && p.MatchingAnnounce != nil && p.Finish.Before(*p.MatchingAnnounce) {
		return shared.ErrInvalidPeriod
	}
	return nil
}
