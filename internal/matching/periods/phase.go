package periods

import "time"

// Phase is the derived stage of a round at a given instant.
type Phase string

const (
	PhasePreOpen                Phase = "PRE_OPEN"
	PhaseOpen                   Phase = "OPEN"
	PhaseClosedAwaitingAnnounce Phase = "CLOSED_AWAITING_ANNOUNCE"
	PhaseAnnounced              Phase = "ANNOUNCED"
	PhaseFinished               Phase = "FINISHED"
)

// phaseRank orders phases so callers can compare progression.
var phaseRank = map[Phase]int{
	PhasePreOpen:                0,
	PhaseOpen:                   1,
	PhaseClosedAwaitingAnnounce: 2,
	PhaseAnnounced:              3,
	PhaseFinished:               4,
}

// Rank returns the position of the phase in the round's ordered progression.
func (p Phase) Rank() int {
	return phaseRank[p]
}

// ResolvePhase maps a round's timestamps and an instant to a phase.
// The rules are evaluated in strict order; the first match wins. It is a total
// function over valid periods and never panics on partially configured ones.
func ResolvePhase(p Period, now time.Time) Phase {
	if now.Before(p.ApplicationStart) {
		return PhasePreOpen
	}
	if p.Finish != nil && !now.Before(*p.Finish) {
		return PhaseFinished
	}
	if !now.After(p.ApplicationEnd) {
		return PhaseOpen
	}
	if p.MatchingAnnounce == nil || now.Before(*p.MatchingAnnounce) {
		return PhaseClosedAwaitingAnnounce
	}
	return PhaseAnnounced
}
