package applications

import "time"

// CooldownDecision reports whether a user may reapply after cancelling.
type CooldownDecision struct {
	Allowed   bool
	Remaining time.Duration
}

// EvaluateCooldown is purely time-based: it makes no currency or phase
// decisions, so it can be reused wherever a cancellation cooldown applies.
func EvaluateCooldown(cancelledAt *time.Time, now time.Time, cooldown time.Duration) CooldownDecision {
	if cancelledAt == nil {
		return CooldownDecision{Allowed: true}
	}
	remaining := cooldown - now.Sub(*cancelledAt)
	if remaining <= 0 {
		return CooldownDecision{Allowed: true}
	}
	return CooldownDecision{Allowed: false, Remaining: remaining}
}
