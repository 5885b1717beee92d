// Package outcome derives the single authoritative display status for a user
// in a round. Resolution is a pure function of (round, application, result,
// now); nothing here is cached or mutated in place, so repeated polling can
// never observe a half-written state.
package outcome

import (
	"time"

	"github.com/astromeet/astromeet/internal/matching/applications"
	"github.com/astromeet/astromeet/internal/matching/periods"
	"github.com/astromeet/astromeet/internal/matching/results"
)

// DisplayStatus is the closed set of statuses shown to the user.
type DisplayStatus string

const (
	StatusNoActiveRound         DisplayStatus = "NO_ACTIVE_ROUND"
	StatusRoundFinished         DisplayStatus = "ROUND_FINISHED"
	StatusNotOpenYet            DisplayStatus = "NOT_OPEN_YET"
	StatusNotApplied            DisplayStatus = "NOT_APPLIED"
	StatusOpenAwaitingAction    DisplayStatus = "APPLICATION_OPEN_AWAITING_ACTION"
	StatusAppliedWaiting        DisplayStatus = "APPLIED_WAITING"
	StatusClosedNotApplied      DisplayStatus = "APPLICATION_CLOSED_NOT_APPLIED"
	StatusResultPending         DisplayStatus = "RESULT_PENDING"
	StatusMatchSuccess          DisplayStatus = "MATCH_SUCCESS"
	StatusMatchFailure          DisplayStatus = "MATCH_FAILURE"
)

// Action is a user action enabled by the current status.
type Action string

const (
	ActionCanApply  Action = "CAN_APPLY"
	ActionCanCancel Action = "CAN_CANCEL"
	ActionCanChat   Action = "CAN_CHAT"
)

// Input gathers everything resolution depends on. Result must be the verdict
// for THIS round, read fresh; a cached value from an earlier round would leak
// a stale outcome into the current one.
type Input struct {
	Period          *periods.Period
	Application     applications.Status
	Result          results.Outcome
	CooldownAllowed bool
	Now             time.Time
}

// Resolution is the derived status plus the actions it enables.
type Resolution struct {
	Phase         periods.Phase
	Status        DisplayStatus
	Actions       []Action
	ChatRemaining time.Duration
	Countdown     string
}

// Resolve maps the input to a resolution. The pairing verdict is consulted
// only in the ANNOUNCED phase for a live application; an UNKNOWN verdict there
// reports RESULT_PENDING, never MATCH_FAILURE, because the pairing
// collaborator may still be writing results.
func Resolve(in Input) Resolution {
	if in.Period == nil {
		return Resolution{Status: StatusNoActiveRound}
	}
	phase := periods.ResolvePhase(*in.Period, in.Now)
	res := Resolution{Phase: phase}
	active := in.Application.Active()

	switch phase {
	case periods.PhasePreOpen:
		res.Status = StatusNotOpenYet
	case periods.PhaseOpen:
		switch {
		case active:
			res.Status = StatusAppliedWaiting
			res.Actions = append(res.Actions, ActionCanCancel)
		case in.Application.Cancelled:
			res.Status = StatusNotApplied
			if in.CooldownAllowed {
				res.Actions = append(res.Actions, ActionCanApply)
			}
		default:
			res.Status = StatusOpenAwaitingAction
			if in.CooldownAllowed {
				res.Actions = append(res.Actions, ActionCanApply)
			}
		}
	case periods.PhaseClosedAwaitingAnnounce:
		if active {
			res.Status = StatusAppliedWaiting
		} else {
			res.Status = StatusClosedNotApplied
		}
	case periods.PhaseAnnounced:
		if !active {
			res.Status = StatusClosedNotApplied
			break
		}
		switch in.Result {
		case results.OutcomeMatched:
			res.Status = StatusMatchSuccess
			window := EvaluateChatWindow(in.Period.Finish, in.Now)
			if window.Allowed {
				res.Actions = append(res.Actions, ActionCanChat)
				res.ChatRemaining = window.Remaining
				res.Countdown = FormatCountdown(window.Remaining)
			}
		case results.OutcomeUnmatched:
			res.Status = StatusMatchFailure
		default:
			res.Status = StatusResultPending
		}
	case periods.PhaseFinished:
		res.Status = StatusRoundFinished
	}
	return res
}
