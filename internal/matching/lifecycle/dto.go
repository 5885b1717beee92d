package lifecycle

import (
	"github.com/astromeet/astromeet/internal/matching/applications"
	"github.com/astromeet/astromeet/internal/matching/outcome"
	"github.com/astromeet/astromeet/internal/matching/periods"
)

// StatusView is the polling payload: everything the client needs to render the
// round without deriving state locally.
type StatusView struct {
	PeriodID                 int64                 `json:"period_id,omitempty"`
	Phase                    periods.Phase         `json:"phase,omitempty"`
	DisplayStatus            outcome.DisplayStatus `json:"display_status"`
	Actions                  []outcome.Action      `json:"actions,omitempty"`
	Application              applications.Status   `json:"application"`
	StarBalance              int64                 `json:"star_balance"`
	Countdown                string                `json:"countdown,omitempty"`
	ChatRemainingSeconds     int64                 `json:"chat_remaining_seconds,omitempty"`
	CooldownRemainingSeconds int64                 `json:"cooldown_remaining_seconds,omitempty"`
	NextPeriodID             int64                 `json:"next_period_id,omitempty"`
}

// ActionRequest is the body of apply/cancel calls.
type ActionRequest struct {
	PeriodID int64 `json:"period_id" validate:"required,gt=0"`
}

// ActionResponse reports the balance after a successful apply/cancel.
type ActionResponse struct {
	ApplicationID  int64 `json:"application_id"`
	NewStarBalance int64 `json:"new_star_balance"`
}
