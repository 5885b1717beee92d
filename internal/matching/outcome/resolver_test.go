package outcome

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astromeet/astromeet/internal/matching/applications"
	"github.com/astromeet/astromeet/internal/matching/periods"
	"github.com/astromeet/astromeet/internal/matching/results"
)

func tsp(t time.Time) *time.Time {
	return &t
}

func roundAt(t0 time.Time) periods.Period {
	return periods.Period{
		ID:               11,
		ApplicationStart: t0,
		ApplicationEnd:   t0.Add(time.Hour),
		MatchingRun:      tsp(t0.Add(90 * time.Minute)),
		MatchingAnnounce: tsp(t0.Add(2 * time.Hour)),
		Finish:           tsp(t0.Add(72 * time.Hour)),
	}
}

func activeApp(at time.Time) applications.Status {
	return applications.Status{Applied: true, AppliedAt: tsp(at)}
}

func cancelledApp(at time.Time) applications.Status {
	return applications.Status{Applied: true, Cancelled: true, AppliedAt: tsp(at), CancelledAt: tsp(at)}
}

func TestResolveTable(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := roundAt(t0)

	cases := []struct {
		name        string
		in          Input
		wantStatus  DisplayStatus
		wantActions []Action
	}{
		{
			name:       "no round",
			in:         Input{Now: t0},
			wantStatus: StatusNoActiveRound,
		},
		{
			name:       "pre open",
			in:         Input{Period: &p, Now: t0.Add(-time.Minute), CooldownAllowed: true},
			wantStatus: StatusNotOpenYet,
		},
		{
			name:        "open no history",
			in:          Input{Period: &p, Now: t0.Add(10 * time.Minute), CooldownAllowed: true},
			wantStatus:  StatusOpenAwaitingAction,
			wantActions: []Action{ActionCanApply},
		},
		{
			name:        "open active",
			in:          Input{Period: &p, Application: activeApp(t0.Add(5 * time.Minute)), Now: t0.Add(10 * time.Minute)},
			wantStatus:  StatusAppliedWaiting,
			wantActions: []Action{ActionCanCancel},
		},
		{
			name:        "open cancelled cooldown elapsed",
			in:          Input{Period: &p, Application: cancelledApp(t0.Add(5 * time.Minute)), Now: t0.Add(20 * time.Minute), CooldownAllowed: true},
			wantStatus:  StatusNotApplied,
			wantActions: []Action{ActionCanApply},
		},
		{
			name:       "open cancelled cooldown active",
			in:         Input{Period: &p, Application: cancelledApp(t0.Add(5 * time.Minute)), Now: t0.Add(6 * time.Minute)},
			wantStatus: StatusNotApplied,
		},
		{
			name:       "closed active",
			in:         Input{Period: &p, Application: activeApp(t0), Now: t0.Add(90 * time.Minute)},
			wantStatus: StatusAppliedWaiting,
		},
		{
			name:       "closed not applied",
			in:         Input{Period: &p, Now: t0.Add(90 * time.Minute), CooldownAllowed: true},
			wantStatus: StatusClosedNotApplied,
		},
		{
			name:       "announced not applied",
			in:         Input{Period: &p, Now: t0.Add(3 * time.Hour)},
			wantStatus: StatusClosedNotApplied,
		},
		{
			name:       "announced cancelled",
			in:         Input{Period: &p, Application: cancelledApp(t0), Now: t0.Add(3 * time.Hour)},
			wantStatus: StatusClosedNotApplied,
		},
		{
			name:       "announced pending verdict",
			in:         Input{Period: &p, Application: activeApp(t0), Result: results.OutcomeUnknown, Now: t0.Add(3 * time.Hour)},
			wantStatus: StatusResultPending,
		},
		{
			name:        "announced matched",
			in:          Input{Period: &p, Application: activeApp(t0), Result: results.OutcomeMatched, Now: t0.Add(3 * time.Hour)},
			wantStatus:  StatusMatchSuccess,
			wantActions: []Action{ActionCanChat},
		},
		{
			name:       "announced unmatched",
			in:         Input{Period: &p, Application: activeApp(t0), Result: results.OutcomeUnmatched, Now: t0.Add(3 * time.Hour)},
			wantStatus: StatusMatchFailure,
		},
		{
			name:       "finished matched",
			in:         Input{Period: &p, Application: activeApp(t0), Result: results.OutcomeMatched, Now: t0.Add(80 * time.Hour)},
			wantStatus: StatusRoundFinished,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Resolve(tc.in)
			require.Equal(t, tc.wantStatus, res.Status)
			require.Equal(t, tc.wantActions, res.Actions)
		})
	}
}

// A verdict from an earlier round must never reach the current round's
// resolution. The caller reads the verdict per round; here we assert that a
// fresh round with an unknown verdict stays pending even though the user
// finished the previous round unmatched.
func TestResolveStaleVerdictNeverLeaks(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := roundAt(t0)

	res := Resolve(Input{
		Period:      &current,
		Application: activeApp(t0),
		Result:      results.OutcomeUnknown,
		Now:         t0.Add(3 * time.Hour),
	})
	require.Equal(t, StatusResultPending, res.Status)
	require.NotEqual(t, StatusMatchFailure, res.Status)
	require.Empty(t, res.Actions)
}

func TestResolveMatchSuccessCountdown(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := roundAt(t0)
	now := t0.Add(3 * time.Hour)

	res := Resolve(Input{Period: &p, Application: activeApp(t0), Result: results.OutcomeMatched, Now: now})
	require.Equal(t, StatusMatchSuccess, res.Status)
	require.Equal(t, []Action{ActionCanChat}, res.Actions)
	require.Equal(t, 69*time.Hour, res.ChatRemaining)
	require.Equal(t, "2일 21시간", res.Countdown)
}

func TestResolveMatchSuccessAfterChatWindow(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := roundAt(t0)
	// Finish moved up so the round is still ANNOUNCED per resolution order only
	// when now < finish; at finish the phase flips, so model an unset finish to
	// exercise the chat gate independently.
	p.Finish = nil

	res := Resolve(Input{Period: &p, Application: activeApp(t0), Result: results.OutcomeMatched, Now: t0.Add(3 * time.Hour)})
	require.Equal(t, StatusMatchSuccess, res.Status)
	require.Empty(t, res.Actions)
	require.Zero(t, res.ChatRemaining)
	require.Empty(t, res.Countdown)
}
