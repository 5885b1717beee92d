package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/astromeet/astromeet/internal/matching/periods"
	"github.com/astromeet/astromeet/internal/matching/results"
	"github.com/astromeet/astromeet/internal/matching/shared"
)

type fakePeriodRepo struct {
	mu        sync.Mutex
	announced []periods.Period
	finished  []periods.Period
	swept     map[int64][]string
}

func newFakePeriodRepo() *fakePeriodRepo {
	return &fakePeriodRepo{swept: make(map[int64][]string)}
}

func (r *fakePeriodRepo) GetPeriod(ctx context.Context, id int64) (periods.Period, error) {
	return periods.Period{}, shared.ErrNoActiveRound
}

func (r *fakePeriodRepo) GetCurrentAndNext(ctx context.Context, now time.Time) (*periods.Period, *periods.Period, error) {
	return nil, nil, nil
}

func (r *fakePeriodRepo) ListAnnouncedUnswept(ctx context.Context, now time.Time) ([]periods.Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []periods.Period
	for _, p := range r.announced {
		if len(r.swept[p.ID]) == 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePeriodRepo) ListFinishedUnswept(ctx context.Context, now time.Time) ([]periods.Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []periods.Period
	for _, p := range r.finished {
		if len(r.swept[p.ID]) == 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePeriodRepo) MarkSwept(ctx context.Context, id int64, column string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.swept[id] = append(r.swept[id], column)
	return nil
}

type fakeApplicants struct {
	users map[int64][]int64
}

func (a *fakeApplicants) ListActiveUserIDs(ctx context.Context, periodID int64) ([]int64, error) {
	return a.users[periodID], nil
}

type fakeVerdicts struct {
	mu       sync.Mutex
	executed bool
	verdicts map[int64]results.MatchResult
}

func (r *fakeVerdicts) GetResult(ctx context.Context, userID, periodID int64) (results.MatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.executed {
		return results.MatchResult{}, shared.ErrPairingNotYetRun
	}
	if v, ok := r.verdicts[userID]; ok {
		return v, nil
	}
	return results.MatchResult{UserID: userID, PeriodID: periodID, Outcome: results.OutcomeUnknown}, nil
}

type fakeEnqueuer struct {
	mu       sync.Mutex
	payloads []NotifyResultPayload
}

func (e *fakeEnqueuer) EnqueueNotifyResult(ctx context.Context, payload NotifyResultPayload) (*asynq.TaskInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.payloads = append(e.payloads, payload)
	return &asynq.TaskInfo{}, nil
}

func TestAnnounceSweepWaitsForAllVerdicts(t *testing.T) {
	periodRepo := newFakePeriodRepo()
	finish := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	periodRepo.announced = []periods.Period{{ID: 1, Executed: true, Finish: &finish}}

	applicants := &fakeApplicants{users: map[int64][]int64{1: {10, 11}}}
	verdicts := &fakeVerdicts{executed: true, verdicts: map[int64]results.MatchResult{
		10: {UserID: 10, PeriodID: 1, Outcome: results.OutcomeMatched},
		// User 11 has no verdict yet.
	}}
	enqueuer := &fakeEnqueuer{}
	job := NewAnnounceSweepJob(periodRepo, applicants, verdicts, enqueuer, slog.Default())

	// Partially decided round: nothing is enqueued and the round stays unswept.
	require.NoError(t, job.Handle(context.Background(), NewAnnounceSweepTask()))
	require.Empty(t, enqueuer.payloads)
	require.Empty(t, periodRepo.swept[1])

	partner := int64(10)
	verdicts.mu.Lock()
	verdicts.verdicts[11] = results.MatchResult{UserID: 11, PeriodID: 1, Outcome: results.OutcomeUnmatched}
	verdicts.verdicts[10] = results.MatchResult{UserID: 10, PeriodID: 1, Outcome: results.OutcomeMatched, PartnerUserID: &partner}
	verdicts.mu.Unlock()

	require.NoError(t, job.Handle(context.Background(), NewAnnounceSweepTask()))
	require.Len(t, enqueuer.payloads, 2)
	require.Equal(t, []string{"announce"}, periodRepo.swept[1])

	byUser := map[int64]NotifyResultPayload{}
	for _, p := range enqueuer.payloads {
		byUser[p.UserID] = p
	}
	require.True(t, byUser[10].Matched)
	require.NotNil(t, byUser[10].PartnerUserID)
	require.False(t, byUser[11].Matched)

	// A rerun after the sweep enqueues nothing.
	require.NoError(t, job.Handle(context.Background(), NewAnnounceSweepTask()))
	require.Len(t, enqueuer.payloads, 2)
}

func TestAnnounceSweepSkipsRoundsBeforePairingRan(t *testing.T) {
	periodRepo := newFakePeriodRepo()
	periodRepo.announced = []periods.Period{{ID: 2}}

	applicants := &fakeApplicants{users: map[int64][]int64{2: {10}}}
	verdicts := &fakeVerdicts{executed: false}
	enqueuer := &fakeEnqueuer{}
	job := NewAnnounceSweepJob(periodRepo, applicants, verdicts, enqueuer, slog.Default())

	require.NoError(t, job.Handle(context.Background(), NewAnnounceSweepTask()))
	require.Empty(t, enqueuer.payloads)
	require.Empty(t, periodRepo.swept[2])
}

func TestFinishSweepPublishesChatClose(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	sub := client.Subscribe(ctx, ChatCloseChannel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	periodRepo := newFakePeriodRepo()
	finish := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	periodRepo.finished = []periods.Period{{ID: 3, Finish: &finish}}

	job := NewFinishSweepJob(periodRepo, client, slog.Default())
	require.NoError(t, job.Handle(ctx, NewFinishSweepTask()))
	require.Equal(t, []string{"finish"}, periodRepo.swept[3])

	select {
	case msg := <-sub.Channel():
		var event ChatCloseEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		require.EqualValues(t, 3, event.PeriodID)
		require.True(t, event.ClosedAt.Equal(finish))
	case <-time.After(2 * time.Second):
		t.Fatal("no chat close event received")
	}

	// A rerun sees the round swept and publishes nothing further.
	require.NoError(t, job.Handle(ctx, NewFinishSweepTask()))
	select {
	case msg := <-sub.Channel():
		t.Fatalf("unexpected duplicate event: %s", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandleNotifyResultSkipsMalformedPayload(t *testing.T) {
	task := asynq.NewTask(TaskNotifyResult, []byte("{not json"))
	err := HandleNotifyResultTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
