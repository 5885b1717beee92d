package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/astromeet/astromeet/internal/matching/periods"
	"github.com/astromeet/astromeet/internal/matching/results"
	"github.com/astromeet/astromeet/internal/matching/shared"
)

// Applicants lists the users still participating in a round.
type Applicants interface {
	ListActiveUserIDs(ctx context.Context, periodID int64) ([]int64, error)
}

// Verdicts supplies definitive pairing verdicts. Satisfied by *results.Service,
// which refuses to answer before the pairing algorithm has executed.
type Verdicts interface {
	GetResult(ctx context.Context, userID, periodID int64) (results.MatchResult, error)
}

// ResultEnqueuer submits result notifications to the queue. Satisfied by
// *Client.
type ResultEnqueuer interface {
	EnqueueNotifyResult(ctx context.Context, payload NotifyResultPayload) (*asynq.TaskInfo, error)
}

// AnnounceSweepJob fans out result notifications for rounds whose announce
// instant has passed. A round is stamped as swept only once every applicant
// had a definitive verdict; while any verdict is still UNKNOWN the round stays
// unswept and the next run picks it up again.
type AnnounceSweepJob struct {
	periods    periods.Repository
	applicants Applicants
	verdicts   Verdicts
	client     ResultEnqueuer
	logger     *slog.Logger
	now        func() time.Time
}

func NewAnnounceSweepJob(periodRepo periods.Repository, applicants Applicants, verdicts Verdicts, client ResultEnqueuer, logger *slog.Logger) *AnnounceSweepJob {
	return &AnnounceSweepJob{
		periods:    periodRepo,
		applicants: applicants,
		verdicts:   verdicts,
		client:     client,
		logger:     logger,
		now:        time.Now,
	}
}

// Handle processes TaskAnnounceSweep tasks.
func (j *AnnounceSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	rounds, err := j.periods.ListAnnouncedUnswept(ctx, j.now())
	if err != nil {
		return err
	}
	for _, round := range rounds {
		complete, err := j.sweepRound(ctx, round)
		if err != nil {
			return err
		}
		if !complete {
			j.logger.Info("announce sweep pending verdicts", slog.Int64("period_id", round.ID))
			continue
		}
		if err := j.periods.MarkSwept(ctx, round.ID, "announce"); err != nil {
			return err
		}
		j.logger.Info("announce sweep done", slog.Int64("period_id", round.ID))
	}
	return nil
}

func (j *AnnounceSweepJob) sweepRound(ctx context.Context, round periods.Period) (bool, error) {
	userIDs, err := j.applicants.ListActiveUserIDs(ctx, round.ID)
	if err != nil {
		return false, err
	}
	// Verdicts are gathered before anything is enqueued so a partially decided
	// round produces no notifications at all; re-runs then cannot duplicate.
	payloads := make([]NotifyResultPayload, 0, len(userIDs))
	for _, userID := range userIDs {
		result, err := j.verdicts.GetResult(ctx, userID, round.ID)
		if err != nil {
			if errors.Is(err, shared.ErrPairingNotYetRun) {
				return false, nil
			}
			return false, err
		}
		if result.Outcome == results.OutcomeUnknown {
			return false, nil
		}
		payloads = append(payloads, NotifyResultPayload{
			UserID:        userID,
			PeriodID:      round.ID,
			Matched:       result.Outcome == results.OutcomeMatched,
			PartnerUserID: result.PartnerUserID,
		})
	}
	for _, payload := range payloads {
		if _, err := j.client.EnqueueNotifyResult(ctx, payload); err != nil {
			return false, err
		}
	}
	return true, nil
}
