package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/astromeet/astromeet/internal/matching/periods"
)

// ChatCloseChannel carries round-finished events for the message delivery
// collaborator, which owns tearing down the conversation surface.
const ChatCloseChannel = "chat.close"

// ChatCloseEvent announces that a round's communication window has ended.
type ChatCloseEvent struct {
	PeriodID int64     `json:"period_id"`
	ClosedAt time.Time `json:"closed_at"`
}

// FinishSweepJob publishes chat-close events for rounds whose finish instant
// has passed, exactly once per round.
type FinishSweepJob struct {
	periods periods.Repository
	redis   *redis.Client
	logger  *slog.Logger
	now     func() time.Time
}

func NewFinishSweepJob(periodRepo periods.Repository, redisClient *redis.Client, logger *slog.Logger) *FinishSweepJob {
	return &FinishSweepJob{
		periods: periodRepo,
		redis:   redisClient,
		logger:  logger,
		now:     time.Now,
	}
}

// Handle processes TaskFinishSweep tasks.
func (j *FinishSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	rounds, err := j.periods.ListFinishedUnswept(ctx, j.now())
	if err != nil {
		return err
	}
	for _, round := range rounds {
		event := ChatCloseEvent{PeriodID: round.ID, ClosedAt: *round.Finish}
		raw, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if err := j.redis.Publish(ctx, ChatCloseChannel, raw).Err(); err != nil {
			return err
		}
		if err := j.periods.MarkSwept(ctx, round.ID, "finish"); err != nil {
			return err
		}
		j.logger.Info("finish sweep done", slog.Int64("period_id", round.ID))
	}
	return nil
}
