package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAnnounceSweep fans out result notifications once a round announces.
	TaskAnnounceSweep = "matching:announce_sweep"
	// TaskFinishSweep publishes chat-close events once a round finishes.
	TaskFinishSweep = "matching:finish_sweep"
	// TaskNotifyResult delivers one user's pairing verdict.
	TaskNotifyResult = "notify:match_result"
)

// NewAnnounceSweepTask constructs the announce sweep task.
func NewAnnounceSweepTask() *asynq.Task {
	return asynq.NewTask(TaskAnnounceSweep, nil)
}

// NewFinishSweepTask constructs the finish sweep task.
func NewFinishSweepTask() *asynq.Task {
	return asynq.NewTask(TaskFinishSweep, nil)
}

// NotifyResultPayload describes a single result notification.
type NotifyResultPayload struct {
	UserID        int64  `json:"user_id"`
	PeriodID      int64  `json:"period_id"`
	Matched       bool   `json:"matched"`
	PartnerUserID *int64 `json:"partner_user_id,omitempty"`
}

// NewNotifyResultTask constructs an Asynq task for one notification.
func NewNotifyResultTask(payload NotifyResultPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifyResult, data), nil
}

// HandleNotifyResultTask processes TaskNotifyResult tasks.
func HandleNotifyResultTask(ctx context.Context, t *asynq.Task) error {
	var payload NotifyResultPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: hand off to the notification delivery transport.
	fmt.Printf("[jobs] notify user=%d period=%d matched=%t\n", payload.UserID, payload.PeriodID, payload.Matched)
	return nil
}
