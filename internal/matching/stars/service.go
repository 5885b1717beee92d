package stars

import (
	"context"
	"log/slog"
)

// Service is the StarLedger surface: balance queries plus debit/credit with
// provenance. Every committed movement emits a balance-change event so polling
// clients can refresh without a full reload.
type Service struct {
	repo     Repository
	notifier Notifier
	logger   *slog.Logger
}

func NewService(repo Repository, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger}
}

func (s *Service) GetBalance(ctx context.Context, userID int64) (Balance, error) {
	return s.repo.GetBalance(ctx, userID)
}

func (s *Service) Debit(ctx context.Context, userID, amount int64, reason string) (int64, error) {
	balance, err := s.repo.Debit(ctx, userID, amount, reason)
	if err != nil {
		return 0, err
	}
	s.notify(ctx, BalanceEvent{UserID: userID, Balance: balance, Reason: reason})
	return balance, nil
}

func (s *Service) Credit(ctx context.Context, userID, amount int64, reason string) (int64, error) {
	balance, err := s.repo.Credit(ctx, userID, amount, reason)
	if err != nil {
		return 0, err
	}
	s.notify(ctx, BalanceEvent{UserID: userID, Balance: balance, Reason: reason})
	return balance, nil
}

// Notify publishes a balance event for movements committed by another package
// within its own transaction.
func (s *Service) Notify(ctx context.Context, event BalanceEvent) {
	s.notify(ctx, event)
}

func (s *Service) notify(ctx context.Context, event BalanceEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BalanceChanged(ctx, event); err != nil && s.logger != nil {
		s.logger.Warn("publish balance event", slog.Int64("user_id", event.UserID), slog.Any("error", err))
	}
}
