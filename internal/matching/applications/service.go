package applications

import (
	"context"
	"fmt"
	"time"

	"github.com/astromeet/astromeet/internal/matching/periods"
	"github.com/astromeet/astromeet/internal/matching/shared"
	"github.com/astromeet/astromeet/internal/matching/stars"
	internalShared "github.com/astromeet/astromeet/internal/shared"
)

// AuditPort records apply/cancel actions, best effort.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Notifier publishes balance events for movements committed in our transaction.
type Notifier interface {
	Notify(ctx context.Context, event stars.BalanceEvent)
}

// Config carries the externally configured business constants.
type Config struct {
	ApplyCost int64
	Cooldown  time.Duration
}

// Service is the ApplicationLedger: it owns per-user-per-round application
// state and keeps star movements atomic with it.
type Service struct {
	repo     Repository
	notifier Notifier
	audit    AuditPort
	cost     int64
	cooldown time.Duration
	now      func() time.Time
}

func NewService(repo Repository, notifier Notifier, audit AuditPort, cfg Config) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		audit:    audit,
		cost:     cfg.ApplyCost,
		cooldown: cfg.Cooldown,
		now:      time.Now,
	}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Cooldown exposes the configured cooldown duration for status derivation.
func (s *Service) Cooldown() time.Duration {
	return s.cooldown
}

// Apply debits the apply cost and creates the application in one transaction.
// Preconditions: phase OPEN, no live application, cooldown elapsed. On any
// failure the transaction rolls back, so there is never a debit without a row.
func (s *Service) Apply(ctx context.Context, userID, periodID int64) (Application, int64, error) {
	var (
		app     Application
		balance int64
		reason  string
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.AcquireUserPeriodLock(ctx, userID, periodID); err != nil {
			return err
		}
		period, err := tx.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		now := s.now()
		if periods.ResolvePhase(period, now) != periods.PhaseOpen {
			return shared.ErrPhaseNotOpen
		}
		last, ok, err := tx.GetLatest(ctx, userID, periodID)
		if err != nil {
			return err
		}
		if ok && last.Active() {
			return shared.ErrAlreadyApplied
		}
		if ok && last.Cancelled {
			if decision := EvaluateCooldown(last.CancelledAt, now, s.cooldown); !decision.Allowed {
				return shared.ErrCooldownActive
			}
		}
		app, err = tx.InsertApplication(ctx, userID, periodID, now)
		if err != nil {
			return err
		}
		reason = fmt.Sprintf("apply:%d", app.ID)
		balance, err = tx.DebitStars(ctx, userID, s.cost, reason)
		return err
	})
	if err != nil {
		return Application{}, 0, err
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, stars.BalanceEvent{UserID: userID, Balance: balance, Reason: reason})
	}
	s.recordAudit(ctx, userID, "application.apply", app, map[string]any{
		"period_id": periodID,
		"cost":      s.cost,
		"balance":   balance,
	})
	return app, balance, nil
}

// Cancel marks the live application cancelled and refunds the apply cost. The
// refund reason is keyed by application id, so a retried cancel that reaches
// the ledger twice credits only once.
func (s *Service) Cancel(ctx context.Context, userID, periodID int64) (Application, int64, error) {
	var (
		app     Application
		balance int64
		reason  string
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.AcquireUserPeriodLock(ctx, userID, periodID); err != nil {
			return err
		}
		period, err := tx.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		now := s.now()
		if periods.ResolvePhase(period, now) != periods.PhaseOpen {
			return shared.ErrPhaseNotOpen
		}
		last, ok, err := tx.GetLatest(ctx, userID, periodID)
		if err != nil {
			return err
		}
		if !ok || !last.Active() {
			return shared.ErrNoActiveApplication
		}
		if err := tx.MarkCancelled(ctx, last.ID, now); err != nil {
			return err
		}
		app = last
		app.Cancelled = true
		app.CancelledAt = &now
		reason = fmt.Sprintf("refund:%d", last.ID)
		balance, err = tx.CreditStars(ctx, userID, s.cost, reason)
		return err
	})
	if err != nil {
		return Application{}, 0, err
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, stars.BalanceEvent{UserID: userID, Balance: balance, Reason: reason})
	}
	s.recordAudit(ctx, userID, "application.cancel", app, map[string]any{
		"period_id": periodID,
		"refund":    s.cost,
		"balance":   balance,
	})
	return app, balance, nil
}

// GetStatus is the lock-free read: it tolerates "no application" and reports
// the most recent row for the pair.
func (s *Service) GetStatus(ctx context.Context, userID, periodID int64) (Status, error) {
	last, ok, err := s.repo.GetLatest(ctx, userID, periodID)
	if err != nil {
		return Status{}, err
	}
	if !ok {
		return Status{}, nil
	}
	status := Status{
		Applied:     last.Applied,
		Cancelled:   last.Cancelled,
		CancelledAt: last.CancelledAt,
	}
	if last.Applied {
		at := last.AppliedAt
		status.AppliedAt = &at
	}
	return status, nil
}

// ListActiveUserIDs returns every user still participating in the round.
func (s *Service) ListActiveUserIDs(ctx context.Context, periodID int64) ([]int64, error) {
	return s.repo.ListActiveUserIDs(ctx, periodID)
}

func (s *Service) recordAudit(ctx context.Context, userID int64, action string, app Application, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  userID,
		Action:   action,
		Entity:   "application",
		EntityID: fmt.Sprintf("%d", app.ID),
		Meta:     meta,
		At:       s.now(),
	})
}
