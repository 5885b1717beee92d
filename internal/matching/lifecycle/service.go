package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/astromeet/astromeet/internal/matching/applications"
	"github.com/astromeet/astromeet/internal/matching/outcome"
	"github.com/astromeet/astromeet/internal/matching/periods"
	"github.com/astromeet/astromeet/internal/matching/results"
	"github.com/astromeet/astromeet/internal/matching/shared"
	"github.com/astromeet/astromeet/internal/matching/stars"
)

// Metrics receives domain-level counters. Nil-safe at the call sites.
type Metrics interface {
	ObserveApply(result string)
	ObserveCancel(result string)
	ObserveStatus(status string)
}

// Service is the façade the polling client talks to. It composes phase
// derivation, application state, the pairing verdict and the star balance into
// one consistent view, and shields callers from transient storage failures
// with a single internal retry.
type Service struct {
	periods      *periods.Service
	apps         *applications.Service
	results      results.Repository
	stars        *stars.Service
	metrics      Metrics
	logger       *slog.Logger
	retryBackoff time.Duration
	now          func() time.Time
}

type Config struct {
	RetryBackoff time.Duration
}

func NewService(periodSvc *periods.Service, apps *applications.Service, resultRepo results.Repository, starSvc *stars.Service, metrics Metrics, logger *slog.Logger, cfg Config) *Service {
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 150 * time.Millisecond
	}
	return &Service{
		periods:      periodSvc,
		apps:         apps,
		results:      resultRepo,
		stars:        starSvc,
		metrics:      metrics,
		logger:       logger,
		retryBackoff: backoff,
		now:          time.Now,
	}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GetStatus derives the full status view. periodID 0 means "whatever round is
// current". A missing round is not an error for reads: the view simply reports
// NO_ACTIVE_ROUND.
func (s *Service) GetStatus(ctx context.Context, userID, periodID int64) (StatusView, error) {
	var view StatusView
	err := s.withRetry(ctx, func() error {
		v, err := s.buildStatus(ctx, userID, periodID)
		if err != nil {
			return err
		}
		view = v
		return nil
	})
	if err != nil {
		return StatusView{}, err
	}
	if s.metrics != nil {
		s.metrics.ObserveStatus(string(view.DisplayStatus))
	}
	return view, nil
}

func (s *Service) buildStatus(ctx context.Context, userID, periodID int64) (StatusView, error) {
	now := s.now()

	var (
		period *periods.Period
		next   *periods.Period
	)
	if periodID == 0 {
		current, upcoming, err := s.periods.GetCurrentAndNext(ctx, now)
		if err != nil {
			return StatusView{}, err
		}
		period, next = current, upcoming
	} else {
		p, err := s.periods.GetPeriod(ctx, periodID)
		if err != nil && !errors.Is(err, shared.ErrNoActiveRound) {
			return StatusView{}, err
		}
		if err == nil {
			period = &p
		}
	}

	balance, err := s.stars.GetBalance(ctx, userID)
	if err != nil {
		return StatusView{}, err
	}

	if period == nil {
		view := StatusView{DisplayStatus: outcome.StatusNoActiveRound, StarBalance: balance.Stars}
		if next != nil {
			view.NextPeriodID = next.ID
		}
		return view, nil
	}

	appStatus, err := s.apps.GetStatus(ctx, userID, period.ID)
	if err != nil {
		return StatusView{}, err
	}
	cooldown := applications.EvaluateCooldown(appStatus.CancelledAt, now, s.apps.Cooldown())

	// The verdict is read for the current round only, and only once the round
	// is announced. A previous round's outcome never reaches the resolver.
	verdict := results.OutcomeUnknown
	if periods.ResolvePhase(*period, now) == periods.PhaseAnnounced && appStatus.Active() {
		result, err := s.results.Get(ctx, userID, period.ID)
		if err != nil {
			return StatusView{}, err
		}
		verdict = result.Outcome
	}

	resolution := outcome.Resolve(outcome.Input{
		Period:          period,
		Application:     appStatus,
		Result:          verdict,
		CooldownAllowed: cooldown.Allowed,
		Now:             now,
	})

	view := StatusView{
		PeriodID:      period.ID,
		Phase:         resolution.Phase,
		DisplayStatus: resolution.Status,
		Actions:       resolution.Actions,
		Application:   appStatus,
		StarBalance:   balance.Stars,
		Countdown:     resolution.Countdown,
	}
	if resolution.ChatRemaining > 0 {
		view.ChatRemainingSeconds = int64(resolution.ChatRemaining / time.Second)
	}
	if !cooldown.Allowed {
		view.CooldownRemainingSeconds = int64(cooldown.Remaining/time.Second) + 1
	}
	if next != nil {
		view.NextPeriodID = next.ID
	}
	return view, nil
}

// Apply debits stars and records the application atomically.
func (s *Service) Apply(ctx context.Context, userID, periodID int64) (ActionResponse, error) {
	var resp ActionResponse
	err := s.withRetry(ctx, func() error {
		app, balance, err := s.apps.Apply(ctx, userID, periodID)
		if err != nil {
			return err
		}
		resp = ActionResponse{ApplicationID: app.ID, NewStarBalance: balance}
		return nil
	})
	s.observeAction(s.metricsApply, err)
	return resp, err
}

// Cancel refunds the apply cost and marks the application cancelled.
func (s *Service) Cancel(ctx context.Context, userID, periodID int64) (ActionResponse, error) {
	var resp ActionResponse
	err := s.withRetry(ctx, func() error {
		app, balance, err := s.apps.Cancel(ctx, userID, periodID)
		if err != nil {
			return err
		}
		resp = ActionResponse{ApplicationID: app.ID, NewStarBalance: balance}
		return nil
	})
	s.observeAction(s.metricsCancel, err)
	return resp, err
}

func (s *Service) metricsApply(result string) {
	if s.metrics != nil {
		s.metrics.ObserveApply(result)
	}
}

func (s *Service) metricsCancel(result string) {
	if s.metrics != nil {
		s.metrics.ObserveCancel(result)
	}
}

func (s *Service) observeAction(observe func(string), err error) {
	switch {
	case err == nil:
		observe("ok")
	case isBusinessError(err):
		observe("rejected")
	default:
		observe("error")
	}
}

// withRetry runs op, retrying exactly once with backoff on a non-business
// failure. A failure that survives the retry surfaces as ErrTransient so
// callers never mistake a storage problem for a business rejection.
func (s *Service) withRetry(ctx context.Context, op func() error) error {
	err := op()
	if err == nil || isBusinessError(err) {
		return err
	}
	if s.logger != nil {
		s.logger.Warn("retrying after storage failure", slog.Any("error", err))
	}
	timer := time.NewTimer(s.retryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", shared.ErrTransient, ctx.Err())
	case <-timer.C:
	}
	err = op()
	if err == nil || isBusinessError(err) {
		return err
	}
	if s.logger != nil {
		s.logger.Error("storage failure after retry", slog.Any("error", err))
	}
	return fmt.Errorf("%w: %v", shared.ErrTransient, err)
}

func isBusinessError(err error) bool {
	for _, sentinel := range []error{
		shared.ErrPhaseNotOpen,
		shared.ErrAlreadyApplied,
		shared.ErrNoActiveApplication,
		shared.ErrCooldownActive,
		shared.ErrInsufficientStars,
		shared.ErrNoActiveRound,
		shared.ErrPairingNotYetRun,
		shared.ErrInvalidPeriod,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
