package results

import (
	"context"

	"github.com/astromeet/astromeet/internal/matching/periods"
	"github.com/astromeet/astromeet/internal/matching/shared"
)

// PeriodSource supplies the round row needed to gate result reads.
type PeriodSource interface {
	GetPeriod(ctx context.Context, id int64) (periods.Period, error)
}

// Service is the collaborator-facing result surface. Status derivation does
// not go through it; the resolver tolerates UNKNOWN directly. Consumers that
// need a definitive verdict (the announce sweep) use GetResult, which refuses
// to answer before the pairing algorithm has executed.
type Service struct {
	repo    Repository
	periods PeriodSource
}

func NewService(repo Repository, periods PeriodSource) *Service {
	return &Service{repo: repo, periods: periods}
}

func (s *Service) GetResult(ctx context.Context, userID, periodID int64) (MatchResult, error) {
	period, err := s.periods.GetPeriod(ctx, periodID)
	if err != nil {
		return MatchResult{}, err
	}
	if !period.Executed {
		return MatchResult{}, shared.ErrPairingNotYetRun
	}
	return s.repo.Get(ctx, userID, periodID)
}
