package periods

import (
	"context"
	"time"
)

// Service exposes round lookups with timestamp validation applied on read,
// so a misconfigured row never leaks into phase derivation.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetPeriod(ctx context.Context, id int64) (Period, error) {
	p, err := s.repo.GetPeriod(ctx, id)
	if err != nil {
		return Period{}, err
	}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

func (s *Service) GetCurrentAndNext(ctx context.Context, now time.Time) (*Period, *Period, error) {
	current, next, err := s.repo.GetCurrentAndNext(ctx, now)
	if err != nil {
		return nil, nil, err
	}
	if current != nil {
		if err := current.Validate(); err != nil {
			return nil, nil, err
		}
	}
	if next != nil {
		if err := next.Validate(); err != nil {
			return nil, nil, err
		}
	}
	return current, next, nil
}
