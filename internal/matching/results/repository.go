package results

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the pairing collaborator's result rows. A missing row is
// not an error: it means the verdict for the round is still UNKNOWN.
type Repository interface {
	Get(ctx context.Context, userID, periodID int64) (MatchResult, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, userID, periodID int64) (MatchResult, error) {
	result := MatchResult{UserID: userID, PeriodID: periodID, Outcome: OutcomeUnknown}
	var matched bool
	err := r.db.QueryRow(ctx, `SELECT matched, partner_user_id, decided_at FROM match_results
WHERE user_id=$1 AND period_id=$2`, userID, periodID).
		Scan(&matched, &result.PartnerUserID, &result.DecidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return result, nil
		}
		return MatchResult{}, err
	}
	if matched {
		result.Outcome = OutcomeMatched
	} else {
		result.Outcome = OutcomeUnmatched
	}
	return result, nil
}
