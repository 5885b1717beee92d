package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/astromeet/astromeet/internal/matching/shared"
)

// Repository reads round rows owned by the administrative collaborator.
type Repository interface {
	GetPeriod(ctx context.Context, id int64) (Period, error)
	// GetCurrentAndNext returns the round covering now plus the next upcoming
	// one. Either may be nil when nothing is configured.
	GetCurrentAndNext(ctx context.Context, now time.Time) (*Period, *Period, error)
	ListAnnouncedUnswept(ctx context.Context, now time.Time) ([]Period, error)
	ListFinishedUnswept(ctx context.Context, now time.Time) ([]Period, error)
	MarkSwept(ctx context.Context, id int64, column string) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const periodColumns = `id, application_start, application_end, matching_run, matching_announce, finish, executed, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.ApplicationStart, &p.ApplicationEnd, &p.MatchingRun, &p.MatchingAnnounce, &p.Finish, &p.Executed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Period{}, err
	}
	return p, nil
}

func (r *repository) GetPeriod(ctx context.Context, id int64) (Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM match_periods WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrNoActiveRound
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) GetCurrentAndNext(ctx context.Context, now time.Time) (*Period, *Period, error) {
	var current, next *Period
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM match_periods
WHERE application_start <= $1 AND (finish IS NULL OR finish > $1) ORDER BY id DESC LIMIT 1`, now))
	if err == nil {
		current = &p
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}
	n, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM match_periods
WHERE application_start > $1 ORDER BY application_start ASC LIMIT 1`, now))
	if err == nil {
		next = &n
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}
	return current, next, nil
}

func (r *repository) ListAnnouncedUnswept(ctx context.Context, now time.Time) ([]Period, error) {
	return r.list(ctx, `SELECT `+periodColumns+` FROM match_periods
WHERE executed AND matching_announce IS NOT NULL AND matching_announce <= $1 AND announce_swept_at IS NULL ORDER BY id ASC`, now)
}

func (r *repository) ListFinishedUnswept(ctx context.Context, now time.Time) ([]Period, error) {
	return r.list(ctx, `SELECT `+periodColumns+` FROM match_periods
WHERE finish IS NOT NULL AND finish <= $1 AND finish_swept_at IS NULL ORDER BY id ASC`, now)
}

func (r *repository) list(ctx context.Context, query string, args ...any) ([]Period, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSwept stamps a sweep column so cron jobs act on each round exactly once.
func (r *repository) MarkSwept(ctx context.Context, id int64, column string) error {
	var query string
	switch column {
	case "announce":
		query = `UPDATE match_periods SET announce_swept_at=NOW(), updated_at=NOW() WHERE id=$1 AND announce_swept_at IS NULL`
	case "finish":
		query = `UPDATE match_periods SET finish_swept_at=NOW(), updated_at=NOW() WHERE id=$1 AND finish_swept_at IS NULL`
	default:
		return errors.New("periods: unknown sweep column")
	}
	_, err := r.db.Exec(ctx, query, id)
	return err
}
