package applications

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/astromeet/astromeet/internal/matching/periods"
	"github.com/astromeet/astromeet/internal/matching/shared"
	"github.com/astromeet/astromeet/internal/matching/stars"
)

// Repository encapsulates DB operations for applications. Mutations run inside
// WithTx closures so the star movement and the application row commit together.
type Repository interface {
	GetLatest(ctx context.Context, userID, periodID int64) (Application, bool, error)
	ListActiveUserIDs(ctx context.Context, periodID int64) ([]int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available within a transaction.
// Star ledger movements are included so apply/cancel stay atomic; round reads
// are included so the phase check sees the same snapshot as the mutation.
type TxRepository interface {
	AcquireUserPeriodLock(ctx context.Context, userID, periodID int64) error
	GetPeriod(ctx context.Context, id int64) (periods.Period, error)
	GetLatest(ctx context.Context, userID, periodID int64) (Application, bool, error)
	InsertApplication(ctx context.Context, userID, periodID int64, at time.Time) (Application, error)
	MarkCancelled(ctx context.Context, id int64, at time.Time) error
	DebitStars(ctx context.Context, userID, amount int64, reason string) (int64, error)
	CreditStars(ctx context.Context, userID, amount int64, reason string) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const applicationColumns = `id, user_id, period_id, applied, applied_at, cancelled, cancelled_at, created_at, updated_at`

func scanApplication(row pgx.Row) (Application, error) {
	var a Application
	err := row.Scan(&a.ID, &a.UserID, &a.PeriodID, &a.Applied, &a.AppliedAt, &a.Cancelled, &a.CancelledAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Application{}, err
	}
	return a, nil
}

func getLatest(ctx context.Context, q querier, userID, periodID int64) (Application, bool, error) {
	a, err := scanApplication(q.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications
WHERE user_id=$1 AND period_id=$2 ORDER BY id DESC LIMIT 1`, userID, periodID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Application{}, false, nil
		}
		return Application{}, false, err
	}
	return a, true, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *repository) GetLatest(ctx context.Context, userID, periodID int64) (Application, bool, error) {
	return getLatest(ctx, r.db, userID, periodID)
}

func (r *repository) ListActiveUserIDs(ctx context.Context, periodID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM applications
WHERE period_id=$1 AND applied AND NOT cancelled ORDER BY user_id ASC`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

// AcquireUserPeriodLock serialises every mutation for one (user, round) pair.
// The advisory lock is transaction-scoped, so it releases on commit/rollback.
// Key collisions between distinct pairs only over-serialise, never corrupt.
func (r *txRepository) AcquireUserPeriodLock(ctx context.Context, userID, periodID int64) error {
	key := userID<<16 ^ periodID
	_, err := r.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, key)
	return err
}

func (r *txRepository) GetPeriod(ctx context.Context, id int64) (periods.Period, error) {
	var p periods.Period
	err := r.tx.QueryRow(ctx, `SELECT id, application_start, application_end, matching_run, matching_announce, finish, executed, created_at, updated_at
FROM match_periods WHERE id=$1`, id).
		Scan(&p.ID, &p.ApplicationStart, &p.ApplicationEnd, &p.MatchingRun, &p.MatchingAnnounce, &p.Finish, &p.Executed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return periods.Period{}, shared.ErrNoActiveRound
		}
		return periods.Period{}, err
	}
	return p, nil
}

func (r *txRepository) GetLatest(ctx context.Context, userID, periodID int64) (Application, bool, error) {
	return getLatest(ctx, r.tx, userID, periodID)
}

// InsertApplication creates the participation row. A partial unique index on
// (user_id, period_id) WHERE NOT cancelled backstops the in-transaction check,
// so a racing apply surfaces as ErrAlreadyApplied rather than a double row.
func (r *txRepository) InsertApplication(ctx context.Context, userID, periodID int64, at time.Time) (Application, error) {
	a, err := scanApplication(r.tx.QueryRow(ctx, `INSERT INTO applications (user_id, period_id, applied, applied_at)
VALUES ($1, $2, TRUE, $3) RETURNING `+applicationColumns, userID, periodID, at))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Application{}, shared.ErrAlreadyApplied
		}
		return Application{}, err
	}
	return a, nil
}

func (r *txRepository) MarkCancelled(ctx context.Context, id int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE applications SET cancelled=TRUE, cancelled_at=$2, updated_at=NOW()
WHERE id=$1 AND NOT cancelled`, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNoActiveApplication
	}
	return nil
}

func (r *txRepository) DebitStars(ctx context.Context, userID, amount int64, reason string) (int64, error) {
	return stars.DebitTx(ctx, r.tx, userID, amount, reason)
}

func (r *txRepository) CreditStars(ctx context.Context, userID, amount int64, reason string) (int64, error) {
	return stars.CreditTx(ctx, r.tx, userID, amount, reason)
}
