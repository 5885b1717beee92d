package stars

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/astromeet/astromeet/internal/matching/shared"
	"github.com/astromeet/astromeet/internal/platform/db"
)

// ErrDuplicateReason marks a ledger movement whose provenance key was already
// recorded. Credits treat it as "already refunded"; debits treat it as a bug.
var ErrDuplicateReason = errors.New("stars: duplicate ledger reason")

// Repository owns the star_balances and star_transactions tables.
type Repository interface {
	GetBalance(ctx context.Context, userID int64) (Balance, error)
	Debit(ctx context.Context, userID, amount int64, reason string) (int64, error)
	Credit(ctx context.Context, userID, amount int64, reason string) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) GetBalance(ctx context.Context, userID int64) (Balance, error) {
	var b Balance
	err := r.db.QueryRow(ctx, `SELECT user_id, stars, updated_at FROM star_balances WHERE user_id=$1`, userID).
		Scan(&b.UserID, &b.Stars, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Users without a ledger row simply have an empty balance.
			return Balance{UserID: userID}, nil
		}
		return Balance{}, err
	}
	return b, nil
}

func (r *repository) Debit(ctx context.Context, userID, amount int64, reason string) (int64, error) {
	var balance int64
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		balance, err = DebitTx(ctx, tx, userID, amount, reason)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *repository) Credit(ctx context.Context, userID, amount int64, reason string) (int64, error) {
	var balance int64
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		balance, err = CreditTx(ctx, tx, userID, amount, reason)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// DebitTx decrements a balance inside the caller's transaction. The balance row
// is locked first so concurrent movements for one user serialise; the guarded
// UPDATE keeps the balance from ever going negative.
func DebitTx(ctx context.Context, tx pgx.Tx, userID, amount int64, reason string) (int64, error) {
	var current int64
	err := tx.QueryRow(ctx, `SELECT stars FROM star_balances WHERE user_id=$1 FOR UPDATE`, userID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrInsufficientStars
		}
		return 0, err
	}
	if current < amount {
		return 0, shared.ErrInsufficientStars
	}
	var balance int64
	err = tx.QueryRow(ctx, `UPDATE star_balances SET stars = stars - $2, updated_at=NOW()
WHERE user_id=$1 AND stars >= $2 RETURNING stars`, userID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrInsufficientStars
		}
		return 0, err
	}
	if err := insertTransaction(ctx, tx, userID, -amount, reason); err != nil {
		return 0, err
	}
	return balance, nil
}

// CreditTx increments a balance inside the caller's transaction. A credit whose
// reason key was already recorded is a no-op returning the current balance,
// which makes refunds safe to retry.
func CreditTx(ctx context.Context, tx pgx.Tx, userID, amount int64, reason string) (int64, error) {
	if err := insertTransaction(ctx, tx, userID, amount, reason); err != nil {
		if errors.Is(err, ErrDuplicateReason) {
			var balance int64
			if err := tx.QueryRow(ctx, `SELECT stars FROM star_balances WHERE user_id=$1`, userID).Scan(&balance); err != nil {
				return 0, err
			}
			return balance, nil
		}
		return 0, err
	}
	var balance int64
	err := tx.QueryRow(ctx, `INSERT INTO star_balances (user_id, stars, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (user_id) DO UPDATE SET stars = star_balances.stars + $2, updated_at=NOW() RETURNING stars`, userID, amount).Scan(&balance)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, userID, amount int64, reason string) error {
	_, err := tx.Exec(ctx, `INSERT INTO star_transactions (user_id, amount, reason) VALUES ($1, $2, $3)`, userID, amount, reason)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateReason
		}
		return err
	}
	return nil
}
