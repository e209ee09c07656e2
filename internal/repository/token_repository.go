package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists refresh tokens by their SHA‑256 digest.  Rows are
// deleted on rotation and logout rather than flagged as revoked.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefreshTx inserts a refresh token hash row.
func (r *TokenRepo) StoreRefreshTx(ctx context.Context, tx *sql.Tx, userID uint64, tokenHash string, exp, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?,?,?,?)",
		userID, tokenHash, exp, now)
	return err
}

// ConsumeTx deletes the user's unexpired row matching tokenHash and reports
// whether one existed.  Exactly one of several concurrent callers presenting
// the same token observes true.
func (r *TokenRepo) ConsumeTx(ctx context.Context, tx *sql.Tx, userID uint64, tokenHash string, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id=? AND token_hash=? AND expires_at>?",
		userID, tokenHash, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// DeleteAllForUserTx removes every refresh token row of the user.
func (r *TokenRepo) DeleteAllForUserTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", userID)
	return err
}
