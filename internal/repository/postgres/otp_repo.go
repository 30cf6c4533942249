package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-profile-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type otpRepo struct {
	db DB
}

func NewOTPRepository(db DB) domain.OTPRepository {
	return &otpRepo{db: db}
}

func (r *otpRepo) Replace(ctx context.Context, code *domain.OneTimeCode) error {
	if code.ID == "" {
		code.ID = uuid.NewString()
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM otp_codes WHERE email = $1 AND consumed_at IS NULL`, code.Email)
	if err != nil {
		return fmt.Errorf("failed to delete pending codes: %w", err)
	}

	insert := `INSERT INTO otp_codes (id, email, code_hash, expires_at, created_at)
               VALUES ($1, $2, $3, $4, $5)`
	_, err = tx.Exec(ctx, insert, code.ID, code.Email, code.CodeHash, code.ExpiresAt, code.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert code: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *otpRepo) FindActive(ctx context.Context, email string, now time.Time) (*domain.OneTimeCode, error) {
	query := `SELECT id, email, code_hash, expires_at, consumed_at, created_at
              FROM otp_codes
              WHERE email = $1 AND consumed_at IS NULL AND expires_at > $2
              ORDER BY created_at DESC
              LIMIT 1`
	var c domain.OneTimeCode
	err := r.db.QueryRow(ctx, query, email, now).Scan(
		&c.ID, &c.Email, &c.CodeHash, &c.ExpiresAt, &c.ConsumedAt, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *otpRepo) Consume(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE otp_codes SET consumed_at = $2 WHERE id = $1 AND consumed_at IS NULL`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *otpRepo) DeleteExpired(ctx context.Context, email string, now time.Time) error {
	_, err := r.db.Exec(ctx, `DELETE FROM otp_codes WHERE email = $1 AND expires_at <= $2`, email, now)
	return err
}
