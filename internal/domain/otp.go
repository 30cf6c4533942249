package domain

import (
	"context"
	"time"
)

type OneTimeCode struct {
	ID         string
	Email      string
	CodeHash   string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

type OTPRepository interface {
	// Replace deletes every unconsumed code for the email and stores code, atomically.
	Replace(ctx context.Context, code *OneTimeCode) error
	// FindActive returns the newest unconsumed code that has not expired at now.
	FindActive(ctx context.Context, email string, now time.Time) (*OneTimeCode, error)
	// Consume marks the code consumed and reports false when it already was.
	Consume(ctx context.Context, id string, at time.Time) (bool, error)
	DeleteExpired(ctx context.Context, email string, now time.Time) error
}

// OTPSender delivers a verification code to an email address.
type OTPSender interface {
	SendOTP(ctx context.Context, to, code string) error
}
