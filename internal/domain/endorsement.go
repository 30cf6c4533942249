package domain

import (
	"context"
	"time"
)

type SkillEndorsement struct {
	ID            string    `json:"id"`
	SkillID       string    `json:"skillId"`
	EndorserEmail string    `json:"endorserEmail"`
	CreatedAt     time.Time `json:"createdAt"`
}

type EndorsementCount struct {
	SkillID string `json:"skillId"`
	Count   int64  `json:"count"`
}

type EndorsementRepository interface {
	SkillExists(ctx context.Context, skillID string) (bool, error)
	// Create returns a 409 AppError when the pair is already endorsed.
	Create(ctx context.Context, endorsement *SkillEndorsement) error
	Count(ctx context.Context, skillID string) (int64, error)
}

// EndorsementCountCache is an optional read-through cache in front of Count.
// Counts belong to a generation per skill; Invalidate starts a new one, so a
// fill computed from a read that raced an invalidation is dropped.
type EndorsementCountCache interface {
	// Get returns the cached count, or ok=false with the generation a
	// following Fill must carry.
	Get(ctx context.Context, skillID string) (count, gen int64, ok bool, err error)
	// Fill stores count only while gen is still the current generation.
	Fill(ctx context.Context, skillID string, count, gen int64) error
	Invalidate(ctx context.Context, skillIDs ...string) error
}

type EndorsementUsecase interface {
	Endorse(ctx context.Context, skillID, endorserEmail string) (*SkillEndorsement, error)
	CountEndorsements(ctx context.Context, skillID string) (*EndorsementCount, error)
}
