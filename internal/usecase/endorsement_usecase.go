package usecase

import (
	"context"
	"net/http"
	"strings"

	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"

	"go.uber.org/zap"
)

type endorsementUsecase struct {
	repo  domain.EndorsementRepository
	cache domain.EndorsementCountCache
	log   *zap.Logger
}

// NewEndorsementUsecase wires the store and an optional count cache; cache
// may be nil when Redis is not configured.
func NewEndorsementUsecase(repo domain.EndorsementRepository, cache domain.EndorsementCountCache, log *zap.Logger) domain.EndorsementUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &endorsementUsecase{repo: repo, cache: cache, log: log}
}

func (u *endorsementUsecase) Endorse(ctx context.Context, skillID, endorserEmail string) (*domain.SkillEndorsement, error) {
	email := normalizeEmail(endorserEmail)
	if email == "" {
		return nil, apperror.BadRequest("endorserEmail is required")
	}
	skillID = strings.TrimSpace(skillID)

	exists, err := u.repo.SkillExists(ctx, skillID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if !exists {
		return nil, apperror.NotFound("Skill not found")
	}

	endorsement := &domain.SkillEndorsement{SkillID: skillID, EndorserEmail: email}
	if err := u.repo.Create(ctx, endorsement); err != nil {
		switch apperror.CodeOf(err) {
		case http.StatusConflict, http.StatusNotFound:
			return nil, err
		}
		u.log.Error("Failed to add endorsement", zap.String("skill_id", skillID), zap.Error(err))
		return nil, apperror.New(http.StatusInternalServerError, "Unable to add endorsement", err)
	}

	if u.cache != nil {
		if err := u.cache.Invalidate(ctx, skillID); err != nil {
			u.log.Warn("Failed to invalidate endorsement count", zap.String("skill_id", skillID), zap.Error(err))
		}
	}
	return endorsement, nil
}

func (u *endorsementUsecase) CountEndorsements(ctx context.Context, skillID string) (*domain.EndorsementCount, error) {
	fill := u.cache != nil
	var gen int64
	if u.cache != nil {
		count, g, ok, err := u.cache.Get(ctx, skillID)
		switch {
		case err != nil:
			// Without a generation the result cannot be cached safely.
			fill = false
			u.log.Warn("Endorsement count cache read failed", zap.String("skill_id", skillID), zap.Error(err))
		case ok:
			return &domain.EndorsementCount{SkillID: skillID, Count: count}, nil
		default:
			gen = g
		}
	}

	count, err := u.repo.Count(ctx, skillID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if fill {
		if err := u.cache.Fill(ctx, skillID, count, gen); err != nil {
			u.log.Warn("Endorsement count cache write failed", zap.String("skill_id", skillID), zap.Error(err))
		}
	}
	return &domain.EndorsementCount{SkillID: skillID, Count: count}, nil
}
