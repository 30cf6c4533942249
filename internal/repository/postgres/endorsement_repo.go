package postgres

import (
	"context"

	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"

	"github.com/google/uuid"
)

type endorsementRepo struct {
	db DB
}

func NewEndorsementRepository(db DB) domain.EndorsementRepository {
	return &endorsementRepo{db: db}
}

func (r *endorsementRepo) SkillExists(ctx context.Context, skillID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM skills WHERE id = $1)`, skillID).Scan(&exists)
	return exists, err
}

func (r *endorsementRepo) Create(ctx context.Context, e *domain.SkillEndorsement) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	query := `INSERT INTO skill_endorsements (id, skill_id, endorser_email)
              VALUES ($1, $2, $3)
              RETURNING created_at`
	err := r.db.QueryRow(ctx, query, e.ID, e.SkillID, e.EndorserEmail).Scan(&e.CreatedAt)
	if err != nil {
		switch code, _ := pgErrorCode(err); code {
		case pgUniqueViolation:
			return apperror.Conflict("Already endorsed")
		case pgForeignKeyViolation:
			// skill deleted between the existence check and the insert
			return apperror.NotFound("Skill not found")
		}
		return err
	}
	return nil
}

func (r *endorsementRepo) Count(ctx context.Context, skillID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM skill_endorsements WHERE skill_id = $1`, skillID).Scan(&count)
	return count, err
}
