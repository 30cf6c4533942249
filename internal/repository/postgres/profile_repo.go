package postgres

import (
	"context"
	"errors"
	"fmt"

	"go-profile-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type profileRepo struct {
	db DB
}

func NewProfileRepository(db DB) domain.ProfileRepository {
	return &profileRepo{db: db}
}

// GetGraph reads inside one repeatable-read transaction so a concurrent
// Replace is seen either entirely or not at all.
func (r *profileRepo) GetGraph(ctx context.Context, user *domain.User) (*domain.ProfileGraph, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	graph := &domain.ProfileGraph{
		User:           user.Summary(),
		Skills:         []domain.Skill{},
		Experience:     []domain.Experience{},
		Education:      []domain.Education{},
		Certifications: []domain.Certification{},
		SocialLinks:    []domain.SocialLink{},
		CareerGoals:    []domain.CareerGoal{},
	}

	// 1. Profile row
	graph.Profile, err = getProfileRow(ctx, tx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	// 2. Skills with endorsement counts
	skillsQuery := `
		SELECT s.id, s.user_id, s.name, s."order", COUNT(e.id)
		FROM skills s
		LEFT JOIN skill_endorsements e ON e.skill_id = s.id
		WHERE s.user_id = $1
		GROUP BY s.id
		ORDER BY s."order" ASC, s.created_at ASC, s.id ASC`
	rows, err := tx.Query(ctx, skillsQuery, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch skills: %w", err)
	}
	graph.Skills, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Skill, error) {
		var s domain.Skill
		err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Order, &s.EndorsementsCount)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan skills: %w", err)
	}

	// 3. Experience
	rows, err = tx.Query(ctx, `
		SELECT id, user_id, title, company, location, dates, description, "order"
		FROM experiences WHERE user_id = $1
		ORDER BY "order" ASC, created_at ASC, id ASC`, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch experience: %w", err)
	}
	graph.Experience, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Experience, error) {
		var x domain.Experience
		err := row.Scan(&x.ID, &x.UserID, &x.Title, &x.Company, &x.Location, &x.Dates, &x.Description, &x.Order)
		return x, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan experience: %w", err)
	}

	// 4. Education
	rows, err = tx.Query(ctx, `
		SELECT id, user_id, degree, institution, year, grade, "order"
		FROM educations WHERE user_id = $1
		ORDER BY "order" ASC, created_at ASC, id ASC`, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch education: %w", err)
	}
	graph.Education, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Education, error) {
		var ed domain.Education
		err := row.Scan(&ed.ID, &ed.UserID, &ed.Degree, &ed.Institution, &ed.Year, &ed.Grade, &ed.Order)
		return ed, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan education: %w", err)
	}

	// 5. Certifications
	rows, err = tx.Query(ctx, `
		SELECT id, user_id, name, credential_id, link, "order"
		FROM certifications WHERE user_id = $1
		ORDER BY "order" ASC, created_at ASC, id ASC`, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch certifications: %w", err)
	}
	graph.Certifications, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Certification, error) {
		var c domain.Certification
		err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.CredentialID, &c.Link, &c.Order)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan certifications: %w", err)
	}

	// 6. Social links
	rows, err = tx.Query(ctx, `
		SELECT id, user_id, platform, url, "order"
		FROM social_links WHERE user_id = $1
		ORDER BY "order" ASC, created_at ASC, id ASC`, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch social links: %w", err)
	}
	graph.SocialLinks, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SocialLink, error) {
		var l domain.SocialLink
		err := row.Scan(&l.ID, &l.UserID, &l.Platform, &l.URL, &l.Order)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan social links: %w", err)
	}

	// 7. Career goals
	rows, err = tx.Query(ctx, `
		SELECT id, user_id, title, description, "order"
		FROM career_goals WHERE user_id = $1
		ORDER BY "order" ASC, created_at ASC, id ASC`, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch career goals: %w", err)
	}
	graph.CareerGoals, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CareerGoal, error) {
		var g domain.CareerGoal
		err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.Order)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan career goals: %w", err)
	}

	return graph, tx.Commit(ctx)
}

func getProfileRow(ctx context.Context, q pgx.Tx, userID string) (*domain.Profile, error) {
	query := `
		SELECT id, user_id, display_name, avatar_url, headline, bio, location, contact_email,
			avatar_initials, resume_url, level_badge, graduate_badge, reward_league,
			reward_rank, reward_points, completion_percent, created_at, updated_at
		FROM profiles WHERE user_id = $1`
	var p domain.Profile
	err := q.QueryRow(ctx, query, userID).Scan(
		&p.ID, &p.UserID, &p.DisplayName, &p.AvatarURL, &p.Headline, &p.Bio, &p.Location, &p.ContactEmail,
		&p.AvatarInitials, &p.ResumeURL, &p.LevelBadge, &p.GraduateBadge, &p.RewardLeague,
		&p.RewardRank, &p.RewardPoints, &p.CompletionPercent, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) EnsureProfile(ctx context.Context, userID, email string) error {
	query := `INSERT INTO profiles (id, user_id, contact_email) VALUES ($1, $2, $3)
              ON CONFLICT (user_id) DO NOTHING`
	_, err := r.db.Exec(ctx, query, uuid.NewString(), userID, email)
	return err
}

// Replace overwrites the profile row when update.Profile is set and, for
// each present collection, deletes all rows of that type and inserts the
// supplied items. Everything commits or nothing does. The ids of replaced
// skills are returned once committed.
func (r *profileRepo) Replace(ctx context.Context, userID string, update *domain.ProfileUpdate) ([]string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var removed []string

	// 1. Profile scalars (full upsert)
	if p := update.Profile; p != nil {
		upsert := `
			INSERT INTO profiles (
				id, user_id, display_name, avatar_url, headline, bio, location, contact_email,
				avatar_initials, resume_url, level_badge, graduate_badge, reward_league,
				reward_rank, reward_points, completion_percent
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (user_id) DO UPDATE SET
				display_name = EXCLUDED.display_name,
				avatar_url = EXCLUDED.avatar_url,
				headline = EXCLUDED.headline,
				bio = EXCLUDED.bio,
				location = EXCLUDED.location,
				contact_email = EXCLUDED.contact_email,
				avatar_initials = EXCLUDED.avatar_initials,
				resume_url = EXCLUDED.resume_url,
				level_badge = EXCLUDED.level_badge,
				graduate_badge = EXCLUDED.graduate_badge,
				reward_league = EXCLUDED.reward_league,
				reward_rank = EXCLUDED.reward_rank,
				reward_points = EXCLUDED.reward_points,
				completion_percent = EXCLUDED.completion_percent,
				updated_at = NOW()`
		_, err = tx.Exec(ctx, upsert,
			uuid.NewString(), userID,
			stringOr(p.DisplayName), stringOr(p.AvatarURL), stringOr(p.Headline), stringOr(p.Bio),
			stringOr(p.Location), stringOr(p.ContactEmail), stringOr(p.AvatarInitials),
			stringOr(p.ResumeURL), stringOr(p.LevelBadge), stringOr(p.GraduateBadge),
			stringOr(p.RewardLeague), p.RewardRank, p.RewardPoints, p.CompletionPercent,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert profile: %w", err)
		}
	}

	// 2. Skills (Delete All -> Insert). Endorsements cascade with them.
	if update.Skills.Set {
		rows, err := tx.Query(ctx, `DELETE FROM skills WHERE user_id = $1 RETURNING id`, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to delete skills: %w", err)
		}
		if removed, err = pgx.CollectRows(rows, pgx.RowTo[string]); err != nil {
			return nil, fmt.Errorf("failed to delete skills: %w", err)
		}
		insert := `INSERT INTO skills (id, user_id, name, "order") VALUES ($1, $2, $3, $4)`
		for i, s := range update.Skills.Items {
			if _, err := tx.Exec(ctx, insert, uuid.NewString(), userID, s.Name, orderOr(s.Order, i)); err != nil {
				return nil, fmt.Errorf("failed to insert skill: %w", err)
			}
		}
	}

	// 3. Experience
	if update.Experience.Set {
		if _, err = tx.Exec(ctx, `DELETE FROM experiences WHERE user_id = $1`, userID); err != nil {
			return nil, fmt.Errorf("failed to delete experience: %w", err)
		}
		insert := `
			INSERT INTO experiences (id, user_id, title, company, location, dates, description, "order")
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		for i, x := range update.Experience.Items {
			_, err := tx.Exec(ctx, insert, uuid.NewString(), userID,
				x.Title, x.Company, x.Location, x.Dates, x.Description, orderOr(x.Order, i))
			if err != nil {
				return nil, fmt.Errorf("failed to insert experience: %w", err)
			}
		}
	}

	// 4. Education
	if update.Education.Set {
		if _, err = tx.Exec(ctx, `DELETE FROM educations WHERE user_id = $1`, userID); err != nil {
			return nil, fmt.Errorf("failed to delete education: %w", err)
		}
		insert := `
			INSERT INTO educations (id, user_id, degree, institution, year, grade, "order")
			VALUES ($1, $2, $3, $4, $5, $6, $7)`
		for i, ed := range update.Education.Items {
			_, err := tx.Exec(ctx, insert, uuid.NewString(), userID,
				ed.Degree, ed.Institution, ed.Year, ed.Grade, orderOr(ed.Order, i))
			if err != nil {
				return nil, fmt.Errorf("failed to insert education: %w", err)
			}
		}
	}

	// 5. Certifications
	if update.Certifications.Set {
		if _, err = tx.Exec(ctx, `DELETE FROM certifications WHERE user_id = $1`, userID); err != nil {
			return nil, fmt.Errorf("failed to delete certifications: %w", err)
		}
		insert := `
			INSERT INTO certifications (id, user_id, name, credential_id, link, "order")
			VALUES ($1, $2, $3, $4, $5, $6)`
		for i, c := range update.Certifications.Items {
			_, err := tx.Exec(ctx, insert, uuid.NewString(), userID,
				c.Name, c.CredentialID, c.Link, orderOr(c.Order, i))
			if err != nil {
				return nil, fmt.Errorf("failed to insert certification: %w", err)
			}
		}
	}

	// 6. Social links
	if update.SocialLinks.Set {
		if _, err = tx.Exec(ctx, `DELETE FROM social_links WHERE user_id = $1`, userID); err != nil {
			return nil, fmt.Errorf("failed to delete social links: %w", err)
		}
		insert := `INSERT INTO social_links (id, user_id, platform, url, "order") VALUES ($1, $2, $3, $4, $5)`
		for i, l := range update.SocialLinks.Items {
			if _, err := tx.Exec(ctx, insert, uuid.NewString(), userID, l.Platform, l.URL, orderOr(l.Order, i)); err != nil {
				return nil, fmt.Errorf("failed to insert social link: %w", err)
			}
		}
	}

	// 7. Career goals
	if update.CareerGoals.Set {
		if _, err = tx.Exec(ctx, `DELETE FROM career_goals WHERE user_id = $1`, userID); err != nil {
			return nil, fmt.Errorf("failed to delete career goals: %w", err)
		}
		insert := `INSERT INTO career_goals (id, user_id, title, description, "order") VALUES ($1, $2, $3, $4, $5)`
		for i, g := range update.CareerGoals.Items {
			if _, err := tx.Exec(ctx, insert, uuid.NewString(), userID, g.Title, g.Description, orderOr(g.Order, i)); err != nil {
				return nil, fmt.Errorf("failed to insert career goal: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return removed, nil
}

var assetColumns = map[domain.AssetKind]string{
	domain.AssetPhoto:  "avatar_url",
	domain.AssetResume: "resume_url",
}

func (r *profileRepo) SetAssetURL(ctx context.Context, userID, email string, kind domain.AssetKind, url string) error {
	column, ok := assetColumns[kind]
	if !ok {
		return fmt.Errorf("unknown asset kind %q", kind)
	}
	query := fmt.Sprintf(`
		INSERT INTO profiles (id, user_id, contact_email, %[1]s) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET %[1]s = EXCLUDED.%[1]s, updated_at = NOW()`, column)
	_, err := r.db.Exec(ctx, query, uuid.NewString(), userID, email, url)
	return err
}
