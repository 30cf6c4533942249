package postgres

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, username, password_hash, created_at, updated_at`

type userRepo struct {
	db DB
}

func NewUserRepository(db DB) domain.UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	query := `INSERT INTO users (id, email, username, password_hash) 
              VALUES ($1, $2, $3, $4)
              RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query, user.ID, user.Email, user.Username, user.PasswordHash).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return mapUserWriteError(err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *userRepo) getOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	var user domain.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// SetCredentials completes signup. The password_hash IS NULL guard makes
// a second completion a conflict instead of a silent overwrite.
func (r *userRepo) SetCredentials(ctx context.Context, id, username, passwordHash string) error {
	query := `UPDATE users SET username = $2, password_hash = $3, updated_at = NOW()
              WHERE id = $1 AND password_hash IS NULL`
	tag, err := r.db.Exec(ctx, query, id, username, passwordHash)
	if err != nil {
		return mapUserWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.Conflict("Account already exists")
	}
	return nil
}

func mapUserWriteError(err error) error {
	code, constraint := pgErrorCode(err)
	if code != pgUniqueViolation {
		return apperror.Internal(err)
	}
	if strings.Contains(constraint, "username") {
		return apperror.New(http.StatusConflict, "Username is already taken", domain.ErrUsernameTaken)
	}
	return apperror.New(http.StatusConflict, "Account already exists", domain.ErrEmailTaken)
}
