package domain

import (
	"context"
	"errors"
	"time"
)

// Uniqueness failures wrapped inside 409 AppErrors by the user store.
var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	// PasswordHash is nil until signup is completed.
	PasswordHash *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasPassword reports whether the account finished registration.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Summary is the public view of a user returned by auth and profile endpoints.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Username: u.Username}
}

type UserSummary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	SetCredentials(ctx context.Context, id, username, passwordHash string) error
}

type SignupInfo struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// OTPResult is returned by both OTP steps. SignupToken is only set once the
// email is verified, or immediately when verification is bypassed.
type OTPResult struct {
	Message     string      `json:"message"`
	SignupToken string      `json:"signupToken,omitempty"`
	Signup      *SignupInfo `json:"signup,omitempty"`
}

type AuthResult struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

type RegisterInput struct {
	SignupToken string
	Password    string
	Username    string
}

type AuthUsecase interface {
	RequestOTP(ctx context.Context, email string) (*OTPResult, error)
	VerifyOTP(ctx context.Context, email, code string) (*OTPResult, error)
	CompleteRegistration(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	EnsureDemoUser(ctx context.Context, email string) error
}
