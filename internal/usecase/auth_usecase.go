package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"
	"go-profile-backend/pkg/auth"
	"go-profile-backend/pkg/otp"

	"go.uber.org/zap"
)

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
	// createUserAttempts bounds retries when a generated username is taken
	// between the availability check and the insert.
	createUserAttempts = 3
)

const (
	msgAccountExistsLogin = "Account already exists. Please login with password."
	msgInvalidCode        = "Invalid or expired code"
	msgInvalidLogin       = "Invalid email or password"
)

// AuthDeps groups the collaborators of the signup and login flow.
type AuthDeps struct {
	Users     domain.UserRepository
	Profiles  domain.ProfileRepository
	Codes     domain.OTPRepository
	Sender    domain.OTPSender
	Tokens    *auth.TokenIssuer
	Passwords *auth.PasswordHasher
	Codec     *otp.Codec
	// BypassOTP issues signup tokens without mailing or checking a code.
	BypassOTP bool
	Log       *zap.Logger
}

type authUsecase struct {
	users     domain.UserRepository
	profiles  domain.ProfileRepository
	codes     domain.OTPRepository
	sender    domain.OTPSender
	tokens    *auth.TokenIssuer
	passwords *auth.PasswordHasher
	codec     *otp.Codec
	bypassOTP bool
	log       *zap.Logger
	now       func() time.Time
}

func NewAuthUsecase(deps AuthDeps) domain.AuthUsecase {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &authUsecase{
		users:     deps.Users,
		profiles:  deps.Profiles,
		codes:     deps.Codes,
		sender:    deps.Sender,
		tokens:    deps.Tokens,
		passwords: deps.Passwords,
		codec:     deps.Codec,
		bypassOTP: deps.BypassOTP,
		log:       log,
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *authUsecase) RequestOTP(ctx context.Context, emailInput string) (*domain.OTPResult, error) {
	email := normalizeEmail(emailInput)
	if email == "" {
		return nil, apperror.BadRequest("Email is required")
	}

	user, err := u.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if user != nil && user.HasPassword() {
		return nil, apperror.Conflict(msgAccountExistsLogin)
	}
	if user == nil {
		if user, err = u.createPendingUser(ctx, email); err != nil {
			return nil, err
		}
	}

	if u.bypassOTP {
		token, err := u.tokens.IssueSignup(email)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		return &domain.OTPResult{
			Message:     "OTP verification bypassed for this environment",
			SignupToken: token,
			Signup:      &domain.SignupInfo{Email: email, Username: user.Username},
		}, nil
	}

	code, err := u.codec.Generate()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	now := u.now()
	record := &domain.OneTimeCode{
		Email:     email,
		CodeHash:  u.codec.Hash(code),
		ExpiresAt: now.Add(otp.TTL),
		CreatedAt: now,
	}
	if err := u.codes.Replace(ctx, record); err != nil {
		return nil, apperror.Internal(err)
	}

	// Expired codes are garbage; failing to remove them changes nothing.
	if err := u.codes.DeleteExpired(ctx, email, now); err != nil {
		u.log.Warn("Failed to delete expired codes", zap.String("email", email), zap.Error(err))
	}

	if err := u.sender.SendOTP(ctx, email, code); err != nil {
		u.log.Error("Failed to send OTP email", zap.String("email", email), zap.Error(err))
		return nil, apperror.BadGateway("Unable to send verification code", err)
	}

	return &domain.OTPResult{Message: "OTP sent"}, nil
}

// createPendingUser inserts a password-less user with a generated username
// and its default profile. A concurrent request for the same email wins the
// insert; its row is reused.
func (u *authUsecase) createPendingUser(ctx context.Context, email string) (*domain.User, error) {
	for attempt := 0; attempt < createUserAttempts; attempt++ {
		username, err := uniqueUsername(ctx, u.users, email)
		if err != nil {
			return nil, apperror.Internal(err)
		}

		user := &domain.User{Email: email, Username: username}
		err = u.users.Create(ctx, user)
		switch {
		case err == nil:
			if err := u.profiles.EnsureProfile(ctx, user.ID, email); err != nil {
				return nil, apperror.Internal(err)
			}
			return user, nil
		case errors.Is(err, domain.ErrEmailTaken):
			existing, getErr := u.users.GetByEmail(ctx, email)
			if getErr != nil || existing == nil {
				return nil, apperror.Internal(errors.Join(err, getErr))
			}
			if existing.HasPassword() {
				return nil, apperror.Conflict(msgAccountExistsLogin)
			}
			return existing, nil
		case errors.Is(err, domain.ErrUsernameTaken):
			continue
		default:
			return nil, err
		}
	}
	return nil, apperror.Internal(errors.New("could not allocate a unique username"))
}

func (u *authUsecase) VerifyOTP(ctx context.Context, emailInput, codeInput string) (*domain.OTPResult, error) {
	email := normalizeEmail(emailInput)
	code := strings.TrimSpace(codeInput)
	if email == "" || (!u.bypassOTP && code == "") {
		return nil, apperror.BadRequest("Email and code are required")
	}

	if !u.bypassOTP {
		now := u.now()
		record, err := u.codes.FindActive(ctx, email, now)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		if record == nil || !u.codec.Matches(code, record.CodeHash) {
			return nil, apperror.Unauthorized(msgInvalidCode)
		}
		consumed, err := u.codes.Consume(ctx, record.ID, now)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		if !consumed {
			// another request verified the same code first
			return nil, apperror.Unauthorized(msgInvalidCode)
		}
	}

	user, err := u.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}
	if user.HasPassword() {
		return nil, apperror.Conflict(msgAccountExistsLogin)
	}

	token, err := u.tokens.IssueSignup(user.Email)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &domain.OTPResult{
		Message:     "OTP verified",
		SignupToken: token,
		Signup:      &domain.SignupInfo{Email: user.Email, Username: user.Username},
	}, nil
}

func (u *authUsecase) CompleteRegistration(ctx context.Context, input domain.RegisterInput) (*domain.AuthResult, error) {
	if input.SignupToken == "" || input.Password == "" {
		return nil, apperror.BadRequest("Signup token and password are required")
	}
	if utf8.RuneCountInString(input.Password) < minPasswordLength {
		return nil, apperror.BadRequest("Password must be at least 8 characters")
	}
	if len(input.Password) > maxPasswordBytes {
		return nil, apperror.BadRequest("Password must be at most 72 bytes")
	}

	claims, err := u.tokens.ParseSignup(input.SignupToken)
	if err != nil {
		return nil, apperror.Unauthorized("Invalid or expired signup token")
	}
	if claims.Purpose != auth.PurposeSignup {
		return nil, apperror.Unauthorized("Invalid signup token")
	}

	email := normalizeEmail(claims.Email)
	user, err := u.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if user == nil {
		return nil, apperror.NotFound("Signup session not found")
	}
	if user.HasPassword() {
		return nil, apperror.Conflict("Account already exists")
	}

	desired := strings.TrimSpace(input.Username)
	if desired != "" {
		owner, err := u.users.GetByUsername(ctx, desired)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		if owner != nil && owner.ID != user.ID {
			return nil, apperror.Conflict("Username is already taken")
		}
	}

	username := desired
	if username == "" {
		username = user.Username
	}
	if username == "" {
		if username, err = uniqueUsername(ctx, u.users, email); err != nil {
			return nil, apperror.Internal(err)
		}
	}

	hash, err := u.passwords.Hash(input.Password)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	// SetCredentials maps a username race to 409 "Username is already taken".
	if err := u.users.SetCredentials(ctx, user.ID, username, hash); err != nil {
		return nil, err
	}
	user.Username = username
	user.PasswordHash = &hash

	if err := u.profiles.EnsureProfile(ctx, user.ID, email); err != nil {
		return nil, apperror.Internal(err)
	}

	return u.session(user)
}

func (u *authUsecase) Login(ctx context.Context, emailInput, password string) (*domain.AuthResult, error) {
	email := normalizeEmail(emailInput)
	if email == "" || password == "" {
		return nil, apperror.BadRequest("Email and password are required")
	}

	user, err := u.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	var hash *string
	if user != nil {
		hash = user.PasswordHash
	}
	if !u.passwords.Verify(hash, password) || user == nil {
		return nil, apperror.Unauthorized(msgInvalidLogin)
	}

	if err := u.profiles.EnsureProfile(ctx, user.ID, user.Email); err != nil {
		return nil, apperror.Internal(err)
	}

	return u.session(user)
}

func (u *authUsecase) session(user *domain.User) (*domain.AuthResult, error) {
	token, err := u.tokens.IssueSession(user.ID, user.Email)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &domain.AuthResult{Token: token, User: user.Summary()}, nil
}

// EnsureDemoUser makes sure a password-less user and profile exist for
// email so it can sign up through the OTP flow on a fresh database.
func (u *authUsecase) EnsureDemoUser(ctx context.Context, emailInput string) error {
	email := normalizeEmail(emailInput)
	if email == "" {
		return nil
	}

	user, err := u.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		user, err = u.createPendingUser(ctx, email)
		if err != nil {
			if apperror.CodeOf(err) == http.StatusConflict {
				// already registered with a password
				return nil
			}
			return err
		}
		u.log.Info("Demo user created", zap.String("email", email), zap.String("username", user.Username))
		return nil
	}
	return u.profiles.EnsureProfile(ctx, user.ID, user.Email)
}
