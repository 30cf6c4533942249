package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"go-profile-backend/internal/domain"
	"go-profile-backend/internal/usecase"
	"go-profile-backend/pkg/auth"
	"go-profile-backend/pkg/otp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type authFixture struct {
	uc       domain.AuthUsecase
	users    *memUsers
	codes    *memCodes
	profiles *memProfiles
	inbox    *inbox
	tokens   *auth.TokenIssuer
}

func newAuthFixture(bypass bool) *authFixture {
	f := &authFixture{
		users:    newMemUsers(),
		codes:    &memCodes{},
		profiles: newMemProfiles(),
		inbox:    newInbox(),
		tokens:   auth.NewTokenIssuer(testSecret),
	}
	f.uc = usecase.NewAuthUsecase(usecase.AuthDeps{
		Users:     f.users,
		Profiles:  f.profiles,
		Codes:     f.codes,
		Sender:    f.inbox,
		Tokens:    f.tokens,
		Passwords: auth.NewPasswordHasherWithCost(bcrypt.MinCost),
		Codec:     otp.NewCodec(testSecret),
		BypassOTP: bypass,
	})
	return f
}

func TestSignupFlow(t *testing.T) {
	f := newAuthFixture(false)
	ctx := context.Background()

	res, err := f.uc.RequestOTP(ctx, "  A@X.com ")
	require.NoError(t, err)
	assert.Equal(t, "OTP sent", res.Message)
	assert.Empty(t, res.SignupToken)
	assert.Equal(t, 1, f.codes.unconsumed("a@x.com"))

	_, err = f.uc.VerifyOTP(ctx, "a@x.com", "000000")
	assertAppError(t, err, http.StatusUnauthorized, "Invalid or expired code")

	verified, err := f.uc.VerifyOTP(ctx, "a@x.com", f.inbox.last(t, "a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, "OTP verified", verified.Message)
	require.NotEmpty(t, verified.SignupToken)
	assert.Equal(t, &domain.SignupInfo{Email: "a@x.com", Username: "a"}, verified.Signup)

	_, err = f.uc.CompleteRegistration(ctx, domain.RegisterInput{SignupToken: verified.SignupToken, Password: "short"})
	assertAppError(t, err, http.StatusBadRequest, "Password must be at least 8 characters")

	registered, err := f.uc.CompleteRegistration(ctx, domain.RegisterInput{SignupToken: verified.SignupToken, Password: "longenough1"})
	require.NoError(t, err)
	require.NotEmpty(t, registered.Token)
	assert.Equal(t, "a@x.com", registered.User.Email)
	assert.Equal(t, "a", registered.User.Username)

	claims, err := f.tokens.ParseSession(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.UserID)

	user, _ := f.users.GetByEmail(ctx, "a@x.com")
	assert.True(t, user.HasPassword())
	assert.Equal(t, 1, f.profiles.count())

	loggedIn, err := f.uc.Login(ctx, "A@x.com", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, registered.User, loggedIn.User)
}

func TestVerifyOTP_CodeVerifiesOnce(t *testing.T) {
	f := newAuthFixture(false)
	ctx := context.Background()

	_, err := f.uc.RequestOTP(ctx, "a@x.com")
	require.NoError(t, err)
	code := f.inbox.last(t, "a@x.com")

	_, err = f.uc.VerifyOTP(ctx, "a@x.com", code)
	require.NoError(t, err)

	_, err = f.uc.VerifyOTP(ctx, "a@x.com", code)
	assertAppError(t, err, http.StatusUnauthorized, "Invalid or expired code")
}

func TestRequestOTP_NewCodeInvalidatesPrevious(t *testing.T) {
	f := newAuthFixture(false)
	ctx := context.Background()

	_, err := f.uc.RequestOTP(ctx, "a@x.com")
	require.NoError(t, err)
	first := f.inbox.last(t, "a@x.com")

	_, err = f.uc.RequestOTP(ctx, "a@x.com")
	require.NoError(t, err)
	second := f.inbox.last(t, "a@x.com")
	assert.Equal(t, 1, f.codes.unconsumed("a@x.com"))

	if first != second {
		_, err = f.uc.VerifyOTP(ctx, "a@x.com", first)
		assertAppError(t, err, http.StatusUnauthorized, "Invalid or expired code")
	}

	_, err = f.uc.VerifyOTP(ctx, "a@x.com", second)
	assert.NoError(t, err)
}

func TestRequestOTP_Bypass(t *testing.T) {
	f := newAuthFixture(true)
	ctx := context.Background()

	res, err := f.uc.RequestOTP(ctx, "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, "OTP verification bypassed for this environment", res.Message)
	assert.NotEmpty(t, res.SignupToken)
	assert.Equal(t, &domain.SignupInfo{Email: "b@x.com", Username: "b"}, res.Signup)
	assert.Equal(t, 0, f.codes.unconsumed("b@x.com"))
	assert.Empty(t, f.inbox.codes)

	claims, err := f.tokens.ParseSignup(res.SignupToken)
	require.NoError(t, err)
	assert.Equal(t, auth.PurposeSignup, claims.Purpose)

	verified, err := f.uc.VerifyOTP(ctx, "b@x.com", "")
	require.NoError(t, err)
	assert.NotEmpty(t, verified.SignupToken)
}

func TestRequestOTP_Validation(t *testing.T) {
	f := newAuthFixture(false)

	_, err := f.uc.RequestOTP(context.Background(), "   ")
	assertAppError(t, err, http.StatusBadRequest, "Email is required")

	_, err = f.uc.VerifyOTP(context.Background(), "a@x.com", " ")
	assertAppError(t, err, http.StatusBadRequest, "Email and code are required")
}

func TestRequestOTP_ExistingAccount(t *testing.T) {
	f := newAuthFixture(false)
	registerUser(t, f, "a@x.com", "longenough1")

	_, err := f.uc.RequestOTP(context.Background(), "a@x.com")
	assertAppError(t, err, http.StatusConflict, "Account already exists. Please login with password.")
}

func TestRequestOTP_DeliveryFailure(t *testing.T) {
	f := newAuthFixture(false)
	f.inbox.err = errors.New("relay down")

	_, err := f.uc.RequestOTP(context.Background(), "a@x.com")
	assertAppError(t, err, http.StatusBadGateway, "Unable to send verification code")
}

func TestRequestOTP_UsernameCollisions(t *testing.T) {
	f := newAuthFixture(true)
	ctx := context.Background()

	names := []string{}
	for _, email := range []string{"john.doe@a.com", "john_doe@b.com", "john-doe@c.com"} {
		res, err := f.uc.RequestOTP(ctx, email)
		require.NoError(t, err)
		names = append(names, res.Signup.Username)
	}
	assert.Equal(t, []string{"john-doe", "john-doe-1", "john-doe-2"}, names)

	res, err := f.uc.RequestOTP(ctx, "...@d.com")
	require.NoError(t, err)
	assert.Regexp(t, `^user-[0-9a-z]{6}$`, res.Signup.Username)
}

func TestVerifyOTP_UserStates(t *testing.T) {
	f := newAuthFixture(true)
	ctx := context.Background()

	_, err := f.uc.VerifyOTP(ctx, "ghost@x.com", "")
	assertAppError(t, err, http.StatusNotFound, "User not found")

	registerUser(t, f, "a@x.com", "longenough1")
	_, err = f.uc.VerifyOTP(ctx, "a@x.com", "")
	assertAppError(t, err, http.StatusConflict, "Account already exists. Please login with password.")
}

func TestCompleteRegistration_Failures(t *testing.T) {
	f := newAuthFixture(true)
	ctx := context.Background()

	res, err := f.uc.RequestOTP(ctx, "a@x.com")
	require.NoError(t, err)
	token := res.SignupToken

	_, err = f.uc.CompleteRegistration(ctx, domain.RegisterInput{Password: "longenough1"})
	assertAppError(t, err, http.StatusBadRequest, "Signup token and password are required")

	_, err = f.uc.CompleteRegistration(ctx, domain.RegisterInput{SignupToken: "garbage", Password: "longenough1"})
	assertAppError(t, err, http.StatusUnauthorized, "Invalid or expired signup token")

	session, err := f.tokens.IssueSession("user-1", "a@x.com")
	require.NoError(t, err)
	_, err = f.uc.CompleteRegistration(ctx, domain.RegisterInput{SignupToken: session, Password: "longenough1"})
	assertAppError(t, err, http.StatusUnauthorized, "Invalid signup token")

	ghost, err := f.tokens.IssueSignup("ghost@x.com")
	require.NoError(t, err)
	_, err = f.uc.CompleteRegistration(ctx, domain.RegisterInput{SignupToken: ghost, Password: "longenough1"})
	assertAppError(t, err, http.StatusNotFound, "Signup session not found")

	_, err = f.uc.CompleteRegistration(ctx, domain.RegisterInput{SignupToken: token, Password: strings.Repeat("x", 73)})
	assertAppError(t, err, http.StatusBadRequest, "Password must be at most 72 bytes")

	// Four characters, twelve bytes.
	_, err = f.uc.CompleteRegistration(ctx, domain.RegisterInput{SignupToken: token, Password: "密码密码"})
	assertAppError(t, err, http.StatusBadRequest, "Password must be at least 8 characters")

	// 25 characters but 75 bytes.
	_, err = f.uc.CompleteRegistration(ctx, domain.RegisterInput{SignupToken: token, Password: strings.Repeat("密", 25)})
	assertAppError(t, err, http.StatusBadRequest, "Password must be at most 72 bytes")

	_, err = f.uc.CompleteRegistration(ctx, domain.RegisterInput{SignupToken: token, Password: "longenough1"})
	require.NoError(t, err)

	_, err = f.uc.CompleteRegistration(ctx, domain.RegisterInput{SignupToken: token, Password: "longenough1"})
	assertAppError(t, err, http.StatusConflict, "Account already exists")
}

func TestCompleteRegistration_DesiredUsername(t *testing.T) {
	f := newAuthFixture(true)
	ctx := context.Background()

	first, err := f.uc.RequestOTP(ctx, "first@x.com")
	require.NoError(t, err)
	second, err := f.uc.RequestOTP(ctx, "second@x.com")
	require.NoError(t, err)

	_, err = f.uc.CompleteRegistration(ctx, domain.RegisterInput{SignupToken: second.SignupToken, Password: "longenough1", Username: "first"})
	assertAppError(t, err, http.StatusConflict, "Username is already taken")

	// keeping one's own generated name is not a conflict
	res, err := f.uc.CompleteRegistration(ctx, domain.RegisterInput{SignupToken: first.SignupToken, Password: "longenough1", Username: " first "})
	require.NoError(t, err)
	assert.Equal(t, "first", res.User.Username)

	res, err = f.uc.CompleteRegistration(ctx, domain.RegisterInput{SignupToken: second.SignupToken, Password: "longenough1", Username: "grace"})
	require.NoError(t, err)
	assert.Equal(t, "grace", res.User.Username)
}

func TestLogin_UniformFailure(t *testing.T) {
	f := newAuthFixture(false)
	ctx := context.Background()
	registerUser(t, f, "a@x.com", "longenough1")

	_, errMissing := f.uc.Login(ctx, "nobody@x.com", "longenough1")
	_, errWrong := f.uc.Login(ctx, "a@x.com", "wrong-password")

	assertAppError(t, errMissing, http.StatusUnauthorized, "Invalid email or password")
	assertAppError(t, errWrong, http.StatusUnauthorized, "Invalid email or password")
	assert.Equal(t, errMissing.Error(), errWrong.Error())

	// pending signup: user exists without a password
	_, err := f.uc.RequestOTP(ctx, "pending@x.com")
	require.NoError(t, err)
	_, errPending := f.uc.Login(ctx, "pending@x.com", "anything1")
	assertAppError(t, errPending, http.StatusUnauthorized, "Invalid email or password")

	_, err = f.uc.Login(ctx, "", "x")
	assertAppError(t, err, http.StatusBadRequest, "Email and password are required")
}

func TestEnsureDemoUser(t *testing.T) {
	f := newAuthFixture(false)
	ctx := context.Background()

	require.NoError(t, f.uc.EnsureDemoUser(ctx, " Demo@Example.com"))
	require.NoError(t, f.uc.EnsureDemoUser(ctx, "demo@example.com"))
	require.NoError(t, f.uc.EnsureDemoUser(ctx, ""))

	user, _ := f.users.GetByEmail(ctx, "demo@example.com")
	require.NotNil(t, user)
	assert.Equal(t, "demo", user.Username)
	assert.False(t, user.HasPassword())
	assert.Equal(t, 1, f.profiles.count())
}

// registerUser drives the bypass-free flow to a completed account.
func registerUser(t *testing.T, f *authFixture, email, password string) {
	t.Helper()
	ctx := context.Background()
	token, err := f.tokens.IssueSignup(email)
	require.NoError(t, err)
	if existing, _ := f.users.GetByEmail(ctx, email); existing == nil {
		require.NoError(t, f.users.Create(ctx, &domain.User{Email: email, Username: strings.Split(email, "@")[0]}))
	}
	_, err = f.uc.CompleteRegistration(ctx, domain.RegisterInput{SignupToken: token, Password: password})
	require.NoError(t, err)
}
