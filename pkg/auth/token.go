package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionTTL = 7 * 24 * time.Hour
	SignupTTL  = 15 * time.Minute

	// PurposeSignup tags tokens that bridge OTP verification to account creation.
	PurposeSignup = "signup"
)

// ErrInvalidToken is returned for every verification failure so callers
// cannot tell a bad signature from an expired token.
var ErrInvalidToken = errors.New("invalid or expired token")

// SessionClaims identify an authenticated user.
type SessionClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// SignupClaims carry a verified email between the OTP and register steps.
type SignupClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens with the process secret.
type TokenIssuer struct {
	secret     []byte
	sessionTTL time.Duration
	signupTTL  time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		sessionTTL: SessionTTL,
		signupTTL:  SignupTTL,
		now:        time.Now,
	}
}

func (i *TokenIssuer) IssueSession(userID, email string) (string, error) {
	now := i.now()
	claims := SessionClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.sessionTTL)),
		},
	}
	return i.sign(claims)
}

func (i *TokenIssuer) IssueSignup(email string) (string, error) {
	now := i.now()
	claims := SignupClaims{
		Email:   email,
		Purpose: PurposeSignup,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.signupTTL)),
		},
	}
	return i.sign(claims)
}

// ParseSession verifies signature and expiry of a session token.
func (i *TokenIssuer) ParseSession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := i.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseSignup verifies signature and expiry. The purpose tag is returned
// untouched; checking it is the caller's job.
func (i *TokenIssuer) ParseSignup(tokenString string) (*SignupClaims, error) {
	claims := &SignupClaims{}
	if err := i.parse(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (i *TokenIssuer) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (i *TokenIssuer) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
