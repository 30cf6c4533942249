package usecase

import (
	"context"
	"crypto/rand"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"go-profile-backend/internal/domain"
)

var usernameSeparators = regexp.MustCompile(`[^a-zA-Z0-9]+`)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// baseUsername derives a slug from the email's local part: runs of
// non-alphanumerics collapse to "-" with no leading or trailing "-".
func baseUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")
	base := strings.Trim(usernameSeparators.ReplaceAllString(local, "-"), "-")
	if base == "" {
		return "user-" + randomBase36(6)
	}
	return base
}

func randomBase36(n int) string {
	var b strings.Builder
	limit := big.NewInt(int64(len(base36)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand never fails on supported platforms
			panic(err)
		}
		b.WriteByte(base36[idx.Int64()])
	}
	return b.String()
}

// uniqueUsername returns base, or base-1, base-2, ... whichever is free.
func uniqueUsername(ctx context.Context, users domain.UserRepository, email string) (string, error) {
	base := baseUsername(email)
	candidate := base
	for suffix := 1; ; suffix++ {
		existing, err := users.GetByUsername(ctx, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(suffix)
	}
}
