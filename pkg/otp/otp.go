// Package otp generates and hashes the numeric codes mailed during signup.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	Digits = 6
	TTL    = 10 * time.Minute
)

// Codec produces codes and their salted digests. Only digests are stored.
type Codec struct {
	secret string
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: secret}
}

// Generate returns a uniformly random code in [100000, 999999].
func (c *Codec) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", Digits, n.Int64()+100000), nil
}

// Hash returns hex(sha256(code + ":" + secret)). Surrounding whitespace in
// the code is ignored.
func (c *Codec) Hash(code string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(code) + ":" + c.secret))
	return hex.EncodeToString(sum[:])
}

// Matches compares a submitted code against a stored digest in constant time.
func (c *Codec) Matches(code, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(c.Hash(code)), []byte(digest)) == 1
}
