package usecase_test

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memUsers is an in-memory UserRepository with the same uniqueness rules
// as the users table.
type memUsers struct {
	mu     sync.Mutex
	nextID int
	rows   map[string]*domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{rows: map[string]*domain.User{}}
}

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == user.Email {
			return apperror.New(http.StatusConflict, "Account already exists", domain.ErrEmailTaken)
		}
		if u.Username == user.Username {
			return apperror.New(http.StatusConflict, "Username is already taken", domain.ErrUsernameTaken)
		}
	}
	m.nextID++
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", m.nextID)
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.rows[user.ID] = &stored
	return nil
}

func (m *memUsers) find(match func(*domain.User) bool) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if match(u) {
			found := *u
			return &found
		}
	}
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.ID == id }), nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.Email == email }), nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.Username == username }), nil
}

func (m *memUsers) SetCredentials(_ context.Context, id, username, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.rows[id]
	if !ok || user.HasPassword() {
		return apperror.Conflict("Account already exists")
	}
	for _, u := range m.rows {
		if u.ID != id && u.Username == username {
			return apperror.New(http.StatusConflict, "Username is already taken", domain.ErrUsernameTaken)
		}
	}
	user.Username = username
	user.PasswordHash = &passwordHash
	return nil
}

// memCodes mirrors otp_codes.
type memCodes struct {
	mu     sync.Mutex
	nextID int
	rows   []*domain.OneTimeCode
}

func (m *memCodes) Replace(_ context.Context, code *domain.OneTimeCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, c := range m.rows {
		if c.Email == code.Email && c.ConsumedAt == nil {
			continue
		}
		kept = append(kept, c)
	}
	m.nextID++
	code.ID = fmt.Sprintf("code-%d", m.nextID)
	stored := *code
	m.rows = append(kept, &stored)
	return nil
}

func (m *memCodes) FindActive(_ context.Context, email string, now time.Time) (*domain.OneTimeCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []*domain.OneTimeCode
	for _, c := range m.rows {
		if c.Email == email && c.ConsumedAt == nil && c.ExpiresAt.After(now) {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return nil, nil
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.After(active[j].CreatedAt) })
	found := *active[0]
	return &found, nil
}

func (m *memCodes) Consume(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if c.ID == id && c.ConsumedAt == nil {
			c.ConsumedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (m *memCodes) DeleteExpired(_ context.Context, email string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, c := range m.rows {
		if c.Email == email && !c.ExpiresAt.After(now) {
			continue
		}
		kept = append(kept, c)
	}
	m.rows = kept
	return nil
}

func (m *memCodes) unconsumed(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.rows {
		if c.Email == email && c.ConsumedAt == nil {
			n++
		}
	}
	return n
}

// memProfiles only tracks which users have a profile row.
type memProfiles struct {
	mu   sync.Mutex
	rows map[string]string
}

func newMemProfiles() *memProfiles {
	return &memProfiles{rows: map[string]string{}}
}

func (m *memProfiles) EnsureProfile(_ context.Context, userID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[userID]; !ok {
		m.rows[userID] = email
	}
	return nil
}

func (m *memProfiles) GetGraph(context.Context, *domain.User) (*domain.ProfileGraph, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *memProfiles) Replace(context.Context, string, *domain.ProfileUpdate) ([]string, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *memProfiles) SetAssetURL(context.Context, string, string, domain.AssetKind, string) error {
	return fmt.Errorf("not implemented")
}

func (m *memProfiles) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// inbox captures mailed codes.
type inbox struct {
	mu    sync.Mutex
	codes map[string][]string
	err   error
}

func newInbox() *inbox {
	return &inbox{codes: map[string][]string{}}
}

func (i *inbox) SendOTP(_ context.Context, to, code string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.err != nil {
		return i.err
	}
	i.codes[to] = append(i.codes[to], code)
	return nil
}

func (i *inbox) last(t *testing.T, to string) string {
	t.Helper()
	i.mu.Lock()
	defer i.mu.Unlock()
	require.NotEmpty(t, i.codes[to], "no code mailed to %s", to)
	return i.codes[to][len(i.codes[to])-1]
}

func assertAppError(t *testing.T, err error, code int, message string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apperror.CodeOf(err))
	assert.Equal(t, message, err.Error())
}
