package usecase_test

import (
	"context"

	"go-profile-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

// Mock Repositories
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}
func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) SetCredentials(ctx context.Context, id, username, passwordHash string) error {
	return m.Called(ctx, id, username, passwordHash).Error(0)
}

type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) GetGraph(ctx context.Context, user *domain.User) (*domain.ProfileGraph, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProfileGraph), args.Error(1)
}
func (m *MockProfileRepo) EnsureProfile(ctx context.Context, userID, email string) error {
	return m.Called(ctx, userID, email).Error(0)
}
func (m *MockProfileRepo) Replace(ctx context.Context, userID string, update *domain.ProfileUpdate) ([]string, error) {
	args := m.Called(ctx, userID, update)
	removed, _ := args.Get(0).([]string)
	return removed, args.Error(1)
}
func (m *MockProfileRepo) SetAssetURL(ctx context.Context, userID, email string, kind domain.AssetKind, url string) error {
	return m.Called(ctx, userID, email, kind, url).Error(0)
}

type MockAssetStore struct {
	mock.Mock
}

func (m *MockAssetStore) Put(ctx context.Context, name, contentType string, data []byte) error {
	return m.Called(ctx, name, contentType, data).Error(0)
}
func (m *MockAssetStore) URL(name, requestBase string) string {
	return m.Called(name, requestBase).String(0)
}

type MockEndorsementRepo struct {
	mock.Mock
}

func (m *MockEndorsementRepo) SkillExists(ctx context.Context, skillID string) (bool, error) {
	args := m.Called(ctx, skillID)
	return args.Bool(0), args.Error(1)
}
func (m *MockEndorsementRepo) Create(ctx context.Context, endorsement *domain.SkillEndorsement) error {
	return m.Called(ctx, endorsement).Error(0)
}
func (m *MockEndorsementRepo) Count(ctx context.Context, skillID string) (int64, error) {
	args := m.Called(ctx, skillID)
	return args.Get(0).(int64), args.Error(1)
}

type MockCountCache struct {
	mock.Mock
}

func (m *MockCountCache) Get(ctx context.Context, skillID string) (int64, int64, bool, error) {
	args := m.Called(ctx, skillID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Bool(2), args.Error(3)
}
func (m *MockCountCache) Fill(ctx context.Context, skillID string, count, gen int64) error {
	return m.Called(ctx, skillID, count, gen).Error(0)
}
func (m *MockCountCache) Invalidate(ctx context.Context, skillIDs ...string) error {
	return m.Called(ctx, skillIDs).Error(0)
}
