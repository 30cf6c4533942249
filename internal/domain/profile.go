package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"
)

type Profile struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	DisplayName       string    `json:"displayName"`
	AvatarURL         string    `json:"avatarUrl"`
	Headline          string    `json:"headline"`
	Bio               string    `json:"bio"`
	Location          string    `json:"location"`
	ContactEmail      string    `json:"contactEmail"`
	AvatarInitials    string    `json:"avatarInitials"`
	ResumeURL         string    `json:"resumeUrl"`
	LevelBadge        string    `json:"levelBadge"`
	GraduateBadge     string    `json:"graduateBadge"`
	RewardLeague      string    `json:"rewardLeague"`
	RewardRank        *int      `json:"rewardRank"`
	RewardPoints      *int      `json:"rewardPoints"`
	CompletionPercent *int      `json:"completionPercent"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type Skill struct {
	ID                string `json:"id"`
	UserID            string `json:"-"`
	Name              string `json:"name" validate:"required,max=100"`
	Order             *int   `json:"order"`
	EndorsementsCount int64  `json:"endorsementsCount"`
}

type Experience struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Title       string `json:"title" validate:"required,max=200"`
	Company     string `json:"company" validate:"max=200"`
	Location    string `json:"location" validate:"max=200"`
	Dates       string `json:"dates" validate:"max=100"`
	Description string `json:"description" validate:"max=5000"`
	Order       *int   `json:"order"`
}

type Education struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Degree      string  `json:"degree" validate:"required,max=200"`
	Institution string  `json:"institution" validate:"max=200"`
	Year        string  `json:"year" validate:"max=50"`
	Grade       *string `json:"grade" validate:"omitempty,max=50"`
	Order       *int    `json:"order"`
}

type Certification struct {
	ID           string  `json:"id"`
	UserID       string  `json:"userId"`
	Name         string  `json:"name" validate:"required,max=200"`
	CredentialID string  `json:"credentialId" validate:"max=200"`
	Link         *string `json:"link" validate:"omitempty,max=2048"`
	Order        *int    `json:"order"`
}

type SocialLink struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Platform string `json:"platform" validate:"required,max=50"`
	URL      string `json:"url" validate:"required,max=2048"`
	Order    *int   `json:"order"`
}

type CareerGoal struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Order       *int    `json:"order"`
}

// ProfileGraph is a user's whole profile. Profile is nil only before the
// default row has been created.
type ProfileGraph struct {
	User           UserSummary     `json:"user"`
	Profile        *Profile        `json:"profile"`
	Skills         []Skill         `json:"skills"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Certifications []Certification `json:"certifications"`
	SocialLinks    []SocialLink    `json:"socialLinks"`
	CareerGoals    []CareerGoal    `json:"careerGoals"`
}

// ProfileFields is the scalar part of an update. The row is overwritten as
// a whole: nil strings are stored empty and nil numbers as NULL.
type ProfileFields struct {
	DisplayName       *string `json:"displayName" validate:"omitempty,max=200"`
	AvatarURL         *string `json:"avatarUrl" validate:"omitempty,max=2048"`
	Headline          *string `json:"headline" validate:"omitempty,max=300"`
	Bio               *string `json:"bio" validate:"omitempty,max=5000"`
	Location          *string `json:"location" validate:"omitempty,max=200"`
	ContactEmail      *string `json:"contactEmail" validate:"omitempty,max=320"`
	AvatarInitials    *string `json:"avatarInitials" validate:"omitempty,max=10"`
	ResumeURL         *string `json:"resumeUrl" validate:"omitempty,max=2048"`
	LevelBadge        *string `json:"levelBadge" validate:"omitempty,max=100"`
	GraduateBadge     *string `json:"graduateBadge" validate:"omitempty,max=100"`
	RewardLeague      *string `json:"rewardLeague" validate:"omitempty,max=100"`
	RewardRank        *int    `json:"rewardRank"`
	RewardPoints      *int    `json:"rewardPoints"`
	CompletionPercent *int    `json:"completionPercent" validate:"omitempty,min=0,max=100"`
}

// Collection is an array key of a profile update. Set is false when the key
// was absent, null, or not an array; such collections are left untouched.
type Collection[T any] struct {
	Set   bool
	Items []T `validate:"dive"`
}

// Replace builds a present collection, mostly for tests and seeding.
func Replace[T any](items ...T) Collection[T] {
	if items == nil {
		items = []T{}
	}
	return Collection[T]{Set: true, Items: items}
}

func (c *Collection[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		*c = Collection[T]{}
		return nil
	}
	items := []T{}
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*c = Collection[T]{Set: true, Items: items}
	return nil
}

func (c Collection[T]) MarshalJSON() ([]byte, error) {
	if !c.Set {
		return []byte("null"), nil
	}
	return json.Marshal(c.Items)
}

// ProfileUpdate is the body of a profile replace. Each present collection
// replaces every stored row of that type.
type ProfileUpdate struct {
	Profile        *ProfileFields            `json:"profile"`
	Skills         Collection[Skill]         `json:"skills"`
	Experience     Collection[Experience]    `json:"experience"`
	Education      Collection[Education]     `json:"education"`
	Certifications Collection[Certification] `json:"certifications"`
	SocialLinks    Collection[SocialLink]    `json:"socialLinks"`
	CareerGoals    Collection[CareerGoal]    `json:"careerGoals"`
}

type AssetKind string

const (
	AssetPhoto  AssetKind = "photo"
	AssetResume AssetKind = "resume"
)

// AssetUpload is a file received for a profile. BaseURL is the scheme and
// host the request arrived on.
type AssetUpload struct {
	Kind        AssetKind
	Filename    string
	ContentType string
	Size        int64
	File        io.Reader
	BaseURL     string
}

// AssetStore persists uploaded files.
type AssetStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
	URL(name, requestBase string) string
}

type ProfileRepository interface {
	// GetGraph loads every profile collection for the user; Profile is nil
	// when no row exists yet.
	GetGraph(ctx context.Context, user *User) (*ProfileGraph, error)
	// EnsureProfile inserts the default row if missing and is safe to race.
	EnsureProfile(ctx context.Context, userID, email string) error
	// Replace applies update in a single transaction and returns the ids of
	// the skills it deleted.
	Replace(ctx context.Context, userID string, update *ProfileUpdate) (removedSkillIDs []string, err error)
	// SetAssetURL upserts only the URL column for kind.
	SetAssetURL(ctx context.Context, userID, email string, kind AssetKind, url string) error
}

type ProfileUsecase interface {
	GetProfile(ctx context.Context, requesterID, username string) (*ProfileGraph, error)
	ReplaceProfile(ctx context.Context, requesterID, username string, update *ProfileUpdate) error
	UploadAsset(ctx context.Context, requesterID, username string, upload *AssetUpload) (string, error)
}
