package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"go-profile-backend/internal/domain"
	"go-profile-backend/internal/usecase"
	"go-profile-backend/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var owner = &domain.User{ID: "user-1", Email: "ada@x.com", Username: "ada"}

type profileFixture struct {
	uc       domain.ProfileUsecase
	users    *MockUserRepo
	profiles *MockProfileRepo
	assets   *MockAssetStore
	counts   *MockCountCache
}

func newProfileFixture() *profileFixture {
	f := &profileFixture{
		users:    new(MockUserRepo),
		profiles: new(MockProfileRepo),
		assets:   new(MockAssetStore),
		counts:   new(MockCountCache),
	}
	f.uc = usecase.NewProfileUsecase(f.users, f.profiles, f.assets, f.counts, validation.New(), nil)
	f.users.On("GetByID", mock.Anything, owner.ID).Return(owner, nil)
	f.users.On("GetByID", mock.Anything, "user-2").Return(&domain.User{ID: "user-2", Email: "bob@x.com", Username: "bob"}, nil)
	f.users.On("GetByID", mock.Anything, mock.Anything).Return(nil, nil)
	return f
}

func TestProfileOwnership(t *testing.T) {
	f := newProfileFixture()
	ctx := context.Background()

	t.Run("unknown username is forbidden too", func(t *testing.T) {
		_, err := f.uc.GetProfile(ctx, "user-2", "ghost")
		assertAppError(t, err, http.StatusForbidden, "Not authorized to view this profile")
	})

	t.Run("requester without an account", func(t *testing.T) {
		_, err := f.uc.GetProfile(ctx, "deleted", "ada")
		assertAppError(t, err, http.StatusNotFound, "Profile not found")
	})

	t.Run("anonymous requester", func(t *testing.T) {
		_, err := f.uc.GetProfile(ctx, "", "ada")
		assertAppError(t, err, http.StatusForbidden, "Not authorized to view this profile")
	})

	t.Run("other user cannot view", func(t *testing.T) {
		_, err := f.uc.GetProfile(ctx, "user-2", "ada")
		assertAppError(t, err, http.StatusForbidden, "Not authorized to view this profile")
	})

	t.Run("other user cannot update", func(t *testing.T) {
		err := f.uc.ReplaceProfile(ctx, "user-2", "ada", &domain.ProfileUpdate{})
		assertAppError(t, err, http.StatusForbidden, "Not authorized to update this profile")
	})

	t.Run("other user cannot upload", func(t *testing.T) {
		_, err := f.uc.UploadAsset(ctx, "user-2", "ada", &domain.AssetUpload{Kind: domain.AssetResume})
		assertAppError(t, err, http.StatusForbidden, "Not authorized to update this profile")
	})

	f.profiles.AssertNotCalled(t, "GetGraph", mock.Anything, mock.Anything)
	f.profiles.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetProfile(t *testing.T) {
	f := newProfileFixture()
	graph := &domain.ProfileGraph{User: owner.Summary(), Profile: &domain.Profile{UserID: owner.ID}}
	f.profiles.On("GetGraph", mock.Anything, owner).Return(graph, nil).Once()

	got, err := f.uc.GetProfile(context.Background(), owner.ID, "ada")
	require.NoError(t, err)
	assert.Same(t, graph, got)
	f.profiles.AssertNotCalled(t, "EnsureProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetProfile_CreatesMissingRow(t *testing.T) {
	f := newProfileFixture()
	empty := &domain.ProfileGraph{User: owner.Summary()}
	healed := &domain.ProfileGraph{User: owner.Summary(), Profile: &domain.Profile{UserID: owner.ID}}
	f.profiles.On("GetGraph", mock.Anything, owner).Return(empty, nil).Once()
	f.profiles.On("EnsureProfile", mock.Anything, owner.ID, owner.Email).Return(nil).Once()
	f.profiles.On("GetGraph", mock.Anything, owner).Return(healed, nil).Once()

	got, err := f.uc.GetProfile(context.Background(), owner.ID, "ada")
	require.NoError(t, err)
	assert.Same(t, healed, got)
	f.profiles.AssertExpectations(t)
}

func TestGetProfile_StoreFailure(t *testing.T) {
	f := newProfileFixture()
	f.profiles.On("GetGraph", mock.Anything, owner).Return(nil, errors.New("connection reset"))

	_, err := f.uc.GetProfile(context.Background(), owner.ID, "ada")
	assertAppError(t, err, http.StatusInternalServerError, "Internal server error")
}

func TestReplaceProfile(t *testing.T) {
	f := newProfileFixture()
	update := &domain.ProfileUpdate{Skills: domain.Replace(domain.Skill{Name: "Go"})}
	f.profiles.On("Replace", mock.Anything, owner.ID, update).Return([]string{"s-1", "s-2"}, nil).Once()
	f.counts.On("Invalidate", mock.Anything, []string{"s-1", "s-2"}).Return(nil).Once()

	require.NoError(t, f.uc.ReplaceProfile(context.Background(), owner.ID, "ada", update))
	f.profiles.AssertExpectations(t)
	f.counts.AssertExpectations(t)
}

func TestReplaceProfile_CountInvalidation(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing to invalidate without skills", func(t *testing.T) {
		f := newProfileFixture()
		update := &domain.ProfileUpdate{Profile: &domain.ProfileFields{}}
		f.profiles.On("Replace", mock.Anything, owner.ID, update).Return(nil, nil).Once()

		require.NoError(t, f.uc.ReplaceProfile(ctx, owner.ID, "ada", update))
		f.counts.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
	})

	t.Run("cache failure does not fail the write", func(t *testing.T) {
		f := newProfileFixture()
		update := &domain.ProfileUpdate{Skills: domain.Replace[domain.Skill]()}
		f.profiles.On("Replace", mock.Anything, owner.ID, update).Return([]string{"s-1"}, nil).Once()
		f.counts.On("Invalidate", mock.Anything, []string{"s-1"}).Return(errors.New("redis down")).Once()

		assert.NoError(t, f.uc.ReplaceProfile(ctx, owner.ID, "ada", update))
	})

	t.Run("failed write invalidates nothing", func(t *testing.T) {
		f := newProfileFixture()
		update := &domain.ProfileUpdate{Skills: domain.Replace[domain.Skill]()}
		f.profiles.On("Replace", mock.Anything, owner.ID, update).Return(nil, errors.New("deadlock")).Once()

		err := f.uc.ReplaceProfile(ctx, owner.ID, "ada", update)
		assertAppError(t, err, http.StatusInternalServerError, "Internal server error")
		f.counts.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
	})

	t.Run("without a cache", func(t *testing.T) {
		f := newProfileFixture()
		uc := usecase.NewProfileUsecase(f.users, f.profiles, f.assets, nil, validation.New(), nil)
		update := &domain.ProfileUpdate{Skills: domain.Replace[domain.Skill]()}
		f.profiles.On("Replace", mock.Anything, owner.ID, update).Return([]string{"s-1"}, nil).Once()

		assert.NoError(t, uc.ReplaceProfile(ctx, owner.ID, "ada", update))
	})
}

func TestReplaceProfile_ValidationRejectsBeforeWriting(t *testing.T) {
	f := newProfileFixture()
	update := &domain.ProfileUpdate{
		Skills: domain.Replace(domain.Skill{Name: "Go"}, domain.Skill{Name: ""}),
	}

	err := f.uc.ReplaceProfile(context.Background(), owner.ID, "ada", update)
	assertAppError(t, err, http.StatusBadRequest, "skills[1].name is required")

	percent := 140
	err = f.uc.ReplaceProfile(context.Background(), owner.ID, "ada", &domain.ProfileUpdate{
		Profile: &domain.ProfileFields{CompletionPercent: &percent},
	})
	assertAppError(t, err, http.StatusBadRequest, "profile.completionPercent must be at most 100")

	f.profiles.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything, mock.Anything)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadAsset_PhotoIsReencoded(t *testing.T) {
	f := newProfileFixture()
	data := pngBytes(t, 1024, 512)

	f.assets.On("Put", mock.Anything, mock.MatchedBy(func(name string) bool {
		return strings.HasPrefix(name, "photo-") && strings.HasSuffix(name, ".jpg")
	}), "image/jpeg", mock.Anything).Return(nil).Once()
	f.assets.On("URL", mock.Anything, "http://api.test").Return("http://api.test/uploads/photo.jpg").Once()
	f.profiles.On("SetAssetURL", mock.Anything, owner.ID, owner.Email, domain.AssetPhoto, "http://api.test/uploads/photo.jpg").Return(nil).Once()

	url, err := f.uc.UploadAsset(context.Background(), owner.ID, "ada", &domain.AssetUpload{
		Kind:        domain.AssetPhoto,
		Filename:    "me.png",
		ContentType: "image/png",
		Size:        int64(len(data)),
		File:        bytes.NewReader(data),
		BaseURL:     "http://api.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://api.test/uploads/photo.jpg", url)
	f.assets.AssertExpectations(t)
	f.profiles.AssertExpectations(t)
}

func TestUploadAsset_ResumeStoredAsIs(t *testing.T) {
	f := newProfileFixture()
	data := []byte("%PDF-1.4 fake")

	f.assets.On("Put", mock.Anything, mock.MatchedBy(func(name string) bool {
		return strings.HasPrefix(name, "resume-") && strings.HasSuffix(name, ".pdf")
	}), "application/pdf", data).Return(nil).Once()
	f.assets.On("URL", mock.Anything, "").Return("/uploads/resume.pdf").Once()
	f.profiles.On("SetAssetURL", mock.Anything, owner.ID, owner.Email, domain.AssetResume, "/uploads/resume.pdf").Return(nil).Once()

	url, err := f.uc.UploadAsset(context.Background(), owner.ID, "ada", &domain.AssetUpload{
		Kind:        domain.AssetResume,
		Filename:    "cv.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(data)),
		File:        bytes.NewReader(data),
	})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/resume.pdf", url)
}

func TestUploadAsset_ClientFilenameNeverNamesTheFile(t *testing.T) {
	tests := []struct {
		name        string
		kind        domain.AssetKind
		contentType string
		filename    string
		suffix      string
		storedType  string
	}{
		{"undecodable photo", domain.AssetPhoto, "image/png", "evil.html", ".png", "image/png"},
		{"heic photo", domain.AssetPhoto, "image/heic", "me.htm", ".heic", "image/heic"},
		{"svg photo", domain.AssetPhoto, "image/svg+xml", "logo.svg", ".bin", "application/octet-stream"},
		{"resume", domain.AssetResume, "application/pdf", "cv.html", ".pdf", "application/pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProfileFixture()
			data := []byte("<html><script>alert(1)</script></html>")

			f.assets.On("Put", mock.Anything, mock.MatchedBy(func(name string) bool {
				return strings.HasPrefix(name, string(tt.kind)+"-") && strings.HasSuffix(name, tt.suffix)
			}), tt.storedType, data).Return(nil).Once()
			f.assets.On("URL", mock.Anything, "").Return("/uploads/x").Once()
			f.profiles.On("SetAssetURL", mock.Anything, owner.ID, owner.Email, tt.kind, "/uploads/x").Return(nil).Once()

			_, err := f.uc.UploadAsset(context.Background(), owner.ID, "ada", &domain.AssetUpload{
				Kind:        tt.kind,
				Filename:    tt.filename,
				ContentType: tt.contentType,
				Size:        int64(len(data)),
				File:        bytes.NewReader(data),
			})
			require.NoError(t, err)
			f.assets.AssertExpectations(t)
		})
	}
}

func TestUploadAsset_Rejections(t *testing.T) {
	f := newProfileFixture()
	ctx := context.Background()

	tests := []struct {
		name    string
		upload  *domain.AssetUpload
		message string
	}{
		{"no file", &domain.AssetUpload{Kind: domain.AssetPhoto}, "No file uploaded"},
		{"resume as photo", &domain.AssetUpload{Kind: domain.AssetPhoto, ContentType: "application/pdf", Size: 10, File: strings.NewReader("x")}, "Only image files are allowed"},
		{"image as resume", &domain.AssetUpload{Kind: domain.AssetResume, ContentType: "image/png", Size: 10, File: strings.NewReader("x")}, "Only PDF, DOC, or DOCX files are allowed"},
		{"oversized photo", &domain.AssetUpload{Kind: domain.AssetPhoto, ContentType: "image/png", Size: 5<<20 + 1, File: strings.NewReader("x")}, "File too large"},
		{"body larger than declared", &domain.AssetUpload{Kind: domain.AssetPhoto, ContentType: "image/png", Size: 10, File: bytes.NewReader(make([]byte, 5<<20+1))}, "File too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.UploadAsset(ctx, owner.ID, "ada", tt.upload)
			assertAppError(t, err, http.StatusBadRequest, tt.message)
		})
	}
	f.assets.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadAsset_StoreFailureLeavesProfileUntouched(t *testing.T) {
	f := newProfileFixture()
	f.assets.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket gone"))

	_, err := f.uc.UploadAsset(context.Background(), owner.ID, "ada", &domain.AssetUpload{
		Kind:        domain.AssetResume,
		ContentType: "application/pdf",
		Size:        3,
		File:        strings.NewReader("pdf"),
	})
	assertAppError(t, err, http.StatusInternalServerError, "Internal server error")
	f.profiles.AssertNotCalled(t, "SetAssetURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
