package usecase

import (
	"context"
	"fmt"
	"io"

	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"
	"go-profile-backend/pkg/imaging"
	"go-profile-backend/pkg/upload"
	"go-profile-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type profileUsecase struct {
	users    domain.UserRepository
	profiles domain.ProfileRepository
	assets   domain.AssetStore
	counts   domain.EndorsementCountCache
	validate *validator.Validate
	log      *zap.Logger
}

func NewProfileUsecase(
	users domain.UserRepository,
	profiles domain.ProfileRepository,
	assets domain.AssetStore,
	counts domain.EndorsementCountCache,
	validate *validator.Validate,
	log *zap.Logger,
) domain.ProfileUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &profileUsecase{users: users, profiles: profiles, assets: assets, counts: counts, validate: validate, log: log}
}

// owner resolves the requester and checks that username is theirs. A
// foreign username is refused whether or not it exists.
func (u *profileUsecase) owner(ctx context.Context, requesterID, username, forbidden string) (*domain.User, error) {
	if requesterID == "" {
		return nil, apperror.Forbidden(forbidden)
	}
	user, err := u.users.GetByID(ctx, requesterID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if user == nil {
		return nil, apperror.NotFound("Profile not found")
	}
	if user.Username != username {
		return nil, apperror.Forbidden(forbidden)
	}
	return user, nil
}

func (u *profileUsecase) GetProfile(ctx context.Context, requesterID, username string) (*domain.ProfileGraph, error) {
	user, err := u.owner(ctx, requesterID, username, "Not authorized to view this profile")
	if err != nil {
		return nil, err
	}

	graph, err := u.profiles.GetGraph(ctx, user)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if graph.Profile != nil {
		return graph, nil
	}

	// Self-heal a user whose default profile row was never written.
	if err := u.profiles.EnsureProfile(ctx, user.ID, user.Email); err != nil {
		return nil, apperror.Internal(err)
	}
	graph, err = u.profiles.GetGraph(ctx, user)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if graph.Profile == nil {
		return nil, apperror.NotFound("Profile not found")
	}
	return graph, nil
}

func (u *profileUsecase) ReplaceProfile(ctx context.Context, requesterID, username string, update *domain.ProfileUpdate) error {
	user, err := u.owner(ctx, requesterID, username, "Not authorized to update this profile")
	if err != nil {
		return err
	}
	if update == nil {
		update = &domain.ProfileUpdate{}
	}

	if err := u.validate.Struct(update); err != nil {
		return apperror.BadRequest(validation.FirstMessage(err))
	}

	removed, err := u.profiles.Replace(ctx, user.ID, update)
	if err != nil {
		return apperror.Internal(err)
	}

	// Replaced skills took their endorsements with them.
	if u.counts != nil && len(removed) > 0 {
		if err := u.counts.Invalidate(ctx, removed...); err != nil {
			u.log.Warn("Failed to invalidate endorsement counts", zap.Strings("skill_ids", removed), zap.Error(err))
		}
	}
	return nil
}

var uploadRules = map[domain.AssetKind]upload.Rule{
	domain.AssetPhoto:  upload.Photo,
	domain.AssetResume: upload.Resume,
}

func (u *profileUsecase) UploadAsset(ctx context.Context, requesterID, username string, in *domain.AssetUpload) (string, error) {
	user, err := u.owner(ctx, requesterID, username, "Not authorized to update this profile")
	if err != nil {
		return "", err
	}
	if in == nil || in.File == nil {
		return "", apperror.BadRequest("No file uploaded")
	}

	rule, ok := uploadRules[in.Kind]
	if !ok {
		return "", apperror.BadRequest(fmt.Sprintf("Unsupported upload kind %q", in.Kind))
	}
	if err := rule.Check(in.ContentType, in.Size); err != nil {
		return "", apperror.BadRequest(err.Error())
	}

	// The declared size is checked above; the limit guards against a lying header.
	data, err := io.ReadAll(io.LimitReader(in.File, rule.MaxBytes+1))
	if err != nil {
		return "", apperror.Internal(err)
	}
	if int64(len(data)) > rule.MaxBytes {
		return "", apperror.BadRequest(upload.ErrTooLarge.Error())
	}

	contentType := upload.MediaType(in.ContentType)
	ext := upload.Extension(contentType)
	if ext == upload.OpaqueExtension {
		contentType = upload.OpaqueType
	}
	if in.Kind == domain.AssetPhoto {
		resized, err := imaging.FitJPEG(data, imaging.AvatarMaxDimension, imaging.AvatarQuality)
		if err == nil {
			data, contentType, ext = resized, "image/jpeg", ".jpg"
		} else {
			// AVIF, HEIC, SVG and friends are stored as uploaded.
			u.log.Debug("Avatar not re-encoded", zap.String("content_type", contentType), zap.Error(err))
		}
	}

	name := upload.NewName(string(in.Kind), ext)
	if err := u.assets.Put(ctx, name, contentType, data); err != nil {
		return "", apperror.Internal(err)
	}
	url := u.assets.URL(name, in.BaseURL)

	if err := u.profiles.SetAssetURL(ctx, user.ID, user.Email, in.Kind, url); err != nil {
		return "", apperror.Internal(err)
	}
	return url, nil
}
