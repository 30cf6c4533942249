package v1

import (
	"errors"
	"net/http"

	"go-profile-backend/config"
	"go-profile-backend/internal/delivery/http/middleware"
	"go-profile-backend/internal/delivery/http/response"
	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"
	"go-profile-backend/pkg/upload"

	"github.com/gin-gonic/gin"
)

// multipartOverhead is allowed on top of the largest file for boundaries
// and headers.
const multipartOverhead = 1 << 20

type ProfileHandler struct {
	profileUC domain.ProfileUsecase
	config    *config.Config
}

func NewProfileHandler(protected *gin.RouterGroup, profileUC domain.ProfileUsecase, cfg *config.Config) {
	handler := &ProfileHandler{profileUC: profileUC, config: cfg}

	profile := protected.Group("/profile")
	{
		profile.GET("/:username", handler.GetProfile)
		profile.PUT("/:username", handler.ReplaceProfile)
		profile.POST("/:username/photo", handler.UploadPhoto)
		profile.POST("/:username/resume", handler.UploadResume)
	}
}

type AvatarURLResponse struct {
	AvatarURL string `json:"avatarUrl"`
}

type ResumeURLResponse struct {
	ResumeURL string `json:"resumeUrl"`
}

// GetProfile godoc
// @Summary      Get own profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  domain.ProfileGraph
// @Failure      401       {object}  response.ErrorBody
// @Failure      403       {object}  response.ErrorBody
// @Failure      404       {object}  response.ErrorBody
// @Router       /profile/{username} [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	graph, err := h.profileUC.GetProfile(c.Request.Context(), middleware.UserID(c), c.Param("username"))
	if err != nil {
		c.Error(err)
		return
	}
	response.JSON(c, http.StatusOK, graph)
}

// ReplaceProfile godoc
// @Summary      Replace profile
// @Description  Overwrites the scalar profile fields and replaces every collection present in the body in one transaction. Absent collections are left untouched.
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string                true  "Username"
// @Param        profile   body      domain.ProfileUpdate  true  "Profile graph"
// @Success      200       {object}  response.MessageBody
// @Failure      400       {object}  response.ErrorBody
// @Failure      401       {object}  response.ErrorBody
// @Failure      403       {object}  response.ErrorBody
// @Failure      404       {object}  response.ErrorBody
// @Router       /profile/{username} [put]
func (h *ProfileHandler) ReplaceProfile(c *gin.Context) {
	var update domain.ProfileUpdate
	if !bindJSON(c, &update) {
		return
	}

	if err := h.profileUC.ReplaceProfile(c.Request.Context(), middleware.UserID(c), c.Param("username"), &update); err != nil {
		c.Error(err)
		return
	}
	response.Message(c, http.StatusOK, "Profile updated")
}

// UploadPhoto godoc
// @Summary      Upload profile photo
// @Description  Any image type up to 5MB. JPEG, PNG, GIF and WebP are resized to fit 512x512.
// @Tags         profile
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Username"
// @Param        photo     formData  file    true  "Image"
// @Success      200       {object}  AvatarURLResponse
// @Failure      400       {object}  response.ErrorBody
// @Failure      401       {object}  response.ErrorBody
// @Failure      403       {object}  response.ErrorBody
// @Failure      404       {object}  response.ErrorBody
// @Router       /profile/{username}/photo [post]
func (h *ProfileHandler) UploadPhoto(c *gin.Context) {
	url, ok := h.upload(c, domain.AssetPhoto, upload.MaxPhotoBytes)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, AvatarURLResponse{AvatarURL: url})
}

// UploadResume godoc
// @Summary      Upload resume
// @Description  PDF, DOC or DOCX up to 10MB.
// @Tags         profile
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Username"
// @Param        resume    formData  file    true  "Resume"
// @Success      200       {object}  ResumeURLResponse
// @Failure      400       {object}  response.ErrorBody
// @Failure      401       {object}  response.ErrorBody
// @Failure      403       {object}  response.ErrorBody
// @Failure      404       {object}  response.ErrorBody
// @Router       /profile/{username}/resume [post]
func (h *ProfileHandler) UploadResume(c *gin.Context) {
	url, ok := h.upload(c, domain.AssetResume, upload.MaxResumeBytes)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, ResumeURLResponse{ResumeURL: url})
}

// upload reads the multipart field named after kind and hands it to the usecase.
func (h *ProfileHandler) upload(c *gin.Context, kind domain.AssetKind, maxBytes int64) (string, bool) {
	ctx := c.Request.Context()
	requesterID, username := middleware.UserID(c), c.Param("username")
	base := requestBaseURL(c, h.config.PublicAPIURL)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)
	header, err := c.FormFile(string(kind))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Error(apperror.BadRequest(upload.ErrTooLarge.Error()))
			return "", false
		}
		// Ownership still decides the status when the file is missing.
		if _, err = h.profileUC.UploadAsset(ctx, requesterID, username, nil); err == nil {
			err = apperror.BadRequest("No file uploaded")
		}
		c.Error(err)
		return "", false
	}

	file, err := header.Open()
	if err != nil {
		c.Error(apperror.Internal(err))
		return "", false
	}
	defer file.Close()

	url, err := h.profileUC.UploadAsset(ctx, requesterID, username, &domain.AssetUpload{
		Kind:        kind,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		File:        file,
		BaseURL:     base,
	})
	if err != nil {
		c.Error(err)
		return "", false
	}
	return url, true
}

// requestBaseURL is the configured public URL or the scheme and host the
// request arrived on.
func requestBaseURL(c *gin.Context, public string) string {
	if public != "" {
		return public
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host
}
