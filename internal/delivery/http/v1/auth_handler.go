package v1

import (
	"net/http"

	"go-profile-backend/internal/delivery/http/response"
	"go-profile-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUC domain.AuthUsecase
}

func NewAuthHandler(public *gin.RouterGroup, authUC domain.AuthUsecase) {
	handler := &AuthHandler{authUC: authUC}

	publicAuth := public.Group("/auth")
	{
		publicAuth.POST("/request-otp", handler.RequestOTP)
		publicAuth.POST("/verify-otp", handler.VerifyOTP)
		publicAuth.POST("/register", handler.Register)
		publicAuth.POST("/login", handler.Login)
	}
}

type RequestOTPRequest struct {
	Email string `json:"email" example:"ada@example.com"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" example:"ada@example.com"`
	Code  string `json:"code" example:"123456"`
}

type RegisterRequest struct {
	SignupToken string `json:"signupToken"`
	Password    string `json:"password" example:"longenough1"`
	Username    string `json:"username" binding:"username" example:"ada"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"ada@example.com"`
	Password string `json:"password" example:"longenough1"`
}

// RequestOTP godoc
// @Summary      Request a sign-up code
// @Description  Creates a pending user if needed and mails a 6-digit code. With OTP verification disabled the signup token is returned directly.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      RequestOTPRequest  true  "Email"
// @Success      200      {object}  domain.OTPResult
// @Failure      400      {object}  response.ErrorBody
// @Failure      409      {object}  response.ErrorBody
// @Failure      502      {object}  response.ErrorBody
// @Router       /auth/request-otp [post]
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req RequestOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.authUC.RequestOTP(c.Request.Context(), req.Email)
	if err != nil {
		c.Error(err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// VerifyOTP godoc
// @Summary      Verify a sign-up code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      VerifyOTPRequest  true  "Email and code"
// @Success      200      {object}  domain.OTPResult
// @Failure      400      {object}  response.ErrorBody
// @Failure      401      {object}  response.ErrorBody
// @Failure      404      {object}  response.ErrorBody
// @Failure      409      {object}  response.ErrorBody
// @Router       /auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.authUC.VerifyOTP(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		c.Error(err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Register godoc
// @Summary      Complete registration
// @Description  Sets the password (and optionally the username) for a verified email and starts a session.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      RegisterRequest  true  "Signup token, password, optional username"
// @Success      200      {object}  domain.AuthResult
// @Failure      400      {object}  response.ErrorBody
// @Failure      401      {object}  response.ErrorBody
// @Failure      404      {object}  response.ErrorBody
// @Failure      409      {object}  response.ErrorBody
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.authUC.CompleteRegistration(c.Request.Context(), domain.RegisterInput{
		SignupToken: req.SignupToken,
		Password:    req.Password,
		Username:    req.Username,
	})
	if err != nil {
		c.Error(err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Login godoc
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      LoginRequest  true  "Credentials"
// @Success      200      {object}  domain.AuthResult
// @Failure      400      {object}  response.ErrorBody
// @Failure      401      {object}  response.ErrorBody
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.authUC.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}
