package v1

import (
	"errors"
	"io"

	"go-profile-backend/pkg/apperror"
	"go-profile-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// bindJSON decodes the request body into req and reports a 400 on failure.
// An empty body binds to the zero value so the usecase can name the
// missing field.
func bindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.Error(apperror.BadRequest(validation.FirstMessage(err)))
	} else {
		c.Error(apperror.BadRequest("Invalid request body"))
	}
	return false
}
