package response

import (
	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error string `json:"error" example:"Invalid email or password"`
}

// MessageBody carries a plain confirmation.
type MessageBody struct {
	Message string `json:"message" example:"Profile updated"`
}

// JSON sends data as-is with the given status
func JSON(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}

// Message sends {"message": message}
func Message(c *gin.Context, code int, message string) {
	c.JSON(code, MessageBody{Message: message})
}

// Error sends {"error": message}
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorBody{Error: message})
}

// Abort sends an error and stops the handler chain.
func Abort(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, ErrorBody{Error: message})
}
