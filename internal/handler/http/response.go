package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Owskar/collaborative-code-editor/internal/middleware"
)

func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}

// requireUserID reads the user set by middleware.Auth, answering 401 when absent.
func requireUserID(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
	}
	return userID, ok
}
