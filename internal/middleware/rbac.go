package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aulao-api/internal/models"
	appErrors "github.com/noah-isme/aulao-api/pkg/errors"
	"github.com/noah-isme/aulao-api/pkg/response"
)

// RequireStudent only admits viewers holding a student profile.
func RequireStudent() gin.HandlerFunc {
	return requireViewer(models.Viewer.IsStudent, "student profile required")
}

// RequireTeacher only admits viewers holding a teacher profile.
func RequireTeacher() gin.HandlerFunc {
	return requireViewer(models.Viewer.IsTeacher, "teacher profile required")
}

func requireViewer(allowed func(models.Viewer) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := ViewerFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if !allowed(viewer) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, message))
			return
		}
		c.Next()
	}
}
