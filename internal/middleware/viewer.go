package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/aulao-api/internal/models"
	appErrors "github.com/noah-isme/aulao-api/pkg/errors"
	"github.com/noah-isme/aulao-api/pkg/response"
)

// ContextViewerKey is the gin context key storing the resolved viewer.
const ContextViewerKey = "currentViewer"

// Viewer resolves the caller identity. A bearer token, when sent, must be valid;
// requests without one act as the configured fallback viewer.
func Viewer(secret string, fallback models.Viewer) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(ContextViewerKey, fallback)
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			return
		}

		claims, err := parseViewerToken(parts[1], key)
		if err != nil {
			response.Error(c, err)
			return
		}

		c.Set(ContextViewerKey, models.Viewer{
			UserID:           claims.UserID,
			StudentProfileID: claims.StudentProfileID,
			TeacherProfileID: claims.TeacherProfileID,
		})
		c.Next()
	}
}

func parseViewerToken(raw string, key []byte) (*models.ViewerClaims, error) {
	claims := &models.ViewerClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token expired")
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	if !token.Valid || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

// ViewerFromContext returns the viewer resolved for the request.
func ViewerFromContext(c *gin.Context) (models.Viewer, bool) {
	value, exists := c.Get(ContextViewerKey)
	if !exists {
		return models.Viewer{}, false
	}
	viewer, ok := value.(models.Viewer)
	return viewer, ok
}
