package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aulao-api/internal/middleware"
	"github.com/noah-isme/aulao-api/internal/models"
	appErrors "github.com/noah-isme/aulao-api/pkg/errors"
)

func viewerFromContext(c *gin.Context) models.Viewer {
	viewer, _ := middleware.ViewerFromContext(c)
	return viewer
}

// referenceTime reads the optional "at" query parameter used to evaluate access at a given instant.
func referenceTime(c *gin.Context) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query("at"))
	if raw == "" {
		return nil, nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at must be an RFC3339 timestamp")
	}
	return &at, nil
}
