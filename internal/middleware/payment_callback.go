package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	appErrors "github.com/noah-isme/aulao-api/pkg/errors"
	"github.com/noah-isme/aulao-api/pkg/response"
)

// PaymentCallback authenticates provider settlement callbacks. The caller sends
// an HS256 bearer token signed with the callback secret whose subject is the
// payment id in the path. An empty secret rejects every callback.
func PaymentCallback(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		if len(key) == 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "payment callbacks are disabled"))
			return
		}

		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing callback signature"))
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid callback signature"))
			return
		}
		if claims.Subject != c.Param("id") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "callback signature does not match payment"))
			return
		}
		c.Next()
	}
}
