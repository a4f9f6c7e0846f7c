// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ciclismo-epn/club-backend/internal/i18n"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

// bearerClaims extracts and validates the bearer token. ok is false when
// the header is absent; err is set when it is present but unusable.
func bearerClaims(c *gin.Context) (*utils.JWTClaims, bool, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, false, nil
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, true, errMalformedHeader
	}

	claims, err := utils.ValidateJWT(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, true, err
	}
	return claims, true, nil
}

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		claims, present, err := bearerClaims(c)
		switch {
		case !present:
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthRequired))
			c.Abort()
			return
		case err == errMalformedHeader:
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		case err != nil:
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthTokenExpired))
			c.Abort()
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := CurrentIdentity(c); !ok || !id.IsAdmin() {
			utils.ForbiddenResponse(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is sent and
// otherwise lets the request through anonymously.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, _, err := bearerClaims(c); err == nil && claims != nil {
			setIdentity(c, claims)
		}
		c.Next()
	}
}
