// internal/middleware/identity.go
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

const identityKey = "identity"

// Identity is the caller resolved from a bearer token.
type Identity struct {
	UserID uint
	Email  string
	Role   models.UserRole
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.UserRoleAdmin
}

func setIdentity(c *gin.Context, claims *utils.JWTClaims) {
	c.Set(identityKey, Identity{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   models.UserRole(claims.Role),
	})
}

// CurrentIdentity returns the caller set by AuthRequired or OptionalAuth.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// CurrentUserID is CurrentIdentity reduced to the user id.
func CurrentUserID(c *gin.Context) (uint, bool) {
	id, ok := CurrentIdentity(c)
	return id.UserID, ok
}

// WithIdentity attaches an identity outside the token flow.
func WithIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}
