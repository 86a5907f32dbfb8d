package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/models"
)

// Context keys set by AuthMiddleware
const (
	IdentityKey = "identity"
	UserIDKey   = "userId"
	RoleKey     = "role"
)

// accessTokenCookie is accepted when no Authorization header is sent
const accessTokenCookie = "access_token"

// TokenValidator resolves a bearer token into the caller identity
type TokenValidator interface {
	ValidateToken(token string) (models.Identity, error)
}

// AuthMiddleware authenticates the request and stores the caller identity
// in the gin context
func AuthMiddleware(validator TokenValidator, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortWithError(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		identity, err := validator.ValidateToken(token)
		if err != nil {
			log.FromContext(c.Request.Context()).
				WithField("path", c.Request.URL.Path).
				WithError(err).
				Debug("rejected bearer token")
			abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(IdentityKey, identity)
		c.Set(UserIDKey, identity.UserID)
		c.Set(RoleKey, string(identity.Role))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if cookie, err := c.Cookie(accessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

// IdentityFrom returns the identity stored by AuthMiddleware
func IdentityFrom(c *gin.Context) (models.Identity, bool) {
	value, exists := c.Get(IdentityKey)
	if !exists {
		return models.Identity{}, false
	}
	identity, ok := value.(models.Identity)
	return identity, ok
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"status":        "error",
		"message":       message,
		"correlationId": logger.CorrelationID(c.Request.Context()),
	})
}
