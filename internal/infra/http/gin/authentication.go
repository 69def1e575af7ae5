package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	domainuser "paperhub/internal/domain/user"
)

const principalContextKey = "paperhub.principal"

type principal struct {
	ID    string
	Name  string
	Email string
	Role  string
}

func (p principal) IsAdmin() bool {
	return p.Role == string(domainuser.RoleAdmin)
}

// TokenVerifier validates a signed session token.
type TokenVerifier interface {
	Verify(token string) (userID, name string, err error)
}

// AuthMiddleware resolves the bearer token into a principal. Requests
// without a valid token pass through unauthenticated; handlers that
// need identity call requireUser.
type AuthMiddleware struct {
	Tokens TokenVerifier
	Users  domainuser.Repository
	Logger *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Tokens == nil {
		c.Next()
		return
	}
	userID, name, err := m.Tokens.Verify(token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	p := principal{ID: userID, Name: name}
	if m.Users != nil {
		if user, err := m.Users.ByID(c.Request.Context(), domainuser.ID(userID)); err == nil {
			p.Name = user.Name
			p.Email = user.Email
			p.Role = string(user.Role)
		} else if errors.Is(err, domainuser.ErrNotFound) {
			// Token refers to a deleted account; stay unauthenticated.
			c.Next()
			return
		}
	}
	setPrincipal(c, p)
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireUser(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "auth required"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
