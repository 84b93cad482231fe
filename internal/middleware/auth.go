package middleware

import (
	"context"
	"strings"

	"listing-portal/internal/apperr"
	"listing-portal/internal/auth"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// Authenticator resolves a session token into the caller's identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
}

// AuthMiddleware guards routes that need a signed-in caller.
type AuthMiddleware struct {
	authn      Authenticator
	cookieName string
}

func NewAuthMiddleware(authn Authenticator, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{authn: authn, cookieName: cookieName}
}

// RequireAuthenticated reads the token from the Authorization header, falling
// back to the session cookie, and attaches the principal to the request.
func (m *AuthMiddleware) RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}
		c.Next()
	}
}

// RequireRole admits only callers whose role is in roles. An unauthenticated
// caller gets 401 before any role is looked at.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			if !m.authenticate(c) {
				return
			}
			p, _ = PrincipalFrom(c)
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		AbortWithError(c, apperr.Forbidden("insufficient_role"))
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context) bool {
	token := m.tokenFrom(c)
	if token == "" {
		AbortWithError(c, apperr.Unauthorized("missing_token"))
		return false
	}
	p, err := m.authn.Authenticate(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return false
	}
	c.Set(principalKey, p)
	return true
}

func (m *AuthMiddleware) tokenFrom(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if m.cookieName == "" {
		return ""
	}
	cookie, err := c.Cookie(m.cookieName)
	if err != nil {
		return ""
	}
	return cookie
}

// PrincipalFrom returns the caller attached by RequireAuthenticated.
func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}
