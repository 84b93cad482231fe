package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"listing-portal/internal/apperr"
	"listing-portal/internal/auth"
	"listing-portal/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuthenticator map[string]auth.Principal

func (f fakeAuthenticator) Authenticate(_ context.Context, token string) (auth.Principal, error) {
	p, ok := f[token]
	if !ok {
		return auth.Principal{}, apperr.Unauthorized("invalid_or_expired")
	}
	return p, nil
}

func newRouter() *gin.Engine {
	authn := fakeAuthenticator{
		"user-token":  {AccountID: "u1", Role: auth.RoleUser},
		"admin-token": {AccountID: "a1", Role: auth.RoleAdmin},
	}
	m := NewAuthMiddleware(authn, "token")

	r := gin.New()
	r.Use(RequestID(), Recovery(logging.Discard()))
	r.GET("/me", m.RequireAuthenticated(), func(c *gin.Context) {
		p, _ := PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": p.AccountID})
	})
	r.GET("/admin", m.RequireRole(auth.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorKind(t *testing.T, w *httptest.ResponseRecorder) apperr.Kind {
	t.Helper()
	var body struct {
		Error apperr.Payload `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Kind
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func TestRequireAuthenticated(t *testing.T) {
	r := newRouter()

	w := do(r, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperr.KindUnauthorized, errorKind(t, w))

	w = do(r, "/me", bearer("garbage"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/me", bearer("user-token"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u1"}`, w.Body.String())

	w = do(r, "/me", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "token", Value: "user-token"})
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole_AuthenticationComesFirst(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusUnauthorized, do(r, "/admin", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/admin", bearer("garbage")).Code)

	w := do(r, "/admin", bearer("user-token"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperr.KindForbidden, errorKind(t, w))

	assert.Equal(t, http.StatusNoContent, do(r, "/admin", bearer("admin-token")).Code)
}

func TestRequestIDAndRecovery(t *testing.T) {
	r := newRouter()

	w := do(r, "/me", func(req *http.Request) { req.Header.Set(RequestIDHeader, "abc") })
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))

	w = do(r, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, apperr.KindInternal, errorKind(t, w))
	assert.NotContains(t, w.Body.String(), "boom")
}
