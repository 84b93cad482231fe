package handlers

import (
	"net/http"
	"time"

	"listing-portal/internal/account"
	"listing-portal/internal/middleware"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles signup, login and session requests
type AuthHandler struct {
	accounts     *account.Service
	cookieName   string
	cookieSecure bool
}

func NewAuthHandler(accounts *account.Service, cookieName string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{accounts: accounts, cookieName: cookieName, cookieSecure: cookieSecure}
}

type signupRequest struct {
	Name     string `json:"name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email,max=191"`
	Password string `json:"password" binding:"required,max=72"`
	Phone    string `json:"phone" binding:"omitempty,max=40"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,max=72"`
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, session *account.Session) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, session.Token, maxAge, "/", "", h.cookieSecure, true)
}

// Signup creates a user account and opens a session
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.accounts.Signup(c.Request.Context(), account.CreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.setSessionCookie(c, session)
	c.JSON(http.StatusCreated, session)
}

// Login verifies credentials and opens a session
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.setSessionCookie(c, session)
	c.JSON(http.StatusOK, session)
}

// AdminLogin is Login restricted to administrators
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.accounts.AdminLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.setSessionCookie(c, session)
	c.JSON(http.StatusOK, session)
}

// Me returns the caller's account
func (h *AuthHandler) Me(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)
	a, err := h.accounts.Get(c.Request.Context(), p.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": a})
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.cookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// ChangePassword replaces the caller's password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	p, _ := middleware.PrincipalFrom(c)
	if err := h.accounts.ChangePassword(c.Request.Context(), p.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
