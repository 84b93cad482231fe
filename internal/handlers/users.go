package handlers

import (
	"net/http"

	"listing-portal/internal/account"
	"listing-portal/internal/middleware"
	"listing-portal/internal/models"

	"github.com/gin-gonic/gin"
)

// UserHandler serves admin account management
type UserHandler struct {
	accounts *account.Service
}

func NewUserHandler(accounts *account.Service) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// List returns every account
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.accounts.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": users, "count": len(users)})
}

// Get returns one account
func (h *UserHandler) Get(c *gin.Context) {
	a, err := h.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// SetStatus blocks or reactivates an account
func (h *UserHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	actor, _ := middleware.PrincipalFrom(c)
	a, err := h.accounts.SetStatus(c.Request.Context(), actor, c.Param("id"), models.AccountStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// Delete removes an account other than the caller's
func (h *UserHandler) Delete(c *gin.Context) {
	actor, _ := middleware.PrincipalFrom(c)
	if err := h.accounts.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
