package handlers

import (
	"net/http"

	"listing-portal/internal/middleware"
	"listing-portal/internal/page"

	"github.com/gin-gonic/gin"
)

// PageHandler serves content pages
type PageHandler struct {
	pages *page.Service
}

func NewPageHandler(pages *page.Service) *PageHandler {
	return &PageHandler{pages: pages}
}

// Get returns a page by slug
func (h *PageHandler) Get(c *gin.Context) {
	p, err := h.pages.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// List returns every page
func (h *PageHandler) List(c *gin.Context) {
	pages, err := h.pages.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": pages, "count": len(pages)})
}

// Upsert creates or replaces the page at the slug in the path
func (h *PageHandler) Upsert(c *gin.Context) {
	var in page.Input
	if !bindJSON(c, &in) {
		return
	}
	actor, _ := middleware.PrincipalFrom(c)
	p, err := h.pages.Upsert(c.Request.Context(), actor, c.Param("slug"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Create stores a new page; an existing slug is a conflict
func (h *PageHandler) Create(c *gin.Context) {
	var in page.Input
	if !bindJSON(c, &in) {
		return
	}
	actor, _ := middleware.PrincipalFrom(c)
	p, err := h.pages.Create(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Update edits a page by id
func (h *PageHandler) Update(c *gin.Context) {
	var patch page.Patch
	if !bindJSON(c, &patch) {
		return
	}
	actor, _ := middleware.PrincipalFrom(c)
	p, err := h.pages.Update(c.Request.Context(), actor, c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Delete removes a page by id
func (h *PageHandler) Delete(c *gin.Context) {
	actor, _ := middleware.PrincipalFrom(c)
	if err := h.pages.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "page deleted"})
}
