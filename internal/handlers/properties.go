package handlers

import (
	"net/http"
	"strings"

	"listing-portal/internal/listing"
	"listing-portal/internal/middleware"
	"listing-portal/internal/models"

	"github.com/gin-gonic/gin"
)

// PropertyHandler serves listing routes
type PropertyHandler struct {
	listings *listing.Service
}

func NewPropertyHandler(listings *listing.Service) *PropertyHandler {
	return &PropertyHandler{listings: listings}
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// filterFromQuery reads the listing filters shared by the list routes.
func filterFromQuery(c *gin.Context) (listing.Filter, error) {
	f := listing.Filter{
		City:  c.Query("city"),
		Type:  c.Query("type"),
		Query: strings.TrimSpace(c.Query("q")),
	}
	var err error
	if f.MinPrice, err = queryFloat(c, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryFloat(c, "max_price"); err != nil {
		return f, err
	}
	if f.Premium, err = queryBool(c, "premium"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(c, "limit", 20); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(c, "offset", 0); err != nil {
		return f, err
	}
	return f, nil
}

// List returns approved listings. A status parameter is ignored.
func (h *PropertyHandler) List(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.listings.ListPublic(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Search runs a full-text query over approved listings
func (h *PropertyHandler) Search(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.listings.Search(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListByCity returns approved listings in one city
func (h *PropertyHandler) ListByCity(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	f.City = c.Param("city")
	page, err := h.listings.ListPublic(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetBySlug returns one approved listing
func (h *PropertyHandler) GetBySlug(c *gin.Context) {
	p, err := h.listings.GetPublic(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListMine returns the caller's own listings in any state
func (h *PropertyHandler) ListMine(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	actor, _ := middleware.PrincipalFrom(c)
	page, err := h.listings.ListMine(c.Request.Context(), actor, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListAll returns every listing, optionally filtered by status
func (h *PropertyHandler) ListAll(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	f.Status = models.PropertyStatus(c.Query("status"))
	page, err := h.listings.ListAll(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetByID returns any listing to an admin
func (h *PropertyHandler) GetByID(c *gin.Context) {
	p, err := h.listings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// History returns the change trail of a listing
func (h *PropertyHandler) History(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		respondError(c, err)
		return
	}
	id := c.Param("id")
	changes, err := h.listings.History(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"property_id": id,
		"changes":     changes,
		"count":       len(changes),
	})
}

// Create stores a new listing; non-admins always get a draft
func (h *PropertyHandler) Create(c *gin.Context) {
	var in listing.Input
	if !bindJSON(c, &in) {
		return
	}
	actor, _ := middleware.PrincipalFrom(c)
	p, err := h.listings.Create(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Update applies an admin edit
func (h *PropertyHandler) Update(c *gin.Context) {
	var patch listing.Patch
	if !bindJSON(c, &patch) {
		return
	}
	actor, _ := middleware.PrincipalFrom(c)
	p, err := h.listings.Update(c.Request.Context(), actor, c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SetStatus moves a listing to another moderation state
func (h *PropertyHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	actor, _ := middleware.PrincipalFrom(c)
	p, err := h.listings.SetStatus(c.Request.Context(), actor, c.Param("id"), models.PropertyStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Submit sends the caller's listing for review
func (h *PropertyHandler) Submit(c *gin.Context) {
	actor, _ := middleware.PrincipalFrom(c)
	p, err := h.listings.Submit(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Delete removes a listing
func (h *PropertyHandler) Delete(c *gin.Context) {
	actor, _ := middleware.PrincipalFrom(c)
	if err := h.listings.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "listing deleted"})
}
