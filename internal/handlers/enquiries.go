package handlers

import (
	"bytes"
	"net/http"
	"time"

	"listing-portal/internal/apperr"
	"listing-portal/internal/enquiry"
	"listing-portal/internal/export"
	"listing-portal/internal/listing"
	"listing-portal/internal/middleware"
	"listing-portal/internal/models"

	"github.com/gin-gonic/gin"
)

// EnquiryHandler serves lead capture and the admin inbox
type EnquiryHandler struct {
	enquiries *enquiry.Service
	listings  *listing.Service
}

func NewEnquiryHandler(enquiries *enquiry.Service, listings *listing.Service) *EnquiryHandler {
	return &EnquiryHandler{enquiries: enquiries, listings: listings}
}

// Create stores a public enquiry
func (h *EnquiryHandler) Create(c *gin.Context) {
	var in enquiry.Input
	if !bindJSON(c, &in) {
		return
	}
	e, err := h.enquiries.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// List returns enquiries newest first, optionally by status
func (h *EnquiryHandler) List(c *gin.Context) {
	items, err := h.enquiries.List(c.Request.Context(), models.EnquiryStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// Get returns one enquiry
func (h *EnquiryHandler) Get(c *gin.Context) {
	e, err := h.enquiries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// SetStatus advances an enquiry
func (h *EnquiryHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	actor, _ := middleware.PrincipalFrom(c)
	e, err := h.enquiries.SetStatus(c.Request.Context(), actor, c.Param("id"), models.EnquiryStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// Delete removes an enquiry
func (h *EnquiryHandler) Delete(c *gin.Context) {
	actor, _ := middleware.PrincipalFrom(c)
	if err := h.enquiries.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "enquiry deleted"})
}

// Export downloads enquiries as an XLSX workbook
func (h *EnquiryHandler) Export(c *gin.Context) {
	ctx := c.Request.Context()
	items, err := h.enquiries.List(ctx, models.EnquiryStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}

	titles := make(map[string]string)
	for _, e := range items {
		if e.PropertyID == nil {
			continue
		}
		id := *e.PropertyID
		if _, seen := titles[id]; seen {
			continue
		}
		p, err := h.listings.Get(ctx, id)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				continue
			}
			respondError(c, err)
			return
		}
		titles[id] = p.Title
	}

	var buf bytes.Buffer
	if err := export.WriteEnquiries(&buf, items, titles); err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	filename := export.EnquiryFilename(time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, export.XLSXContentType, buf.Bytes())
}
