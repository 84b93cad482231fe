// Package middleware holds the gin middleware shared by every route group:
// authentication, role checks, request ids, access logs and panic recovery.
package middleware

import (
	"listing-portal/internal/apperr"

	"github.com/gin-gonic/gin"
)

const devModeKey = "dev_mode"

// DevMode marks requests so error responses include internal detail.
func DevMode(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(devModeKey, enabled)
		c.Next()
	}
}

// AbortWithError writes err as {"error": {...}} with the status of its kind
// and stops the handler chain. Errors that are not *apperr.Error become
// internal errors; their detail is only shown in dev mode.
func AbortWithError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(appErr.Kind), gin.H{
		"error": appErr.Payload(c.GetBool(devModeKey)),
	})
}
