package handlers

import (
	"context"
	"net/http"
	"time"

	"listing-portal/internal/account"
	"listing-portal/internal/apperr"
	"listing-portal/internal/auth"
	"listing-portal/internal/breaker"
	"listing-portal/internal/cleanup"
	"listing-portal/internal/config"
	"listing-portal/internal/enquiry"
	"listing-portal/internal/listing"
	"listing-portal/internal/logging"
	"listing-portal/internal/middleware"
	"listing-portal/internal/page"
	"listing-portal/internal/ratelimit"
	"listing-portal/internal/scheduler"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Store is what the router needs from the record store directly
type Store interface {
	StatsStore
	Ping(ctx context.Context) error
}

// Deps carries everything NewRouter wires together. Uploader, Scheduler,
// Worker and Breakers may be nil.
type Deps struct {
	Config    *config.Config
	Log       logging.Logger
	Store     Store
	Accounts  *account.Service
	Listings  *listing.Service
	Enquiries *enquiry.Service
	Pages     *page.Service
	Cleanup   *cleanup.Service
	Uploader  Uploader
	Scheduler *scheduler.Scheduler
	Worker    *scheduler.QueueWorker
	Breakers  []*breaker.CircuitBreaker
}

const uploadsPath = "/api/uploads"

// limitBody caps request bodies. Uploads get room for a full batch.
func limitBody(jsonLimit, uploadLimit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := jsonLimit
		if c.FullPath() == uploadsPath {
			limit = uploadLimit
		}
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// NewRouter builds the HTTP API
func NewRouter(d Deps) *gin.Engine {
	useJSONFieldNames()
	cfg := d.Config

	r := gin.New()
	// Client IPs drive rate limiting, so forwarding headers are only honored
	// from configured proxies.
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		d.Log.Warn(context.Background(), "invalid trusted proxies, ignoring forwarding headers", "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(middleware.RequestID(), middleware.Recovery(d.Log), middleware.DevMode(cfg.Server.DevMode))
	if cfg.Logging.LogRequests {
		r.Use(middleware.Logger(d.Log))
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader, "Content-Disposition", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	uploadLimit := cfg.Storage.MaxFileBytes*int64(cfg.Storage.MaxFiles) + cfg.Server.MaxBodyBytes
	r.Use(limitBody(cfg.Server.MaxBodyBytes, uploadLimit))

	r.NoRoute(func(c *gin.Context) {
		respondError(c, apperr.NotFound("route not found"))
	})

	globalLimiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Enabled)
	authLimiter := ratelimit.PerMinute(cfg.RateLimit.AuthRequestsPerMinute, cfg.RateLimit.Enabled)
	strict := authLimiter.Middleware()

	authMW := middleware.NewAuthMiddleware(d.Accounts, cfg.Server.CookieName)
	authenticated := authMW.RequireAuthenticated()
	admin := authMW.RequireRole(auth.RoleAdmin)

	authHandler := NewAuthHandler(d.Accounts, cfg.Server.CookieName, cfg.Server.CookieSecure)
	propertyHandler := NewPropertyHandler(d.Listings)
	enquiryHandler := NewEnquiryHandler(d.Enquiries, d.Listings)
	pageHandler := NewPageHandler(d.Pages)
	userHandler := NewUserHandler(d.Accounts)
	uploadHandler := NewUploadHandler(d.Uploader)
	adminHandler := NewAdminHandler(d.Store, d.Cleanup, d.Scheduler, d.Worker, d.Breakers, d.Log)

	api := r.Group("/api")
	api.Use(globalLimiter.Middleware())

	api.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := d.Store.Ping(ctx); err != nil {
			d.Log.Warn(ctx, "health: store ping failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"time":   time.Now(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now(),
		})
	})

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", strict, authHandler.Signup)
		authGroup.POST("/login", strict, authHandler.Login)
		authGroup.POST("/admin/login", strict, authHandler.AdminLogin)
		authGroup.GET("/me", authenticated, authHandler.Me)
		authGroup.POST("/logout", authenticated, authHandler.Logout)
		authGroup.PUT("/password", authenticated, authHandler.ChangePassword)
	}

	properties := api.Group("/properties")
	{
		properties.GET("", propertyHandler.List)
		properties.GET("/search", propertyHandler.Search)
		properties.GET("/city/:city", propertyHandler.ListByCity)
		properties.GET("/mine", authenticated, propertyHandler.ListMine)
		properties.GET("/admin/all", admin, propertyHandler.ListAll)
		properties.GET("/admin/:id", admin, propertyHandler.GetByID)
		properties.GET("/admin/:id/history", admin, propertyHandler.History)
		properties.GET("/:slug", propertyHandler.GetBySlug)

		properties.POST("", authenticated, propertyHandler.Create)
		properties.POST("/:id/submit", authenticated, propertyHandler.Submit)
		properties.PUT("/:id", admin, propertyHandler.Update)
		properties.PATCH("/:id/status", admin, propertyHandler.SetStatus)
		properties.DELETE("/:id", admin, propertyHandler.Delete)
	}

	enquiries := api.Group("/enquiries")
	{
		enquiries.POST("", strict, enquiryHandler.Create)
		enquiries.GET("", admin, enquiryHandler.List)
		enquiries.GET("/export", admin, enquiryHandler.Export)
		enquiries.GET("/:id", admin, enquiryHandler.Get)
		enquiries.PATCH("/:id/status", admin, enquiryHandler.SetStatus)
		enquiries.DELETE("/:id", admin, enquiryHandler.Delete)
	}

	pages := api.Group("/pages")
	{
		pages.GET("", admin, pageHandler.List)
		pages.GET("/:slug", pageHandler.Get)
		pages.POST("", admin, pageHandler.Create)
		pages.PUT("/:slug", admin, pageHandler.Upsert)
		pages.PUT("/id/:id", admin, pageHandler.Update)
		pages.DELETE("/:id", admin, pageHandler.Delete)
	}

	users := api.Group("/users", admin)
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.PATCH("/:id/status", userHandler.SetStatus)
		users.DELETE("/:id", userHandler.Delete)
	}

	api.POST("/uploads", authenticated, uploadHandler.Upload)

	adminGroup := api.Group("/admin", admin)
	{
		adminGroup.GET("/stats", adminHandler.GetStats)
		adminGroup.GET("/system", adminHandler.GetSystemStatus)
		adminGroup.POST("/cleanup/run", adminHandler.RunCleanup)
		adminGroup.GET("/cleanup/logs", adminHandler.GetDeleteLogs)
		adminGroup.POST("/search/reindex", adminHandler.TriggerReindex)
		adminGroup.GET("/ratelimit/stats", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"global": globalLimiter.GetStats(),
				"auth":   authLimiter.GetStats(),
			})
		})
	}

	return r
}
