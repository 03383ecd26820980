// Package router wires the HTTP routes of the admin service.
package router

import (
	"slices"
	"time"

	"admin-service/handler"
	"admin-service/logger"
	"admin-service/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	serviceName     = "admin-service"
	rateLimiterIdle = 10 * time.Minute
)

// Deps holds everything the routes need.
type Deps struct {
	Auth    middleware.Authenticator
	Handler Handlers
	Log     logger.Logger

	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	// Done stops background goroutines owned by the middleware.
	Done <-chan struct{}
}

type Handlers struct {
	Auth    *handler.AuthHandler
	Admin   *handler.AdminHandler
	Appeals *handler.AppealHandler
	Export  *handler.ExportHandler
	Health  *handler.HealthHandler
}

func Setup(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.LoggerMiddleware(d.Log))
	r.Use(middleware.PrometheusMiddleware(serviceName))

	// CORS middleware
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	h := d.Handler
	protect := middleware.Protect(d.Auth)
	admin := middleware.IsAdmin()
	limited := middleware.RateLimiter(d.RateLimitRPS, d.RateLimitBurst, rateLimiterIdle, d.Done)

	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", limited, h.Auth.Signup)
		auth.POST("/admin/signup", limited, h.Auth.AdminSignup)
		auth.POST("/login", limited, h.Auth.Login)
		auth.GET("/logout", h.Auth.Logout)
		auth.GET("/me", protect, h.Auth.Me)
	}

	adm := r.Group("/api/admin", protect, admin)
	{
		adm.GET("/stats", h.Admin.Stats)
		adm.GET("/cloudinary/stats", h.Admin.CloudinaryStats)

		adm.GET("/users", h.Admin.ListUsers)
		adm.GET("/users/:id", h.Admin.GetUser)
		adm.PUT("/users/:id", h.Admin.UpdateUser)
		adm.PUT("/users/:id/status", h.Admin.UpdateUserStatus)
		adm.DELETE("/users/:id", h.Admin.DeleteUser)

		adm.GET("/posts", h.Admin.ListPosts)
		adm.GET("/posts/flagged", h.Admin.ListFlaggedPosts)
		adm.PUT("/posts/:id/moderate", h.Admin.ModeratePost)

		adm.GET("/export/posts", h.Export.Posts)
		adm.GET("/export/memes", h.Export.Memes)
		// Paths used by existing dashboard clients
		adm.GET("/posts/download", h.Export.Posts)
		adm.GET("/download-memes", h.Export.Memes)
	}

	appeals := r.Group("/api/appeals")
	{
		appeals.POST("/submit", limited, h.Appeals.Submit)
		appeals.GET("/check/:username", limited, h.Appeals.Check)
		appeals.GET("", protect, admin, h.Appeals.List)
		appeals.GET("/count", protect, admin, h.Appeals.Count)
		appeals.PUT("/:id", protect, admin, h.Appeals.Review)
	}

	// Health check endpoints
	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// corsConfig reflects the request origin when every origin is allowed so
// the session cookie can still be sent with credentials.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
