package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/finware/notify/internal/auth"
	"github.com/finware/notify/internal/handlers"
	"github.com/finware/notify/internal/middleware"
)

// Dependencies carries the wired components the router exposes.
type Dependencies struct {
	DB            *gorm.DB
	JWT           *auth.JWTService
	Notifications *handlers.NotificationHandler
	Intake        *handlers.IntakeHandler

	// IntakeToken guards /internal/events; empty disables the check.
	IntakeToken string

	MetricsEnabled bool
	MetricsPath    string
}

// NewRouter assembles the HTTP surface: the authenticated notification API,
// the internal event intake, and the operational endpoints.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	r.GET("/health", handlers.NewHealthHandler(deps.DB).Health)

	if deps.MetricsEnabled {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}

	registerNotificationRoutes(r, deps)
	registerIntakeRoutes(r, deps)

	return r
}

func registerNotificationRoutes(r *gin.Engine, deps Dependencies) {
	api := r.Group("/api", middleware.Auth(deps.JWT))

	notifications := api.Group("/notifications")
	notifications.GET("", deps.Notifications.List)
	notifications.PUT("/:id/read", deps.Notifications.MarkRead)
	notifications.GET("/count", deps.Notifications.Count)
	notifications.GET("/ws", deps.Notifications.Stream)
}

func registerIntakeRoutes(r *gin.Engine, deps Dependencies) {
	internal := r.Group("/internal/events", middleware.IntakeToken(deps.IntakeToken))
	internal.GET("", deps.Intake.Kinds)
	internal.POST("/:kind", deps.Intake.Receive)
}
