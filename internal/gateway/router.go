package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eduvoyage/admin-gateway/internal/auth"
	"github.com/eduvoyage/admin-gateway/internal/engine"
	"github.com/eduvoyage/admin-gateway/internal/metrics"
	"github.com/eduvoyage/admin-gateway/internal/middleware"
	"github.com/eduvoyage/admin-gateway/internal/notify"
	"github.com/eduvoyage/admin-gateway/pkg/config"
	appErrors "github.com/eduvoyage/admin-gateway/pkg/errors"
	"github.com/eduvoyage/admin-gateway/pkg/logger"
	"github.com/eduvoyage/admin-gateway/pkg/middleware/cors"
	"github.com/eduvoyage/admin-gateway/pkg/middleware/requestid"
	"github.com/eduvoyage/admin-gateway/pkg/response"
	"github.com/eduvoyage/admin-gateway/pkg/storage"
)

// Deps bundles everything the local surface serves.
type Deps struct {
	Config     *config.Config
	Logger     *zap.Logger
	Supervisor *engine.Supervisor
	Auth       *auth.Service
	Notifier   *notify.Notifier
	Collector  *metrics.Collector
	// Archive and Signer enable the export share flow when both are set.
	Archive *storage.Archive
	Signer  *storage.ShareSigner
	// Ready reports whether the gateway can accept triggers. nil means
	// always ready.
	Ready func() error
}

// NewRouter assembles the gin engine for the local surface.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(cors.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Collector))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if deps.Ready != nil {
			if err := deps.Ready(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(deps.Collector.Handler()))

	triggers := NewTriggerHandler(deps.Supervisor, deps.Collector)
	states := NewStateHandler(deps.Supervisor)
	notifications := NewNotificationHandler(deps.Notifier)
	authHandler := NewAuthHandler(deps.Auth)

	api := r.Group(deps.Config.APIPrefix)
	{
		api.GET("/entities", triggers.Entities)
		api.POST("/triggers/:entity/:op", triggers.Dispatch)
		api.GET("/state", states.List)
		api.GET("/state/:entity", states.Get)
		api.GET("/notifications", notifications.Recent)

		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/auth/me", authHandler.Me)

		if deps.Config.Exports.Enabled {
			exports := NewExportHandler(deps.Supervisor, deps.Config.Exports.Title, deps.Archive, deps.Signer)
			api.GET("/exports/:file", exports.Download)
			api.GET("/shared/:token", exports.Shared)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})

	return r
}
