package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"fleet-report-builder/config"
	"fleet-report-builder/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, cfg config.ServerConfig, limiter *mw.IPRateLimiter, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(log))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	caching := mw.Cache(cache.New(ttl, 2*ttl), ttl)

	r.GET("/api/health", handler.Health)

	api := r.Group("/api")
	api.Use(mw.RateLimit(limiter), mw.Principal())
	{
		api.GET("/report-types", caching, handler.GetReportTypes)
		api.GET("/vapid_public_key", caching, handler.GetVAPIDPublicKey)
		api.GET("/submissions", handler.GetSubmissions)

		api.POST("/wizards", handler.CreateWizard)
		api.GET("/wizards/:id", handler.GetWizard)
		api.DELETE("/wizards/:id", handler.DeleteWizard)
		api.POST("/wizards/:id/create", handler.CreateReport())
		api.POST("/wizards/:id/select-type", handler.SelectType())
		api.POST("/wizards/:id/back", handler.Back())
		api.POST("/wizards/:id/open-report", handler.OpenReport())
		api.POST("/wizards/:id/close-viewer", handler.CloseViewer())
		api.POST("/wizards/:id/download", handler.Download)
		api.POST("/wizards/:id/submit", handler.Submit)
		api.POST("/wizards/:id/reload", handler.Reload())
		api.GET("/wizards/:id/objects", handler.Objects)
		api.POST("/wizards/:id/selection", handler.Selection())
		api.PUT("/wizards/:id/settings", handler.UpdateSettings)
		api.GET("/wizards/:id/reports", handler.Reports)

		api.GET("/artifacts/:id", handler.GetArtifact)
		api.DELETE("/artifacts/:id", handler.DeleteArtifact)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AddAllowHeaders(mw.SessionKeyHeader, mw.UserIDHeader)
	cfg.AddExposeHeaders("Content-Disposition", mw.CacheHeader)
	return cfg
}
