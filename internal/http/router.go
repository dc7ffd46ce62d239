package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/lettingworks/tenancy-admin/internal/config"
	"github.com/lettingworks/tenancy-admin/internal/http/handler"
	httpmiddleware "github.com/lettingworks/tenancy-admin/internal/http/middleware"
	"github.com/lettingworks/tenancy-admin/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, tenants *handler.TenantHandler, authMiddleware *httpmiddleware.Auth, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	started := time.Now()
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(started).Truncate(time.Second).String(),
		})
	})

	admin := r.Group("/admin")
	admin.Use(authMiddleware.RequireStaff)
	{
		admin.POST("/tenancies/:tenancy_id/tenants", tenants.Create)
		admin.PATCH("/tenants/:tenant_id", tenants.Update)
		admin.DELETE("/tenants/:tenant_id", tenants.Destroy)
	}

	return r
}
