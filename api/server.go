// Package api exposes search, import and catalogue management over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/pricescout/analytics"
	"github.com/aluiziolira/pricescout/cache"
	"github.com/aluiziolira/pricescout/metrics"
	"github.com/aluiziolira/pricescout/pipeline"
	"github.com/aluiziolira/pricescout/pricing"
	"github.com/aluiziolira/pricescout/storage"
)

// Services are the components the handlers operate on.
type Services struct {
	Store    *storage.ProductStore
	Cache    *cache.PriceCache
	History  *cache.History
	Tracker  *analytics.Tracker
	Resolver *pricing.Resolver
	Ingester *pipeline.Ingester
	Metrics  *metrics.Metrics
}

// Options tune the router.
type Options struct {
	// CORSOrigin is the front-end origin allowed to call the API. Empty
	// disables CORS handling.
	CORSOrigin string
	// MetricsEnabled mounts GET /metrics when Services.Metrics is set.
	MetricsEnabled bool
}

type handler struct {
	Services
}

// NewRouter wires every route under /api/v1 plus /health and /metrics.
func NewRouter(svc Services, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	if opts.CORSOrigin != "" {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     []string{opts.CORSOrigin},
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.MetricsEnabled && svc.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(svc.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	h := &handler{Services: svc}
	v1 := router.Group("/api/v1")
	{
		v1.GET("/search", h.search)

		v1.POST("/import/text", h.importText)
		v1.POST("/import/json", h.importJSON)
		v1.POST("/import/csv", h.importCSV)
		v1.POST("/sample", h.loadSample)

		v1.GET("/products", h.listProducts)
		v1.DELETE("/products", h.clearProducts)
		v1.GET("/export", h.export)
		v1.GET("/stats", h.stats)

		v1.GET("/history", h.history)
		v1.DELETE("/cache", h.clearCache)
		v1.POST("/cache/purge", h.purgeCache)

		v1.GET("/analytics", h.analytics)
		v1.GET("/analytics/export", h.exportAnalytics)
		v1.DELETE("/analytics", h.clearAnalytics)
	}

	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("error", c.Errors.String()))
			slog.Error("request failed", attrs...)
			return
		}
		slog.Debug("request served", attrs...)
	}
}
