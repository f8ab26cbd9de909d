package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

const healthTimeout = 2 * time.Second

// NewRouter builds the gin engine with all routes mounted. gatherer backs
// /metrics; nil falls back to the default registry.
func NewRouter(contents *ContentHandler, checks map[string]HealthCheck, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", healthHandler(checks))
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	v1.POST("/contents/:id/enrich", contents.Enrich)
	v1.GET("/contents/:id/status", contents.Status)

	return router
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		deps := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "dependencies": deps})
	}
}
