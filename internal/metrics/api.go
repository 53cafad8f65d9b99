// Exposes the metrics endpoints of Tracker.

package metrics

import (
	"Tracker/internal/errors"
	"Tracker/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registers the prometheus scrape endpoint and the cluster session summary onto the gin server.
func APIHandlers(router *gin.Engine, service Service, gatherer prometheus.Gatherer, logger log.Logger) {
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/api/metrics/sessions", clustersessions(service, logger))
}

func clustersessions(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		cluster, err := service.GetClusterSessions(gctx)
		if err != nil {
			gctx.JSON(errors.StatusOf(err), err)
			return
		}
		gctx.JSON(http.StatusOK, cluster)
	}
}
