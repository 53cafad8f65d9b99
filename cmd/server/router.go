// List of all REST API endpoints being used by Tracker can be found here.

package main

import (
	"Tracker/internal/access"
	"Tracker/internal/config"
	"Tracker/internal/metrics"
	"Tracker/internal/notify"
	"Tracker/internal/presence"
	"Tracker/internal/session"
	"Tracker/internal/user"
	"Tracker/pkg/globalcontext"
	"Tracker/pkg/log"
	"Tracker/pkg/middlewares"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type routerServices struct {
	session  session.Service
	notify   notify.Service
	metrics  metrics.Service
	user     user.Service
	access   access.Service
	presence presence.Service
}

func Router(router *gin.Engine, cfg config.Config, services routerServices, gatherer prometheus.Gatherer, logger log.Logger) {
	router.Use(gin.Recovery())
	router.Use(globalcontext.UniqueIDMiddleware(logger))
	router.Use(middlewares.CorrelationMiddleware())
	router.Use(middlewares.CORSMiddleware(cfg.CORSOrigin))
	// Forcing gin to use custom Logger instead of the default one.
	router.Use(log.LoggerGinExtension(logger))

	// This is the route to default path
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to Tracker!")
	})

	session.APIHandlers(router, services.session, cfg.CORSOrigin, logger)
	metrics.APIHandlers(router, services.metrics, gatherer, logger)

	// Endpoints for the CRUD layer only exist once it has a key to present
	if cfg.ServiceKey == "" {
		logger.Warn().Msg("SERVICE_KEY is empty, internal endpoints are disabled.")
		return
	}
	serviceKeyAuth := middlewares.ServiceKeyMiddleware(cfg.ServiceKey, logger)
	notify.APIHandlers(router, services.notify, serviceKeyAuth, logger)
	user.APIHandlers(router, services.user, serviceKeyAuth, logger)
	access.APIHandlers(router, services.access, serviceKeyAuth, logger)
	presence.APIHandlers(router, services.presence, serviceKeyAuth, logger)
	session.InternalAPIHandlers(router, services.session, serviceKeyAuth, logger)
}
