// Exposes the websocket endpoint of Tracker.

package session

import (
	"Tracker/internal/errors"
	"Tracker/pkg/log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
)

// Registers the websocket handlers of internal package session onto the gin server.
// corsOrigin restricts the Origin of upgrade requests, "*" allows all.
func APIHandlers(router *gin.Engine, service Service, corsOrigin string, logger log.Logger) {
	handler := wshandler(service, acceptOptions(corsOrigin), logger)
	wsGroup := router.Group("/ws/project")
	{
		wsGroup.GET("/:project_id", handler)
		wsGroup.GET("/:project_id/", handler)
	}
}

// Registers the service-key guarded handlers of internal package session onto the gin server.
func InternalAPIHandlers(router *gin.Engine, service Service, serviceKeyAuth gin.HandlerFunc, logger log.Logger) {
	internalGroup := router.Group("/api/internal", serviceKeyAuth)
	{
		internalGroup.GET("/groups", getGroups(service, logger))
	}
}

// getGroups returns a handler which lists the groups served by this instance.
func getGroups(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		groups := service.Groups()
		logger.WithCtx(gctx).Debug().Int("groups", len(groups)).Msg("Groups listed")
		gctx.JSON(http.StatusOK, gin.H{
			"groups":   groups,
			"sessions": service.Len(),
		})
	}
}

func wshandler(service Service, opts *websocket.AcceptOptions, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		sess, err := service.Open(gctx, gctx.Param("project_id"), gctx.Query("token"))
		if err != nil {
			// Same answer for every rejection, the reason is only logged
			gctx.AbortWithStatusJSON(http.StatusForbidden, errors.Forbidden(""))
			return
		}
		conn, err := websocket.Accept(gctx.Writer, gctx.Request, opts)
		if err != nil {
			// Accept already answered the client
			logger.WithCtx(gctx).Warn().Err(err).Msg("Websocket upgrade failed")
			service.Abort(sess, err)
			return
		}
		service.Serve(sess, NewConn(conn, service.Options().MaxMessageBytes))
	}
}
