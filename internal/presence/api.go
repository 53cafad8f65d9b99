// Exposes the internal REST API which lists the users typing on a bug.

package presence

import (
	"Tracker/internal/entity"
	"Tracker/internal/errors"
	"Tracker/pkg/log"
	"Tracker/pkg/validations"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package presence onto the gin server.
func APIHandlers(router *gin.Engine, service Service, serviceKeyAuth gin.HandlerFunc, logger log.Logger) {
	bugGroup := router.Group("/api/internal/bugs", serviceKeyAuth)
	{
		bugGroup.GET("/:bug_id/typing", getTyping(service, logger))
	}
}

// getTyping returns a handler which lists the typing entries of a bug.
func getTyping(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		rawID := gctx.Param("bug_id")
		if !validations.IsDatabaseID(rawID) {
			gctx.JSON(http.StatusBadRequest, errors.BadRequest("bug_id: must be a positive integer"))
			return
		}
		bugID, _ := strconv.ParseInt(rawID, 10, 64)
		typing, err := service.Typing(gctx, entity.BugID(bugID))
		if err != nil {
			gctx.JSON(errors.StatusOf(err), err)
			return
		}
		logger.WithCtx(gctx).Debug().Str("bug", rawID).Int("typing", len(typing)).Msg("Typing entries listed")
		gctx.JSON(http.StatusOK, gin.H{"typing": typing})
	}
}
