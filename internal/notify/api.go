// Exposes the internal REST API the CRUD layer uses to publish domain events.

package notify

import (
	"Tracker/internal/entity"
	"Tracker/internal/errors"
	"Tracker/pkg/log"
	"bytes"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package notify onto the gin server.
func APIHandlers(router *gin.Engine, service Service, serviceKeyAuth gin.HandlerFunc, logger log.Logger) {
	internalGroup := router.Group("/api/internal", serviceKeyAuth)
	{
		internalGroup.POST("/projects/:project_id/events", publishEvent(service, logger))
	}
}

// publishEvent returns a handler which fans a domain event out to a project's sessions.
func publishEvent(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var req entity.PublishRequest

		// Serialize received data into PublishRequest struct
		if binderr := gctx.ShouldBindJSON(&req); binderr != nil {
			// Error occured during serialization
			logger.WithCtx(gctx).Error().Err(binderr).Msg("Binding error occured with PublishRequest struct.")
			gctx.JSON(http.StatusUnprocessableEntity, errors.UnprocessableEntity(""))
			return
		}
		req.ProjectID = gctx.Param("project_id")

		if _, valerr := govalidator.ValidateStruct(req); valerr != nil {
			validationErrors := valerr.(govalidator.Errors).Errors()
			gctx.JSON(http.StatusBadRequest, errors.GenerateValidationErrorResponse(validationErrors))
			return
		}
		if len(bytes.TrimSpace(req.Payload)) == 0 {
			gctx.JSON(http.StatusBadRequest, errors.BadRequest("payload: required"))
			return
		}

		err := service.PublishDomainEvent(gctx, entity.GroupFor(req.ProjectID), entity.EventKind(req.Kind), req.Payload)
		switch {
		case err == nil:
			gctx.Status(http.StatusAccepted)
		case err == entity.ErrPayloadNotObject:
			gctx.JSON(http.StatusBadRequest, errors.BadRequest("payload: "+err.Error()))
		default:
			gctx.JSON(http.StatusInternalServerError, errors.InternalServerError(""))
		}
	}
}
