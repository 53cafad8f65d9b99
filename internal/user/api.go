// Exposes the internal REST APIs the CRUD layer uses to mirror users into Tracker.

package user

import (
	"Tracker/internal/entity"
	"Tracker/internal/errors"
	"Tracker/pkg/log"
	"Tracker/pkg/validations"
	"net/http"
	"strconv"

	"github.com/asaskevich/govalidator"
	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package user onto the gin server.
func APIHandlers(router *gin.Engine, service Service, serviceKeyAuth gin.HandlerFunc, logger log.Logger) {
	userGroup := router.Group("/api/internal/users", serviceKeyAuth)
	{
		userGroup.PUT("/:user_id", saveUser(service, logger))
		userGroup.DELETE("/:user_id", deleteUser(service, logger))
	}
}

// saveUser returns a handler which creates or renames a user in the directory.
func saveUser(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var req entity.SaveUserRequest

		// Serialize received data into SaveUserRequest struct
		if binderr := gctx.ShouldBindJSON(&req); binderr != nil {
			// Error occured during serialization
			logger.WithCtx(gctx).Error().Err(binderr).Msg("Binding error occured with SaveUserRequest struct.")
			gctx.JSON(http.StatusUnprocessableEntity, errors.UnprocessableEntity(""))
			return
		}
		req.UserID = gctx.Param("user_id")

		if _, valerr := govalidator.ValidateStruct(req); valerr != nil {
			validationErrors := valerr.(govalidator.Errors).Errors()
			gctx.JSON(http.StatusBadRequest, errors.GenerateValidationErrorResponse(validationErrors))
			return
		}
		// dbid already guarantees a positive int64
		id, _ := strconv.ParseInt(req.UserID, 10, 64)
		if err := service.Save(gctx, entity.User{ID: id, Username: req.Username}); err != nil {
			gctx.JSON(errors.StatusOf(err), err)
			return
		}
		gctx.Status(http.StatusNoContent)
	}
}

// deleteUser returns a handler which removes a user from the directory.
func deleteUser(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		id, ok := userIDParam(gctx)
		if !ok {
			gctx.JSON(http.StatusBadRequest, errors.BadRequest("user_id: must be a positive integer"))
			return
		}
		if err := service.Delete(gctx, id); err != nil {
			gctx.JSON(errors.StatusOf(err), err)
			return
		}
		gctx.Status(http.StatusNoContent)
	}
}

func userIDParam(gctx *gin.Context) (entity.UserID, bool) {
	raw := gctx.Param("user_id")
	if !validations.IsDatabaseID(raw) {
		return 0, false
	}
	id, _ := strconv.ParseInt(raw, 10, 64)
	return entity.UserID(id), true
}
