// Exposes the internal REST APIs the CRUD layer uses to mirror projects and their members into Tracker.

package access

import (
	"Tracker/internal/entity"
	"Tracker/internal/errors"
	"Tracker/pkg/log"
	"net/http"
	"strconv"

	"github.com/asaskevich/govalidator"
	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package access onto the gin server.
func APIHandlers(router *gin.Engine, service Service, serviceKeyAuth gin.HandlerFunc, logger log.Logger) {
	projectGroup := router.Group("/api/internal/projects", serviceKeyAuth)
	{
		projectGroup.PUT("/:project_id", saveProject(service, logger))
		projectGroup.POST("/:project_id/members/:user_id", addMember(service, logger))
		projectGroup.DELETE("/:project_id/members/:user_id", removeMember(service, logger))
	}
}

// saveProject returns a handler which creates or updates a project and its owner.
func saveProject(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var req entity.SaveProjectRequest

		// Serialize received data into SaveProjectRequest struct
		if binderr := gctx.ShouldBindJSON(&req); binderr != nil {
			// Error occured during serialization
			logger.WithCtx(gctx).Error().Err(binderr).Msg("Binding error occured with SaveProjectRequest struct.")
			gctx.JSON(http.StatusUnprocessableEntity, errors.UnprocessableEntity(""))
			return
		}
		req.ProjectID = gctx.Param("project_id")

		if _, valerr := govalidator.ValidateStruct(req); valerr != nil {
			validationErrors := valerr.(govalidator.Errors).Errors()
			gctx.JSON(http.StatusBadRequest, errors.GenerateValidationErrorResponse(validationErrors))
			return
		} else if req.OwnerID <= 0 {
			gctx.JSON(http.StatusBadRequest, errors.BadRequest("owner_id: must be a positive integer"))
			return
		}
		project := entity.Project{ID: req.ProjectID, Name: req.Name, OwnerID: req.OwnerID}
		if err := service.SaveProject(gctx, project); err != nil {
			gctx.JSON(errors.StatusOf(err), err)
			return
		}
		gctx.Status(http.StatusNoContent)
	}
}

// addMember returns a handler which grants a user access to a project.
func addMember(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		projectID, userID, ok := memberParams(gctx)
		if !ok {
			return
		}
		if err := service.AddMember(gctx, projectID, userID); err != nil {
			gctx.JSON(errors.StatusOf(err), err)
			return
		}
		gctx.Status(http.StatusNoContent)
	}
}

// removeMember returns a handler which revokes a user's access to a project.
func removeMember(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		projectID, userID, ok := memberParams(gctx)
		if !ok {
			return
		}
		if err := service.RemoveMember(gctx, projectID, userID); err != nil {
			gctx.JSON(errors.StatusOf(err), err)
			return
		}
		gctx.Status(http.StatusNoContent)
	}
}

// memberParams validates both path ids, the response is already written when ok is false.
func memberParams(gctx *gin.Context) (string, entity.UserID, bool) {
	req := entity.MemberRequest{ProjectID: gctx.Param("project_id"), UserID: gctx.Param("user_id")}
	if _, valerr := govalidator.ValidateStruct(req); valerr != nil {
		validationErrors := valerr.(govalidator.Errors).Errors()
		gctx.JSON(http.StatusBadRequest, errors.GenerateValidationErrorResponse(validationErrors))
		return "", 0, false
	}
	userID, _ := strconv.ParseInt(req.UserID, 10, 64)
	return req.ProjectID, entity.UserID(userID), true
}
