package api

import (
	"net/http"

	customerrors "chronic_go_backend/internal/errors"
	"chronic_go_backend/internal/services"

	"github.com/gin-gonic/gin"
)

func listTagsHandler(tags *services.TagService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		list, err := tags.ListTags(c.Request.Context(), orgID, c.Param("workspace_id"))
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func createTagHandler(tags *services.TagService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			Name  string  `json:"name" binding:"required"`
			Color *string `json:"color"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			customerrors.HandleError(c, customerrors.New400Error(err.Error()))
			return
		}

		_, orgID := scope(c)
		tag, err := tags.CreateTag(c.Request.Context(), orgID, c.Param("workspace_id"), request.Name, request.Color)
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, tag)
	}
}

func updateTagHandler(tags *services.TagService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			Name  *string `json:"name"`
			Color *string `json:"color"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			customerrors.HandleError(c, customerrors.New400Error(err.Error()))
			return
		}

		_, orgID := scope(c)
		tag, err := tags.UpdateTag(c.Request.Context(), orgID, c.Param("id"), services.TagUpdate{
			Name:  request.Name,
			Color: request.Color,
		})
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, tag)
	}
}

func deleteTagHandler(tags *services.TagService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		if err := tags.DeleteTag(c.Request.Context(), orgID, c.Param("id")); err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
