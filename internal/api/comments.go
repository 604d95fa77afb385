package api

import (
	"net/http"

	customerrors "chronic_go_backend/internal/errors"
	"chronic_go_backend/internal/services"

	"github.com/gin-gonic/gin"
)

func listCommentsHandler(comments *services.CommentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		list, err := comments.ListComments(c.Request.Context(), orgID, c.Param("task_id"))
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func createCommentHandler(comments *services.CommentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			Body map[string]any `json:"body" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			customerrors.HandleError(c, customerrors.New400Error(err.Error()))
			return
		}

		userID, orgID := scope(c)
		comment, err := comments.CreateComment(c.Request.Context(), orgID, userID, c.Param("task_id"), request.Body)
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, comment)
	}
}
