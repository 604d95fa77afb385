package api

import (
	"net/http"

	customerrors "chronic_go_backend/internal/errors"
	"chronic_go_backend/internal/services"

	"github.com/gin-gonic/gin"
)

func listWorkspacesHandler(orgs *services.OrgService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		workspaces, err := orgs.ListWorkspaces(c.Request.Context(), orgID)
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, workspaces)
	}
}

func createWorkspaceHandler(orgs *services.OrgService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			customerrors.HandleError(c, customerrors.New400Error(err.Error()))
			return
		}

		userID, orgID := scope(c)
		ws, err := orgs.CreateWorkspace(c.Request.Context(), orgID, userID, request.Name)
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, ws)
	}
}

func listWorkspaceMembersHandler(orgs *services.OrgService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		members, err := orgs.ListWorkspaceMembers(c.Request.Context(), orgID, c.Param("id"))
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, members)
	}
}

func addWorkspaceMemberHandler(orgs *services.OrgService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			UserID string `json:"user_id"`
			Email  string `json:"email"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			customerrors.HandleError(c, customerrors.New400Error(err.Error()))
			return
		}

		_, orgID := scope(c)
		membership, err := orgs.AddWorkspaceMember(c.Request.Context(), orgID, c.Param("id"), request.UserID, request.Email)
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, membership)
	}
}
