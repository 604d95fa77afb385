package api

import (
	"net/http"

	customerrors "chronic_go_backend/internal/errors"
	"chronic_go_backend/internal/services"

	"github.com/gin-gonic/gin"
)

func listProjectsHandler(projects *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		list, err := projects.ListProjects(c.Request.Context(), orgID, c.Param("workspace_id"))
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func createProjectHandler(projects *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			Name       string `json:"name" binding:"required"`
			Visibility string `json:"visibility"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			customerrors.HandleError(c, customerrors.New400Error(err.Error()))
			return
		}

		userID, orgID := scope(c)
		project, err := projects.CreateProject(c.Request.Context(), orgID, userID, c.Param("workspace_id"), services.ProjectInput{
			Name:       request.Name,
			Visibility: request.Visibility,
		})
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, project)
	}
}

func getProjectHandler(projects *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		project, err := projects.GetProject(c.Request.Context(), orgID, c.Param("id"))
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, project)
	}
}

func listStatusesHandler(projects *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		statuses, err := projects.ListStatuses(c.Request.Context(), orgID, c.Param("id"))
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, statuses)
	}
}

func listSectionsHandler(projects *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		sections, err := projects.ListSections(c.Request.Context(), orgID, c.Param("id"))
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, sections)
	}
}

func createSectionHandler(projects *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			customerrors.HandleError(c, customerrors.New400Error(err.Error()))
			return
		}

		_, orgID := scope(c)
		section, err := projects.CreateSection(c.Request.Context(), orgID, c.Param("id"), request.Name)
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, section)
	}
}

func listProjectMembersHandler(projects *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		members, err := projects.ListMembers(c.Request.Context(), orgID, c.Param("id"))
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, members)
	}
}

func addProjectMemberHandler(projects *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			UserID string `json:"user_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			customerrors.HandleError(c, customerrors.New400Error(err.Error()))
			return
		}

		_, orgID := scope(c)
		membership, err := projects.AddMember(c.Request.Context(), orgID, c.Param("id"), request.UserID)
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, membership)
	}
}

func removeProjectMemberHandler(projects *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		if err := projects.RemoveMember(c.Request.Context(), orgID, c.Param("id"), c.Param("user_id")); err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func listProjectTagsHandler(projects *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		tags, err := projects.ListTags(c.Request.Context(), orgID, c.Param("id"))
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, tags)
	}
}

func addProjectTagHandler(projects *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		if err := projects.AddTag(c.Request.Context(), orgID, c.Param("id"), c.Param("tag_id")); err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func removeProjectTagHandler(projects *services.ProjectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		if err := projects.RemoveTag(c.Request.Context(), orgID, c.Param("id"), c.Param("tag_id")); err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
