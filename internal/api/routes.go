package api

import (
	"net/http"

	"chronic_go_backend/internal/auth"
	"chronic_go_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Services bundles the domain services the HTTP handlers delegate to.
type Services struct {
	Orgs     *services.OrgService
	Projects *services.ProjectService
	Tasks    *services.TaskService
	Tags     *services.TagService
	Comments *services.CommentService
}

func SetupRoutes(r *gin.Engine, authenticator *auth.Authenticator, svc Services) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := r.Group("/api", authenticator.AuthMiddleware())
	{
		orgs := api.Group("/orgs")
		orgs.GET("/current/workspaces", listWorkspacesHandler(svc.Orgs))
		orgs.POST("/current/workspaces", createWorkspaceHandler(svc.Orgs))
		orgs.GET("/workspaces/:id/members", listWorkspaceMembersHandler(svc.Orgs))
		orgs.POST("/workspaces/:id/members", addWorkspaceMemberHandler(svc.Orgs))

		projects := api.Group("/projects")
		projects.GET("/workspace/:workspace_id", listProjectsHandler(svc.Projects))
		projects.POST("/workspace/:workspace_id", createProjectHandler(svc.Projects))
		projects.GET("/:id", getProjectHandler(svc.Projects))
		projects.GET("/:id/statuses", listStatusesHandler(svc.Projects))
		projects.GET("/:id/sections", listSectionsHandler(svc.Projects))
		projects.POST("/:id/sections", createSectionHandler(svc.Projects))
		projects.GET("/:id/members", listProjectMembersHandler(svc.Projects))
		projects.POST("/:id/members", addProjectMemberHandler(svc.Projects))
		projects.DELETE("/:id/members/:user_id", removeProjectMemberHandler(svc.Projects))
		projects.GET("/:id/tags", listProjectTagsHandler(svc.Projects))
		projects.POST("/:id/tags/:tag_id", addProjectTagHandler(svc.Projects))
		projects.DELETE("/:id/tags/:tag_id", removeProjectTagHandler(svc.Projects))

		tasks := api.Group("/tasks")
		tasks.GET("/project/:project_id", listTasksHandler(svc.Tasks))
		tasks.POST("/project/:project_id", createTaskHandler(svc.Tasks))
		tasks.GET("/:id", getTaskHandler(svc.Tasks))
		tasks.PATCH("/:id", updateTaskHandler(svc.Tasks))
		tasks.DELETE("/:id", deleteTaskHandler(svc.Tasks))
		tasks.GET("/:id/assignees", listAssigneesHandler(svc.Tasks))
		tasks.POST("/:id/assignees", addAssigneeHandler(svc.Tasks))
		tasks.DELETE("/:id/assignees/:user_id", removeAssigneeHandler(svc.Tasks))
		tasks.POST("/:id/tags/:tag_id", addTaskTagHandler(svc.Tasks))
		tasks.DELETE("/:id/tags/:tag_id", removeTaskTagHandler(svc.Tasks))

		tags := api.Group("/tags")
		tags.GET("/workspace/:workspace_id", listTagsHandler(svc.Tags))
		tags.POST("/workspace/:workspace_id", createTagHandler(svc.Tags))
		tags.PATCH("/:id", updateTagHandler(svc.Tags))
		tags.DELETE("/:id", deleteTagHandler(svc.Tags))

		comments := api.Group("/comments")
		comments.GET("/task/:task_id", listCommentsHandler(svc.Comments))
		comments.POST("/task/:task_id", createCommentHandler(svc.Comments))
	}
}

// scope returns the caller's user and organization IDs set by the auth
// middleware.
func scope(c *gin.Context) (userID, orgID string) {
	return auth.CurrentUser(c).ID, auth.CurrentOrg(c).ID
}
