package api

import (
	"net/http"
	"time"

	customerrors "chronic_go_backend/internal/errors"
	"chronic_go_backend/internal/services"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type taskRequest struct {
	Name        *string        `json:"name"`
	Description map[string]any `json:"description"`
	StatusID    *string        `json:"status_id"`
	SectionID   *string        `json:"section_id"`
	ParentID    *string        `json:"parent_id"`
	ProjectID   *string        `json:"project_id"`
	Priority    *int           `json:"priority"`
	DueDate     *string        `json:"due_date"`
	IsCompleted *bool          `json:"is_completed"`
}

func (r taskRequest) dueDate() (*time.Time, error) {
	if r.DueDate == nil || *r.DueDate == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, *r.DueDate)
	if err != nil {
		return nil, customerrors.New400Error("due_date must be YYYY-MM-DD")
	}
	return &d, nil
}

func listTasksHandler(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		list, err := tasks.ListByProject(c.Request.Context(), orgID, c.Param("project_id"))
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func createTaskHandler(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request taskRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			customerrors.HandleError(c, customerrors.New400Error(err.Error()))
			return
		}
		if request.Name == nil {
			customerrors.HandleError(c, customerrors.New400Error("name is required"))
			return
		}
		due, err := request.dueDate()
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}

		userID, orgID := scope(c)
		task, err := tasks.CreateTask(c.Request.Context(), orgID, userID, c.Param("project_id"), services.TaskInput{
			Name:        *request.Name,
			Description: request.Description,
			StatusID:    request.StatusID,
			SectionID:   request.SectionID,
			ParentID:    request.ParentID,
			Priority:    request.Priority,
			DueDate:     due,
		})
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, task)
	}
}

func getTaskHandler(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		task, err := tasks.GetTask(c.Request.Context(), orgID, c.Param("id"))
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func updateTaskHandler(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request taskRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			customerrors.HandleError(c, customerrors.New400Error(err.Error()))
			return
		}
		due, err := request.dueDate()
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}

		_, orgID := scope(c)
		task, err := tasks.UpdateTask(c.Request.Context(), orgID, c.Param("id"), services.TaskUpdate{
			Name:        request.Name,
			Description: request.Description,
			StatusID:    request.StatusID,
			SectionID:   request.SectionID,
			ProjectID:   request.ProjectID,
			Priority:    request.Priority,
			DueDate:     due,
			IsCompleted: request.IsCompleted,
		})
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func deleteTaskHandler(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		if err := tasks.DeleteTask(c.Request.Context(), orgID, c.Param("id")); err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func listAssigneesHandler(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		users, err := tasks.ListAssignees(c.Request.Context(), orgID, c.Param("id"))
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func addAssigneeHandler(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			UserID string `json:"user_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			customerrors.HandleError(c, customerrors.New400Error(err.Error()))
			return
		}

		_, orgID := scope(c)
		task, err := tasks.AddAssignee(c.Request.Context(), orgID, c.Param("id"), request.UserID)
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func removeAssigneeHandler(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		task, err := tasks.RemoveAssignee(c.Request.Context(), orgID, c.Param("id"), c.Param("user_id"))
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func addTaskTagHandler(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		task, err := tasks.AddTag(c.Request.Context(), orgID, c.Param("id"), c.Param("tag_id"))
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func removeTaskTagHandler(tasks *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, orgID := scope(c)
		task, err := tasks.RemoveTag(c.Request.Context(), orgID, c.Param("id"), c.Param("tag_id"))
		if err != nil {
			customerrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}
