package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chronic_go_backend/internal/models"
	"chronic_go_backend/internal/realtime"

	"gorm.io/gorm"
)

type TaskService struct {
	db        *gorm.DB
	publisher EventPublisher
}

func NewTaskService(db *gorm.DB, publisher EventPublisher) *TaskService {
	return &TaskService{db: db, publisher: publisher}
}

type TaskInput struct {
	Name        string
	Description map[string]any
	StatusID    *string
	SectionID   *string
	ParentID    *string
	Priority    *int
	DueDate     *time.Time
}

// TaskUpdate carries a partial update; nil fields are left untouched.
type TaskUpdate struct {
	Name        *string
	Description map[string]any
	StatusID    *string
	SectionID   *string
	ProjectID   *string
	Priority    *int
	DueDate     *time.Time
	IsCompleted *bool
}

func (s *TaskService) ListByProject(ctx context.Context, orgID, projectID string) ([]models.Task, error) {
	if _, err := getProject(s.db.WithContext(ctx), orgID, projectID); err != nil {
		return nil, err
	}
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Preload("Assignees").
		Preload("Tags").
		Where("project_id = ?", projectID).
		Order("created_at asc").
		Find(&tasks).Error
	return tasks, err
}

func (s *TaskService) GetTask(ctx context.Context, orgID, taskID string) (*models.Task, error) {
	return getTask(s.db.WithContext(ctx).Preload("Assignees").Preload("Tags"), orgID, taskID)
}

func (s *TaskService) CreateTask(ctx context.Context, orgID, userID, projectID string, in TaskInput) (*models.Task, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidf("name is required")
	}
	priority := models.DefaultPriority
	if in.Priority != nil {
		priority = *in.Priority
	}
	if err := validatePriority(priority); err != nil {
		return nil, err
	}

	var task *models.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := getProject(tx, orgID, projectID)
		if err != nil {
			return err
		}
		if err := checkStatus(tx, projectID, in.StatusID); err != nil {
			return err
		}
		task = &models.Task{
			OrgID:       orgID,
			WorkspaceID: project.WorkspaceID,
			ProjectID:   &project.ID,
			ParentID:    in.ParentID,
			Name:        name,
			Description: in.Description,
			StatusID:    in.StatusID,
			SectionID:   in.SectionID,
			Priority:    priority,
			DueDate:     in.DueDate,
			CreatedBy:   userID,
		}
		return tx.Create(task).Error
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(realtime.ProjectChannel(projectID), Event{Type: EventTaskCreated, Task: task})
	return task, nil
}

// UpdateTask applies the update and notifies the task's project. When the
// task moves to another project both the old and the new project hear about it.
func (s *TaskService) UpdateTask(ctx context.Context, orgID, taskID string, in TaskUpdate) (*models.Task, error) {
	var (
		task        *models.Task
		prevProject *string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		task, err = getTask(tx, orgID, taskID)
		if err != nil {
			return err
		}
		prevProject = task.ProjectID

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return invalidf("name cannot be empty")
			}
			task.Name = name
		}
		if in.Description != nil {
			task.Description = in.Description
		}
		if in.Priority != nil {
			if err := validatePriority(*in.Priority); err != nil {
				return err
			}
			task.Priority = *in.Priority
		}
		if in.DueDate != nil {
			task.DueDate = in.DueDate
		}
		if in.ProjectID != nil && !sameID(task.ProjectID, in.ProjectID) {
			target, err := getProject(tx, orgID, *in.ProjectID)
			if err != nil {
				return err
			}
			task.ProjectID = &target.ID
			task.WorkspaceID = target.WorkspaceID
			// statuses and sections are per project
			task.StatusID = nil
			task.SectionID = nil
		}
		if in.SectionID != nil {
			task.SectionID = in.SectionID
		}
		if in.StatusID != nil {
			if task.ProjectID == nil {
				return invalidf("task has no project")
			}
			if err := checkStatus(tx, *task.ProjectID, in.StatusID); err != nil {
				return err
			}
			task.StatusID = in.StatusID
		}
		if in.IsCompleted != nil && *in.IsCompleted != task.IsCompleted {
			task.IsCompleted = *in.IsCompleted
			if task.IsCompleted {
				now := time.Now().UTC()
				task.CompletedAt = &now
			} else {
				task.CompletedAt = nil
			}
		}
		return tx.Omit("Assignees", "Tags").Save(task).Error
	})
	if err != nil {
		return nil, err
	}

	task, err = s.GetTask(ctx, orgID, taskID)
	if err != nil {
		return nil, err
	}
	event := Event{Type: EventTaskUpdated, Task: task}
	if prevProject != nil && !sameID(prevProject, task.ProjectID) {
		s.publisher.Publish(realtime.ProjectChannel(*prevProject), event)
	}
	s.publishTask(task, event)
	return task, nil
}

// DeleteTask removes the task with its comments and join rows.
func (s *TaskService) DeleteTask(ctx context.Context, orgID, taskID string) error {
	var task *models.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		task, err = getTask(tx, orgID, taskID)
		if err != nil {
			return err
		}
		if err := tx.Model(task).Association("Assignees").Clear(); err != nil {
			return err
		}
		if err := tx.Model(task).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(task).Error
	})
	if err != nil {
		return err
	}

	s.publishTask(task, Event{Type: EventTaskDeleted, ID: taskID})
	return nil
}

func (s *TaskService) ListAssignees(ctx context.Context, orgID, taskID string) ([]models.User, error) {
	task, err := s.GetTask(ctx, orgID, taskID)
	if err != nil {
		return nil, err
	}
	return task.Assignees, nil
}

// AddAssignee assigns a member of the task's workspace.
func (s *TaskService) AddAssignee(ctx context.Context, orgID, taskID, userID string) (*models.Task, error) {
	return s.mutateAssociation(ctx, orgID, taskID, func(tx *gorm.DB, task *models.Task) error {
		var count int64
		err := tx.Model(&models.WorkspaceMembership{}).
			Where("workspace_id = ? AND user_id = ?", task.WorkspaceID, userID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count == 0 {
			return invalidf("user is not a member of the workspace")
		}
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return notFound(err, "user")
		}
		return tx.Model(task).Association("Assignees").Append(&user)
	})
}

func (s *TaskService) RemoveAssignee(ctx context.Context, orgID, taskID, userID string) (*models.Task, error) {
	return s.mutateAssociation(ctx, orgID, taskID, func(tx *gorm.DB, task *models.Task) error {
		return tx.Model(task).Association("Assignees").Delete(&models.User{ID: userID})
	})
}

// AddTag labels the task with a tag from its own workspace.
func (s *TaskService) AddTag(ctx context.Context, orgID, taskID, tagID string) (*models.Task, error) {
	return s.mutateAssociation(ctx, orgID, taskID, func(tx *gorm.DB, task *models.Task) error {
		tag, err := getTag(tx, orgID, tagID)
		if err != nil {
			return err
		}
		if tag.WorkspaceID != task.WorkspaceID {
			return invalidf("tag belongs to another workspace")
		}
		return tx.Model(task).Association("Tags").Append(tag)
	})
}

func (s *TaskService) RemoveTag(ctx context.Context, orgID, taskID, tagID string) (*models.Task, error) {
	return s.mutateAssociation(ctx, orgID, taskID, func(tx *gorm.DB, task *models.Task) error {
		return tx.Model(task).Association("Tags").Delete(&models.Tag{ID: tagID})
	})
}

func (s *TaskService) mutateAssociation(ctx context.Context, orgID, taskID string, fn func(tx *gorm.DB, task *models.Task) error) (*models.Task, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := getTask(tx, orgID, taskID)
		if err != nil {
			return err
		}
		return fn(tx, task)
	})
	if err != nil {
		return nil, err
	}

	task, err := s.GetTask(ctx, orgID, taskID)
	if err != nil {
		return nil, err
	}
	s.publishTask(task, Event{Type: EventTaskUpdated, Task: task})
	return task, nil
}

// publishTask announces on the project channel. Tasks without a project
// have no audience.
func (s *TaskService) publishTask(task *models.Task, event Event) {
	if task.ProjectID == nil {
		return
	}
	s.publisher.Publish(realtime.ProjectChannel(*task.ProjectID), event)
}

func getTask(db *gorm.DB, orgID, taskID string) (*models.Task, error) {
	var task models.Task
	if err := db.First(&task, "id = ?", taskID).Error; err != nil {
		return nil, notFound(err, "task")
	}
	if task.OrgID != orgID {
		return nil, fmt.Errorf("task %w", ErrNotFound)
	}
	return &task, nil
}

func validatePriority(p int) error {
	if p < 0 || p > 3 {
		return invalidf("priority must be between 0 and 3")
	}
	return nil
}

func checkStatus(tx *gorm.DB, projectID string, statusID *string) error {
	if statusID == nil {
		return nil
	}
	var count int64
	err := tx.Model(&models.ProjectStatus{}).
		Where("id = ? AND project_id = ?", *statusID, projectID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return invalidf("status does not belong to the project")
	}
	return nil
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
