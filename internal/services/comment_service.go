package services

import (
	"context"

	"chronic_go_backend/internal/models"
	"chronic_go_backend/internal/realtime"

	"gorm.io/gorm"
)

type CommentService struct {
	db        *gorm.DB
	publisher EventPublisher
}

func NewCommentService(db *gorm.DB, publisher EventPublisher) *CommentService {
	return &CommentService{db: db, publisher: publisher}
}

func (s *CommentService) ListComments(ctx context.Context, orgID, taskID string) ([]models.Comment, error) {
	if _, err := getTask(s.db.WithContext(ctx), orgID, taskID); err != nil {
		return nil, err
	}
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at asc").
		Find(&comments).Error
	return comments, err
}

// CreateComment stores the comment and notifies the task's project.
func (s *CommentService) CreateComment(ctx context.Context, orgID, authorID, taskID string, body map[string]any) (*models.Comment, error) {
	if len(body) == 0 {
		return nil, invalidf("body is required")
	}

	var (
		task    *models.Task
		comment *models.Comment
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		task, err = getTask(tx, orgID, taskID)
		if err != nil {
			return err
		}
		comment = &models.Comment{OrgID: orgID, TaskID: taskID, AuthorID: authorID, Body: body}
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, err
	}

	if task.ProjectID != nil {
		s.publisher.Publish(realtime.ProjectChannel(*task.ProjectID), Event{Type: EventCommentCreated, Comment: comment})
	}
	return comment, nil
}
