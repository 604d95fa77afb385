package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"chronic_go_backend/internal/models"
	"chronic_go_backend/internal/realtime"

	"gorm.io/gorm"
)

const maxTagNameLength = 64

type TagService struct {
	db        *gorm.DB
	publisher EventPublisher
}

func NewTagService(db *gorm.DB, publisher EventPublisher) *TagService {
	return &TagService{db: db, publisher: publisher}
}

type TagUpdate struct {
	Name  *string
	Color *string
}

func (s *TagService) ListTags(ctx context.Context, orgID, workspaceID string) ([]models.Tag, error) {
	if _, err := getWorkspace(s.db.WithContext(ctx), orgID, workspaceID); err != nil {
		return nil, err
	}
	var tags []models.Tag
	err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("name asc").
		Find(&tags).Error
	return tags, err
}

// CreateTag adds a tag to the workspace. Names are unique per workspace
// regardless of case.
func (s *TagService) CreateTag(ctx context.Context, orgID, workspaceID, name string, color *string) (*models.Tag, error) {
	name, err := normalizeTagName(name)
	if err != nil {
		return nil, err
	}
	if color == nil || strings.TrimSpace(*color) == "" {
		c := models.DefaultTagColor
		color = &c
	}

	tag := &models.Tag{OrgID: orgID, WorkspaceID: workspaceID, Name: name, Color: color}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getWorkspace(tx, orgID, workspaceID); err != nil {
			return err
		}
		if err := checkTagName(tx, workspaceID, name, ""); err != nil {
			return err
		}
		return tx.Create(tag).Error
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(realtime.WorkspaceChannel(workspaceID), Event{Type: EventTagCreated, Tag: tag})
	return tag, nil
}

func (s *TagService) UpdateTag(ctx context.Context, orgID, tagID string, in TagUpdate) (*models.Tag, error) {
	var tag *models.Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		tag, err = getTag(tx, orgID, tagID)
		if err != nil {
			return err
		}
		if in.Name != nil {
			name, err := normalizeTagName(*in.Name)
			if err != nil {
				return err
			}
			if err := checkTagName(tx, tag.WorkspaceID, name, tag.ID); err != nil {
				return err
			}
			tag.Name = name
		}
		if in.Color != nil {
			tag.Color = in.Color
		}
		return tx.Save(tag).Error
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(realtime.WorkspaceChannel(tag.WorkspaceID), Event{Type: EventTagUpdated, Tag: tag})
	return tag, nil
}

// DeleteTag removes the tag from every task and project before deleting it.
func (s *TagService) DeleteTag(ctx context.Context, orgID, tagID string) error {
	var tag *models.Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		tag, err = getTag(tx, orgID, tagID)
		if err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM task_tags WHERE tag_id = ?", tagID).Error; err != nil {
			return err
		}
		if err := tx.Where("tag_id = ?", tagID).Delete(&models.ProjectTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(tag).Error
	})
	if err != nil {
		return err
	}

	s.publisher.Publish(realtime.WorkspaceChannel(tag.WorkspaceID), Event{Type: EventTagDeleted, ID: tagID})
	return nil
}

func normalizeTagName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalidf("name is required")
	}
	if utf8.RuneCountInString(name) > maxTagNameLength {
		return "", invalidf("name must be at most %d characters", maxTagNameLength)
	}
	return name, nil
}

func checkTagName(tx *gorm.DB, workspaceID, name, exceptID string) error {
	q := tx.Model(&models.Tag{}).Where("workspace_id = ? AND LOWER(name) = ?", workspaceID, strings.ToLower(name))
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("tag %q: %w", name, ErrConflict)
	}
	return nil
}

func getTag(db *gorm.DB, orgID, tagID string) (*models.Tag, error) {
	var tag models.Tag
	if err := db.First(&tag, "id = ?", tagID).Error; err != nil {
		return nil, notFound(err, "tag")
	}
	if tag.OrgID != orgID {
		return nil, fmt.Errorf("tag %w", ErrNotFound)
	}
	return &tag, nil
}
