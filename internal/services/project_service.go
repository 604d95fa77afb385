package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chronic_go_backend/internal/models"
	"chronic_go_backend/internal/realtime"

	"gorm.io/gorm"
)

type ProjectService struct {
	db        *gorm.DB
	publisher EventPublisher
}

func NewProjectService(db *gorm.DB, publisher EventPublisher) *ProjectService {
	return &ProjectService{db: db, publisher: publisher}
}

type ProjectInput struct {
	Name       string
	Visibility string
}

func (s *ProjectService) ListProjects(ctx context.Context, orgID, workspaceID string) ([]models.Project, error) {
	if _, err := getWorkspace(s.db.WithContext(ctx), orgID, workspaceID); err != nil {
		return nil, err
	}
	var projects []models.Project
	err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at asc").
		Find(&projects).Error
	return projects, err
}

// CreateProject creates the project with the default status board and
// announces it on the workspace channel.
func (s *ProjectService) CreateProject(ctx context.Context, orgID, userID, workspaceID string, in ProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidf("name is required")
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}
	if visibility != models.VisibilityPrivate && visibility != models.VisibilityOrgPublic {
		return nil, invalidf("visibility must be %s or %s", models.VisibilityPrivate, models.VisibilityOrgPublic)
	}

	project := &models.Project{
		OrgID:       orgID,
		WorkspaceID: workspaceID,
		Name:        name,
		Visibility:  visibility,
		CreatedBy:   userID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getWorkspace(tx, orgID, workspaceID); err != nil {
			return err
		}
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		statuses := models.DefaultStatuses(project.ID)
		return tx.Create(&statuses).Error
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(realtime.WorkspaceChannel(workspaceID), Event{Type: EventProjectCreated, Project: project})
	return project, nil
}

func (s *ProjectService) GetProject(ctx context.Context, orgID, projectID string) (*models.Project, error) {
	return getProject(s.db.WithContext(ctx), orgID, projectID)
}

func (s *ProjectService) ListStatuses(ctx context.Context, orgID, projectID string) ([]models.ProjectStatus, error) {
	if _, err := s.GetProject(ctx, orgID, projectID); err != nil {
		return nil, err
	}
	var statuses []models.ProjectStatus
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("position asc").
		Find(&statuses).Error
	return statuses, err
}

func (s *ProjectService) ListSections(ctx context.Context, orgID, projectID string) ([]models.ProjectSection, error) {
	if _, err := s.GetProject(ctx, orgID, projectID); err != nil {
		return nil, err
	}
	var sections []models.ProjectSection
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("position asc").
		Find(&sections).Error
	return sections, err
}

// CreateSection appends a section after the existing ones.
func (s *ProjectService) CreateSection(ctx context.Context, orgID, projectID, name string) (*models.ProjectSection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("name is required")
	}
	section := &models.ProjectSection{ProjectID: projectID, Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getProject(tx, orgID, projectID); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.ProjectSection{}).Where("project_id = ?", projectID).Count(&count).Error; err != nil {
			return err
		}
		section.Position = int(count)
		return tx.Create(section).Error
	})
	if err != nil {
		return nil, err
	}
	return section, nil
}

func (s *ProjectService) ListMembers(ctx context.Context, orgID, projectID string) ([]models.ProjectMembership, error) {
	if _, err := s.GetProject(ctx, orgID, projectID); err != nil {
		return nil, err
	}
	var members []models.ProjectMembership
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("created_at asc").
		Find(&members).Error
	return members, err
}

// AddMember makes userID an editor of the project, adding them to the
// workspace first so they can be found for assignment.
func (s *ProjectService) AddMember(ctx context.Context, orgID, projectID, userID string) (*models.ProjectMembership, error) {
	var membership models.ProjectMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := getProject(tx, orgID, projectID)
		if err != nil {
			return err
		}
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return notFound(err, "user")
		}
		if _, err := ensureWorkspaceMember(tx, project.WorkspaceID, userID, models.RoleMember); err != nil {
			return err
		}

		err = tx.Where("project_id = ? AND user_id = ?", projectID, userID).First(&membership).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			membership = models.ProjectMembership{ProjectID: projectID, UserID: userID, Role: models.RoleEditor}
			err = tx.Create(&membership).Error
		}
		if err != nil {
			return err
		}
		membership.User = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (s *ProjectService) RemoveMember(ctx context.Context, orgID, projectID, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getProject(tx, orgID, projectID); err != nil {
			return err
		}
		res := tx.Where("project_id = ? AND user_id = ?", projectID, userID).Delete(&models.ProjectMembership{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("membership %w", ErrNotFound)
		}
		return nil
	})
}

// AddTag labels the project with a tag from the same workspace.
func (s *ProjectService) AddTag(ctx context.Context, orgID, projectID, tagID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := getProject(tx, orgID, projectID)
		if err != nil {
			return err
		}
		tag, err := getTag(tx, orgID, tagID)
		if err != nil {
			return err
		}
		if tag.WorkspaceID != project.WorkspaceID {
			return invalidf("tag belongs to another workspace")
		}
		var count int64
		link := models.ProjectTag{ProjectID: projectID, TagID: tagID}
		if err := tx.Model(&models.ProjectTag{}).Where(&link).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Create(&link).Error
	})
}

func (s *ProjectService) RemoveTag(ctx context.Context, orgID, projectID, tagID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getProject(tx, orgID, projectID); err != nil {
			return err
		}
		return tx.Where("project_id = ? AND tag_id = ?", projectID, tagID).Delete(&models.ProjectTag{}).Error
	})
}

func (s *ProjectService) ListTags(ctx context.Context, orgID, projectID string) ([]models.Tag, error) {
	if _, err := s.GetProject(ctx, orgID, projectID); err != nil {
		return nil, err
	}
	var tags []models.Tag
	err := s.db.WithContext(ctx).
		Joins("JOIN project_tags ON project_tags.tag_id = tags.id").
		Where("project_tags.project_id = ?", projectID).
		Order("tags.name asc").
		Find(&tags).Error
	return tags, err
}

func getProject(db *gorm.DB, orgID, projectID string) (*models.Project, error) {
	var project models.Project
	if err := db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, notFound(err, "project")
	}
	if project.OrgID != orgID {
		return nil, fmt.Errorf("project %w", ErrNotFound)
	}
	return &project, nil
}
