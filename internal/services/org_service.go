package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chronic_go_backend/internal/models"

	"gorm.io/gorm"
)

type OrgService struct {
	db    *gorm.DB
	users *UserService
}

func NewOrgService(db *gorm.DB, users *UserService) *OrgService {
	return &OrgService{db: db, users: users}
}

func (s *OrgService) ListWorkspaces(ctx context.Context, orgID string) ([]models.Workspace, error) {
	var workspaces []models.Workspace
	err := s.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at asc").
		Find(&workspaces).Error
	return workspaces, err
}

// CreateWorkspace creates a workspace and makes its creator an admin.
func (s *OrgService) CreateWorkspace(ctx context.Context, orgID, userID, name string) (*models.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("name is required")
	}

	ws := &models.Workspace{OrgID: orgID, Name: name, CreatedBy: userID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ws).Error; err != nil {
			return err
		}
		return tx.Create(&models.WorkspaceMembership{WorkspaceID: ws.ID, UserID: userID, Role: models.RoleAdmin}).Error
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// GetWorkspace returns the workspace if it belongs to orgID.
func (s *OrgService) GetWorkspace(ctx context.Context, orgID, workspaceID string) (*models.Workspace, error) {
	return getWorkspace(s.db.WithContext(ctx), orgID, workspaceID)
}

func (s *OrgService) ListWorkspaceMembers(ctx context.Context, orgID, workspaceID string) ([]models.WorkspaceMembership, error) {
	if _, err := s.GetWorkspace(ctx, orgID, workspaceID); err != nil {
		return nil, err
	}
	var members []models.WorkspaceMembership
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("workspace_id = ?", workspaceID).
		Order("created_at asc").
		Find(&members).Error
	return members, err
}

// AddWorkspaceMember adds an existing user, identified by ID or email, as a
// member. Adding someone who is already a member returns their membership.
func (s *OrgService) AddWorkspaceMember(ctx context.Context, orgID, workspaceID, userID, email string) (*models.WorkspaceMembership, error) {
	if _, err := s.GetWorkspace(ctx, orgID, workspaceID); err != nil {
		return nil, err
	}

	var (
		user *models.User
		err  error
	)
	switch {
	case userID != "":
		user, err = s.users.GetUser(ctx, userID)
	case email != "":
		user, err = s.users.FindByEmail(ctx, email)
	default:
		return nil, invalidf("user_id or email is required")
	}
	if err != nil {
		return nil, err
	}

	var membership *models.WorkspaceMembership
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ferr error
		membership, ferr = ensureWorkspaceMember(tx, workspaceID, user.ID, models.RoleMember)
		if ferr != nil {
			return ferr
		}
		// workspace members join the organization too, so they can sign in to it
		var count int64
		if err := tx.Model(&models.OrgMembership{}).Where("org_id = ? AND user_id = ?", orgID, user.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return tx.Create(&models.OrgMembership{OrgID: orgID, UserID: user.ID, Role: models.RoleMember}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	membership.User = *user
	return membership, nil
}

func getWorkspace(db *gorm.DB, orgID, workspaceID string) (*models.Workspace, error) {
	var ws models.Workspace
	if err := db.First(&ws, "id = ?", workspaceID).Error; err != nil {
		return nil, notFound(err, "workspace")
	}
	if ws.OrgID != orgID {
		return nil, fmt.Errorf("workspace %w", ErrNotFound)
	}
	return &ws, nil
}

func ensureWorkspaceMember(tx *gorm.DB, workspaceID, userID, role string) (*models.WorkspaceMembership, error) {
	var membership models.WorkspaceMembership
	err := tx.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).First(&membership).Error
	if err == nil {
		return &membership, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	membership = models.WorkspaceMembership{WorkspaceID: workspaceID, UserID: userID, Role: role}
	if err := tx.Create(&membership).Error; err != nil {
		return nil, err
	}
	return &membership, nil
}
