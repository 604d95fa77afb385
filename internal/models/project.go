package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	VisibilityPrivate   = "private"
	VisibilityOrgPublic = "org_public"
)

type Project struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrgID       string         `gorm:"type:varchar(36);index;not null" json:"org_id"`
	WorkspaceID string         `gorm:"type:varchar(36);index;not null" json:"workspace_id"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	Visibility  string         `gorm:"size:16;default:private" json:"visibility"`
	CreatedBy   string         `gorm:"type:varchar(36)" json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

type ProjectMembership struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProjectID string    `gorm:"type:varchar(36);uniqueIndex:uq_proj_user;not null" json:"project_id"`
	UserID    string    `gorm:"type:varchar(36);uniqueIndex:uq_proj_user;not null" json:"user_id"`
	Role      string    `gorm:"size:16;default:editor" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
}

func (m *ProjectMembership) BeforeCreate(tx *gorm.DB) error {
	assignID(&m.ID)
	return nil
}

type ProjectStatus struct {
	ID        string `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProjectID string `gorm:"type:varchar(36);index;not null" json:"project_id"`
	Key       string `gorm:"size:32;not null" json:"key"`
	Label     string `gorm:"size:64;not null" json:"label"`
	Position  int    `gorm:"default:0" json:"position"`
	IsDone    bool   `gorm:"default:false" json:"is_done"`
}

func (s *ProjectStatus) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// DefaultStatuses is the board every new project starts with.
func DefaultStatuses(projectID string) []ProjectStatus {
	return []ProjectStatus{
		{ProjectID: projectID, Key: "backlog", Label: "Backlog", Position: 0},
		{ProjectID: projectID, Key: "in_progress", Label: "In Progress", Position: 1},
		{ProjectID: projectID, Key: "blocked", Label: "Blocked", Position: 2},
		{ProjectID: projectID, Key: "done", Label: "Done", Position: 3, IsDone: true},
	}
}

type ProjectSection struct {
	ID        string `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProjectID string `gorm:"type:varchar(36);index;not null" json:"project_id"`
	Name      string `gorm:"size:128;not null" json:"name"`
	Position  int    `gorm:"default:0" json:"position"`
}

func (s *ProjectSection) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	return nil
}
