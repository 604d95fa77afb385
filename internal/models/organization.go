package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

type Organization struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	PrimaryDomain *string   `gorm:"size:255" json:"primary_domain"`
	CreatedAt     time.Time `json:"created_at"`
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	assignID(&o.ID)
	return nil
}

type OrgMembership struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrgID     string    `gorm:"type:varchar(36);uniqueIndex:uq_org_user;not null" json:"org_id"`
	UserID    string    `gorm:"type:varchar(36);uniqueIndex:uq_org_user;not null" json:"user_id"`
	Role      string    `gorm:"size:16;default:owner" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *OrgMembership) BeforeCreate(tx *gorm.DB) error {
	assignID(&m.ID)
	return nil
}

type Workspace struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrgID     string    `gorm:"type:varchar(36);index;not null" json:"org_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedBy string    `gorm:"type:varchar(36)" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (w *Workspace) BeforeCreate(tx *gorm.DB) error {
	assignID(&w.ID)
	return nil
}

type WorkspaceMembership struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	WorkspaceID string    `gorm:"type:varchar(36);uniqueIndex:uq_ws_user;not null" json:"workspace_id"`
	UserID      string    `gorm:"type:varchar(36);uniqueIndex:uq_ws_user;not null" json:"user_id"`
	Role        string    `gorm:"size:16;default:admin" json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	User        User      `gorm:"foreignKey:UserID" json:"user"`
}

func (m *WorkspaceMembership) BeforeCreate(tx *gorm.DB) error {
	assignID(&m.ID)
	return nil
}
