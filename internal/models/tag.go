package models

import (
	"time"

	"gorm.io/gorm"
)

const DefaultTagColor = "#6B7280"

type Tag struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrgID       string    `gorm:"type:varchar(36);index;not null" json:"org_id"`
	WorkspaceID string    `gorm:"type:varchar(36);index;not null" json:"workspace_id"`
	Name        string    `gorm:"size:64;not null" json:"name"`
	Color       *string   `gorm:"size:16" json:"color"`
	CreatedAt   time.Time `json:"created_at"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}

type ProjectTag struct {
	ProjectID string `gorm:"type:varchar(36);primaryKey"`
	TagID     string `gorm:"type:varchar(36);primaryKey"`
}
