package models

import (
	"time"

	"gorm.io/gorm"
)

const DefaultPriority = 2

type Task struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrgID       string         `gorm:"type:varchar(36);index;not null" json:"-"`
	WorkspaceID string         `gorm:"type:varchar(36);index" json:"workspace_id"`
	ProjectID   *string        `gorm:"type:varchar(36);index" json:"project_id"`
	ParentID    *string        `gorm:"type:varchar(36)" json:"parent_id"`
	Name        string         `gorm:"size:512;not null" json:"name"`
	Description map[string]any `gorm:"serializer:json" json:"description"`
	StatusID    *string        `gorm:"type:varchar(36)" json:"status_id"`
	SectionID   *string        `gorm:"type:varchar(36)" json:"section_id"`
	Priority    int            `gorm:"default:2" json:"priority"`
	DueDate     *time.Time     `gorm:"type:date" json:"due_date"`
	IsCompleted bool           `gorm:"default:false" json:"is_completed"`
	CreatedBy   string         `gorm:"type:varchar(36)" json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at"`

	Assignees []User `gorm:"many2many:task_assignees;joinForeignKey:TaskID;joinReferences:UserID" json:"assignees"`
	Tags      []Tag  `gorm:"many2many:task_tags;joinForeignKey:TaskID;joinReferences:TagID" json:"tags"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}

type Comment struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrgID     string         `gorm:"type:varchar(36);index;not null" json:"-"`
	TaskID    string         `gorm:"type:varchar(36);index;not null" json:"task_id"`
	AuthorID  string         `gorm:"type:varchar(36);not null" json:"author_id"`
	Body      map[string]any `gorm:"serializer:json" json:"body"`
	CreatedAt time.Time      `json:"created_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}
