package services

import "chronic_go_backend/internal/models"

const (
	EventProjectCreated = "project.created"
	EventTaskCreated    = "task.created"
	EventTaskUpdated    = "task.updated"
	EventTaskDeleted    = "task.deleted"
	EventTagCreated     = "tag.created"
	EventTagUpdated     = "tag.updated"
	EventTagDeleted     = "tag.deleted"
	EventCommentCreated = "comment.created"
)

// Event is the envelope sent to subscribers. Type names the change and exactly
// one payload field is set; deletions carry only the ID.
type Event struct {
	Type    string          `json:"type"`
	Project *models.Project `json:"project,omitempty"`
	Task    *models.Task    `json:"task,omitempty"`
	Tag     *models.Tag     `json:"tag,omitempty"`
	Comment *models.Comment `json:"comment,omitempty"`
	ID      string          `json:"id,omitempty"`
}
