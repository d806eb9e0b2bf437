package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task represents a task or, when ParentTaskID is set, a subtask of another
// task. Position is the ordering key within a kanban column.
type Task struct {
	ID             string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	CustomerID     string     `json:"customer_id" gorm:"type:varchar(36);index;not null"`
	ProjectID      string     `json:"project_id" gorm:"type:varchar(36);index"`
	ParentTaskID   *string    `json:"parent_task_id" gorm:"type:varchar(36);index"`
	Title          string     `json:"title" gorm:"type:varchar(256);not null"`
	Description    string     `json:"description" gorm:"type:text"`
	Status         string     `json:"status" gorm:"type:varchar(32);default:'todo'"`
	Priority       string     `json:"priority" gorm:"type:varchar(32);default:'medium'"`
	AssigneeUserID *string    `json:"assignee_user_id" gorm:"type:varchar(36)"`
	StartDate      *time.Time `json:"start_date"`
	DueDate        *time.Time `json:"due_date"`
	CompletedAt    *time.Time `json:"completed_at"`
	Position       int        `json:"position"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}
