package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a note attached to a task
type Comment struct {
	ID           string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	CustomerID   string    `json:"customer_id" gorm:"type:varchar(36);index;not null"`
	TaskID       string    `json:"task_id" gorm:"type:varchar(36);index;not null"`
	AuthorUserID string    `json:"author_user_id" gorm:"type:varchar(36)"`
	Content      string    `json:"content" gorm:"type:text;not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
