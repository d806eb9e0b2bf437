package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FileAttachment links an uploaded file to a task or a project
type FileAttachment struct {
	ID               string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	CustomerID       string    `json:"customer_id" gorm:"type:varchar(36);index;not null"`
	TaskID           *string   `json:"task_id" gorm:"type:varchar(36);index"`
	ProjectID        *string   `json:"project_id" gorm:"type:varchar(36);index"`
	UploadedByUserID string    `json:"uploaded_by_user_id" gorm:"type:varchar(36)"`
	FileURL          string    `json:"file_url" gorm:"type:varchar(512);not null"`
	FileName         string    `json:"file_name" gorm:"type:varchar(256);not null"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (f *FileAttachment) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}
