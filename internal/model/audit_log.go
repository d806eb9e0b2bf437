package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog is an append-only record of who did what to which resource.
// Rows are only ever inserted, never updated or deleted.
type AuditLog struct {
	ID          string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	CustomerID  *string   `json:"customer_id" gorm:"type:varchar(36);index"`
	ActorUserID string    `json:"actor_user_id" gorm:"type:varchar(36);index"`
	ActionType  string    `json:"action_type" gorm:"type:varchar(64);not null"`
	TargetType  string    `json:"target_type" gorm:"type:varchar(64)"`
	TargetID    string    `json:"target_id" gorm:"type:varchar(36)"`
	Meta        string    `json:"meta" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}
