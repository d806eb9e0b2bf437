package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project groups tasks within a customer
type Project struct {
	ID          string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	CustomerID  string    `json:"customer_id" gorm:"type:varchar(36);index;not null"`
	Name        string    `json:"name" gorm:"type:varchar(128);not null"`
	Description string    `json:"description" gorm:"type:text"`
	OwnerUserID string    `json:"owner_user_id" gorm:"type:varchar(36)"`
	Status      string    `json:"status" gorm:"type:varchar(32);default:'active'"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
