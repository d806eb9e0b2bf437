package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer represents a tenant. All resources except superadmin accounts are
// scoped to exactly one customer. Customers are never hard-deleted: delete
// transitions status to "suspended".
type Customer struct {
	ID           string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name         string    `json:"name" gorm:"type:varchar(128);not null"`
	Slug         string    `json:"slug" gorm:"type:varchar(64);uniqueIndex;not null"`
	Domain       string    `json:"domain" gorm:"type:varchar(128)"`
	SubdomainURL string    `json:"subdomain_url" gorm:"type:varchar(256)"`
	AdminUserID  *string   `json:"admin_user_id" gorm:"type:varchar(36)"`
	PlanType     string    `json:"plan_type" gorm:"type:varchar(32);default:'free'"`
	Status       string    `json:"status" gorm:"type:varchar(32);default:'active'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
