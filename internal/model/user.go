package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the user model stored in the database.
// CustomerID is nil only for superadmin accounts; every other role belongs
// to exactly one customer. Email uniqueness is global, not per customer.
type User struct {
	ID              string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	CustomerID      *string    `json:"customer_id" gorm:"type:varchar(36);index"`
	Email           string     `json:"email" gorm:"type:varchar(120);uniqueIndex;not null"`
	Name            string     `json:"name" gorm:"type:varchar(120);not null"`
	Role            string     `json:"role" gorm:"type:varchar(32);default:'user'"`
	Status          string     `json:"status" gorm:"type:varchar(32);default:'active'"`
	PasswordHash    string     `json:"-" gorm:"type:varchar(256)"`
	InvitationToken string     `json:"-" gorm:"type:varchar(512)"`
	LastLoginAt     *time.Time `json:"last_login_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}
