package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShopUser is the account that owns a shop. Every customer, product, offer
// and sale carries the owning ShopUser id.
type ShopUser struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	ShopName     string    `gorm:"not null"`
	// Timezone is an IANA name; day boundaries for reports and the dashboard use it.
	Timezone            string `gorm:"type:varchar(64);not null"`
	IsVerified          bool   `gorm:"not null"`
	IsPendingDeletion   bool   `gorm:"not null;index"`
	DeletionRequestedAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (u *ShopUser) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}
