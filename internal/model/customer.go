package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer is a per-shop customer with running ledger totals.
// CreditAmount is the outstanding udhar balance.
type Customer struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index:idx_customers_user_phone"`
	Name           string    `gorm:"not null"`
	Phone          string    `gorm:"type:varchar(20);not null;index:idx_customers_user_phone"`
	Email          *string
	Address        *string
	CreditAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalPurchased decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalVisits    int             `gorm:"not null"`
	CreatedAt      time.Time       `gorm:"index"`
	UpdatedAt      time.Time
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// CreditPayment records an accepted udhar payment.
type CreditPayment struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt  time.Time
}

func (p *CreditPayment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
