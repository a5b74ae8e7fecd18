package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	MovementSale         = "sale"
	MovementSaleReversal = "sale_reversal"
	MovementAdjustment   = "adjustment"
)

// StockMovement records every stock change of a product. It is written in
// the same transaction as the change itself.
type StockMovement struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind        string          `gorm:"type:varchar(20);not null"`
	Delta       decimal.Decimal `gorm:"type:decimal(10,2);not null"` // positive = in, negative = out
	StockBefore decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	StockAfter  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Note        string
	ReferenceID *uuid.UUID `gorm:"type:uuid"` // sale id when applicable
	CreatedAt   time.Time
}

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
