package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ProductTypeProduct = "product"
	ProductTypeService = "service"
)

// Categories accepted for products and services.
var Categories = []string{"pizza", "clothes", "grocery", "bartan", "medical", "electronics", "other"}

// Units accepted for stock and quantities.
var Units = []string{"kg", "gm", "lt", "ml", "piece", "packet", "box", "dozen"}

// Product is a catalog entry. Stock is tracked only for ProductTypeProduct;
// services never touch StockQuantity. IsActive=false is a soft delete.
type Product struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Name          string    `gorm:"index;not null"`
	ProductType   string    `gorm:"type:varchar(10);not null"`
	Category      string    `gorm:"type:varchar(20);not null"`
	Description   *string
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Unit          string          `gorm:"type:varchar(10);not null"`
	StockQuantity decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	IsActive      bool            `gorm:"not null;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// TracksStock reports whether sales of this product move its stock.
func (p *Product) TracksStock() bool { return p.ProductType == ProductTypeProduct }

// IsLowStock reports whether a stocked product has fallen under threshold.
func (p *Product) IsLowStock(threshold decimal.Decimal) bool {
	return p.TracksStock() && p.StockQuantity.LessThan(threshold)
}
