package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentMethods accepted at checkout.
var PaymentMethods = []string{"cash", "upi", "card"}

// Sale is one checkout. TotalAmount is the post-discount total and is the
// only figure used for customer ledger deltas.
type Sale struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_sales_user_date"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentMethod  string          `gorm:"type:varchar(10);not null"`
	IsPaid         bool            `gorm:"not null"`
	AddedToUdhar   bool            `gorm:"not null"`
	Notes          string
	SaleDate       time.Time `gorm:"not null;index:idx_sales_user_date"`
	CreatedAt      time.Time

	Customer *Customer   `gorm:"foreignKey:CustomerID"`
	Items    []SaleItem  `gorm:"foreignKey:SaleID"`
	Offers   []SaleOffer `gorm:"foreignKey:SaleID"`
}

func (s *Sale) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// SaleItem is a line of a sale; PriceAtSale is a snapshot.
type SaleItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	PriceAtSale decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Product *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
}

func (i *SaleItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// Subtotal is Quantity × PriceAtSale.
func (i *SaleItem) Subtotal() decimal.Decimal { return i.Quantity.Mul(i.PriceAtSale) }

// SaleOffer records an offer applied to a sale and the discount it produced.
type SaleOffer struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_sale_offer"`
	OfferID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_sale_offer"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt      time.Time

	Offer *Offer `gorm:"foreignKey:OfferID;constraint:OnDelete:RESTRICT"`
}

func (o *SaleOffer) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}
