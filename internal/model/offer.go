package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OfferFlat       = "flat"
	OfferPercentage = "percentage"
	OfferBOGO       = "bogo"
)

// Offer is a promotional rule. ApplicableProducts scopes percentage and bogo
// offers; an empty set means the whole cart is eligible.
type Offer struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;index"`
	Name              string    `gorm:"not null"`
	Description       string
	OfferType         string          `gorm:"type:varchar(20);not null"`
	DiscountValue     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MinPurchaseAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	BuyQuantity       int             `gorm:"not null"`
	GetQuantity       int             `gorm:"not null"`
	StartDate         time.Time       `gorm:"not null"`
	EndDate           time.Time       `gorm:"not null"`
	IsActive          bool            `gorm:"not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	ApplicableProducts []Product `gorm:"many2many:offer_products"`
}

func (o *Offer) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// IsValidAt reports whether the offer can be applied at t: it must be active
// and t must fall inside [StartDate, EndDate].
func (o *Offer) IsValidAt(t time.Time) bool {
	return o.IsActive && !t.Before(o.StartDate) && !t.After(o.EndDate)
}

// AppliesTo reports whether productID is eligible under this offer.
func (o *Offer) AppliesTo(productID uuid.UUID) bool {
	if len(o.ApplicableProducts) == 0 {
		return true
	}
	for _, p := range o.ApplicableProducts {
		if p.ID == productID {
			return true
		}
	}
	return false
}
