package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OfferRequest creates or replaces an offer. Type-specific bounds
// (percentage range, bogo quantities, window order) are checked by the service.
type OfferRequest struct {
	Name                 string          `json:"name"                   validate:"required,max=200"`
	Description          string          `json:"description"            validate:"max=1000"`
	OfferType            string          `json:"offer_type"             validate:"required,oneof=flat percentage bogo"`
	DiscountValue        decimal.Decimal `json:"discount_value"         validate:"min=0"`
	MinPurchaseAmount    decimal.Decimal `json:"min_purchase_amount"    validate:"min=0"`
	BuyQuantity          int             `json:"buy_quantity"           validate:"min=0"`
	GetQuantity          int             `json:"get_quantity"           validate:"min=0"`
	ApplicableProductIDs []string        `json:"applicable_product_ids" validate:"dive,uuid"`
	StartDate            time.Time       `json:"start_date"             validate:"required"`
	EndDate              time.Time       `json:"end_date"               validate:"required"`
	IsActive             *bool           `json:"is_active"`
}

type OfferProductRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type OfferResponse struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	OfferType          string            `json:"offer_type"`
	DiscountValue      decimal.Decimal   `json:"discount_value"`
	MinPurchaseAmount  decimal.Decimal   `json:"min_purchase_amount"`
	BuyQuantity        int               `json:"buy_quantity"`
	GetQuantity        int               `json:"get_quantity"`
	ApplicableProducts []OfferProductRef `json:"applicable_products"`
	StartDate          time.Time         `json:"start_date"`
	EndDate            time.Time         `json:"end_date"`
	IsActive           bool              `json:"is_active"`
	IsValid            bool              `json:"is_valid"`
}

// CartLine is a priced cart line used for discount previews.
type CartLine struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  decimal.Decimal `json:"quantity"   validate:"gt=0"`
	Price     decimal.Decimal `json:"price"      validate:"min=0"`
}

type OfferPreviewRequest struct {
	Items []CartLine `json:"items" validate:"required,min=1,dive"`
}

type OfferPreviewResponse struct {
	OfferID        string          `json:"offer_id"`
	Applicable     bool            `json:"applicable"`
	Message        string          `json:"message,omitempty"`
	ItemsTotal     decimal.Decimal `json:"items_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalTotal     decimal.Decimal `json:"final_total"`
}
