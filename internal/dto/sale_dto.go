package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Billing ─────────────────────────────────────────────────────────────────

// BillingItemRequest is either a catalog line (ProductID set) or an ad-hoc
// custom line (CustomName + CustomPrice). Price on a catalog line overrides
// the catalog price; when omitted the catalog price is used.
type BillingItemRequest struct {
	ProductID         *string          `json:"product_id"         validate:"omitempty,uuid"`
	Quantity          decimal.Decimal  `json:"quantity"           validate:"gt=0"`
	Price             *decimal.Decimal `json:"price"              validate:"omitempty,min=0"`
	CustomName        *string          `json:"custom_name"        validate:"omitempty,min=1,max=200"`
	CustomPrice       *decimal.Decimal `json:"custom_price"       validate:"omitempty,min=0"`
	CustomDescription *string          `json:"custom_description" validate:"omitempty,max=1000"`
}

// IsCustom reports whether the line is an ad-hoc item.
func (r BillingItemRequest) IsCustom() bool { return r.ProductID == nil && r.CustomName != nil }

type BillingRequest struct {
	CustomerID    *string `json:"customer_id"    validate:"omitempty,uuid"`
	PaymentMethod string  `json:"payment_method" validate:"required,oneof=cash upi card"`
	IsPaid        bool    `json:"is_paid"`
	Notes         string  `json:"notes"          validate:"max=1000"`
	OfferID       *string `json:"offer_id"       validate:"omitempty,uuid"`
	// DiscountAmount is the client's figure; the server recomputes it from the offer.
	DiscountAmount *decimal.Decimal     `json:"discount_amount" validate:"omitempty,min=0"`
	Items          []BillingItemRequest `json:"items"           validate:"required,min=1,dive"`
}

type BillingResponse struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	SaleID         string          `json:"sale_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// ─── Filter / List ──────────────────────────────────────────────────────────

// SaleFilter is bound from the query string of GET /sales. Dates are
// YYYY-MM-DD in the shop timezone, both ends inclusive.
type SaleFilter struct {
	Q             string `form:"q"`
	DateFrom      string `form:"date_from"      validate:"omitempty,datetime=2006-01-02"`
	DateTo        string `form:"date_to"        validate:"omitempty,datetime=2006-01-02"`
	PaymentMethod string `form:"payment_method" validate:"omitempty,oneof=cash upi card udhar"`
	CustomerID    string `form:"customer_id"    validate:"omitempty,uuid"`
	Page          int    `form:"page,default=1"   validate:"min=1"`
	Limit         int    `form:"limit,default=20" validate:"min=1,max=200"`
	Format        string `form:"format"         validate:"omitempty,oneof=json csv"`
}

type SaleListItem struct {
	ID             string          `json:"id"`
	CustomerID     *string         `json:"customer_id,omitempty"`
	CustomerName   string          `json:"customer_name"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	PaymentMethod  string          `json:"payment_method"`
	IsPaid         bool            `json:"is_paid"`
	AddedToUdhar   bool            `json:"added_to_udhar"`
	ItemCount      int             `json:"item_count"`
	SaleDate       time.Time       `json:"sale_date"`
}

type SaleListResponse struct {
	Data []SaleListItem `json:"data"`
	ListMeta
}

// ─── Detail ──────────────────────────────────────────────────────────────────

type SaleItemResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductType string          `json:"product_type"`
	Quantity    decimal.Decimal `json:"quantity"`
	PriceAtSale decimal.Decimal `json:"price_at_sale"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type SaleOfferResponse struct {
	OfferID        string          `json:"offer_id"`
	OfferName      string          `json:"offer_name"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

type SaleDetailResponse struct {
	SaleListItem
	Notes  string              `json:"notes"`
	Items  []SaleItemResponse  `json:"items"`
	Offers []SaleOfferResponse `json:"offers"`
}
