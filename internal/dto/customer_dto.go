package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Filter / List ──────────────────────────────────────────────────────────

// CustomerFilter is bound from the query string of GET /customers.
type CustomerFilter struct {
	Q      string `form:"q"`
	Credit string `form:"credit" validate:"omitempty,oneof=remaining cleared"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=10" validate:"min=1,max=100"`
}

type CustomerListResponse struct {
	Data []CustomerResponse `json:"data"`
	ListMeta
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CustomerRequest struct {
	Name    string  `json:"name"    validate:"required,max=100"`
	Phone   string  `json:"phone"   validate:"required,min=5,max=15"`
	Email   *string `json:"email"   validate:"omitempty,email"`
	Address *string `json:"address" validate:"omitempty,max=500"`
}

// PayCreditRequest is accepted as JSON or as a form post. Amount bounds are
// checked by the service so a bad amount yields a message, not a 422.
type PayCreditRequest struct {
	Amount decimal.Decimal `json:"amount" form:"amount"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CustomerResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	Email          *string         `json:"email,omitempty"`
	Address        *string         `json:"address,omitempty"`
	CreditAmount   decimal.Decimal `json:"credit_amount"`
	TotalPurchased decimal.Decimal `json:"total_purchased"`
	TotalVisits    int             `json:"total_visits"`
	CreatedAt      time.Time       `json:"created_at"`
}

type CreditPaymentResponse struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

type CustomerDetailResponse struct {
	Customer    CustomerResponse        `json:"customer"`
	RecentSales []SaleListItem          `json:"recent_sales"`
	Payments    []CreditPaymentResponse `json:"payments"`
	Flashes     []FlashMessage          `json:"flashes,omitempty"`
}

type PayCreditResponse struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
}

// CustomerSearchResult is one row of GET /api/customers/search.
type CustomerSearchResult struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	CreditAmount   decimal.Decimal `json:"credit_amount"`
	TotalPurchased decimal.Decimal `json:"total_purchased"`
}
