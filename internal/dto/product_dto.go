package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Filter / List ──────────────────────────────────────────────────────────

// ProductFilter is bound from the query string of GET /products.
type ProductFilter struct {
	Q        string `form:"q"`
	Category string `form:"category" validate:"omitempty,oneof=pizza clothes grocery bartan medical electronics other"`
	Type     string `form:"type"     validate:"omitempty,oneof=product service"`
	Sort     string `form:"sort,default=name" validate:"oneof=name price stock -created_at"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=20" validate:"min=1,max=200"`
}

type ProductListResponse struct {
	Data []ProductResponse `json:"data"`
	ListMeta
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ProductRequest struct {
	Name          string          `json:"name"           validate:"required,max=200"`
	ProductType   string          `json:"product_type"   validate:"required,oneof=product service"`
	Category      string          `json:"category"       validate:"required,oneof=pizza clothes grocery bartan medical electronics other"`
	Description   *string         `json:"description"    validate:"omitempty,max=1000"`
	Price         decimal.Decimal `json:"price"          validate:"min=0"`
	Unit          string          `json:"unit"           validate:"required,oneof=kg gm lt ml piece packet box dozen"`
	StockQuantity decimal.Decimal `json:"stock_quantity" validate:"min=0"`
}

// AdjustStockRequest is a manual correction; Delta may be negative.
type AdjustStockRequest struct {
	Delta decimal.Decimal `json:"delta" validate:"required"`
	Note  string          `json:"note"  validate:"max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	ProductType   string          `json:"product_type"`
	Category      string          `json:"category"`
	Description   *string         `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Unit          string          `json:"unit"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
	IsLowStock    bool            `json:"is_low_stock"`
	CreatedAt     time.Time       `json:"created_at"`
}

type StockMovementResponse struct {
	Kind        string          `json:"kind"`
	Delta       decimal.Decimal `json:"delta"`
	StockBefore decimal.Decimal `json:"stock_before"`
	StockAfter  decimal.Decimal `json:"stock_after"`
	Note        string          `json:"note,omitempty"`
	ReferenceID *string         `json:"reference_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ProductDetailResponse struct {
	Product   ProductResponse         `json:"product"`
	TotalSold decimal.Decimal         `json:"total_sold"`
	Revenue   decimal.Decimal         `json:"revenue"`
	Movements []StockMovementResponse `json:"movements"`
}

// ProductSearchResult is one row of GET /api/products/search.
type ProductSearchResult struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	Category      string          `json:"category"`
	ProductType   string          `json:"product_type"`
	Unit          string          `json:"unit"`
	IsLowStock    bool            `json:"is_low_stock"`
}
