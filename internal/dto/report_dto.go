package dto

import "github.com/shopspring/decimal"

// ReportFilter is bound from the query string of GET /reports.
type ReportFilter struct {
	DateFrom string `form:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string `form:"date_to"   validate:"omitempty,datetime=2006-01-02"`
	Year     int    `form:"year"      validate:"omitempty,min=2000,max=2100"`
	Format   string `form:"format"    validate:"omitempty,oneof=json csv"`
	// Report picks the section of a CSV download.
	Report string `form:"report" validate:"omitempty,oneof=daily monthly yearly products categories customers offers comparison"`
}

// PeriodTotal is one bucket of a day/month/year revenue series.
type PeriodTotal struct {
	Period string          `json:"period"` // 2006-01-02 | 2006-01 | 2006
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

type ProductSales struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type CategorySales struct {
	Category string          `json:"category"`
	Quantity decimal.Decimal `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type CustomerSales struct {
	CustomerID string          `json:"customer_id"`
	Name       string          `json:"name"`
	Phone      string          `json:"phone"`
	SaleCount  int64           `json:"sale_count"`
	Amount     decimal.Decimal `json:"amount"`
}

type OfferUsage struct {
	OfferID       string          `json:"offer_id"`
	Name          string          `json:"name"`
	OfferType     string          `json:"offer_type"`
	TimesApplied  int64           `json:"times_applied"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
}

// Comparison contrasts today with yesterday and the trailing week.
type Comparison struct {
	Today         decimal.Decimal `json:"today"`
	Yesterday     decimal.Decimal `json:"yesterday"`
	Last7Days     decimal.Decimal `json:"last_7_days"`
	ChangePercent decimal.Decimal `json:"change_percent"`
}

type ReportResponse struct {
	DateFrom       string          `json:"date_from,omitempty"`
	DateTo         string          `json:"date_to,omitempty"`
	Year           int             `json:"year,omitempty"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalDiscount  decimal.Decimal `json:"total_discount"`
	SaleCount      int64           `json:"sale_count"`
	Daily          []PeriodTotal   `json:"daily"`
	Monthly        []PeriodTotal   `json:"monthly"`
	Yearly         []PeriodTotal   `json:"yearly"`
	TopProducts    []ProductSales  `json:"top_products"`
	Categories     []CategorySales `json:"categories"`
	TopCustomers   []CustomerSales `json:"top_customers"`
	Offers         []OfferUsage    `json:"offers"`
	AvailableYears []int           `json:"available_years"`
	Comparison     Comparison      `json:"comparison"`
}
