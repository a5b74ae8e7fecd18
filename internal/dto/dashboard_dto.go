package dto

import "github.com/shopspring/decimal"

// DashboardMetrics is the cached per-owner, per-day aggregate.
type DashboardMetrics struct {
	Date           string          `json:"date"` // shop-local YYYY-MM-DD
	TodaySales     decimal.Decimal `json:"today_sales"`
	MonthSales     decimal.Decimal `json:"month_sales"`
	TotalCustomers int64           `json:"total_customers"`
	TotalProducts  int64           `json:"total_products"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	TodayCredit    decimal.Decimal `json:"today_credit"`
}

type DashboardResponse struct {
	Metrics     DashboardMetrics  `json:"metrics"`
	Cached      bool              `json:"cached"`
	RecentSales []SaleListItem    `json:"recent_sales"`
	LowStock    []ProductResponse `json:"low_stock"`
	TopProducts []ProductSales    `json:"top_products"`
}
