package repository

import (
	"context"
	"time"

	"subhlabh/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleTotalRow is the minimal projection used for time bucketing. Buckets
// are computed in Go so day boundaries follow the shop timezone on any dialect.
type SaleTotalRow struct {
	SaleDate       time.Time
	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
}

type ProductSalesRow struct {
	ProductID uuid.UUID
	Name      string
	Quantity  decimal.Decimal
	Revenue   decimal.Decimal
}

type CategorySalesRow struct {
	Category string
	Quantity decimal.Decimal
	Revenue  decimal.Decimal
}

type CustomerSalesRow struct {
	CustomerID uuid.UUID
	Name       string
	Phone      string
	SaleCount  int64
	Amount     decimal.Decimal
}

type OfferUsageRow struct {
	OfferID       uuid.UUID
	Name          string
	OfferType     string
	TimesApplied  int64
	TotalDiscount decimal.Decimal
}

// ReportRepository holds the read-only grouped queries behind reports and
// the dashboard.
type ReportRepository interface {
	SaleTotals(ctx context.Context, owner uuid.UUID, r DateRange) ([]SaleTotalRow, error)
	TopProducts(ctx context.Context, owner uuid.UUID, r DateRange, limit int) ([]ProductSalesRow, error)
	Categories(ctx context.Context, owner uuid.UUID, r DateRange) ([]CategorySalesRow, error)
	TopCustomers(ctx context.Context, owner uuid.UUID, r DateRange, limit int) ([]CustomerSalesRow, error)
	OfferUsage(ctx context.Context, owner uuid.UUID, r DateRange) ([]OfferUsageRow, error)
	// SaleDateBounds returns the first and last sale dates; nil when there are no sales.
	SaleDateBounds(ctx context.Context, owner uuid.UUID) (first, last *time.Time, err error)
}

type reportRepo struct{ db *gorm.DB }

func NewReportRepository(db *gorm.DB) ReportRepository { return &reportRepo{db: db} }

func (r *reportRepo) SaleTotals(ctx context.Context, owner uuid.UUID, dr DateRange) ([]SaleTotalRow, error) {
	var rows []SaleTotalRow
	q := r.db.WithContext(ctx).Model(&model.Sale{}).Scopes(ownedBy("sales", owner))
	q = dr.apply(q, "sale_date")
	err := q.Select("sale_date, total_amount, discount_amount").
		Order("sale_date ASC").
		Find(&rows).Error
	return rows, err
}

// itemsInRange is the sale_items ⋈ sales base of the item-level groupings.
func (r *reportRepo) itemsInRange(ctx context.Context, owner uuid.UUID, dr DateRange) *gorm.DB {
	q := r.db.WithContext(ctx).Table("sale_items").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Joins("JOIN products ON products.id = sale_items.product_id").
		Where("sales.user_id = ?", owner)
	return dr.apply(q, "sales.sale_date")
}

func (r *reportRepo) TopProducts(ctx context.Context, owner uuid.UUID, dr DateRange, limit int) ([]ProductSalesRow, error) {
	var rows []ProductSalesRow
	err := r.itemsInRange(ctx, owner, dr).
		Select("products.id AS product_id, products.name AS name, " +
			"SUM(sale_items.quantity) AS quantity, " +
			"SUM(sale_items.quantity * sale_items.price_at_sale) AS revenue").
		Group("products.id, products.name").
		Order("revenue DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) Categories(ctx context.Context, owner uuid.UUID, dr DateRange) ([]CategorySalesRow, error) {
	var rows []CategorySalesRow
	err := r.itemsInRange(ctx, owner, dr).
		Select("products.category AS category, " +
			"SUM(sale_items.quantity) AS quantity, " +
			"SUM(sale_items.quantity * sale_items.price_at_sale) AS revenue").
		Group("products.category").
		Order("revenue DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) TopCustomers(ctx context.Context, owner uuid.UUID, dr DateRange, limit int) ([]CustomerSalesRow, error) {
	var rows []CustomerSalesRow
	q := r.db.WithContext(ctx).Table("sales").
		Joins("JOIN customers ON customers.id = sales.customer_id").
		Where("sales.user_id = ?", owner)
	err := dr.apply(q, "sales.sale_date").
		Select("customers.id AS customer_id, customers.name AS name, customers.phone AS phone, " +
			"COUNT(sales.id) AS sale_count, SUM(sales.total_amount) AS amount").
		Group("customers.id, customers.name, customers.phone").
		Order("amount DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) OfferUsage(ctx context.Context, owner uuid.UUID, dr DateRange) ([]OfferUsageRow, error) {
	var rows []OfferUsageRow
	q := r.db.WithContext(ctx).Table("sale_offers").
		Joins("JOIN sales ON sales.id = sale_offers.sale_id").
		Joins("JOIN offers ON offers.id = sale_offers.offer_id").
		Where("sales.user_id = ?", owner)
	err := dr.apply(q, "sales.sale_date").
		Select("offers.id AS offer_id, offers.name AS name, offers.offer_type AS offer_type, " +
			"COUNT(sale_offers.id) AS times_applied, SUM(sale_offers.discount_amount) AS total_discount").
		Group("offers.id, offers.name, offers.offer_type").
		Order("times_applied DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) SaleDateBounds(ctx context.Context, owner uuid.UUID) (*time.Time, *time.Time, error) {
	var first, last []time.Time
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.Sale{}).Scopes(ownedBy("sales", owner))
	}
	if err := base().Order("sale_date ASC").Limit(1).Pluck("sale_date", &first).Error; err != nil {
		return nil, nil, err
	}
	if len(first) == 0 {
		return nil, nil, nil
	}
	if err := base().Order("sale_date DESC").Limit(1).Pluck("sale_date", &last).Error; err != nil {
		return nil, nil, err
	}
	return &first[0], &last[0], nil
}
