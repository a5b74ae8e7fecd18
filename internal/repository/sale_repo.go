package repository

import (
	"context"
	"strings"

	"subhlabh/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaleQuery is the resolved form of dto.SaleFilter: dates already converted
// to a UTC range in the shop timezone.
type SaleQuery struct {
	Search     string
	Range      DateRange
	Method     string // cash | upi | card | udhar (= unpaid)
	CustomerID *uuid.UUID
	Page       int
	Limit      int
}

type SaleRepository interface {
	CreateTx(tx *gorm.DB, s *model.Sale) error
	CreateItemTx(tx *gorm.DB, item *model.SaleItem) error
	CreateSaleOfferTx(tx *gorm.DB, so *model.SaleOffer) error
	// FindForDeleteTx locks the sale row and loads its items and their products.
	FindForDeleteTx(tx *gorm.DB, owner, id uuid.UUID) (*model.Sale, error)
	// DeleteTx removes the sale together with its items and offer records.
	// It returns gorm.ErrRecordNotFound when the sale row is already gone.
	DeleteTx(tx *gorm.DB, id uuid.UUID) error

	FindByID(ctx context.Context, owner, id uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, owner uuid.UUID, q SaleQuery) ([]model.Sale, int64, error)
	// Export returns every sale matching q, ignoring paging, with items and products.
	Export(ctx context.Context, owner uuid.UUID, q SaleQuery) ([]model.Sale, error)
	Recent(ctx context.Context, owner uuid.UUID, customerID *uuid.UUID, limit int) ([]model.Sale, error)
	SumTotal(ctx context.Context, owner uuid.UUID, r DateRange, unpaidOnly bool) (decimal.Decimal, error)
	CountByOffer(ctx context.Context, owner, offerID uuid.UUID) (int64, error)

	// CustomerLedgerTx recomputes a customer's totals from their sales.
	CustomerLedgerTx(tx *gorm.DB, owner, customerID uuid.UUID) (CustomerLedger, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

// CustomerLedger is the sales-derived view of a customer's totals.
type CustomerLedger struct {
	Purchased decimal.Decimal
	Visits    int64
	Unpaid    decimal.Decimal
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Omit("Customer", "Items", "Offers").Create(s).Error
}

func (r *saleRepo) CreateItemTx(tx *gorm.DB, item *model.SaleItem) error {
	return tx.Omit("Product").Create(item).Error
}

func (r *saleRepo) CreateSaleOfferTx(tx *gorm.DB, so *model.SaleOffer) error {
	return tx.Omit("Offer").Create(so).Error
}

func (r *saleRepo) FindForDeleteTx(tx *gorm.DB, owner, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items.Product").
		Scopes(ownedBy("sales", owner)).
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *saleRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("sale_id = ?", id).Delete(&model.SaleOffer{}).Error; err != nil {
		return err
	}
	if err := tx.Where("sale_id = ?", id).Delete(&model.SaleItem{}).Error; err != nil {
		return err
	}
	res := tx.Where("id = ?", id).Delete(&model.Sale{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *saleRepo) FindByID(ctx context.Context, owner, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Preload("Customer").Preload("Items.Product").Preload("Offers.Offer").
		Scopes(ownedBy("sales", owner)).
		First(&s, "id = ?", id).Error
	return &s, err
}

// filtered applies every SaleQuery filter except paging.
func (r *saleRepo) filtered(ctx context.Context, owner uuid.UUID, q SaleQuery) *gorm.DB {
	base := r.db.WithContext(ctx).Model(&model.Sale{}).Scopes(ownedBy("sales", owner))
	base = q.Range.apply(base, "sales.sale_date")

	switch q.Method {
	case "":
	case "udhar":
		base = base.Where("sales.is_paid = ?", false)
	default:
		base = base.Where("sales.payment_method = ?", q.Method)
	}
	if q.CustomerID != nil {
		base = base.Where("sales.customer_id = ?", *q.CustomerID)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		p := likePattern(s)
		customerMatch := r.db.Model(&model.Customer{}).Select("id").
			Where("user_id = ? AND (LOWER(name) LIKE ? ESCAPE '\\' OR phone LIKE ? ESCAPE '\\')", owner, p, p)
		productMatch := r.db.Model(&model.SaleItem{}).Select("sale_items.sale_id").
			Joins("JOIN products ON products.id = sale_items.product_id").
			Where("products.user_id = ? AND LOWER(products.name) LIKE ? ESCAPE '\\'", owner, p)
		base = base.Where(
			"(LOWER(CAST(sales.id AS TEXT)) LIKE ? ESCAPE '\\' OR sales.customer_id IN (?) OR sales.id IN (?))",
			prefixPattern(s), customerMatch, productMatch,
		)
	}
	return base
}

func (r *saleRepo) List(ctx context.Context, owner uuid.UUID, q SaleQuery) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	base := r.filtered(ctx, owner, q)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := base.Preload("Customer").Preload("Items").
		Order("sales.sale_date DESC").
		Offset(offset(q.Page, q.Limit)).Limit(q.Limit).
		Find(&sales).Error
	return sales, total, err
}

func (r *saleRepo) Export(ctx context.Context, owner uuid.UUID, q SaleQuery) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.filtered(ctx, owner, q).
		Preload("Customer").Preload("Items.Product").
		Order("sales.sale_date DESC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) Recent(ctx context.Context, owner uuid.UUID, customerID *uuid.UUID, limit int) ([]model.Sale, error) {
	var sales []model.Sale
	q := r.db.WithContext(ctx).Preload("Customer").Preload("Items").
		Scopes(ownedBy("sales", owner))
	if customerID != nil {
		q = q.Where("customer_id = ?", *customerID)
	}
	err := q.Order("sale_date DESC").Limit(limit).Find(&sales).Error
	return sales, err
}

func (r *saleRepo) SumTotal(ctx context.Context, owner uuid.UUID, dr DateRange, unpaidOnly bool) (decimal.Decimal, error) {
	var row struct{ Total decimal.Decimal }
	q := r.db.WithContext(ctx).Model(&model.Sale{}).Scopes(ownedBy("sales", owner))
	q = dr.apply(q, "sale_date")
	if unpaidOnly {
		q = q.Where("is_paid = ?", false)
	}
	err := q.Select("COALESCE(SUM(total_amount), 0) AS total").Scan(&row).Error
	return row.Total, err
}

func (r *saleRepo) CountByOffer(ctx context.Context, owner, offerID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.SaleOffer{}).
		Joins("JOIN sales ON sales.id = sale_offers.sale_id").
		Where("sales.user_id = ? AND sale_offers.offer_id = ?", owner, offerID).
		Count(&n).Error
	return n, err
}

func (r *saleRepo) CustomerLedgerTx(tx *gorm.DB, owner, customerID uuid.UUID) (CustomerLedger, error) {
	var row struct {
		Purchased decimal.Decimal
		Visits    int64
		Unpaid    decimal.Decimal
	}
	err := tx.Model(&model.Sale{}).
		Where("user_id = ? AND customer_id = ?", owner, customerID).
		Select("COALESCE(SUM(total_amount), 0) AS purchased, " +
			"COUNT(*) AS visits, " +
			"COALESCE(SUM(CASE WHEN is_paid THEN 0 ELSE total_amount END), 0) AS unpaid").
		Scan(&row).Error
	return CustomerLedger{Purchased: row.Purchased, Visits: row.Visits, Unpaid: row.Unpaid}, err
}
