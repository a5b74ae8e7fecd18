package repository

import (
	"context"

	"subhlabh/internal/dto"
	"subhlabh/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductSalesStats is the lifetime sales summary of one product.
type ProductSalesStats struct {
	Quantity decimal.Decimal
	Revenue  decimal.Decimal
}

// ProductRepository defines the owner-scoped data access contract for the catalog.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, owner, id uuid.UUID) (*model.Product, error)
	FindActiveByIDs(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]model.Product, error)
	List(ctx context.Context, owner uuid.UUID, filter dto.ProductFilter) ([]model.Product, int64, error)
	Search(ctx context.Context, owner uuid.UUID, q string, limit int) ([]model.Product, error)
	// Export returns every active product ordered by name.
	Export(ctx context.Context, owner uuid.UUID) ([]model.Product, error)
	SoftDelete(ctx context.Context, owner, id uuid.UUID) error
	CountActive(ctx context.Context, owner uuid.UUID) (int64, error)
	LowStock(ctx context.Context, owner uuid.UUID, threshold decimal.Decimal, limit int) ([]model.Product, error)
	SalesStats(ctx context.Context, owner, id uuid.UUID) (ProductSalesStats, error)

	// Used inside transactions: callers must pass the tx instance
	CreateTx(tx *gorm.DB, p *model.Product) error
	UpdateTx(tx *gorm.DB, p *model.Product) error
	// LockForUpdateTx reads the row with SELECT ... FOR UPDATE so concurrent
	// sales of the same product serialize on it.
	LockForUpdateTx(tx *gorm.DB, owner, id uuid.UUID) (*model.Product, error)
	// DecrementStockTx subtracts qty only while stock_quantity >= qty.
	// Returns false when the guard rejected the update.
	DecrementStockTx(tx *gorm.DB, owner, id uuid.UUID, qty decimal.Decimal) (bool, error)
	IncrementStockTx(tx *gorm.DB, owner, id uuid.UUID, qty decimal.Decimal) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) DB() *gorm.DB { return r.db }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) CreateTx(tx *gorm.DB, p *model.Product) error {
	return tx.Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, owner, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Scopes(ownedBy("products", owner)).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) FindActiveByIDs(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Scopes(ownedBy("products", owner)).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&products).Error
	return products, err
}

var productSorts = map[string]string{
	"name":        "name ASC",
	"price":       "price ASC",
	"stock":       "stock_quantity ASC",
	"-created_at": "created_at DESC",
}

func (r *productRepo) List(ctx context.Context, owner uuid.UUID, filter dto.ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Product{}).
		Scopes(ownedBy("products", owner)).
		Where("is_active = ?", true)

	if filter.Q != "" {
		p := likePattern(filter.Q)
		q = q.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(category) LIKE ? ESCAPE '\\')", p, p)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Type != "" {
		q = q.Where("product_type = ?", filter.Type)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order, ok := productSorts[filter.Sort]
	if !ok {
		order = productSorts["name"]
	}
	err := q.Order(order).Offset(offset(filter.Page, filter.Limit)).Limit(filter.Limit).Find(&products).Error
	return products, total, err
}

func (r *productRepo) Export(ctx context.Context, owner uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Scopes(ownedBy("products", owner)).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) Search(ctx context.Context, owner uuid.UUID, q string, limit int) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Scopes(ownedBy("products", owner)).
		Where("is_active = ? AND LOWER(name) LIKE ? ESCAPE '\\'", true, likePattern(q)).
		Order("name ASC").Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *productRepo) UpdateTx(tx *gorm.DB, p *model.Product) error {
	return tx.Model(p).
		Select("name", "product_type", "category", "description", "price", "unit", "stock_quantity").
		Updates(p).Error
}

func (r *productRepo) SoftDelete(ctx context.Context, owner, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("user_id = ? AND id = ? AND is_active = ?", owner, id, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepo) CountActive(ctx context.Context, owner uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Scopes(ownedBy("products", owner)).
		Where("is_active = ?", true).Count(&n).Error
	return n, err
}

func (r *productRepo) LowStock(ctx context.Context, owner uuid.UUID, threshold decimal.Decimal, limit int) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Scopes(ownedBy("products", owner)).
		Where("is_active = ? AND product_type = ? AND stock_quantity < ?", true, model.ProductTypeProduct, threshold).
		Order("stock_quantity ASC, name ASC").Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *productRepo) SalesStats(ctx context.Context, owner, id uuid.UUID) (ProductSalesStats, error) {
	var row struct {
		Quantity decimal.Decimal
		Revenue  decimal.Decimal
	}
	err := r.db.WithContext(ctx).Table("sale_items").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.user_id = ? AND sale_items.product_id = ?", owner, id).
		Select("COALESCE(SUM(sale_items.quantity), 0) AS quantity, " +
			"COALESCE(SUM(sale_items.quantity * sale_items.price_at_sale), 0) AS revenue").
		Scan(&row).Error
	return ProductSalesStats{Quantity: row.Quantity, Revenue: row.Revenue}, err
}

func (r *productRepo) LockForUpdateTx(tx *gorm.DB, owner, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(ownedBy("products", owner)).
		First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) DecrementStockTx(tx *gorm.DB, owner, id uuid.UUID, qty decimal.Decimal) (bool, error) {
	res := tx.Model(&model.Product{}).
		Where("user_id = ? AND id = ? AND stock_quantity >= ?", owner, id, qty).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	return res.RowsAffected == 1, res.Error
}

func (r *productRepo) IncrementStockTx(tx *gorm.DB, owner, id uuid.UUID, qty decimal.Decimal) error {
	return tx.Model(&model.Product{}).
		Where("user_id = ? AND id = ?", owner, id).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", qty)).Error
}
