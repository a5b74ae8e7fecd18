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

// LedgerDelta is a change to a customer's running totals. Negative values
// reverse a sale; the stored totals never drop below zero.
type LedgerDelta struct {
	Purchased decimal.Decimal
	Visits    int
	Credit    decimal.Decimal
}

// CustomerRepository is the owner-scoped data access contract for customers
// and their credit payments.
type CustomerRepository interface {
	Create(ctx context.Context, c *model.Customer) error
	FindByID(ctx context.Context, owner, id uuid.UUID) (*model.Customer, error)
	FindByPhone(ctx context.Context, owner uuid.UUID, phone string) (*model.Customer, error)
	List(ctx context.Context, owner uuid.UUID, filter dto.CustomerFilter) ([]model.Customer, int64, error)
	Search(ctx context.Context, owner uuid.UUID, q string, limit int) ([]model.Customer, error)
	Update(ctx context.Context, c *model.Customer) error
	// Delete removes the customer and its payments; its sales are kept as walk-in sales.
	Delete(ctx context.Context, owner, id uuid.UUID) error
	Count(ctx context.Context, owner uuid.UUID) (int64, error)
	SumCredit(ctx context.Context, owner uuid.UUID) (decimal.Decimal, error)
	ListIDs(ctx context.Context, owner uuid.UUID) ([]uuid.UUID, error)

	// Used inside transactions: callers must pass the tx instance
	FindByIDTx(tx *gorm.DB, owner, id uuid.UUID) (*model.Customer, error)
	ApplyLedgerTx(tx *gorm.DB, owner, id uuid.UUID, d LedgerDelta) error
	// DeductCreditTx subtracts amount only while credit_amount >= amount.
	// Returns false when the guard rejected the update.
	DeductCreditTx(tx *gorm.DB, owner, id uuid.UUID, amount decimal.Decimal) (bool, error)
	SetLedgerTx(tx *gorm.DB, owner, id uuid.UUID, purchased decimal.Decimal, visits int, credit decimal.Decimal) error

	CreatePaymentTx(tx *gorm.DB, p *model.CreditPayment) error
	ListPayments(ctx context.Context, owner, customerID uuid.UUID, limit int) ([]model.CreditPayment, error)
	SumPaymentsTx(tx *gorm.DB, owner, customerID uuid.UUID) (decimal.Decimal, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type customerRepo struct{ db *gorm.DB }

func NewCustomerRepository(db *gorm.DB) CustomerRepository { return &customerRepo{db: db} }

func (r *customerRepo) DB() *gorm.DB { return r.db }

func (r *customerRepo) Create(ctx context.Context, c *model.Customer) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *customerRepo) FindByID(ctx context.Context, owner, id uuid.UUID) (*model.Customer, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), owner, id)
}

func (r *customerRepo) FindByIDTx(tx *gorm.DB, owner, id uuid.UUID) (*model.Customer, error) {
	var c model.Customer
	err := tx.Scopes(ownedBy("customers", owner)).First(&c, "id = ?", id).Error
	return &c, err
}

func (r *customerRepo) FindByPhone(ctx context.Context, owner uuid.UUID, phone string) (*model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).Scopes(ownedBy("customers", owner)).
		Where("phone = ?", phone).First(&c).Error
	return &c, err
}

func (r *customerRepo) List(ctx context.Context, owner uuid.UUID, filter dto.CustomerFilter) ([]model.Customer, int64, error) {
	var customers []model.Customer
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Customer{}).Scopes(ownedBy("customers", owner))
	if filter.Q != "" {
		p := likePattern(filter.Q)
		q = q.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR phone LIKE ? ESCAPE '\\')", p, p)
	}
	switch filter.Credit {
	case "remaining":
		q = q.Where("credit_amount > 0")
	case "cleared":
		q = q.Where("credit_amount = 0")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").
		Offset(offset(filter.Page, filter.Limit)).Limit(filter.Limit).
		Find(&customers).Error
	return customers, total, err
}

func (r *customerRepo) Search(ctx context.Context, owner uuid.UUID, q string, limit int) ([]model.Customer, error) {
	var customers []model.Customer
	p := likePattern(q)
	err := r.db.WithContext(ctx).Scopes(ownedBy("customers", owner)).
		Where("(LOWER(name) LIKE ? ESCAPE '\\' OR phone LIKE ? ESCAPE '\\')", p, p).
		Order("name ASC").Limit(limit).
		Find(&customers).Error
	return customers, err
}

func (r *customerRepo) Update(ctx context.Context, c *model.Customer) error {
	return r.db.WithContext(ctx).Model(c).
		Select("name", "phone", "email", "address").
		Updates(c).Error
}

func (r *customerRepo) Delete(ctx context.Context, owner, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Sale{}).
			Where("user_id = ? AND customer_id = ?", owner, id).
			Update("customer_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND customer_id = ?", owner, id).
			Delete(&model.CreditPayment{}).Error; err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND id = ?", owner, id).Delete(&model.Customer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *customerRepo) Count(ctx context.Context, owner uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Customer{}).Scopes(ownedBy("customers", owner)).Count(&n).Error
	return n, err
}

func (r *customerRepo) SumCredit(ctx context.Context, owner uuid.UUID) (decimal.Decimal, error) {
	var row struct{ Total decimal.Decimal }
	err := r.db.WithContext(ctx).Model(&model.Customer{}).Scopes(ownedBy("customers", owner)).
		Select("COALESCE(SUM(credit_amount), 0) AS total").Scan(&row).Error
	return row.Total, err
}

func (r *customerRepo) ListIDs(ctx context.Context, owner uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.Customer{}).Scopes(ownedBy("customers", owner)).
		Order("created_at ASC").Pluck("id", &ids).Error
	return ids, err
}

// clampedAdd is "column + ?" floored at zero, portable across Postgres and SQLite.
func clampedAdd(column string, v any) clause.Expr {
	return gorm.Expr("CASE WHEN "+column+" + ? < 0 THEN 0 ELSE "+column+" + ? END", v, v)
}

func (r *customerRepo) ApplyLedgerTx(tx *gorm.DB, owner, id uuid.UUID, d LedgerDelta) error {
	res := tx.Model(&model.Customer{}).
		Where("user_id = ? AND id = ?", owner, id).
		Updates(map[string]interface{}{
			"total_purchased": clampedAdd("total_purchased", d.Purchased),
			"total_visits":    clampedAdd("total_visits", d.Visits),
			"credit_amount":   clampedAdd("credit_amount", d.Credit),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *customerRepo) DeductCreditTx(tx *gorm.DB, owner, id uuid.UUID, amount decimal.Decimal) (bool, error) {
	res := tx.Model(&model.Customer{}).
		Where("user_id = ? AND id = ? AND credit_amount >= ?", owner, id, amount).
		Update("credit_amount", gorm.Expr("credit_amount - ?", amount))
	return res.RowsAffected == 1, res.Error
}

func (r *customerRepo) SetLedgerTx(tx *gorm.DB, owner, id uuid.UUID, purchased decimal.Decimal, visits int, credit decimal.Decimal) error {
	return tx.Model(&model.Customer{}).
		Where("user_id = ? AND id = ?", owner, id).
		Updates(map[string]interface{}{
			"total_purchased": purchased,
			"total_visits":    visits,
			"credit_amount":   credit,
		}).Error
}

func (r *customerRepo) CreatePaymentTx(tx *gorm.DB, p *model.CreditPayment) error {
	return tx.Create(p).Error
}

func (r *customerRepo) ListPayments(ctx context.Context, owner, customerID uuid.UUID, limit int) ([]model.CreditPayment, error) {
	var payments []model.CreditPayment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND customer_id = ?", owner, customerID).
		Order("created_at DESC").Limit(limit).
		Find(&payments).Error
	return payments, err
}

func (r *customerRepo) SumPaymentsTx(tx *gorm.DB, owner, customerID uuid.UUID) (decimal.Decimal, error) {
	var row struct{ Total decimal.Decimal }
	err := tx.Model(&model.CreditPayment{}).
		Where("user_id = ? AND customer_id = ?", owner, customerID).
		Select("COALESCE(SUM(amount), 0) AS total").Scan(&row).Error
	return row.Total, err
}
