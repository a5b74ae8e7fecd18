package repository

import (
	"context"
	"time"

	"subhlabh/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ShopUserRepository interface {
	Create(ctx context.Context, u *model.ShopUser) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ShopUser, error)
	FindByEmail(ctx context.Context, email string) (*model.ShopUser, error)
	Update(ctx context.Context, u *model.ShopUser) error
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	// ListPendingDeletion returns accounts whose deletion was requested before cutoff.
	ListPendingDeletion(ctx context.Context, cutoff time.Time) ([]model.ShopUser, error)
	// Purge deletes the account and every row it owns in one transaction.
	Purge(ctx context.Context, id uuid.UUID) error
}

type shopUserRepo struct{ db *gorm.DB }

func NewShopUserRepository(db *gorm.DB) ShopUserRepository { return &shopUserRepo{db: db} }

func (r *shopUserRepo) Create(ctx context.Context, u *model.ShopUser) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *shopUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ShopUser, error) {
	var u model.ShopUser
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	return &u, err
}

func (r *shopUserRepo) FindByEmail(ctx context.Context, email string) (*model.ShopUser, error) {
	var u model.ShopUser
	err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&u).Error
	return &u, err
}

func (r *shopUserRepo) Update(ctx context.Context, u *model.ShopUser) error {
	return r.db.WithContext(ctx).Save(u).Error
}

func (r *shopUserRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.ShopUser{}).Order("created_at ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *shopUserRepo) ListPendingDeletion(ctx context.Context, cutoff time.Time) ([]model.ShopUser, error) {
	var users []model.ShopUser
	err := r.db.WithContext(ctx).
		Where("is_pending_deletion = ? AND deletion_requested_at IS NOT NULL AND deletion_requested_at <= ?", true, cutoff.UTC()).
		Find(&users).Error
	return users, err
}

func (r *shopUserRepo) Purge(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		saleIDs := tx.Model(&model.Sale{}).Select("id").Where("user_id = ?", id)
		offerIDs := tx.Model(&model.Offer{}).Select("id").Where("user_id = ?", id)

		steps := []func() error{
			func() error { return tx.Where("sale_id IN (?)", saleIDs).Delete(&model.SaleOffer{}).Error },
			func() error { return tx.Where("sale_id IN (?)", saleIDs).Delete(&model.SaleItem{}).Error },
			func() error { return tx.Where("user_id = ?", id).Delete(&model.Sale{}).Error },
			func() error { return tx.Exec("DELETE FROM offer_products WHERE offer_id IN (?)", offerIDs).Error },
			func() error { return tx.Where("user_id = ?", id).Delete(&model.Offer{}).Error },
			func() error { return tx.Where("user_id = ?", id).Delete(&model.StockMovement{}).Error },
			func() error { return tx.Where("user_id = ?", id).Delete(&model.Product{}).Error },
			func() error { return tx.Where("user_id = ?", id).Delete(&model.CreditPayment{}).Error },
			func() error { return tx.Where("user_id = ?", id).Delete(&model.Customer{}).Error },
			func() error { return tx.Where("id = ?", id).Delete(&model.ShopUser{}).Error },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
}
