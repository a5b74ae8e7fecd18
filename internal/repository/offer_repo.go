package repository

import (
	"context"
	"time"

	"subhlabh/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OfferRepository interface {
	Create(ctx context.Context, o *model.Offer) error
	FindByID(ctx context.Context, owner, id uuid.UUID) (*model.Offer, error)
	FindByIDTx(tx *gorm.DB, owner, id uuid.UUID) (*model.Offer, error)
	List(ctx context.Context, owner uuid.UUID) ([]model.Offer, error)
	// ListValid returns offers that are active with now inside their window.
	ListValid(ctx context.Context, owner uuid.UUID, now time.Time) ([]model.Offer, error)
	// Update saves scalar fields and replaces the applicable product set.
	Update(ctx context.Context, o *model.Offer) error
	Deactivate(ctx context.Context, owner, id uuid.UUID) error
	Delete(ctx context.Context, owner, id uuid.UUID) error
}

type offerRepo struct{ db *gorm.DB }

func NewOfferRepository(db *gorm.DB) OfferRepository { return &offerRepo{db: db} }

func (r *offerRepo) Create(ctx context.Context, o *model.Offer) error {
	return r.db.WithContext(ctx).Omit("ApplicableProducts.*").Create(o).Error
}

func (r *offerRepo) FindByID(ctx context.Context, owner, id uuid.UUID) (*model.Offer, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), owner, id)
}

func (r *offerRepo) FindByIDTx(tx *gorm.DB, owner, id uuid.UUID) (*model.Offer, error) {
	var o model.Offer
	err := tx.Preload("ApplicableProducts").
		Scopes(ownedBy("offers", owner)).
		First(&o, "id = ?", id).Error
	return &o, err
}

func (r *offerRepo) List(ctx context.Context, owner uuid.UUID) ([]model.Offer, error) {
	var offers []model.Offer
	err := r.db.WithContext(ctx).Preload("ApplicableProducts").
		Scopes(ownedBy("offers", owner)).
		Order("created_at DESC").
		Find(&offers).Error
	return offers, err
}

func (r *offerRepo) ListValid(ctx context.Context, owner uuid.UUID, now time.Time) ([]model.Offer, error) {
	var offers []model.Offer
	now = now.UTC()
	err := r.db.WithContext(ctx).Preload("ApplicableProducts").
		Scopes(ownedBy("offers", owner)).
		Where("is_active = ? AND start_date <= ? AND end_date >= ?", true, now, now).
		Order("end_date ASC").
		Find(&offers).Error
	return offers, err
}

func (r *offerRepo) Update(ctx context.Context, o *model.Offer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(o).Select(
			"name", "description", "offer_type", "discount_value", "min_purchase_amount",
			"buy_quantity", "get_quantity", "start_date", "end_date", "is_active",
		).Updates(o).Error; err != nil {
			return err
		}
		return tx.Model(o).Omit("ApplicableProducts.*").
			Association("ApplicableProducts").Replace(o.ApplicableProducts)
	})
}

func (r *offerRepo) Deactivate(ctx context.Context, owner, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Offer{}).
		Where("user_id = ? AND id = ?", owner, id).
		Update("is_active", false).Error
}

func (r *offerRepo) Delete(ctx context.Context, owner, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM offer_products WHERE offer_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND id = ?", owner, id).Delete(&model.Offer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
