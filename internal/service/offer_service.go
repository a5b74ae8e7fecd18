package service

import (
	"context"
	"fmt"
	"time"

	"subhlabh/internal/apierror"
	"subhlabh/internal/dto"
	"subhlabh/internal/model"
	"subhlabh/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// OfferCache stores an owner's currently valid offers.
type OfferCache interface {
	Get(ctx context.Context, owner uuid.UUID) ([]dto.OfferResponse, bool)
	Set(ctx context.Context, owner uuid.UUID, offers []dto.OfferResponse)
	Invalidate(ctx context.Context, owner uuid.UUID) error
}

type OfferService interface {
	Create(ctx context.Context, owner uuid.UUID, req dto.OfferRequest) (*dto.OfferResponse, error)
	Get(ctx context.Context, owner, id uuid.UUID) (*dto.OfferResponse, error)
	List(ctx context.Context, owner uuid.UUID) ([]dto.OfferResponse, error)
	// Active returns the offers valid right now.
	Active(ctx context.Context, owner uuid.UUID) ([]dto.OfferResponse, error)
	Update(ctx context.Context, owner, id uuid.UUID, req dto.OfferRequest) (*dto.OfferResponse, error)
	// Delete removes an unused offer. An offer already applied to sales is
	// deactivated instead and deactivated=true is returned.
	Delete(ctx context.Context, owner, id uuid.UUID) (deactivated bool, err error)
	Preview(ctx context.Context, owner, id uuid.UUID, req dto.OfferPreviewRequest) (*dto.OfferPreviewResponse, error)
}

type offerService struct {
	repo     repository.OfferRepository
	products repository.ProductRepository
	sales    repository.SaleRepository
	cache    OfferCache
	clock    *Clock
}

func NewOfferService(
	repo repository.OfferRepository,
	products repository.ProductRepository,
	sales repository.SaleRepository,
	cache OfferCache,
	clock *Clock,
) OfferService {
	return &offerService{repo: repo, products: products, sales: sales, cache: cache, clock: clock}
}

// ── Validation ────────────────────────────────────────────────────────────────

func (s *offerService) build(ctx context.Context, owner uuid.UUID, req dto.OfferRequest, o *model.Offer) error {
	if !req.StartDate.Before(req.EndDate) {
		return apierror.Validation("start_date must be before end_date")
	}
	switch req.OfferType {
	case model.OfferPercentage:
		if !req.DiscountValue.IsPositive() || req.DiscountValue.GreaterThan(hundred) {
			return apierror.Validation("percentage discount must be greater than 0 and at most 100")
		}
	case model.OfferFlat:
		if !req.DiscountValue.IsPositive() {
			return apierror.Validation("flat discount must be greater than 0")
		}
	case model.OfferBOGO:
		if req.BuyQuantity <= 0 || req.GetQuantity <= 0 {
			return apierror.Validation("buy_quantity and get_quantity must be greater than 0 for bogo offers")
		}
	default:
		return apierror.Validation("unknown offer_type")
	}

	ids := make([]uuid.UUID, 0, len(req.ApplicableProductIDs))
	seen := make(map[uuid.UUID]bool, len(req.ApplicableProductIDs))
	for _, raw := range req.ApplicableProductIDs {
		id, err := parseID(raw, "applicable_product_ids")
		if err != nil {
			return err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	products, err := s.products.FindActiveByIDs(ctx, owner, ids)
	if err != nil {
		return err
	}
	if len(products) != len(ids) {
		return apierror.Validation("one or more applicable products were not found")
	}

	o.UserID = owner
	o.Name = req.Name
	o.Description = req.Description
	o.OfferType = req.OfferType
	o.DiscountValue = req.DiscountValue
	o.MinPurchaseAmount = req.MinPurchaseAmount
	o.BuyQuantity = req.BuyQuantity
	o.GetQuantity = req.GetQuantity
	if req.OfferType == model.OfferBOGO {
		o.DiscountValue = decimal.Zero
	} else {
		o.BuyQuantity, o.GetQuantity = 0, 0
	}
	o.StartDate = req.StartDate.UTC()
	o.EndDate = req.EndDate.UTC()
	o.IsActive = req.IsActive == nil || *req.IsActive
	o.ApplicableProducts = products
	return nil
}

func (s *offerService) invalidate(ctx context.Context, owner uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, owner); err != nil {
		log.Error().Err(err).Str("owner", owner.String()).Msg("offer cache: invalidate failed")
	}
}

// ── CRUD ──────────────────────────────────────────────────────────────────────

func (s *offerService) Create(ctx context.Context, owner uuid.UUID, req dto.OfferRequest) (*dto.OfferResponse, error) {
	o := &model.Offer{}
	if err := s.build(ctx, owner, req, o); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	s.invalidate(ctx, owner)
	resp := toOfferResponse(o, s.clock.Now())
	return &resp, nil
}

func (s *offerService) Get(ctx context.Context, owner, id uuid.UUID) (*dto.OfferResponse, error) {
	o, err := s.repo.FindByID(ctx, owner, id)
	if err != nil {
		return nil, notFound(err, "offer not found")
	}
	resp := toOfferResponse(o, s.clock.Now())
	return &resp, nil
}

func (s *offerService) List(ctx context.Context, owner uuid.UUID) ([]dto.OfferResponse, error) {
	offers, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	out := make([]dto.OfferResponse, len(offers))
	for i := range offers {
		out[i] = toOfferResponse(&offers[i], now)
	}
	return out, nil
}

func (s *offerService) Active(ctx context.Context, owner uuid.UUID) ([]dto.OfferResponse, error) {
	now := s.clock.Now()
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, owner); ok {
			return stillValid(cached, now), nil
		}
	}

	offers, err := s.repo.ListValid(ctx, owner, now)
	if err != nil {
		return nil, err
	}
	out := make([]dto.OfferResponse, len(offers))
	for i := range offers {
		out[i] = toOfferResponse(&offers[i], now)
	}
	if s.cache != nil {
		s.cache.Set(ctx, owner, out)
	}
	return out, nil
}

// stillValid drops cached offers whose window closed after they were cached.
func stillValid(offers []dto.OfferResponse, now time.Time) []dto.OfferResponse {
	out := make([]dto.OfferResponse, 0, len(offers))
	for _, o := range offers {
		if o.IsActive && !now.Before(o.StartDate) && !now.After(o.EndDate) {
			o.IsValid = true
			out = append(out, o)
		}
	}
	return out
}

func (s *offerService) Update(ctx context.Context, owner, id uuid.UUID, req dto.OfferRequest) (*dto.OfferResponse, error) {
	o, err := s.repo.FindByID(ctx, owner, id)
	if err != nil {
		return nil, notFound(err, "offer not found")
	}
	if err := s.build(ctx, owner, req, o); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("update offer: %w", err)
	}
	s.invalidate(ctx, owner)
	resp := toOfferResponse(o, s.clock.Now())
	return &resp, nil
}

func (s *offerService) Delete(ctx context.Context, owner, id uuid.UUID) (bool, error) {
	if _, err := s.repo.FindByID(ctx, owner, id); err != nil {
		return false, notFound(err, "offer not found")
	}
	used, err := s.sales.CountByOffer(ctx, owner, id)
	if err != nil {
		return false, err
	}
	if used > 0 {
		if err := s.repo.Deactivate(ctx, owner, id); err != nil {
			return false, err
		}
		s.invalidate(ctx, owner)
		return true, nil
	}
	if err := s.repo.Delete(ctx, owner, id); err != nil {
		return false, notFound(err, "offer not found")
	}
	s.invalidate(ctx, owner)
	return false, nil
}

// ── Preview ───────────────────────────────────────────────────────────────────

func (s *offerService) Preview(ctx context.Context, owner, id uuid.UUID, req dto.OfferPreviewRequest) (*dto.OfferPreviewResponse, error) {
	o, err := s.repo.FindByID(ctx, owner, id)
	if err != nil {
		return nil, notFound(err, "offer not found")
	}
	lines := make([]pricedLine, 0, len(req.Items))
	for _, it := range req.Items {
		pid, err := parseID(it.ProductID, "product_id")
		if err != nil {
			return nil, err
		}
		lines = append(lines, pricedLine{ProductID: pid, Quantity: it.Quantity, Price: it.Price})
	}

	total := itemsTotal(lines)
	resp := &dto.OfferPreviewResponse{
		OfferID:        o.ID.String(),
		ItemsTotal:     total,
		DiscountAmount: decimal.Zero,
		FinalTotal:     total,
	}
	if !o.IsValidAt(s.clock.Now()) {
		resp.Message = "offer is not valid right now"
		return resp, nil
	}
	discount, err := computeDiscount(o, lines)
	if err != nil {
		if apierror.IsKind(err, apierror.KindBusiness) {
			resp.Message = err.Error()
			return resp, nil
		}
		return nil, err
	}
	resp.Applicable = true
	resp.DiscountAmount = discount
	resp.FinalTotal = total.Sub(discount)
	return resp, nil
}
