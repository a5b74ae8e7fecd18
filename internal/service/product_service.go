package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"subhlabh/internal/apierror"
	"subhlabh/internal/dto"
	"subhlabh/internal/model"
	"subhlabh/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	productMovements = 20
	lowStockLimit    = 50
)

type ProductService interface {
	Create(ctx context.Context, owner uuid.UUID, req dto.ProductRequest) (*dto.ProductResponse, error)
	Get(ctx context.Context, owner, id uuid.UUID) (*dto.ProductResponse, error)
	Detail(ctx context.Context, owner, id uuid.UUID) (*dto.ProductDetailResponse, error)
	List(ctx context.Context, owner uuid.UUID, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	Search(ctx context.Context, owner uuid.UUID, q string) ([]dto.ProductSearchResult, error)
	// Export writes the active catalog as CSV.
	Export(ctx context.Context, owner uuid.UUID, w io.Writer) error
	LowStock(ctx context.Context, owner uuid.UUID) ([]dto.ProductResponse, error)
	Update(ctx context.Context, owner, id uuid.UUID, req dto.ProductRequest) (*dto.ProductResponse, error)
	// Delete is a soft delete: the product stays referenced by its sale items.
	Delete(ctx context.Context, owner, id uuid.UUID) error
	AdjustStock(ctx context.Context, owner, id uuid.UUID, req dto.AdjustStockRequest) (*dto.ProductResponse, error)
}

type productService struct {
	repo      repository.ProductRepository
	movements repository.StockMovementRepository
	dashboard DashboardInvalidator
	threshold decimal.Decimal
}

func NewProductService(
	repo repository.ProductRepository,
	movements repository.StockMovementRepository,
	dashboard DashboardInvalidator,
	lowStockThreshold decimal.Decimal,
) ProductService {
	return &productService{repo: repo, movements: movements, dashboard: orNoop(dashboard), threshold: lowStockThreshold}
}

// stockFor returns the stock a request may set: services never carry stock.
func stockFor(req dto.ProductRequest) decimal.Decimal {
	if req.ProductType == model.ProductTypeService {
		return decimal.Zero
	}
	return req.StockQuantity.Round(2)
}

func (s *productService) Create(ctx context.Context, owner uuid.UUID, req dto.ProductRequest) (*dto.ProductResponse, error) {
	p := &model.Product{
		UserID:        owner,
		Name:          strings.TrimSpace(req.Name),
		ProductType:   req.ProductType,
		Category:      req.Category,
		Description:   trimmedOrNil(req.Description),
		Price:         req.Price.Round(2),
		Unit:          req.Unit,
		StockQuantity: stockFor(req),
		IsActive:      true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.dashboard.Invalidate(ctx, owner)
	resp := toProductResponse(p, s.threshold)
	return &resp, nil
}

func (s *productService) Get(ctx context.Context, owner, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, owner, id)
	if err != nil {
		return nil, notFound(err, "product not found")
	}
	resp := toProductResponse(p, s.threshold)
	return &resp, nil
}

func (s *productService) Detail(ctx context.Context, owner, id uuid.UUID) (*dto.ProductDetailResponse, error) {
	p, err := s.repo.FindByID(ctx, owner, id)
	if err != nil {
		return nil, notFound(err, "product not found")
	}
	stats, err := s.repo.SalesStats(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	movements, err := s.movements.ListByProduct(ctx, owner, id, productMovements)
	if err != nil {
		return nil, err
	}

	resp := &dto.ProductDetailResponse{
		Product:   toProductResponse(p, s.threshold),
		TotalSold: stats.Quantity,
		Revenue:   stats.Revenue.Round(2),
		Movements: make([]dto.StockMovementResponse, len(movements)),
	}
	for i, m := range movements {
		r := dto.StockMovementResponse{
			Kind:        m.Kind,
			Delta:       m.Delta,
			StockBefore: m.StockBefore,
			StockAfter:  m.StockAfter,
			Note:        m.Note,
			CreatedAt:   m.CreatedAt,
		}
		if m.ReferenceID != nil {
			ref := m.ReferenceID.String()
			r.ReferenceID = &ref
		}
		resp.Movements[i] = r
	}
	return resp, nil
}

func (s *productService) List(ctx context.Context, owner uuid.UUID, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	products, total, err := s.repo.List(ctx, owner, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProductResponse, len(products))
	for i := range products {
		out[i] = toProductResponse(&products[i], s.threshold)
	}
	return &dto.ProductListResponse{
		Data:     out,
		ListMeta: dto.ListMeta{Total: total, Page: filter.Page, Limit: filter.Limit},
	}, nil
}

func (s *productService) Export(ctx context.Context, owner uuid.UUID, w io.Writer) error {
	products, err := s.repo.Export(ctx, owner)
	if err != nil {
		return err
	}
	return writeProductsCSV(w, products)
}

func (s *productService) Search(ctx context.Context, owner uuid.UUID, q string) ([]dto.ProductSearchResult, error) {
	out := []dto.ProductSearchResult{}
	if strings.TrimSpace(q) == "" {
		return out, nil
	}
	products, err := s.repo.Search(ctx, owner, q, searchLimit)
	if err != nil {
		return nil, err
	}
	for i := range products {
		p := &products[i]
		out = append(out, dto.ProductSearchResult{
			ID:            p.ID.String(),
			Name:          p.Name,
			Price:         p.Price,
			StockQuantity: p.StockQuantity,
			Category:      p.Category,
			ProductType:   p.ProductType,
			Unit:          p.Unit,
			IsLowStock:    p.IsLowStock(s.threshold),
		})
	}
	return out, nil
}

func (s *productService) LowStock(ctx context.Context, owner uuid.UUID) ([]dto.ProductResponse, error) {
	products, err := s.repo.LowStock(ctx, owner, s.threshold, lowStockLimit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProductResponse, len(products))
	for i := range products {
		out[i] = toProductResponse(&products[i], s.threshold)
	}
	return out, nil
}

// Update replaces the editable fields. A changed stock figure is recorded as
// an adjustment movement in the same transaction.
func (s *productService) Update(ctx context.Context, owner, id uuid.UUID, req dto.ProductRequest) (*dto.ProductResponse, error) {
	var p *model.Product
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		p, err = s.repo.LockForUpdateTx(tx, owner, id)
		if err != nil {
			return notFound(err, "product not found")
		}
		if !p.IsActive {
			return apierror.NotFound("product not found")
		}
		before := p.StockQuantity
		p.Name = strings.TrimSpace(req.Name)
		p.ProductType = req.ProductType
		p.Category = req.Category
		p.Description = trimmedOrNil(req.Description)
		p.Price = req.Price.Round(2)
		p.Unit = req.Unit
		p.StockQuantity = stockFor(req)
		if err := s.repo.UpdateTx(tx, p); err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if before.Equal(p.StockQuantity) {
			return nil
		}
		return s.movements.CreateTx(tx, &model.StockMovement{
			UserID:      owner,
			ProductID:   p.ID,
			Kind:        model.MovementAdjustment,
			Delta:       p.StockQuantity.Sub(before),
			StockBefore: before,
			StockAfter:  p.StockQuantity,
			Note:        "product edited",
		})
	})
	if txErr != nil {
		return nil, txErr
	}
	s.dashboard.Invalidate(ctx, owner)
	resp := toProductResponse(p, s.threshold)
	return &resp, nil
}

func (s *productService) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, owner, id); err != nil {
		return notFound(err, "product not found")
	}
	s.dashboard.Invalidate(ctx, owner)
	return nil
}

func (s *productService) AdjustStock(ctx context.Context, owner, id uuid.UUID, req dto.AdjustStockRequest) (*dto.ProductResponse, error) {
	delta := req.Delta.Round(2)
	if delta.IsZero() {
		return nil, apierror.Validation("delta must not be zero")
	}
	var p *model.Product
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		p, err = s.repo.LockForUpdateTx(tx, owner, id)
		if err != nil {
			return notFound(err, "product not found")
		}
		if !p.IsActive {
			return apierror.NotFound("product not found")
		}
		if !p.TracksStock() {
			return apierror.Business("services do not carry stock")
		}
		before := p.StockQuantity
		after := before.Add(delta)
		if after.IsNegative() {
			return apierror.Business(fmt.Sprintf("cannot remove %s %s: only %s in stock",
				delta.Neg().String(), p.Unit, before.String()))
		}
		if delta.IsPositive() {
			err = s.repo.IncrementStockTx(tx, owner, id, delta)
		} else {
			var ok bool
			ok, err = s.repo.DecrementStockTx(tx, owner, id, delta.Neg())
			if err == nil && !ok {
				return apierror.Business("stock changed while adjusting, please retry")
			}
		}
		if err != nil {
			return fmt.Errorf("adjust stock: %w", err)
		}
		p.StockQuantity = after
		return s.movements.CreateTx(tx, &model.StockMovement{
			UserID:      owner,
			ProductID:   p.ID,
			Kind:        model.MovementAdjustment,
			Delta:       delta,
			StockBefore: before,
			StockAfter:  after,
			Note:        strings.TrimSpace(req.Note),
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	s.dashboard.Invalidate(ctx, owner)
	log.Info().
		Str("owner", owner.String()).
		Str("product_id", id.String()).
		Str("delta", delta.String()).
		Str("stock", p.StockQuantity.String()).
		Msg("stock adjusted")
	resp := toProductResponse(p, s.threshold)
	return &resp, nil
}
