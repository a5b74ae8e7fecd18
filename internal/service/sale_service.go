package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"subhlabh/internal/dto"
	"subhlabh/internal/infra"
	"subhlabh/internal/model"
	"subhlabh/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleService interface {
	List(ctx context.Context, owner uuid.UUID, filter dto.SaleFilter) (*dto.SaleListResponse, error)
	Get(ctx context.Context, owner, id uuid.UUID) (*dto.SaleDetailResponse, error)
	Export(ctx context.Context, owner uuid.UUID, filter dto.SaleFilter, w io.Writer) error
	// Delete removes a sale and reverses its stock and ledger effects.
	Delete(ctx context.Context, owner, id uuid.UUID) error
	// Receipt returns the PDF receipt, rendering it when no stored copy exists.
	Receipt(ctx context.Context, owner, id uuid.UUID) ([]byte, error)
}

type saleService struct {
	sales       repository.SaleRepository
	products    repository.ProductRepository
	customers   repository.CustomerRepository
	movements   repository.StockMovementRepository
	users       repository.ShopUserRepository
	dashboard   DashboardInvalidator
	clock       *Clock
	storagePath string
}

func NewSaleService(
	sales repository.SaleRepository,
	products repository.ProductRepository,
	customers repository.CustomerRepository,
	movements repository.StockMovementRepository,
	users repository.ShopUserRepository,
	dashboard DashboardInvalidator,
	clock *Clock,
	storagePath string,
) SaleService {
	return &saleService{
		sales:       sales,
		products:    products,
		customers:   customers,
		movements:   movements,
		users:       users,
		dashboard:   orNoop(dashboard),
		clock:       clock,
		storagePath: storagePath,
	}
}

// query resolves a SaleFilter against the shop timezone.
func (s *saleService) query(ctx context.Context, owner uuid.UUID, filter dto.SaleFilter) (repository.SaleQuery, error) {
	dr, err := parseDayRange(filter.DateFrom, filter.DateTo, s.clock.Location(ctx, owner))
	if err != nil {
		return repository.SaleQuery{}, err
	}
	q := repository.SaleQuery{
		Search: filter.Q,
		Range:  dr,
		Method: filter.PaymentMethod,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	if filter.CustomerID != "" {
		id, err := parseID(filter.CustomerID, "customer_id")
		if err != nil {
			return repository.SaleQuery{}, err
		}
		q.CustomerID = &id
	}
	return q, nil
}

func (s *saleService) List(ctx context.Context, owner uuid.UUID, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	q, err := s.query(ctx, owner, filter)
	if err != nil {
		return nil, err
	}

	sales, total, err := s.sales.List(ctx, owner, q)
	if err != nil {
		return nil, err
	}
	return &dto.SaleListResponse{
		Data:     toSaleListItems(sales),
		ListMeta: dto.ListMeta{Total: total, Page: filter.Page, Limit: filter.Limit},
	}, nil
}

// Export writes every sale matching filter as CSV, one row per sale item.
// Paging fields are ignored.
func (s *saleService) Export(ctx context.Context, owner uuid.UUID, filter dto.SaleFilter, w io.Writer) error {
	q, err := s.query(ctx, owner, filter)
	if err != nil {
		return err
	}
	sales, err := s.sales.Export(ctx, owner, q)
	if err != nil {
		return err
	}
	return writeSalesCSV(w, sales, s.clock.Location(ctx, owner))
}

func (s *saleService) Get(ctx context.Context, owner, id uuid.UUID) (*dto.SaleDetailResponse, error) {
	sale, err := s.sales.FindByID(ctx, owner, id)
	if err != nil {
		return nil, notFound(err, "sale not found")
	}
	return toSaleDetail(sale), nil
}

// ── Delete ────────────────────────────────────────────────────────────────────
// Mirror image of Checkout: stock back for every stocked item, ledger delta
// negated, then the sale with its items and offer records.

func (s *saleService) Delete(ctx context.Context, owner, id uuid.UUID) error {
	var sale *model.Sale
	txErr := runTx(ctx, s.sales.DB(), func(tx *gorm.DB) error {
		var err error
		sale, err = s.sales.FindForDeleteTx(tx, owner, id)
		if err != nil {
			return notFound(err, "sale not found")
		}

		// Same lock order as Checkout.
		slices.SortFunc(sale.Items, func(a, b model.SaleItem) int {
			return bytes.Compare(a.ProductID[:], b.ProductID[:])
		})
		for _, item := range sale.Items {
			if item.Product == nil || !item.Product.TracksStock() {
				continue
			}
			p, err := s.products.LockForUpdateTx(tx, owner, item.ProductID)
			if err != nil {
				return fmt.Errorf("lock product %s: %w", item.ProductID, err)
			}
			if err := s.products.IncrementStockTx(tx, owner, p.ID, item.Quantity); err != nil {
				return fmt.Errorf("restore stock of %s: %w", p.Name, err)
			}
			ref := sale.ID
			if err := s.movements.CreateTx(tx, &model.StockMovement{
				UserID:      owner,
				ProductID:   p.ID,
				Kind:        model.MovementSaleReversal,
				Delta:       item.Quantity,
				StockBefore: p.StockQuantity,
				StockAfter:  p.StockQuantity.Add(item.Quantity),
				Note:        "sale deleted",
				ReferenceID: &ref,
			}); err != nil {
				return err
			}
		}

		if sale.CustomerID != nil {
			delta := repository.LedgerDelta{Purchased: sale.TotalAmount.Neg(), Visits: -1, Credit: decimal.Zero}
			if !sale.IsPaid {
				delta.Credit = sale.TotalAmount.Neg()
			}
			err := s.customers.ApplyLedgerTx(tx, owner, *sale.CustomerID, delta)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("reverse customer ledger: %w", err)
			}
		}

		if err := s.sales.DeleteTx(tx, sale.ID); err != nil {
			return notFound(err, "sale not found")
		}
		return nil
	})
	if txErr != nil {
		return txErr
	}

	s.dashboard.Invalidate(ctx, owner)
	if s.storagePath != "" {
		path := filepath.Join(s.storagePath, infra.ReceiptFileName(sale.ID))
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("sale delete: could not remove receipt")
		}
	}
	log.Info().
		Str("owner", owner.String()).
		Str("sale_id", sale.ID.String()).
		Str("total", sale.TotalAmount.StringFixed(2)).
		Msg("sale deleted")
	return nil
}

func (s *saleService) Receipt(ctx context.Context, owner, id uuid.UUID) ([]byte, error) {
	sale, err := s.sales.FindByID(ctx, owner, id)
	if err != nil {
		return nil, notFound(err, "sale not found")
	}
	if s.storagePath != "" {
		if b, err := os.ReadFile(filepath.Join(s.storagePath, infra.ReceiptFileName(sale.ID))); err == nil {
			return b, nil
		}
	}

	hdr := infra.ReceiptHeader{Location: s.clock.Location(ctx, owner)}
	if u, err := s.users.FindByID(ctx, owner); err == nil {
		hdr.ShopName = u.ShopName
	}
	var buf bytes.Buffer
	if err := infra.WriteReceiptPDF(&buf, sale, hdr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
