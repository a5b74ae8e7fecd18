package service

import (
	"context"
	"fmt"
	"strings"

	"subhlabh/internal/apierror"
	"subhlabh/internal/dto"
	"subhlabh/internal/model"
	"subhlabh/internal/repository"
	"subhlabh/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BillingService interface {
	Checkout(ctx context.Context, owner uuid.UUID, req dto.BillingRequest) (*dto.BillingResponse, error)
}

type billingService struct {
	sales      repository.SaleRepository
	products   repository.ProductRepository
	customers  repository.CustomerRepository
	offers     repository.OfferRepository
	movements  repository.StockMovementRepository
	dashboard  DashboardInvalidator
	dispatcher *worker.Dispatcher
	clock      *Clock
}

func NewBillingService(
	sales repository.SaleRepository,
	products repository.ProductRepository,
	customers repository.CustomerRepository,
	offers repository.OfferRepository,
	movements repository.StockMovementRepository,
	dashboard DashboardInvalidator,
	dispatcher *worker.Dispatcher,
	clock *Clock,
) BillingService {
	return &billingService{
		sales:      sales,
		products:   products,
		customers:  customers,
		offers:     offers,
		movements:  movements,
		dashboard:  orNoop(dashboard),
		dispatcher: dispatcher,
		clock:      clock,
	}
}

// billingLine is a request line after ids have been parsed.
type billingLine struct {
	productID *uuid.UUID // nil for custom lines
	quantity  decimal.Decimal
	price     *decimal.Decimal
	custom    *model.Product
}

// ── Checkout ──────────────────────────────────────────────────────────────────
// One transaction:
//   1. Resolve customer, lock every catalog product FOR UPDATE
//   2. Check stock against the cumulative quantity per product
//   3. Materialize custom lines as inactive service products
//   4. Recompute the offer discount server-side
//   5. Create sale + items, decrement stock with movements, record the offer
//   6. Apply the customer ledger delta (final total)
// After commit: invalidate the dashboard, enqueue the receipt job.

func (s *billingService) Checkout(ctx context.Context, owner uuid.UUID, req dto.BillingRequest) (*dto.BillingResponse, error) {
	var customerID *uuid.UUID
	if req.CustomerID != nil && *req.CustomerID != "" {
		id, err := parseID(*req.CustomerID, "customer_id")
		if err != nil {
			return nil, err
		}
		customerID = &id
	}
	var offerID *uuid.UUID
	if req.OfferID != nil && *req.OfferID != "" {
		id, err := parseID(*req.OfferID, "offer_id")
		if err != nil {
			return nil, err
		}
		offerID = &id
	}
	if offerID == nil && req.DiscountAmount != nil && req.DiscountAmount.IsPositive() {
		return nil, apierror.Validation("discount_amount requires an offer_id")
	}
	if !req.IsPaid && customerID == nil {
		return nil, apierror.Business("an unpaid sale needs a customer to add the udhar to")
	}

	lines, err := parseBillingLines(req.Items)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var sale model.Sale
	txErr := runTx(ctx, s.sales.DB(), func(tx *gorm.DB) error {
		if customerID != nil {
			if _, err := s.customers.FindByIDTx(tx, owner, *customerID); err != nil {
				return notFound(err, "customer not found")
			}
		}

		locked, err := s.lockProducts(tx, owner, lines)
		if err != nil {
			return err
		}

		priced := make([]pricedLine, len(lines))
		for i := range lines {
			l := &lines[i]
			if l.custom != nil {
				l.custom.UserID = owner
				if err := s.products.CreateTx(tx, l.custom); err != nil {
					return fmt.Errorf("create custom item: %w", err)
				}
				id := l.custom.ID
				l.productID = &id
				priced[i] = pricedLine{ProductID: id, Quantity: l.quantity, Price: l.custom.Price}
				continue
			}
			price := locked[*l.productID].Price
			if l.price != nil {
				price = *l.price
			}
			priced[i] = pricedLine{ProductID: *l.productID, Quantity: l.quantity, Price: price}
		}

		total := itemsTotal(priced)
		discount := decimal.Zero
		var offer *model.Offer
		if offerID != nil {
			offer, err = s.offers.FindByIDTx(tx, owner, *offerID)
			if err != nil {
				return notFound(err, "offer not found")
			}
			if !offer.IsValidAt(now) {
				return apierror.Business(fmt.Sprintf("offer %q is not valid right now", offer.Name))
			}
			discount, err = computeDiscount(offer, priced)
			if err != nil {
				return err
			}
			if req.DiscountAmount != nil && !req.DiscountAmount.Round(2).Equal(discount) {
				log.Warn().
					Str("offer_id", offer.ID.String()).
					Str("client_discount", req.DiscountAmount.StringFixed(2)).
					Str("server_discount", discount.StringFixed(2)).
					Msg("billing: client discount replaced by server computation")
			}
		}

		final := total.Sub(discount)
		if final.IsNegative() {
			final = decimal.Zero
		}

		sale = model.Sale{
			UserID:         owner,
			CustomerID:     customerID,
			TotalAmount:    final,
			DiscountAmount: discount,
			PaymentMethod:  req.PaymentMethod,
			IsPaid:         req.IsPaid,
			AddedToUdhar:   !req.IsPaid,
			Notes:          strings.TrimSpace(req.Notes),
			SaleDate:       now,
		}
		if err := s.sales.CreateTx(tx, &sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		for _, pl := range priced {
			item := model.SaleItem{
				SaleID:      sale.ID,
				ProductID:   pl.ProductID,
				Quantity:    pl.Quantity,
				PriceAtSale: pl.Price,
			}
			if err := s.sales.CreateItemTx(tx, &item); err != nil {
				return fmt.Errorf("create sale item: %w", err)
			}
			p, ok := locked[pl.ProductID]
			if !ok || !p.TracksStock() {
				continue
			}
			if err := s.decrementStock(tx, owner, p, pl.Quantity, sale.ID); err != nil {
				return err
			}
		}

		if offer != nil {
			so := model.SaleOffer{SaleID: sale.ID, OfferID: offer.ID, DiscountAmount: discount}
			if err := s.sales.CreateSaleOfferTx(tx, &so); err != nil {
				return fmt.Errorf("record sale offer: %w", err)
			}
		}

		if customerID != nil {
			delta := repository.LedgerDelta{Purchased: final, Visits: 1, Credit: decimal.Zero}
			if !req.IsPaid {
				delta.Credit = final
			}
			if err := s.customers.ApplyLedgerTx(tx, owner, *customerID, delta); err != nil {
				return notFound(err, "customer not found")
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.dashboard.Invalidate(ctx, owner)
	if err := s.dispatcher.EnqueueReceipt(ctx, owner, sale.ID); err != nil {
		log.Error().Err(err).Str("sale_id", sale.ID.String()).Msg("billing: failed to enqueue receipt")
	}

	log.Info().
		Str("owner", owner.String()).
		Str("sale_id", sale.ID.String()).
		Str("total", sale.TotalAmount.StringFixed(2)).
		Str("discount", sale.DiscountAmount.StringFixed(2)).
		Bool("paid", sale.IsPaid).
		Int("items", len(lines)).
		Msg("sale created")

	return &dto.BillingResponse{
		Success:        true,
		Message:        "Sale completed",
		SaleID:         sale.ID.String(),
		TotalAmount:    sale.TotalAmount,
		DiscountAmount: sale.DiscountAmount,
	}, nil
}

func parseBillingLines(items []dto.BillingItemRequest) ([]billingLine, error) {
	if len(items) == 0 {
		return nil, apierror.Validation("the cart is empty")
	}
	lines := make([]billingLine, 0, len(items))
	for i, it := range items {
		if !it.Quantity.IsPositive() {
			return nil, apierror.Validation(fmt.Sprintf("item %d: quantity must be greater than 0", i+1))
		}
		switch {
		case it.ProductID != nil && *it.ProductID != "":
			id, err := parseID(*it.ProductID, "product_id")
			if err != nil {
				return nil, err
			}
			if it.Price != nil && it.Price.IsNegative() {
				return nil, apierror.Validation(fmt.Sprintf("item %d: price must not be negative", i+1))
			}
			lines = append(lines, billingLine{productID: &id, quantity: it.Quantity, price: it.Price})

		case it.IsCustom():
			name := strings.TrimSpace(*it.CustomName)
			if name == "" || it.CustomPrice == nil || it.CustomPrice.IsNegative() {
				return nil, apierror.Validation(fmt.Sprintf("item %d: custom items need a name and a price", i+1))
			}
			var desc *string
			if it.CustomDescription != nil && *it.CustomDescription != "" {
				desc = it.CustomDescription
			}
			lines = append(lines, billingLine{
				quantity: it.Quantity,
				custom: &model.Product{
					Name:        name,
					ProductType: model.ProductTypeService,
					Category:    "other",
					Description: desc,
					Price:       it.CustomPrice.Round(2),
					Unit:        "piece",
					IsActive:    false,
				},
			})

		default:
			return nil, apierror.Validation(fmt.Sprintf("item %d: needs product_id or custom_name with custom_price", i+1))
		}
	}
	return lines, nil
}

// lockProducts locks every referenced catalog product once, in id order so
// concurrent carts never wait on each other in a cycle, and checks stock
// against the total quantity requested for it across the cart.
func (s *billingService) lockProducts(tx *gorm.DB, owner uuid.UUID, lines []billingLine) (map[uuid.UUID]*model.Product, error) {
	requested := make(map[uuid.UUID]decimal.Decimal)
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		if l.productID == nil {
			continue
		}
		id := *l.productID
		if _, ok := requested[id]; !ok {
			ids = append(ids, id)
		}
		requested[id] = requested[id].Add(l.quantity)
	}
	sortIDs(ids)

	locked := make(map[uuid.UUID]*model.Product, len(ids))
	for _, id := range ids {
		p, err := s.products.LockForUpdateTx(tx, owner, id)
		if err != nil {
			return nil, notFound(err, "product not found")
		}
		if !p.IsActive {
			return nil, apierror.Business(fmt.Sprintf("%s is no longer sold", p.Name))
		}
		locked[id] = p
	}

	for _, id := range ids {
		p := locked[id]
		if p.TracksStock() && p.StockQuantity.LessThan(requested[id]) {
			return nil, insufficientStock(p, requested[id])
		}
	}
	return locked, nil
}

// decrementStock applies the guarded decrement and records the movement.
// p.StockQuantity is kept current so repeated lines chain their movements.
func (s *billingService) decrementStock(tx *gorm.DB, owner uuid.UUID, p *model.Product, qty decimal.Decimal, saleID uuid.UUID) error {
	ok, err := s.products.DecrementStockTx(tx, owner, p.ID, qty)
	if err != nil {
		return fmt.Errorf("decrement stock of %s: %w", p.Name, err)
	}
	if !ok {
		return insufficientStock(p, qty)
	}
	before := p.StockQuantity
	p.StockQuantity = before.Sub(qty)
	ref := saleID
	return s.movements.CreateTx(tx, &model.StockMovement{
		UserID:      owner,
		ProductID:   p.ID,
		Kind:        model.MovementSale,
		Delta:       qty.Neg(),
		StockBefore: before,
		StockAfter:  p.StockQuantity,
		ReferenceID: &ref,
	})
}

func insufficientStock(p *model.Product, requested decimal.Decimal) error {
	return apierror.Business(fmt.Sprintf("insufficient stock for %s: available %s %s, requested %s",
		p.Name, p.StockQuantity.String(), p.Unit, requested.String()))
}
