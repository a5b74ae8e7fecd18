package service

import (
	"context"
	"errors"
	"fmt"
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
	searchLimit        = 20
	customerRecentSale = 10
	customerPayments   = 20
)

type CustomerService interface {
	Create(ctx context.Context, owner uuid.UUID, req dto.CustomerRequest) (*dto.CustomerResponse, error)
	Get(ctx context.Context, owner, id uuid.UUID) (*dto.CustomerResponse, error)
	Detail(ctx context.Context, owner, id uuid.UUID) (*dto.CustomerDetailResponse, error)
	List(ctx context.Context, owner uuid.UUID, filter dto.CustomerFilter) (*dto.CustomerListResponse, error)
	Search(ctx context.Context, owner uuid.UUID, q string) ([]dto.CustomerSearchResult, error)
	Update(ctx context.Context, owner, id uuid.UUID, req dto.CustomerRequest) (*dto.CustomerResponse, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error
	// PayCredit subtracts amount from the customer's udhar. Amounts that are not
	// positive or exceed the balance are rejected without any write.
	PayCredit(ctx context.Context, owner, id uuid.UUID, amount decimal.Decimal) (*dto.PayCreditResponse, error)
	// RecalculateLedger rebuilds every customer's totals of an owner from the
	// sales and credit payments tables. Returns the number of customers touched.
	RecalculateLedger(ctx context.Context, owner uuid.UUID) (int, error)
}

type customerService struct {
	repo      repository.CustomerRepository
	sales     repository.SaleRepository
	dashboard DashboardInvalidator
}

func NewCustomerService(repo repository.CustomerRepository, sales repository.SaleRepository, dashboard DashboardInvalidator) CustomerService {
	return &customerService{repo: repo, sales: sales, dashboard: orNoop(dashboard)}
}

// ensurePhoneFree rejects a phone already used by another customer of owner.
func (s *customerService) ensurePhoneFree(ctx context.Context, owner uuid.UUID, phone string, self uuid.UUID) error {
	existing, err := s.repo.FindByPhone(ctx, owner, phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != self {
		return apierror.Conflict(fmt.Sprintf("a customer with phone %s already exists", phone))
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (s *customerService) Create(ctx context.Context, owner uuid.UUID, req dto.CustomerRequest) (*dto.CustomerResponse, error) {
	phone := strings.TrimSpace(req.Phone)
	if err := s.ensurePhoneFree(ctx, owner, phone, uuid.Nil); err != nil {
		return nil, err
	}
	c := &model.Customer{
		UserID:         owner,
		Name:           strings.TrimSpace(req.Name),
		Phone:          phone,
		Email:          trimmedOrNil(req.Email),
		Address:        trimmedOrNil(req.Address),
		CreditAmount:   decimal.Zero,
		TotalPurchased: decimal.Zero,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	s.dashboard.Invalidate(ctx, owner)
	resp := toCustomerResponse(c)
	return &resp, nil
}

func (s *customerService) Get(ctx context.Context, owner, id uuid.UUID) (*dto.CustomerResponse, error) {
	c, err := s.repo.FindByID(ctx, owner, id)
	if err != nil {
		return nil, notFound(err, "customer not found")
	}
	resp := toCustomerResponse(c)
	return &resp, nil
}

func (s *customerService) Detail(ctx context.Context, owner, id uuid.UUID) (*dto.CustomerDetailResponse, error) {
	c, err := s.repo.FindByID(ctx, owner, id)
	if err != nil {
		return nil, notFound(err, "customer not found")
	}
	sales, err := s.sales.Recent(ctx, owner, &c.ID, customerRecentSale)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, owner, c.ID, customerPayments)
	if err != nil {
		return nil, err
	}

	resp := &dto.CustomerDetailResponse{
		Customer:    toCustomerResponse(c),
		RecentSales: toSaleListItems(sales),
		Payments:    make([]dto.CreditPaymentResponse, len(payments)),
	}
	for i, p := range payments {
		resp.Payments[i] = dto.CreditPaymentResponse{ID: p.ID.String(), Amount: p.Amount, CreatedAt: p.CreatedAt}
	}
	return resp, nil
}

func (s *customerService) List(ctx context.Context, owner uuid.UUID, filter dto.CustomerFilter) (*dto.CustomerListResponse, error) {
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	customers, total, err := s.repo.List(ctx, owner, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CustomerResponse, len(customers))
	for i := range customers {
		out[i] = toCustomerResponse(&customers[i])
	}
	return &dto.CustomerListResponse{
		Data:     out,
		ListMeta: dto.ListMeta{Total: total, Page: filter.Page, Limit: filter.Limit},
	}, nil
}

func (s *customerService) Search(ctx context.Context, owner uuid.UUID, q string) ([]dto.CustomerSearchResult, error) {
	out := []dto.CustomerSearchResult{}
	if strings.TrimSpace(q) == "" {
		return out, nil
	}
	customers, err := s.repo.Search(ctx, owner, q, searchLimit)
	if err != nil {
		return nil, err
	}
	for _, c := range customers {
		out = append(out, dto.CustomerSearchResult{
			ID:             c.ID.String(),
			Name:           c.Name,
			Phone:          c.Phone,
			CreditAmount:   c.CreditAmount,
			TotalPurchased: c.TotalPurchased,
		})
	}
	return out, nil
}

func (s *customerService) Update(ctx context.Context, owner, id uuid.UUID, req dto.CustomerRequest) (*dto.CustomerResponse, error) {
	c, err := s.repo.FindByID(ctx, owner, id)
	if err != nil {
		return nil, notFound(err, "customer not found")
	}
	phone := strings.TrimSpace(req.Phone)
	if phone != c.Phone {
		if err := s.ensurePhoneFree(ctx, owner, phone, c.ID); err != nil {
			return nil, err
		}
	}
	c.Name = strings.TrimSpace(req.Name)
	c.Phone = phone
	c.Email = trimmedOrNil(req.Email)
	c.Address = trimmedOrNil(req.Address)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	s.dashboard.Invalidate(ctx, owner)
	resp := toCustomerResponse(c)
	return &resp, nil
}

func (s *customerService) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, owner, id); err != nil {
		return notFound(err, "customer not found")
	}
	s.dashboard.Invalidate(ctx, owner)
	return nil
}

// ── Credit ────────────────────────────────────────────────────────────────────

func (s *customerService) PayCredit(ctx context.Context, owner, id uuid.UUID, amount decimal.Decimal) (*dto.PayCreditResponse, error) {
	amount = amount.Round(2)
	var c *model.Customer
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		c, err = s.repo.FindByIDTx(tx, owner, id)
		if err != nil {
			return notFound(err, "customer not found")
		}
		if !amount.IsPositive() {
			return apierror.Validation("payment amount must be greater than 0")
		}
		if amount.GreaterThan(c.CreditAmount) {
			return apierror.Business(fmt.Sprintf("payment of %s exceeds the outstanding credit of %s",
				amount.StringFixed(2), c.CreditAmount.StringFixed(2)))
		}
		ok, err := s.repo.DeductCreditTx(tx, owner, id, amount)
		if err != nil {
			return fmt.Errorf("deduct credit: %w", err)
		}
		if !ok {
			return apierror.Business("the outstanding credit changed, please retry")
		}
		c.CreditAmount = c.CreditAmount.Sub(amount)
		return s.repo.CreatePaymentTx(tx, &model.CreditPayment{UserID: owner, CustomerID: id, Amount: amount})
	})
	if txErr != nil {
		return nil, txErr
	}

	s.dashboard.Invalidate(ctx, owner)
	log.Info().
		Str("owner", owner.String()).
		Str("customer_id", id.String()).
		Str("amount", amount.StringFixed(2)).
		Str("remaining", c.CreditAmount.StringFixed(2)).
		Msg("credit payment accepted")

	return &dto.PayCreditResponse{
		Success:      true,
		Message:      fmt.Sprintf("Payment of Rs. %s accepted", amount.StringFixed(2)),
		CreditAmount: c.CreditAmount,
	}, nil
}

func (s *customerService) RecalculateLedger(ctx context.Context, owner uuid.UUID) (int, error) {
	ids, err := s.repo.ListIDs(ctx, owner)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			ledger, err := s.sales.CustomerLedgerTx(tx, owner, id)
			if err != nil {
				return err
			}
			paid, err := s.repo.SumPaymentsTx(tx, owner, id)
			if err != nil {
				return err
			}
			credit := ledger.Unpaid.Sub(paid)
			if credit.IsNegative() {
				credit = decimal.Zero
			}
			return s.repo.SetLedgerTx(tx, owner, id, ledger.Purchased, int(ledger.Visits), credit)
		})
		if err != nil {
			return 0, fmt.Errorf("recalculate customer %s: %w", id, err)
		}
	}
	if len(ids) > 0 {
		s.dashboard.Invalidate(ctx, owner)
	}
	return len(ids), nil
}
