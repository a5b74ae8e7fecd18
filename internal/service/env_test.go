package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"subhlabh/internal/dto"
	"subhlabh/internal/model"
	"subhlabh/internal/repository"
	"subhlabh/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

// recordingInvalidator counts dashboard invalidations per owner.
type recordingInvalidator struct {
	mu    sync.Mutex
	calls map[uuid.UUID]int
}

func (r *recordingInvalidator) Invalidate(_ context.Context, owner uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[uuid.UUID]int{}
	}
	r.calls[owner]++
}

func (r *recordingInvalidator) count(owner uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[owner]
}

// testEnv wires the services over a fresh in-memory database.
type testEnv struct {
	db    *gorm.DB
	ctx   context.Context
	owner *model.ShopUser
	clock *Clock
	inv   *recordingInvalidator

	users     repository.ShopUserRepository
	customers repository.CustomerRepository
	products  repository.ProductRepository
	sales     repository.SaleRepository
	offers    repository.OfferRepository
	movements repository.StockMovementRepository
	reports   repository.ReportRepository

	billing     BillingService
	saleSvc     SaleService
	customerSvc CustomerService
	productSvc  ProductService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	e := &testEnv{
		db:        db,
		ctx:       context.Background(),
		inv:       &recordingInvalidator{},
		users:     repository.NewShopUserRepository(db),
		customers: repository.NewCustomerRepository(db),
		products:  repository.NewProductRepository(db),
		sales:     repository.NewSaleRepository(db),
		offers:    repository.NewOfferRepository(db),
		movements: repository.NewStockMovementRepository(db),
		reports:   repository.NewReportRepository(db),
	}
	e.owner = testutil.CreateUser(t, db, "owner@example.com")
	e.clock = NewClock(e.users, "UTC")
	e.clock.Now = func() time.Time { return testNow }

	e.billing = NewBillingService(e.sales, e.products, e.customers, e.offers, e.movements, e.inv, nil, e.clock)
	e.saleSvc = NewSaleService(e.sales, e.products, e.customers, e.movements, e.users, e.inv, e.clock, t.TempDir())
	e.customerSvc = NewCustomerService(e.customers, e.sales, e.inv)
	e.productSvc = NewProductService(e.products, e.movements, e.inv, testutil.D("10"))
	return e
}

func (e *testEnv) ownerID() uuid.UUID { return e.owner.ID }

func strPtr(s string) *string { return &s }

func line(p *model.Product, qty string) dto.BillingItemRequest {
	id := p.ID.String()
	return dto.BillingItemRequest{ProductID: &id, Quantity: d(qty)}
}

func (e *testEnv) checkout(t *testing.T, req dto.BillingRequest) *dto.BillingResponse {
	t.Helper()
	resp, err := e.billing.Checkout(e.ctx, e.ownerID(), req)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) count(t *testing.T, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Count(&n).Error)
	return n
}

func decPtr(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func parseUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}
