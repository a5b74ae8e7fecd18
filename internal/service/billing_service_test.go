package service

import (
	"bytes"
	"slices"
	"testing"
	"time"

	"subhlabh/internal/apierror"
	"subhlabh/internal/dto"
	"subhlabh/internal/model"
	"subhlabh/internal/repository"
	"subhlabh/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCheckout_UnpaidSaleGoesToUdhar(t *testing.T) {
	e := newTestEnv(t)
	p := testutil.CreateProduct(t, e.db, e.ownerID(), "Atta 1kg", "100.00", "10")
	c := testutil.CreateCustomer(t, e.db, e.ownerID(), "Ramesh", "9800000001", "0")

	resp := e.checkout(t, dto.BillingRequest{
		CustomerID:    strPtr(c.ID.String()),
		PaymentMethod: "cash",
		IsPaid:        false,
		Items:         []dto.BillingItemRequest{line(p, "1")},
	})
	assert.True(t, resp.Success)
	assert.Equal(t, "100.00", resp.TotalAmount.StringFixed(2))

	sale := testutil.Reload[model.Sale](t, e.db, parseUUID(t, resp.SaleID))
	assert.False(t, sale.IsPaid)
	assert.True(t, sale.AddedToUdhar)

	got := testutil.Reload[model.Customer](t, e.db, c.ID)
	assert.Equal(t, "100.00", got.CreditAmount.StringFixed(2))
	assert.Equal(t, "100.00", got.TotalPurchased.StringFixed(2))
	assert.Equal(t, 1, got.TotalVisits)

	stock := testutil.Reload[model.Product](t, e.db, p.ID)
	assert.Equal(t, "9.00", stock.StockQuantity.StringFixed(2))
}

func TestCheckout_PaidSaleLeavesCreditAlone(t *testing.T) {
	e := newTestEnv(t)
	p := testutil.CreateProduct(t, e.db, e.ownerID(), "Soap", "40", "10")
	c := testutil.CreateCustomer(t, e.db, e.ownerID(), "Sita", "9800000002", "25")

	e.checkout(t, dto.BillingRequest{
		CustomerID:    strPtr(c.ID.String()),
		PaymentMethod: "upi",
		IsPaid:        true,
		Items:         []dto.BillingItemRequest{line(p, "2")},
	})

	got := testutil.Reload[model.Customer](t, e.db, c.ID)
	assert.Equal(t, "25.00", got.CreditAmount.StringFixed(2))
	assert.Equal(t, "80.00", got.TotalPurchased.StringFixed(2))
	assert.Equal(t, 1, got.TotalVisits)
}

func TestCheckout_StockDecrementsThenRejectsOversell(t *testing.T) {
	e := newTestEnv(t)
	p := testutil.CreateProduct(t, e.db, e.ownerID(), "Rice", "60", "10")

	e.checkout(t, dto.BillingRequest{PaymentMethod: "cash", IsPaid: true, Items: []dto.BillingItemRequest{line(p, "2")}})
	assert.Equal(t, "8.00", testutil.Reload[model.Product](t, e.db, p.ID).StockQuantity.StringFixed(2))

	_, err := e.billing.Checkout(e.ctx, e.ownerID(), dto.BillingRequest{
		PaymentMethod: "cash", IsPaid: true, Items: []dto.BillingItemRequest{line(p, "15")},
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindBusiness))
	assert.Contains(t, err.Error(), "insufficient stock")
	assert.Equal(t, "8.00", testutil.Reload[model.Product](t, e.db, p.ID).StockQuantity.StringFixed(2))
	assert.EqualValues(t, 1, e.count(t, &model.Sale{}))
}

func TestCheckout_DuplicateLinesCheckedCumulatively(t *testing.T) {
	e := newTestEnv(t)
	p := testutil.CreateProduct(t, e.db, e.ownerID(), "Oil", "150", "5")

	_, err := e.billing.Checkout(e.ctx, e.ownerID(), dto.BillingRequest{
		PaymentMethod: "cash", IsPaid: true,
		Items: []dto.BillingItemRequest{line(p, "3"), line(p, "3")},
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindBusiness))
	assert.Equal(t, "5.00", testutil.Reload[model.Product](t, e.db, p.ID).StockQuantity.StringFixed(2))
}

func TestCheckout_FailureRollsBackEveryWrite(t *testing.T) {
	e := newTestEnv(t)
	p := testutil.CreateProduct(t, e.db, e.ownerID(), "Dal", "90", "10")
	c := testutil.CreateCustomer(t, e.db, e.ownerID(), "Amit", "9800000003", "0")
	expired := testutil.CreateOffer(t, e.db, e.ownerID(), model.OfferFlat, "10",
		testNow.Add(-72*time.Hour), testNow.Add(-24*time.Hour))
	productsBefore := e.count(t, &model.Product{})

	// The custom line is written before the offer check fails.
	_, err := e.billing.Checkout(e.ctx, e.ownerID(), dto.BillingRequest{
		CustomerID:    strPtr(c.ID.String()),
		PaymentMethod: "cash",
		IsPaid:        false,
		OfferID:       strPtr(expired.ID.String()),
		Items: []dto.BillingItemRequest{
			line(p, "2"),
			{CustomName: strPtr("Gift wrap"), CustomPrice: decPtr("15"), Quantity: d("1")},
		},
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindBusiness))

	assert.Equal(t, productsBefore, e.count(t, &model.Product{}), "custom item rolled back")
	assert.Zero(t, e.count(t, &model.Sale{}))
	assert.Zero(t, e.count(t, &model.SaleItem{}))
	assert.Zero(t, e.count(t, &model.StockMovement{}))
	assert.Equal(t, "10.00", testutil.Reload[model.Product](t, e.db, p.ID).StockQuantity.StringFixed(2))
	got := testutil.Reload[model.Customer](t, e.db, c.ID)
	assert.True(t, got.CreditAmount.IsZero())
	assert.Zero(t, got.TotalVisits)
	assert.Zero(t, e.inv.count(e.ownerID()), "failed checkout must not touch the cache")
}

func TestCheckout_ServiceItemsKeepStock(t *testing.T) {
	e := newTestEnv(t)
	svc := testutil.CreateService(t, e.db, e.ownerID(), "Alteration", "120")

	e.checkout(t, dto.BillingRequest{PaymentMethod: "card", IsPaid: true, Items: []dto.BillingItemRequest{line(svc, "3")}})

	assert.True(t, testutil.Reload[model.Product](t, e.db, svc.ID).StockQuantity.IsZero())
	assert.Zero(t, e.count(t, &model.StockMovement{}))
}

func TestCheckout_CustomItemBecomesInactiveService(t *testing.T) {
	e := newTestEnv(t)
	resp := e.checkout(t, dto.BillingRequest{
		PaymentMethod: "cash",
		IsPaid:        true,
		Items: []dto.BillingItemRequest{{
			CustomName:        strPtr("Repair"),
			CustomPrice:       decPtr("250"),
			CustomDescription: strPtr("zip fix"),
			Quantity:          d("2"),
		}},
	})
	assert.Equal(t, "500.00", resp.TotalAmount.StringFixed(2))

	var p model.Product
	require.NoError(t, e.db.Where("name = ?", "Repair").First(&p).Error)
	assert.False(t, p.IsActive)
	assert.Equal(t, model.ProductTypeService, p.ProductType)
	assert.Equal(t, "other", p.Category)
}

func TestCheckout_LedgerUsesDiscountedTotal(t *testing.T) {
	e := newTestEnv(t)
	p := testutil.CreateProduct(t, e.db, e.ownerID(), "Shirt", "100", "10")
	c := testutil.CreateCustomer(t, e.db, e.ownerID(), "Neha", "9800000004", "0")
	offer := testutil.CreateOffer(t, e.db, e.ownerID(), model.OfferFlat, "20",
		testNow.Add(-time.Hour), testNow.Add(time.Hour))

	resp := e.checkout(t, dto.BillingRequest{
		CustomerID:     strPtr(c.ID.String()),
		PaymentMethod:  "cash",
		IsPaid:         false,
		OfferID:        strPtr(offer.ID.String()),
		DiscountAmount: decPtr("35"), // stale client figure
		Items:          []dto.BillingItemRequest{line(p, "2")},
	})
	assert.Equal(t, "180.00", resp.TotalAmount.StringFixed(2))
	assert.Equal(t, "20.00", resp.DiscountAmount.StringFixed(2))

	got := testutil.Reload[model.Customer](t, e.db, c.ID)
	assert.Equal(t, "180.00", got.CreditAmount.StringFixed(2))
	assert.Equal(t, "180.00", got.TotalPurchased.StringFixed(2))

	var so model.SaleOffer
	require.NoError(t, e.db.First(&so, "sale_id = ?", resp.SaleID).Error)
	assert.Equal(t, "20.00", so.DiscountAmount.StringFixed(2))
}

func TestCheckout_RejectsInvalidRequests(t *testing.T) {
	e := newTestEnv(t)
	p := testutil.CreateProduct(t, e.db, e.ownerID(), "Tea", "50", "10")
	other := testutil.CreateUser(t, e.db, "other@example.com")
	foreign := testutil.CreateProduct(t, e.db, other.ID, "Foreign", "10", "10")

	cases := []struct {
		name string
		req  dto.BillingRequest
		kind apierror.Kind
	}{
		{
			"discount without offer",
			dto.BillingRequest{PaymentMethod: "cash", IsPaid: true, DiscountAmount: decPtr("10"), Items: []dto.BillingItemRequest{line(p, "1")}},
			apierror.KindValidation,
		},
		{
			"unpaid walk-in",
			dto.BillingRequest{PaymentMethod: "cash", IsPaid: false, Items: []dto.BillingItemRequest{line(p, "1")}},
			apierror.KindBusiness,
		},
		{
			"zero quantity",
			dto.BillingRequest{PaymentMethod: "cash", IsPaid: true, Items: []dto.BillingItemRequest{line(p, "0")}},
			apierror.KindValidation,
		},
		{
			"line without product or custom fields",
			dto.BillingRequest{PaymentMethod: "cash", IsPaid: true, Items: []dto.BillingItemRequest{{Quantity: d("1")}}},
			apierror.KindValidation,
		},
		{
			"product of another shop",
			dto.BillingRequest{PaymentMethod: "cash", IsPaid: true, Items: []dto.BillingItemRequest{line(foreign, "1")}},
			apierror.KindNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.billing.Checkout(e.ctx, e.ownerID(), tc.req)
			require.Error(t, err)
			assert.True(t, apierror.IsKind(err, tc.kind), "got %v", err)
		})
	}
	assert.Zero(t, e.count(t, &model.Sale{}))
	assert.Equal(t, "10.00", testutil.Reload[model.Product](t, e.db, foreign.ID).StockQuantity.StringFixed(2))
}

func TestCheckout_InvalidatesDashboardAndRecordsMovement(t *testing.T) {
	e := newTestEnv(t)
	p := testutil.CreateProduct(t, e.db, e.ownerID(), "Milk", "30", "20")

	resp := e.checkout(t, dto.BillingRequest{PaymentMethod: "cash", IsPaid: true, Items: []dto.BillingItemRequest{line(p, "4")}})
	assert.Equal(t, 1, e.inv.count(e.ownerID()))

	var m model.StockMovement
	require.NoError(t, e.db.First(&m, "product_id = ?", p.ID).Error)
	assert.Equal(t, model.MovementSale, m.Kind)
	assert.Equal(t, "-4.00", m.Delta.StringFixed(2))
	assert.Equal(t, "20.00", m.StockBefore.StringFixed(2))
	assert.Equal(t, "16.00", m.StockAfter.StringFixed(2))
	require.NotNil(t, m.ReferenceID)
	assert.Equal(t, resp.SaleID, m.ReferenceID.String())
}

// lockRecorder notes the order in which product rows are locked.
type lockRecorder struct {
	repository.ProductRepository
	order []uuid.UUID
}

func (r *lockRecorder) LockForUpdateTx(tx *gorm.DB, owner, id uuid.UUID) (*model.Product, error) {
	r.order = append(r.order, id)
	return r.ProductRepository.LockForUpdateTx(tx, owner, id)
}

func TestCheckout_LocksProductsInIDOrder(t *testing.T) {
	e := newTestEnv(t)
	var products []*model.Product
	for _, name := range []string{"Salt", "Jaggery", "Poha", "Besan"} {
		products = append(products, testutil.CreateProduct(t, e.db, e.ownerID(), name, "20", "50"))
	}
	rec := &lockRecorder{ProductRepository: e.products}
	billing := NewBillingService(e.sales, rec, e.customers, e.offers, e.movements, e.inv, nil, e.clock)

	items := []dto.BillingItemRequest{
		line(products[3], "1"), line(products[1], "1"), line(products[0], "1"),
		line(products[2], "1"), line(products[3], "2"),
	}
	_, err := billing.Checkout(e.ctx, e.ownerID(), dto.BillingRequest{PaymentMethod: "cash", IsPaid: true, Items: items})
	require.NoError(t, err)

	require.Len(t, rec.order, 4, "each product is locked once")
	assert.True(t, slices.IsSortedFunc(rec.order, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) }))
}
