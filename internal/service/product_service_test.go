package service

import (
	"testing"

	"subhlabh/internal/apierror"
	"subhlabh/internal/dto"
	"subhlabh/internal/model"
	"subhlabh/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productReq(name, typ, stock string) dto.ProductRequest {
	return dto.ProductRequest{
		Name:          name,
		ProductType:   typ,
		Category:      "grocery",
		Price:         d("25"),
		Unit:          "kg",
		StockQuantity: d(stock),
	}
}

func TestCreateProduct_ServicesCarryNoStock(t *testing.T) {
	e := newTestEnv(t)

	svc, err := e.productSvc.Create(e.ctx, e.ownerID(), productReq("Grinding", model.ProductTypeService, "40"))
	require.NoError(t, err)
	assert.True(t, svc.StockQuantity.IsZero())
	assert.False(t, svc.IsLowStock)

	p, err := e.productSvc.Create(e.ctx, e.ownerID(), productReq("Wheat", model.ProductTypeProduct, "4.5"))
	require.NoError(t, err)
	assert.Equal(t, "4.50", p.StockQuantity.StringFixed(2))
	assert.True(t, p.IsLowStock)
	assert.Equal(t, 2, e.inv.count(e.ownerID()))
}

func TestAdjustStock(t *testing.T) {
	e := newTestEnv(t)
	p := testutil.CreateProduct(t, e.db, e.ownerID(), "Salt", "20", "5")

	got, err := e.productSvc.AdjustStock(e.ctx, e.ownerID(), p.ID, dto.AdjustStockRequest{Delta: d("7.5"), Note: "delivery"})
	require.NoError(t, err)
	assert.Equal(t, "12.50", got.StockQuantity.StringFixed(2))

	_, err = e.productSvc.AdjustStock(e.ctx, e.ownerID(), p.ID, dto.AdjustStockRequest{Delta: d("-13")})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindBusiness))

	got, err = e.productSvc.AdjustStock(e.ctx, e.ownerID(), p.ID, dto.AdjustStockRequest{Delta: d("-2.5"), Note: "damaged"})
	require.NoError(t, err)
	assert.Equal(t, "10.00", got.StockQuantity.StringFixed(2))
	assert.Equal(t, "10.00", testutil.Reload[model.Product](t, e.db, p.ID).StockQuantity.StringFixed(2))

	detail, err := e.productSvc.Detail(e.ctx, e.ownerID(), p.ID)
	require.NoError(t, err)
	require.Len(t, detail.Movements, 2)
	for _, m := range detail.Movements {
		assert.Equal(t, model.MovementAdjustment, m.Kind)
		assert.True(t, m.StockBefore.Add(m.Delta).Equal(m.StockAfter))
	}
}

func TestAdjustStock_RejectsServices(t *testing.T) {
	e := newTestEnv(t)
	svc := testutil.CreateService(t, e.db, e.ownerID(), "Stitching", "80")

	_, err := e.productSvc.AdjustStock(e.ctx, e.ownerID(), svc.ID, dto.AdjustStockRequest{Delta: d("1")})
	assert.True(t, apierror.IsKind(err, apierror.KindBusiness))
}

func TestUpdateProduct_RecordsStockEdit(t *testing.T) {
	e := newTestEnv(t)
	p := testutil.CreateProduct(t, e.db, e.ownerID(), "Jaggery", "60", "8")

	got, err := e.productSvc.Update(e.ctx, e.ownerID(), p.ID, productReq("Jaggery (organic)", model.ProductTypeProduct, "20"))
	require.NoError(t, err)
	assert.Equal(t, "Jaggery (organic)", got.Name)
	assert.Equal(t, "20.00", got.StockQuantity.StringFixed(2))

	var m model.StockMovement
	require.NoError(t, e.db.First(&m, "product_id = ?", p.ID).Error)
	assert.Equal(t, "12.00", m.Delta.StringFixed(2))
}

func TestDeleteProduct_IsSoft(t *testing.T) {
	e := newTestEnv(t)
	p := testutil.CreateProduct(t, e.db, e.ownerID(), "Old stock", "10", "1")

	require.NoError(t, e.productSvc.Delete(e.ctx, e.ownerID(), p.ID))
	assert.False(t, testutil.Reload[model.Product](t, e.db, p.ID).IsActive)

	list, err := e.productSvc.List(e.ctx, e.ownerID(), dto.ProductFilter{Sort: "name", Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Zero(t, list.Total)

	err = e.productSvc.Delete(e.ctx, e.ownerID(), p.ID)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestProductSearchAndLowStock(t *testing.T) {
	e := newTestEnv(t)
	testutil.CreateProduct(t, e.db, e.ownerID(), "Basmati Rice", "120", "3")
	testutil.CreateProduct(t, e.db, e.ownerID(), "Brown Rice", "90", "30")
	testutil.CreateService(t, e.db, e.ownerID(), "Rice cleaning", "10")

	res, err := e.productSvc.Search(e.ctx, e.ownerID(), "rice")
	require.NoError(t, err)
	assert.Len(t, res, 3)

	res, err = e.productSvc.Search(e.ctx, e.ownerID(), "   ")
	require.NoError(t, err)
	assert.Empty(t, res)

	low, err := e.productSvc.LowStock(e.ctx, e.ownerID())
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Basmati Rice", low[0].Name)
}

func TestProductSearch_TreatsWildcardsLiterally(t *testing.T) {
	e := newTestEnv(t)
	testutil.CreateProduct(t, e.db, e.ownerID(), "Soap_50", "40", "10")
	testutil.CreateProduct(t, e.db, e.ownerID(), "Soap 500", "70", "10")
	testutil.CreateProduct(t, e.db, e.ownerID(), "Oil 50%", "150", "10")

	res, err := e.productSvc.Search(e.ctx, e.ownerID(), "soap_")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Soap_50", res[0].Name)

	res, err = e.productSvc.Search(e.ctx, e.ownerID(), "50%")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Oil 50%", res[0].Name)

	list, err := e.productSvc.List(e.ctx, e.ownerID(), dto.ProductFilter{Q: "p_5", Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Soap_50", list.Data[0].Name)
}
