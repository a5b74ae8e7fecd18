package service

import (
	"testing"
	"time"

	"subhlabh/internal/apierror"
	"subhlabh/internal/dto"
	"subhlabh/internal/model"
	"subhlabh/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccount(t *testing.T) {
	e := newTestEnv(t)
	svc := NewAccountService(e.users, e.clock, 30)

	acc, err := svc.CreateAccount(e.ctx, NewAccount{
		Email: "  Kirana@Example.com ", Password: "secret123", ShopName: "Kirana", Verified: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "kirana@example.com", acc.Email)
	assert.Equal(t, "UTC", acc.Timezone, "falls back to the default timezone")
	assert.True(t, acc.IsVerified)

	_, err = svc.CreateAccount(e.ctx, NewAccount{Email: "kirana@example.com", Password: "x"})
	assert.True(t, apierror.IsKind(err, apierror.KindConflict))

	_, err = svc.CreateAccount(e.ctx, NewAccount{Email: "other@example.com", Password: "x", Timezone: "Mars/Olympus"})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))

	_, err = svc.CreateAccount(e.ctx, NewAccount{Email: "", Password: "x"})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestUpdateAccount(t *testing.T) {
	e := newTestEnv(t)
	svc := NewAccountService(e.users, e.clock, 30)

	acc, err := svc.Update(e.ctx, e.ownerID(), dto.UpdateAccountRequest{
		ShopName: strPtr("Subh Labh Stores"), Timezone: strPtr("Asia/Kolkata"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Subh Labh Stores", acc.ShopName)
	assert.Equal(t, "Asia/Kolkata", acc.Timezone)
	assert.Equal(t, "Asia/Kolkata", e.clock.Location(e.ctx, e.ownerID()).String())

	_, err = svc.Update(e.ctx, e.ownerID(), dto.UpdateAccountRequest{Timezone: strPtr("Nowhere/City")})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))

	_, err = svc.Update(e.ctx, e.ownerID(), dto.UpdateAccountRequest{ShopName: strPtr("   ")})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestAccountDeletionLifecycle(t *testing.T) {
	e := newTestEnv(t)
	svc := NewAccountService(e.users, e.clock, 30)

	_, err := svc.CancelDeletion(e.ctx, e.ownerID())
	assert.True(t, apierror.IsKind(err, apierror.KindBusiness), "nothing to cancel")

	acc, err := svc.RequestDeletion(e.ctx, e.ownerID())
	require.NoError(t, err)
	assert.True(t, acc.IsPendingDeletion)
	require.NotNil(t, acc.PurgeAfter)
	assert.True(t, acc.PurgeAfter.Equal(testNow.AddDate(0, 0, 30)))

	acc, err = svc.CancelDeletion(e.ctx, e.ownerID())
	require.NoError(t, err)
	assert.False(t, acc.IsPendingDeletion)
	assert.Nil(t, acc.PurgeAfter)
}

func TestPurgeExpired_RemovesOwnedRows(t *testing.T) {
	e := newTestEnv(t)
	svc := NewAccountService(e.users, e.clock, 30)

	keeper := testutil.CreateUser(t, e.db, "keeper@example.com")
	testutil.CreateProduct(t, e.db, keeper.ID, "Kept", "10", "5")

	p := testutil.CreateProduct(t, e.db, e.ownerID(), "Gone", "10", "5")
	c := testutil.CreateCustomer(t, e.db, e.ownerID(), "Gone", "9800000080", "0")
	e.checkout(t, dto.BillingRequest{
		CustomerID: strPtr(c.ID.String()), PaymentMethod: "cash", IsPaid: false,
		Items: []dto.BillingItemRequest{line(p, "1")},
	})

	_, err := svc.RequestDeletion(e.ctx, e.ownerID())
	require.NoError(t, err)

	n, err := svc.PurgeExpired(e.ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "still inside the grace period")

	e.clock.Now = func() time.Time { return testNow.AddDate(0, 0, 31) }
	n, err = svc.PurgeExpired(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.EqualValues(t, 1, e.count(t, &model.ShopUser{}))
	assert.EqualValues(t, 1, e.count(t, &model.Product{}))
	assert.Zero(t, e.count(t, &model.Sale{}))
	assert.Zero(t, e.count(t, &model.SaleItem{}))
	assert.Zero(t, e.count(t, &model.Customer{}))
	assert.Zero(t, e.count(t, &model.StockMovement{}))

	ids, err := svc.Owners(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{keeper.ID}, ids)
}
