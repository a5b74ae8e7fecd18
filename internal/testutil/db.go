// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"subhlabh/internal/infra"
	"subhlabh/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB opens a private in-memory SQLite database with the full schema.
// The connection pool is pinned to one connection so the in-memory database
// lives as long as the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), infra.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := infra.RunMigrations(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ── Fixtures ──────────────────────────────────────────────────────────────────

func D(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func CreateUser(t testing.TB, db *gorm.DB, email string) *model.ShopUser {
	t.Helper()
	u := &model.ShopUser{
		Email:        email,
		PasswordHash: "x",
		ShopName:     "Test Shop",
		Timezone:     "UTC",
		IsVerified:   true,
	}
	mustCreate(t, db, u)
	return u
}

func CreateProduct(t testing.TB, db *gorm.DB, owner uuid.UUID, name, price, stock string) *model.Product {
	t.Helper()
	p := &model.Product{
		UserID:        owner,
		Name:          name,
		ProductType:   model.ProductTypeProduct,
		Category:      "grocery",
		Price:         D(price),
		Unit:          "piece",
		StockQuantity: D(stock),
		IsActive:      true,
	}
	mustCreate(t, db, p)
	return p
}

func CreateService(t testing.TB, db *gorm.DB, owner uuid.UUID, name, price string) *model.Product {
	t.Helper()
	p := &model.Product{
		UserID:        owner,
		Name:          name,
		ProductType:   model.ProductTypeService,
		Category:      "other",
		Price:         D(price),
		Unit:          "piece",
		StockQuantity: decimal.Zero,
		IsActive:      true,
	}
	mustCreate(t, db, p)
	return p
}

func CreateCustomer(t testing.TB, db *gorm.DB, owner uuid.UUID, name, phone, credit string) *model.Customer {
	t.Helper()
	c := &model.Customer{
		UserID:         owner,
		Name:           name,
		Phone:          phone,
		CreditAmount:   D(credit),
		TotalPurchased: decimal.Zero,
	}
	mustCreate(t, db, c)
	return c
}

func CreateOffer(t testing.TB, db *gorm.DB, owner uuid.UUID, offerType, value string, start, end time.Time) *model.Offer {
	t.Helper()
	o := &model.Offer{
		UserID:            owner,
		Name:              offerType + " offer",
		OfferType:         offerType,
		DiscountValue:     D(value),
		MinPurchaseAmount: decimal.Zero,
		StartDate:         start,
		EndDate:           end,
		IsActive:          true,
	}
	mustCreate(t, db, o)
	return o
}

func mustCreate(t testing.TB, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

// Reload re-reads v by primary key.
func Reload[T any](t testing.TB, db *gorm.DB, id uuid.UUID) *T {
	t.Helper()
	var v T
	if err := db.First(&v, "id = ?", id).Error; err != nil {
		t.Fatalf("reload %T: %v", v, err)
	}
	return &v
}
