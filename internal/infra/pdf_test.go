package infra

import (
	"bytes"
	"os"
	"testing"
	"time"

	"subhlabh/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSale() *model.Sale {
	return &model.Sale{
		ID:             uuid.New(),
		TotalAmount:    decimal.NewFromInt(180),
		DiscountAmount: decimal.NewFromInt(20),
		PaymentMethod:  "cash",
		IsPaid:         false,
		SaleDate:       time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC),
		Customer:       &model.Customer{Name: "Ramesh", Phone: "9876543210"},
		Items: []model.SaleItem{
			{Quantity: decimal.NewFromInt(2), PriceAtSale: decimal.NewFromInt(50), Product: &model.Product{Name: "Basmati Rice 1kg"}},
			{Quantity: decimal.NewFromInt(1), PriceAtSale: decimal.NewFromInt(100), Product: &model.Product{Name: "Steel thali with a very long descriptive name"}},
		},
	}
}

func TestWriteReceiptPDF(t *testing.T) {
	var buf bytes.Buffer
	err := WriteReceiptPDF(&buf, sampleSale(), ReceiptHeader{ShopName: "Sharma General Store"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestSaveReceiptPDF(t *testing.T) {
	dir := t.TempDir()
	sale := sampleSale()

	path, err := SaveReceiptPDF(sale, ReceiptHeader{ShopName: "Sharma General Store", Location: time.UTC}, dir)
	require.NoError(t, err)
	assert.Contains(t, path, ReceiptFileName(sale.ID))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
