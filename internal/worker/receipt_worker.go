package worker

// receipt_worker.go
// Renders the PDF receipt of a new sale and stores it under the receipt
// storage path. Sales deleted before the job runs are skipped.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"subhlabh/internal/infra"
	"subhlabh/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ReceiptWorker renders receipts for QueueReceipts jobs.
type ReceiptWorker struct {
	sales       repository.SaleRepository
	users       repository.ShopUserRepository
	storagePath string
}

func NewReceiptWorker(sales repository.SaleRepository, users repository.ShopUserRepository, storagePath string) *ReceiptWorker {
	return &ReceiptWorker{sales: sales, users: users, storagePath: storagePath}
}

// Process implements Handler.
func (w *ReceiptWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReceiptPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("receipt_worker: invalid payload: %v: %w", err, errPermanent)
	}

	sale, err := w.sales.FindByID(ctx, payload.OwnerID, payload.SaleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Info().Str("sale_id", payload.SaleID.String()).Msg("receipt_worker: sale no longer exists, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	hdr := infra.ReceiptHeader{Location: time.UTC}
	if u, err := w.users.FindByID(ctx, payload.OwnerID); err == nil {
		hdr.ShopName = u.ShopName
		if loc, err := time.LoadLocation(u.Timezone); err == nil {
			hdr.Location = loc
		}
	}

	path, err := infra.SaveReceiptPDF(sale, hdr, w.storagePath)
	if err != nil {
		return err
	}
	log.Info().Str("sale_id", sale.ID.String()).Str("path", path).Msg("receipt_worker: receipt stored")
	return nil
}
