package infra

import (
	"fmt"
	"time"

	"subhlabh/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that GORM
// cannot express (partial and expression indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), GormConfig())
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// GormConfig is shared by every connection the service opens. Timestamps are
// stored in UTC; conversion to the shop timezone happens at the edges.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// RunMigrations creates / updates every table and applies schema patches.
// Also used by the integration suite against a throwaway Postgres.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// express. Each statement uses IF NOT EXISTS so re-running is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// typeahead searches match on lower(name) / phone prefix
		`CREATE INDEX IF NOT EXISTS idx_products_user_lower_name
		    ON products (user_id, lower(name)) WHERE is_active`,
		`CREATE INDEX IF NOT EXISTS idx_customers_user_lower_name
		    ON customers (user_id, lower(name))`,
		// dashboard low-stock widget
		`CREATE INDEX IF NOT EXISTS idx_products_low_stock
		    ON products (user_id, stock_quantity) WHERE is_active AND product_type = 'product'`,
		// customer list "credit remaining" filter
		`CREATE INDEX IF NOT EXISTS idx_customers_with_credit
		    ON customers (user_id) WHERE credit_amount > 0`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_customers_credit_non_negative') THEN
		    ALTER TABLE customers ADD CONSTRAINT chk_customers_credit_non_negative CHECK (credit_amount >= 0);
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sale_items_quantity_positive') THEN
		    ALTER TABLE sale_items ADD CONSTRAINT chk_sale_items_quantity_positive CHECK (quantity > 0);
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
