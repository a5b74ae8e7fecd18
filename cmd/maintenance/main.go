// cmd/maintenance runs operator tasks against the database.
//
//	maintenance recalc-ledger [-owner <uuid>]   rebuild customer totals from sales and payments
//	maintenance purge-accounts                  delete accounts whose deletion grace period ended
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"subhlabh/internal/config"
	"subhlabh/internal/infra"
	"subhlabh/internal/repository"
	"subhlabh/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: maintenance <recalc-ledger [-owner id] | purge-accounts>")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		infra.SetupLogger(false, "info")
		log.Fatal().Err(err).Msg("failed to load config")
	}
	infra.SetupLogger(cfg.IsProduction(), cfg.LogLevel)

	ctx := context.Background()
	switch os.Args[1] {
	case "recalc-ledger":
		fs := flag.NewFlagSet("recalc-ledger", flag.ExitOnError)
		owner := fs.String("owner", "", "only this owner id (default: every owner)")
		_ = fs.Parse(os.Args[2:])
		db := openDB(cfg)
		if err := recalcLedger(ctx, db, cfg, *owner); err != nil {
			log.Fatal().Err(err).Msg("recalc-ledger failed")
		}
	case "purge-accounts":
		db := openDB(cfg)
		users := repository.NewShopUserRepository(db)
		accounts := service.NewAccountService(users, service.NewClock(users, cfg.DefaultTimezone), cfg.AccountDeletionGraceDays)
		n, err := accounts.PurgeExpired(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("purge-accounts failed")
		}
		log.Info().Int("purged", n).Msg("purge-accounts done")
	default:
		usage()
	}
}

func openDB(cfg *config.Config) *gorm.DB {
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	return db
}

func recalcLedger(ctx context.Context, db *gorm.DB, cfg *config.Config, ownerFlag string) error {
	users := repository.NewShopUserRepository(db)
	accounts := service.NewAccountService(users, service.NewClock(users, cfg.DefaultTimezone), cfg.AccountDeletionGraceDays)
	customers := service.NewCustomerService(repository.NewCustomerRepository(db), repository.NewSaleRepository(db), nil)

	var owners []uuid.UUID
	if ownerFlag != "" {
		id, err := uuid.Parse(ownerFlag)
		if err != nil {
			return fmt.Errorf("invalid -owner: %w", err)
		}
		owners = []uuid.UUID{id}
	} else {
		var err error
		if owners, err = accounts.Owners(ctx); err != nil {
			return err
		}
	}

	total := 0
	for _, owner := range owners {
		n, err := customers.RecalculateLedger(ctx, owner)
		if err != nil {
			return fmt.Errorf("owner %s: %w", owner, err)
		}
		log.Info().Str("owner", owner.String()).Int("customers", n).Msg("ledger recalculated")
		total += n
	}
	log.Info().Int("owners", len(owners)).Int("customers", total).Msg("recalc-ledger done")
	return nil
}
