// cmd/seeduser creates a verified shop account.
// Usage: go run ./cmd/seeduser -email owner@example.com -password secret -shop "Subh Labh Kirana"
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

	"github.com/rs/zerolog/log"
)

func main() {
	email := flag.String("email", "", "account email (required)")
	password := flag.String("password", "", "account password (required)")
	shop := flag.String("shop", "My Shop", "shop name")
	tz := flag.String("timezone", "", "IANA timezone (default DEFAULT_TIMEZONE)")
	unverified := flag.Bool("unverified", false, "create the account without verification")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		infra.SetupLogger(false, "info")
		log.Fatal().Err(err).Msg("failed to load config")
	}
	infra.SetupLogger(false, cfg.LogLevel)

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	users := repository.NewShopUserRepository(db)
	accounts := service.NewAccountService(users, service.NewClock(users, cfg.DefaultTimezone), cfg.AccountDeletionGraceDays)

	acc, err := accounts.CreateAccount(context.Background(), service.NewAccount{
		Email:    *email,
		Password: *password,
		ShopName: *shop,
		Timezone: *tz,
		Verified: !*unverified,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create account")
	}
	fmt.Printf("account %s created for %s (%s)\n", acc.ID, acc.Email, acc.Timezone)
}
