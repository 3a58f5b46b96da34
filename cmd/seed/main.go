// Package main provides a CLI tool for seeding a company with its
// initial chart of accounts.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"facturio/internal/core/apperror"
	"facturio/internal/core/company"
	"facturio/internal/core/id"
	"facturio/internal/domain/ledger"
	"facturio/internal/infrastructure/storage/postgres"
	"facturio/internal/infrastructure/storage/postgres/ledger_repo"
	"facturio/pkg/logger"
)

// Default chart of accounts for a new company. Codes follow the
// Tunisian plan comptable top-level classes.
var defaultAccounts = []struct {
	code    string
	name    string
	accType ledger.AccountType
}{
	{"411", "Clients", ledger.AccountActif},
	{"401", "Fournisseurs", ledger.AccountPassif},
	{"532", "Banque", ledger.AccountActif},
	{"540", "Caisse", ledger.AccountActif},
	{"707", "Ventes de marchandises", ledger.AccountProduit},
	{"607", "Achats de marchandises", ledger.AccountCharge},
	{"436", "TVA collectée", ledger.AccountPassif},
	{"434", "TVA déductible", ledger.AccountActif},
	{ledger.AdjustmentAccountCode, "Ajustements", ledger.AccountPassif},
}

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	// Seed either an existing company (COMPANY_ID) or a fresh one.
	companyID := id.New()
	if raw := os.Getenv("COMPANY_ID"); raw != "" {
		companyID, err = id.Parse(raw)
		if err != nil {
			log.Fatalw("invalid COMPANY_ID", "error", err)
		}
	}

	ctx = company.WithScope(ctx, company.Scope{CompanyID: companyID})

	txManager := postgres.NewTxManager(pool)
	accounts := ledger_repo.NewAccountRepo(txManager)

	created := 0
	for _, a := range defaultAccounts {
		account := ledger.NewAccount(companyID, a.code, a.name, a.accType)
		if err := account.Validate(ctx); err != nil {
			log.Fatalw("invalid seed account", "code", a.code, "error", err)
		}
		if err := accounts.Create(ctx, account); err != nil {
			if apperror.IsCode(err, apperror.CodeDuplicate) {
				log.Infow("account already exists", "code", a.code)
				continue
			}
			log.Fatalw("failed to create account", "code", a.code, "error", err)
		}
		created++
		log.Infow("account created", "code", a.code, "name", a.name)
	}

	log.Infow("seeding complete", "company_id", companyID, "accounts_created", created)
	fmt.Printf("\ncompany_id: %s\n", companyID)
}
