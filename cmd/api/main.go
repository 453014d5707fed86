// Command gasx-api serves the estimation and forecasting HTTP API.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"gasx/adapters/memory"
	"gasx/adapters/postgres"
	"gasx/app"
	"gasx/internal"
	"gasx/internal/config"
	"gasx/ports"
	"gasx/ui"
)

func main() {
	_ = godotenv.Load()

	log := internal.NewDefaultLogger().With("main")

	cfg, err := config.Load()
	if err != nil {
		log.Error("config: %v", err)
		os.Exit(1)
	}

	var ledger ports.LedgerPort
	if cfg.Database.URL != "" {
		repo, err := postgres.NewRunRepository(cfg.Database.URL)
		if err != nil {
			log.Error("ledger: %v", err)
			os.Exit(1)
		}
		defer repo.Close()
		ledger = repo
		log.Info("using postgres ledger")
	} else {
		ledger = memory.NewLedger()
		log.Warn("DATABASE_URL not set, runs are recorded in memory only")
	}

	svc := app.NewFitService(ledger, internal.NewDefaultLogger())
	server := ui.NewServer(cfg, svc, internal.NewDefaultLogger())
	if err := server.Run(); err != nil {
		log.Error("server: %v", err)
		os.Exit(1)
	}
}
