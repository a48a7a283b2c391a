package main

import (
	"log"

	"storefront/config"
	"storefront/internal/migrate"
	"storefront/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migrate.Apply(db.DB()); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	log.Println("Order ledger migrations applied")
}
