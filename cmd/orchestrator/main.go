// Command orchestrator runs the Orchestrator component of §4.2.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/epicrunze/evocable/internal/broker"
	"github.com/epicrunze/evocable/internal/config"
	"github.com/epicrunze/evocable/internal/models"
	"github.com/epicrunze/evocable/internal/orchestrator"
	"github.com/epicrunze/evocable/internal/registry"
)

func main() {
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("❌ failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.Book{}, &models.BookChunk{}); err != nil {
		log.Fatalf("❌ failed to migrate: %v", err)
	}

	b, err := broker.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ failed to connect to broker: %v", err)
	}

	o := &orchestrator.Orchestrator{DB: db, Broker: b, Registry: registry.New(db)}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("🚀 orchestrator starting")
	o.Run(ctx)
	log.Println("🛑 orchestrator stopped")
}
