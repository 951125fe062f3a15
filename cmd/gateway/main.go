// Command gateway runs the Gateway component: the HTTP surface of §4.1,
// structured the way the teacher's three services each built their own
// gin.Engine + setupDatabase startup sequence.
package main

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/epicrunze/evocable/internal/authn"
	"github.com/epicrunze/evocable/internal/broker"
	"github.com/epicrunze/evocable/internal/config"
	"github.com/epicrunze/evocable/internal/gatewayapi"
	"github.com/epicrunze/evocable/internal/models"
	"github.com/epicrunze/evocable/internal/ratelimit"
	"github.com/epicrunze/evocable/internal/registry"
	"github.com/epicrunze/evocable/internal/signing"
)

func main() {
	cfg := config.Load()

	db, err := setupDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ failed to connect to database: %v", err)
	}
	if err := gatewayapi.SeedAdmin(db, cfg); err != nil {
		log.Fatalf("❌ failed to seed administrator: %v", err)
	}

	b, err := broker.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ failed to connect to broker: %v", err)
	}

	pingDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ failed to open lib/pq health-check connection: %v", err)
	}

	server := &gatewayapi.Server{
		DB:       db,
		Broker:   b,
		Registry: registry.New(db),
		Issuer:   authn.NewIssuer(cfg.SecretKey),
		Signer:   signing.NewSigner(cfg.SecretKey),
		Limiter:  ratelimit.New(cfg.DisableRateLimit, ratelimit.AllPolicies()...),
		Cfg:      cfg,
		PingDB:   pingDB,
	}

	router := gatewayapi.NewRouter(server)
	log.Printf("🚀 gateway listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("❌ gateway server exited: %v", err)
	}
}

// setupDatabase connects to Postgres and migrates the models the gateway
// owns, mirroring auth-service/main.go's setupDatabase.
func setupDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.User{}, &models.Book{}, &models.BookChunk{}); err != nil {
		return nil, err
	}
	return db, nil
}
