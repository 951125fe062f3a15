package gatewayapi

import (
	"log"

	"gorm.io/gorm"

	"github.com/epicrunze/evocable/internal/authn"
	"github.com/epicrunze/evocable/internal/config"
	"github.com/epicrunze/evocable/internal/models"
)

// SeedAdmin creates the administrator account on first boot if none
// exists, per §6's "Startup-seeded admin" contract — the same
// migrate-then-seed startup sequence the teacher's setupDatabase ran.
func SeedAdmin(db *gorm.DB, cfg config.Config) error {
	var count int64
	if err := db.Model(&models.User{}).Where("is_admin = ?", true).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := cfg.AdminPassword
	if password == "" {
		password = "admin123!"
	}
	hash, err := authn.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		Username:     "admin",
		Email:        "admin@example.com",
		PasswordHash: hash,
		IsActive:     true,
		IsVerified:   true,
		IsAdmin:      true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("✅ seeded administrator account %s", admin.Username)
	return nil
}
