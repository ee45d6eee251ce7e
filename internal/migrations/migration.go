package migrations

import (
	"context"
	"errors"
	"fmt"

	"mystore/internal/database"
	"mystore/internal/models"
	"mystore/internal/services"
	"mystore/pkg/logger"

	"gorm.io/gorm"
)

// RunMigrations creates the schema. With reset the existing tables are dropped first.
func RunMigrations(db *gorm.DB, reset bool, log *logger.Logger) error {
	log.Info("Running database migrations", "reset", reset)

	if reset {
		log.Info("Dropping existing tables")
		tables := models.All()
		// drop children before parents
		for i, j := 0, len(tables)-1; i < j; i, j = i+1, j-1 {
			tables[i], tables[j] = tables[j], tables[i]
		}
		if err := db.Migrator().DropTable(tables...); err != nil {
			log.Warn("Error dropping tables", "error", err)
		}
	}

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("Database migrations completed successfully")
	return nil
}

// EnsureAdmin creates a staff user with the given credentials unless the username exists.
// The user's customer profile is provisioned alongside it.
func EnsureAdmin(ctx context.Context, users services.UserService, username, email, password string, log *logger.Logger) error {
	existing, err := users.GetUserByUsername(ctx, username)
	if err == nil && existing != nil {
		log.Info("Admin user already exists", "username", username)
		return nil
	}
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		return err
	}

	admin := &models.User{
		Username: username,
		Email:    email,
		IsStaff:  true,
		IsActive: true,
	}
	if err := users.CreateUser(ctx, admin, password); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Info("Admin user created", "username", username, "id", admin.ID)
	return nil
}
