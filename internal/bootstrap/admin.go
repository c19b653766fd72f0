package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/learnhub-app/learnhub-server-go/internal/features/user"
	"github.com/learnhub-app/learnhub-server-go/pkg/types"
)

// EnsureDefaultAdmin creates the bootstrap admin account on first start so
// a fresh deployment can be administered. Credentials come from the
// environment; nothing happens when they are unset or the account exists.
func EnsureDefaultAdmin(db *gorm.DB, logger *slog.Logger) error {
	email := strings.TrimSpace(os.Getenv("LEARNHUB_ADMIN_EMAIL"))
	password := os.Getenv("LEARNHUB_ADMIN_PASSWORD")
	if email == "" || password == "" {
		logger.Debug("default admin bootstrap skipped, credentials not configured")
		return nil
	}

	var existing user.User
	err := db.Where("LOWER(email) = ?", strings.ToLower(email)).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		_, createErr := user.Create(db, user.CreateInput{
			FullName: "Administrator",
			Email:    email,
			Password: password,
			Role:     types.UserRoleAdmin,
		})
		if createErr != nil {
			if isUndefinedTableError(createErr) {
				logger.Warn("default admin skipped - users table missing", slog.String("email", email))
				return nil
			}
			return fmt.Errorf("create admin: %w", createErr)
		}

		logger.Info("default admin created", slog.String("email", email))
		return nil

	case err != nil:
		if isUndefinedTableError(err) {
			logger.Warn("default admin skipped - users table missing", slog.String("email", email))
			return nil
		}
		return fmt.Errorf("get admin: %w", err)
	}

	updates := map[string]interface{}{}

	if existing.Role != types.UserRoleAdmin {
		updates["role"] = types.UserRoleAdmin
	}
	if !existing.Active {
		updates["is_active"] = true
	}

	if len(updates) == 0 {
		logger.Info("default admin already up to date", slog.String("email", email))
		return nil
	}

	if err := db.Model(&existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("update admin: %w", err)
	}

	logger.Info("default admin synchronized", slog.String("email", email))
	return nil
}

func isUndefinedTableError(err error) bool {
	if err == nil {
		return false
	}

	message := err.Error()
	return strings.Contains(message, "relation \"users\" does not exist") ||
		strings.Contains(message, "no such table: users")
}
