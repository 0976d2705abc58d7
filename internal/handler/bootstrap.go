package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// EnsureAdmin creates the first admin account when none exists yet.
// Nothing happens when email or password is empty.
func EnsureAdmin(ctx context.Context, db *gorm.DB, name, email, password string, log *zap.Logger) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	db = db.WithContext(ctx)
	var n int64
	if err := db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if n > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrador"
	}
	admin := model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Active:       true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	log.Info("Bootstrap admin created", zap.Uint("user_id", admin.ID), zap.String("email", email))
	return nil
}
