package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/middleware"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/database"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/logger"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

func userJSON(u *model.User) echo.Map {
	return echo.Map{
		"id":                  u.ID,
		"nombre":              u.Name,
		"email":               u.Email,
		"role":                u.Role,
		"activo":              u.Active,
		"jefe_id":             u.ManagerID,
		"must_reset_password": u.MustResetPassword,
	}
}

// Login exchanges email and password for a bearer token
func Login(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_login")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	defer prometheus.TrackDBOperation("login")()
	var user model.User
	err := database.GetDB().WithContext(c.Request().Context()).Where("LOWER(email) = ?", email).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("Failed to load user", zap.Error(err))
			prometheus.RecordAuthError("db_error")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
		}
		log.Warn("User not found", zap.String("email", email))
		prometheus.RecordLogin(false)
		prometheus.RecordAuthError("login_failure")
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", email))
		prometheus.RecordLogin(false)
		prometheus.RecordAuthError("login_failure")
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid credentials"})
	}

	if !user.Active {
		log.Warn("Inactive user tried to log in", zap.Uint("user_id", user.ID))
		prometheus.RecordLogin(false)
		prometheus.RecordAuthError("inactive_user")
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "account is disabled"})
	}

	token, err := opts.JWT.GenerateToken(user.ID, user.Email, user.Name, string(model.NormalizeRole(string(user.Role))))
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	prometheus.RecordLogin(true)
	log.Info("User logged in", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"token":   token,
		"user":    userJSON(&user),
	})
}

// ChangePassword replaces the caller's password and clears the reset flag
func ChangePassword(c echo.Context) error {
	log := logger.FromEcho(c)
	claims := middleware.CurrentUser(c)

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if len(req.NewPassword) < minPasswordLength {
		return badRequest(c, "new password must have at least 8 characters")
	}

	db := database.GetDB().WithContext(c.Request().Context())
	var user model.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		log.Error("Failed to load user", zap.Uint("user_id", claims.UserID), zap.Error(err))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "current password is incorrect"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password change failed"})
	}

	defer prometheus.TrackDBOperation("change_password")()
	if err := db.Model(&user).Updates(map[string]interface{}{
		"password_hash":       string(hash),
		"must_reset_password": false,
	}).Error; err != nil {
		log.Error("Failed to store password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password change failed"})
	}

	prometheus.RecordUserOperation("change_password")
	log.Info("Password changed", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
