package handler

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/csvimport"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/database"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/logger"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tempPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// ListUsers returns the active users, for assignment pickers
func ListUsers(c echo.Context) error {
	var users []model.User
	err := database.GetDB().WithContext(c.Request().Context()).
		Where("active = ?", true).Order("name ASC").Find(&users).Error
	if err != nil {
		logger.FromEcho(c).Error("Failed to list users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list users"})
	}

	out := make([]echo.Map, 0, len(users))
	for i := range users {
		out = append(out, userJSON(&users[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// ListAllUsers returns every user including inactive ones
func ListAllUsers(c echo.Context) error {
	var users []model.User
	err := database.GetDB().WithContext(c.Request().Context()).Order("name ASC").Find(&users).Error
	if err != nil {
		logger.FromEcho(c).Error("Failed to list users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list users"})
	}

	out := make([]echo.Map, 0, len(users))
	for i := range users {
		out = append(out, userJSON(&users[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// CreateUser adds a user. A temporary password is generated when none is given.
func CreateUser(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Name      string `json:"name"`
		Email     string `json:"email"`
		Role      string `json:"role"`
		ManagerID flexID `json:"managerId"`
		Password  string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	user, temp, err := createUser(c, database.GetDB().WithContext(c.Request().Context()), newUser{
		Name:      req.Name,
		Email:     req.Email,
		Role:      req.Role,
		ManagerID: req.ManagerID.ptr(),
		Password:  req.Password,
	})
	if err != nil {
		var ue *userError
		if errors.As(err, &ue) {
			return c.JSON(ue.status, echo.Map{"error": ue.msg})
		}
		log.Error("Failed to create user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create user"})
	}

	log.Info("User created", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
	body := echo.Map{"success": true, "user": userJSON(user)}
	if temp != "" {
		body["temporaryPassword"] = temp
	}
	return c.JSON(http.StatusCreated, body)
}

// UpdateUser patches name, role, manager and active flag
func UpdateUser(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err, "Invalid user id")
	}

	var req struct {
		Name      *string         `json:"name"`
		Role      *string         `json:"role"`
		ManagerID json.RawMessage `json:"managerId"`
		Active    *bool           `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	db := database.GetDB().WithContext(c.Request().Context())
	var user model.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		log.Error("Failed to load user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return badRequest(c, "name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Role != nil {
		role, ok := model.ParseRole(*req.Role)
		if !ok {
			return badRequest(c, fmt.Sprintf("unknown role %q", *req.Role))
		}
		updates["role"] = string(role)
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(req.ManagerID) > 0 {
		var mid flexID
		if err := json.Unmarshal(req.ManagerID, &mid); err != nil {
			return badRequest(c, "invalid managerId")
		}
		if mid != 0 {
			if err := checkManager(db, user.ID, uint(mid)); err != nil {
				var ue *userError
				if errors.As(err, &ue) {
					return c.JSON(ue.status, echo.Map{"error": ue.msg})
				}
				log.Error("Failed to check manager", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
			}
		}
		if mid == 0 {
			updates["manager_id"] = nil
		} else {
			updates["manager_id"] = uint(mid)
		}
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusOK, userJSON(&user))
	}

	defer prometheus.TrackDBOperation("update_user")()
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		log.Error("Failed to update user", zap.Uint("user_id", user.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
	}
	if err := db.First(&user, id).Error; err != nil {
		log.Error("Failed to reload user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
	}

	prometheus.RecordUserOperation("update")
	log.Info("User updated", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, userJSON(&user))
}

// ResetPassword sets a new temporary password and returns it once
func ResetPassword(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err, "Invalid user id")
	}

	var req struct {
		Password string `json:"password"`
	}
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request")
		}
	}

	password := req.Password
	if password == "" {
		if password, err = temporaryPassword(12); err != nil {
			log.Error("Failed to generate password", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password reset failed"})
		}
	} else if len(password) < minPasswordLength {
		return badRequest(c, "password must have at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password reset failed"})
	}

	defer prometheus.TrackDBOperation("reset_password")()
	res := database.GetDB().WithContext(c.Request().Context()).Model(&model.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"password_hash": string(hash), "must_reset_password": true})
	if res.Error != nil {
		log.Error("Failed to store password", zap.Error(res.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password reset failed"})
	}
	if res.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	prometheus.RecordUserOperation("reset_password")
	log.Info("Password reset", zap.Uint("user_id", id))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "temporaryPassword": password})
}

// BulkUploadUsers creates users from a CSV or workbook. Existing emails are skipped
// and managers are resolved by email once every row is in.
func BulkUploadUsers(c echo.Context) error {
	log := logger.FromEcho(c)

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file uploaded")
	}
	src, err := fh.Open()
	if err != nil {
		log.Error("Failed to open upload", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read upload"})
	}
	defer src.Close()

	table, err := csvimport.ReadTable(fh.Filename, src)
	if err != nil {
		return badRequest(c, fmt.Sprintf("could not read file: %v", err))
	}
	cols := struct{ name, email, role, manager, password int }{
		name:     table.Column("name", "nombre"),
		email:    table.Column("email", "correo"),
		role:     table.Column("role", "rol"),
		manager:  table.Column("manager_email", "jefe_email", "email_jefe"),
		password: table.Column("password", "clave"),
	}
	if cols.email < 0 {
		return badRequest(c, "file needs an email column")
	}

	db := database.GetDB().WithContext(c.Request().Context())
	created := []echo.Map{}
	skipped := []string{}
	problems := []string{}
	pending := map[uint]string{}
	for i, row := range table.Rows {
		line := i + 2
		email := cell(row, cols.email)
		if email == "" {
			problems = append(problems, fmt.Sprintf("row %d: missing email", line))
			continue
		}

		var n int64
		if err := db.Model(&model.User{}).Where("LOWER(email) = ?", strings.ToLower(email)).Count(&n).Error; err != nil {
			log.Error("Failed to check email", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "bulk upload failed"})
		}
		if n > 0 {
			skipped = append(skipped, email)
			continue
		}

		name := cell(row, cols.name)
		if name == "" {
			name = email
		}
		role := cell(row, cols.role)
		if role == "" {
			role = string(model.RoleExecutive)
		}
		user, temp, err := createUser(c, db, newUser{
			Name:     name,
			Email:    email,
			Role:     role,
			Password: cell(row, cols.password),
		})
		if err != nil {
			var ue *userError
			if errors.As(err, &ue) {
				problems = append(problems, fmt.Sprintf("row %d: %s", line, ue.msg))
				continue
			}
			log.Error("Failed to create user", zap.Int("row", line), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "bulk upload failed"})
		}

		entry := echo.Map{"id": user.ID, "email": user.Email, "role": user.Role}
		if temp != "" {
			entry["temporaryPassword"] = temp
		}
		created = append(created, entry)
		if m := cell(row, cols.manager); m != "" {
			pending[user.ID] = m
		}
	}

	for userID, managerEmail := range pending {
		var manager model.User
		err := db.Where("LOWER(email) = ?", strings.ToLower(managerEmail)).First(&manager).Error
		if err != nil {
			problems = append(problems, fmt.Sprintf("manager %s not found for user %d", managerEmail, userID))
			continue
		}
		if err := checkManager(db, userID, manager.ID); err != nil {
			problems = append(problems, fmt.Sprintf("manager %s rejected for user %d", managerEmail, userID))
			continue
		}
		if err := db.Model(&model.User{}).Where("id = ?", userID).Update("manager_id", manager.ID).Error; err != nil {
			log.Error("Failed to set manager", zap.Uint("user_id", userID), zap.Error(err))
			problems = append(problems, fmt.Sprintf("could not set manager for user %d", userID))
		}
	}

	prometheus.RecordUserOperation("bulk_upload")
	log.Info("Users bulk uploaded",
		zap.Int("created", len(created)),
		zap.Int("skipped", len(skipped)),
		zap.Int("errors", len(problems)))
	return c.JSON(http.StatusOK, echo.Map{
		"created": created,
		"skipped": skipped,
		"errors":  problems,
	})
}

type newUser struct {
	Name      string
	Email     string
	Role      string
	ManagerID *uint
	Password  string
}

// userError is a rejected user change with the status to answer
type userError struct {
	status int
	msg    string
}

func (e *userError) Error() string { return e.msg }

// createUser validates and inserts a user. The temporary password is returned
// only when one had to be generated.
func createUser(c echo.Context, db *gorm.DB, in newUser) (*model.User, string, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" {
		return nil, "", &userError{http.StatusBadRequest, "name and email are required"}
	}
	role, ok := model.ParseRole(in.Role)
	if !ok {
		return nil, "", &userError{http.StatusBadRequest, fmt.Sprintf("unknown role %q", in.Role)}
	}

	var n int64
	if err := db.Model(&model.User{}).Where("LOWER(email) = ?", email).Count(&n).Error; err != nil {
		return nil, "", err
	}
	if n > 0 {
		return nil, "", &userError{http.StatusConflict, "email already registered"}
	}

	if in.ManagerID != nil {
		var manager model.User
		if err := db.First(&manager, *in.ManagerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", &userError{http.StatusBadRequest, "manager not found"}
			}
			return nil, "", err
		}
	}

	password, temp := in.Password, ""
	if password == "" {
		generated, err := temporaryPassword(12)
		if err != nil {
			return nil, "", err
		}
		password, temp = generated, generated
	} else if len(password) < minPasswordLength {
		return nil, "", &userError{http.StatusBadRequest, "password must have at least 8 characters"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user := &model.User{
		Name:              name,
		Email:             email,
		PasswordHash:      string(hash),
		Role:              role,
		Active:            true,
		ManagerID:         in.ManagerID,
		MustResetPassword: true,
	}
	defer prometheus.TrackDBOperation("create_user")()
	if err := db.Create(user).Error; err != nil {
		return nil, "", err
	}
	prometheus.RecordUserOperation("create")
	logger.FromEcho(c).Debug("User stored", zap.Uint("user_id", user.ID))
	return user, temp, nil
}

// checkManager rejects a manager that is the user itself or one of its reports
func checkManager(db *gorm.DB, userID, managerID uint) error {
	if userID == managerID {
		return &userError{http.StatusBadRequest, "a user cannot manage itself"}
	}
	seen := map[uint]bool{userID: true}
	next := &managerID
	for next != nil {
		if seen[*next] {
			return &userError{http.StatusBadRequest, "manager change would create a cycle"}
		}
		seen[*next] = true

		var u model.User
		if err := db.Select("id", "manager_id").First(&u, *next).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &userError{http.StatusBadRequest, "manager not found"}
			}
			return err
		}
		next = u.ManagerID
	}
	return nil
}

func temporaryPassword(n int) (string, error) {
	limit := big.NewInt(int64(len(tempPasswordAlphabet)))
	b := make([]byte, n)
	for i := range b {
		k, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = tempPasswordAlphabet[k.Int64()]
	}
	return string(b), nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
