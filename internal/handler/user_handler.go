package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"pm-service/internal/model"
	"pm-service/pkg/logger"
	"pm-service/prometheus"
)

// UserHandler serves user CRUD within a customer. Create, update and delete
// are admin-only; superadmins may act across customers, the readonly
// superadmin may not mutate at all.
type UserHandler struct {
	DB *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{DB: db}
}

func (h *UserHandler) canManageUsers(a actor) bool {
	if !model.CanMutate(a.Role) {
		return false
	}
	return model.IsAdmin(a.Role) || model.IsSuperadmin(a.Role)
}

// List returns the users of the actor's customer; superadmins see all users
func (h *UserHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("user", "list")
	a := actorFrom(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var users []model.User
	if result := scoped(h.DB, a).Find(&users); result.Error != nil {
		log.Error("Failed to list users", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, users)
}

// Get returns a single user. Users outside the actor's customer are
// indistinguishable from missing ones.
func (h *UserHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("user", "get")
	a := actorFrom(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if result := scoped(h.DB, a).First(&user, "id = ?", c.Param("id")); result.Error != nil {
		log.Warn("User not found", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	}

	return c.JSON(http.StatusOK, user)
}

// Create invites a new user into a customer
func (h *UserHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("user", "create")
	a := actorFrom(c)

	if !h.canManageUsers(a) {
		prometheus.RecordAuthError("forbidden_user_create")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Only admins can invite users"})
	}

	var req struct {
		Email      string `json:"email"`
		Name       string `json:"name"`
		Password   string `json:"password"`
		Role       string `json:"role"`
		Status     string `json:"status"`
		CustomerID string `json:"customer_id"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse user creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Email == "" || req.Name == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, name and password are required"})
	}

	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if !model.ValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}
	if req.Status == "" {
		req.Status = model.UserStatusActive
	}

	// Tenant admins always create into their own customer; superadmins name
	// the target customer in the body
	customerID := a.CustomerID
	if model.IsSuperadmin(a.Role) {
		customerID = req.CustomerID
	}
	if customerID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer_id is required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	var existing model.User
	if result := h.DB.Where("email = ?", req.Email).First(&existing); result.Error == nil {
		log.Warn("Duplicate user email", zap.String("email", req.Email))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "User with that email already exists"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	user := model.User{
		CustomerID:   &customerID,
		Email:        req.Email,
		Name:         req.Name,
		Role:         req.Role,
		Status:       req.Status,
		PasswordHash: string(hashedPassword),
	}

	if result := h.DB.Create(&user); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			log.Warn("Duplicate user email", zap.String("email", req.Email))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "User with that email already exists"})
		}
		log.Error("Failed to create user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "user.create", "user", user.ID, map[string]interface{}{
		"email": user.Email,
		"role":  user.Role,
	})

	log.Info("User created",
		zap.String("email", user.Email),
		zap.String("customer_id", customerID))
	return c.JSON(http.StatusCreated, user)
}

// Update modifies a user's profile, role, status or password
func (h *UserHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("user", "update")
	a := actorFrom(c)

	if !h.canManageUsers(a) {
		prometheus.RecordAuthError("forbidden_user_update")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Only admins can update users"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var user model.User
	if result := scoped(h.DB, a).First(&user, "id = ?", c.Param("id")); result.Error != nil {
		log.Warn("User not found", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	}

	var req struct {
		Email    *string `json:"email"`
		Name     *string `json:"name"`
		Password *string `json:"password"`
		Role     *string `json:"role"`
		Status   *string `json:"status"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse user update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Email == nil && req.Name == nil && req.Password == nil && req.Role == nil && req.Status == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing fields"})
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		if !model.ValidRole(*req.Role) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
		}
		user.Role = *req.Role
	}
	if req.Status != nil {
		user.Status = *req.Status
	}
	if req.Password != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("Failed to hash password", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
		}
		user.PasswordHash = string(hashedPassword)
	}

	if result := h.DB.Save(&user); result.Error != nil {
		log.Error("Failed to update user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "user.update", "user", user.ID, nil)

	log.Info("User updated", zap.String("id", user.ID))
	return c.JSON(http.StatusOK, user)
}

// Delete removes a user. Admins cannot delete their own account.
func (h *UserHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("user", "delete")
	a := actorFrom(c)

	if !h.canManageUsers(a) {
		prometheus.RecordAuthError("forbidden_user_delete")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Only admins can delete users"})
	}

	targetID := c.Param("id")
	if targetID == a.UserID {
		prometheus.RecordAuthError("self_delete")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Admin users cannot delete their own account"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	var user model.User
	if result := scoped(h.DB, a).First(&user, "id = ?", targetID); result.Error != nil {
		log.Warn("User not found", zap.String("id", targetID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	}

	if result := h.DB.Delete(&user); result.Error != nil {
		log.Error("Failed to delete user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "user.delete", "user", user.ID, map[string]interface{}{
		"email": user.Email,
	})

	log.Info("User deleted", zap.String("id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted"})
}
