package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pm-service/internal/model"
	"pm-service/pkg/jwtutil"
	"pm-service/pkg/logger"
	"pm-service/prometheus"
)

// CustomerHandler serves the tenant lifecycle: provisioning a customer with
// its first admin, settings updates, and soft deletion
type CustomerHandler struct {
	DB         *gorm.DB
	JWT        *jwtutil.Manager
	BaseDomain string
}

func NewCustomerHandler(db *gorm.DB, jwt *jwtutil.Manager, baseDomain string) *CustomerHandler {
	return &CustomerHandler{DB: db, JWT: jwt, BaseDomain: baseDomain}
}

type customerSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PlanType     string `json:"plan_type"`
	Status       string `json:"status"`
	SubdomainURL string `json:"subdomain_url"`
}

func summarize(c model.Customer) customerSummary {
	return customerSummary{
		ID:           c.ID,
		Name:         c.Name,
		PlanType:     c.PlanType,
		Status:       c.Status,
		SubdomainURL: c.SubdomainURL,
	}
}

// List returns all customers for superadmins, and only the actor's own
// customer for everyone else
func (h *CustomerHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCustomerOperation("list")
	a := actorFrom(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var customers []model.Customer
	query := h.DB
	if !model.BypassesTenantScope(a.Role) {
		query = query.Where("id = ?", a.CustomerID)
	}
	if result := query.Find(&customers); result.Error != nil {
		log.Error("Failed to list customers", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	response := make([]customerSummary, 0, len(customers))
	for _, customer := range customers {
		response = append(response, summarize(customer))
	}
	return c.JSON(http.StatusOK, response)
}

// Get returns customer details including its designated admin user
func (h *CustomerHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCustomerOperation("get")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var customer model.Customer
	if result := h.DB.First(&customer, "id = ?", c.Param("customer_id")); result.Error != nil {
		log.Warn("Customer not found", zap.String("id", c.Param("customer_id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Customer not found"})
	}

	var admin map[string]interface{}
	if customer.AdminUserID != nil {
		var adminUser model.User
		if result := h.DB.First(&adminUser, "id = ?", *customer.AdminUserID); result.Error == nil {
			admin = map[string]interface{}{
				"id":    adminUser.ID,
				"name":  adminUser.Name,
				"email": adminUser.Email,
			}
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":            customer.ID,
		"name":          customer.Name,
		"plan_type":     customer.PlanType,
		"status":        customer.Status,
		"subdomain_url": customer.SubdomainURL,
		"admin":         admin,
	})
}

// GetUsers returns the users belonging to a customer
func (h *CustomerHandler) GetUsers(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCustomerOperation("list_users")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var users []model.User
	if result := h.DB.Where("customer_id = ?", c.Param("customer_id")).Find(&users); result.Error != nil {
		log.Error("Failed to list customer users", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	type userSummary struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Email  string `json:"email"`
		Role   string `json:"role"`
		Status string `json:"status"`
	}
	response := make([]userSummary, 0, len(users))
	for _, u := range users {
		response = append(response, userSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Status: u.Status})
	}
	return c.JSON(http.StatusOK, response)
}

// Create provisions a customer together with its first admin user in one
// transaction. The admin starts out pending with a one-time invitation
// token instead of a password.
func (h *CustomerHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCustomerOperation("create")
	a := actorFrom(c)

	// Provisioning tenants is a platform operation
	if !model.IsSuperadmin(a.Role) {
		prometheus.RecordAuthError("forbidden_customer_create")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Only superadmins can create customers"})
	}

	var req struct {
		CustomerName string `json:"customer_name"`
		Admin        struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"admin"`
		PlanType string `json:"plan_type"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse customer creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.CustomerName == "" || req.Admin.Name == "" || req.Admin.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer_name and admin name/email are required"})
	}
	if req.PlanType == "" {
		req.PlanType = model.PlanFree
	}
	if !model.ValidPlan(req.PlanType) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid plan_type"})
	}

	slug := strings.ReplaceAll(strings.ToLower(req.CustomerName), " ", "")
	subdomainURL := fmt.Sprintf("https://%s.%s", slug, h.BaseDomain)

	defer prometheus.TrackDBOperation("insert")(time.Now())

	var existing model.Customer
	if result := h.DB.Where("slug = ?", slug).First(&existing); result.Error == nil {
		log.Warn("Duplicate customer slug", zap.String("slug", slug))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("Customer with slug %q already exists.", slug)})
	}

	// Customer and first admin must both persist or neither
	tx := h.DB.Begin()
	if tx.Error != nil {
		log.Error("Failed to begin transaction", zap.Error(tx.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	customer := model.Customer{
		Name:         req.CustomerName,
		Slug:         slug,
		Domain:       subdomainURL,
		SubdomainURL: subdomainURL,
		PlanType:     req.PlanType,
		Status:       model.CustomerStatusActive,
	}
	if result := tx.Create(&customer); result.Error != nil {
		tx.Rollback()
		// A concurrent create can slip past the pre-check; the unique index
		// on slug is the authority
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			log.Warn("Duplicate customer slug", zap.String("slug", slug))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("Customer with slug %q already exists.", slug)})
		}
		log.Error("Failed to create customer", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	var existingUser model.User
	if result := tx.Where("email = ?", req.Admin.Email).First(&existingUser); result.Error == nil {
		tx.Rollback()
		log.Warn("Duplicate admin email", zap.String("email", req.Admin.Email))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("User with email %q already exists.", req.Admin.Email)})
	}

	adminUser := model.User{
		CustomerID: &customer.ID,
		Email:      req.Admin.Email,
		Name:       req.Admin.Name,
		Role:       model.RoleAdmin,
		Status:     model.UserStatusPending,
	}
	if result := tx.Create(&adminUser); result.Error != nil {
		tx.Rollback()
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			log.Warn("Duplicate admin email", zap.String("email", req.Admin.Email))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("User with email %q already exists.", req.Admin.Email)})
		}
		log.Error("Failed to create admin user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	// One-time signed invitation replaces the old fixed default password;
	// the admin sets a password on first login via accept-invitation
	invitationToken, err := h.JWT.GenerateInvitation(adminUser.ID, adminUser.Email)
	if err != nil {
		tx.Rollback()
		log.Error("Failed to generate invitation token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}
	if err := tx.Model(&adminUser).Update("invitation_token", invitationToken).Error; err != nil {
		tx.Rollback()
		log.Error("Failed to store invitation token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	if err := tx.Model(&customer).Update("admin_user_id", adminUser.ID).Error; err != nil {
		tx.Rollback()
		log.Error("Failed to link admin user to customer", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	prometheus.InvitationCounter.WithLabelValues("issued").Inc()
	writeAudit(h.DB, c, a, "customer.create", "customer", customer.ID, map[string]interface{}{
		"slug":      slug,
		"plan_type": customer.PlanType,
	})

	log.Info("Customer created",
		zap.String("id", customer.ID),
		zap.String("slug", slug),
		zap.String("admin_user_id", adminUser.ID))

	return c.JSON(http.StatusCreated, echo.Map{
		"customer_id":      customer.ID,
		"admin_user_id":    adminUser.ID,
		"subdomain_url":    subdomainURL,
		"invitation_token": invitationToken,
	})
}

// Update modifies customer settings (name and plan tier)
func (h *CustomerHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCustomerOperation("update")
	a := actorFrom(c)

	if !model.CanMutate(a.Role) || !(model.IsAdmin(a.Role) || model.IsSuperadmin(a.Role)) {
		prometheus.RecordAuthError("forbidden_customer_update")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var customer model.Customer
	if result := h.DB.First(&customer, "id = ?", c.Param("customer_id")); result.Error != nil {
		log.Warn("Customer not found", zap.String("id", c.Param("customer_id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Customer not found"})
	}

	var req struct {
		Name     *string `json:"name"`
		PlanType *string `json:"plan_type"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse customer update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.PlanType != nil {
		if !model.ValidPlan(*req.PlanType) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid plan_type"})
		}
		customer.PlanType = *req.PlanType
	}

	if result := h.DB.Save(&customer); result.Error != nil {
		log.Error("Failed to update customer", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "customer.update", "customer", customer.ID, nil)

	log.Info("Customer updated", zap.String("id", customer.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Customer updated"})
}

// Delete soft-deletes a customer by suspending it. Customer rows are never
// hard-deleted.
func (h *CustomerHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCustomerOperation("suspend")
	a := actorFrom(c)

	if !model.CanMutate(a.Role) || !(model.IsAdmin(a.Role) || model.IsSuperadmin(a.Role)) {
		prometheus.RecordAuthError("forbidden_customer_delete")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var customer model.Customer
	if result := h.DB.First(&customer, "id = ?", c.Param("customer_id")); result.Error != nil {
		log.Warn("Customer not found", zap.String("id", c.Param("customer_id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Customer not found"})
	}

	if err := h.DB.Model(&customer).Update("status", model.CustomerStatusSuspended).Error; err != nil {
		log.Error("Failed to suspend customer", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "customer.suspend", "customer", customer.ID, nil)

	log.Info("Customer suspended", zap.String("id", customer.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Customer suspended"})
}
