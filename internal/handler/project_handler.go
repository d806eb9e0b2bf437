package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pm-service/internal/model"
	"pm-service/pkg/logger"
	"pm-service/prometheus"
)

// ProjectHandler serves project CRUD within a customer
type ProjectHandler struct {
	DB *gorm.DB
}

func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	return &ProjectHandler{DB: db}
}

func (h *ProjectHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("project", "list")
	a := actorFrom(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var projects []model.Project
	if result := scoped(h.DB, a).Find(&projects); result.Error != nil {
		log.Error("Failed to list projects", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("project", "get")
	a := actorFrom(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var project model.Project
	if result := scoped(h.DB, a).First(&project, "id = ?", c.Param("id")); result.Error != nil {
		log.Warn("Project not found", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Project not found"})
	}

	return c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("project", "create")
	a := actorFrom(c)

	if !model.CanMutate(a.Role) {
		prometheus.RecordAuthError("readonly_mutation")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		CustomerID  string `json:"customer_id"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse project creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	customerID := a.CustomerID
	if customerID == "" {
		// Superadmins must name the target customer explicitly
		customerID = req.CustomerID
	}
	if customerID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer_id is required"})
	}

	project := model.Project{
		CustomerID:  customerID,
		Name:        req.Name,
		Description: req.Description,
		OwnerUserID: a.UserID,
		Status:      "active",
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := h.DB.Create(&project); result.Error != nil {
		log.Error("Failed to create project", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "project.create", "project", project.ID, map[string]interface{}{
		"name": project.Name,
	})

	log.Info("Project created", zap.String("id", project.ID), zap.String("name", project.Name))
	return c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("project", "update")
	a := actorFrom(c)

	if !model.CanMutate(a.Role) {
		prometheus.RecordAuthError("readonly_mutation")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var project model.Project
	if result := scoped(h.DB, a).First(&project, "id = ?", c.Param("id")); result.Error != nil {
		log.Warn("Project not found", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Project not found"})
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse project update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Status != nil {
		project.Status = *req.Status
	}

	if result := h.DB.Save(&project); result.Error != nil {
		log.Error("Failed to update project", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "project.update", "project", project.ID, nil)

	return c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("project", "delete")
	a := actorFrom(c)

	if !model.CanMutate(a.Role) {
		prometheus.RecordAuthError("readonly_mutation")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	var project model.Project
	if result := scoped(h.DB, a).First(&project, "id = ?", c.Param("id")); result.Error != nil {
		log.Warn("Project not found", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Project not found"})
	}

	if result := h.DB.Delete(&project); result.Error != nil {
		log.Error("Failed to delete project", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "project.delete", "project", project.ID, nil)

	return c.JSON(http.StatusOK, echo.Map{"message": "Project deleted"})
}
