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

// FileHandler serves file attachment metadata. Files themselves live in
// external storage; only their URL and name are recorded here.
type FileHandler struct {
	DB *gorm.DB
}

func NewFileHandler(db *gorm.DB) *FileHandler {
	return &FileHandler{DB: db}
}

func (h *FileHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("file", "create")
	a := actorFrom(c)

	if !model.CanMutate(a.Role) {
		prometheus.RecordAuthError("readonly_mutation")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	var req struct {
		FileURL   string  `json:"file_url"`
		FileName  string  `json:"file_name"`
		TaskID    *string `json:"task_id"`
		ProjectID *string `json:"project_id"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse file upload request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.FileURL == "" || req.FileName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file_url and file_name are required"})
	}
	if req.TaskID == nil && req.ProjectID == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "task_id or project_id is required"})
	}

	// Anchor the attachment's tenant on whichever parent was named
	customerID := a.CustomerID
	if req.TaskID != nil {
		var task model.Task
		if result := scoped(h.DB, a).First(&task, "id = ?", *req.TaskID); result.Error != nil {
			log.Warn("Task not found", zap.String("task_id", *req.TaskID))
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Task not found"})
		}
		customerID = task.CustomerID
	} else {
		var project model.Project
		if result := scoped(h.DB, a).First(&project, "id = ?", *req.ProjectID); result.Error != nil {
			log.Warn("Project not found", zap.String("project_id", *req.ProjectID))
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Project not found"})
		}
		customerID = project.CustomerID
	}

	file := model.FileAttachment{
		CustomerID:       customerID,
		TaskID:           req.TaskID,
		ProjectID:        req.ProjectID,
		UploadedByUserID: a.UserID,
		FileURL:          req.FileURL,
		FileName:         req.FileName,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := h.DB.Create(&file); result.Error != nil {
		log.Error("Failed to create file attachment", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "file.create", "file", file.ID, map[string]interface{}{
		"file_name": file.FileName,
	})

	return c.JSON(http.StatusCreated, file)
}

// List returns attachments filtered by task and/or project
func (h *FileHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("file", "list")
	a := actorFrom(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	query := scoped(h.DB, a)
	if taskID := c.QueryParam("task_id"); taskID != "" {
		query = query.Where("task_id = ?", taskID)
	}
	if projectID := c.QueryParam("project_id"); projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}

	var files []model.FileAttachment
	if result := query.Find(&files); result.Error != nil {
		log.Error("Failed to list file attachments", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, files)
}

func (h *FileHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("file", "get")
	a := actorFrom(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var file model.FileAttachment
	if result := scoped(h.DB, a).First(&file, "id = ?", c.Param("id")); result.Error != nil {
		log.Warn("File not found", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "File not found"})
	}

	return c.JSON(http.StatusOK, file)
}

func (h *FileHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("file", "update")
	a := actorFrom(c)

	if !model.CanMutate(a.Role) {
		prometheus.RecordAuthError("readonly_mutation")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var file model.FileAttachment
	if result := scoped(h.DB, a).First(&file, "id = ?", c.Param("id")); result.Error != nil {
		log.Warn("File not found", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "File not found"})
	}

	var req struct {
		FileName *string `json:"file_name"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse file update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.FileName != nil {
		file.FileName = *req.FileName
	}

	if result := h.DB.Save(&file); result.Error != nil {
		log.Error("Failed to update file attachment", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "file.update", "file", file.ID, nil)

	return c.JSON(http.StatusOK, file)
}

func (h *FileHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("file", "delete")
	a := actorFrom(c)

	if !model.CanMutate(a.Role) {
		prometheus.RecordAuthError("readonly_mutation")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	var file model.FileAttachment
	if result := scoped(h.DB, a).First(&file, "id = ?", c.Param("id")); result.Error != nil {
		log.Warn("File not found", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "File not found"})
	}

	if result := h.DB.Delete(&file); result.Error != nil {
		log.Error("Failed to delete file attachment", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "file.delete", "file", file.ID, nil)

	return c.JSON(http.StatusOK, echo.Map{"message": "File deleted"})
}
