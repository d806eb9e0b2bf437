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

// CommentHandler serves comments on tasks
type CommentHandler struct {
	DB *gorm.DB
}

func NewCommentHandler(db *gorm.DB) *CommentHandler {
	return &CommentHandler{DB: db}
}

func (h *CommentHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("comment", "create")
	a := actorFrom(c)

	if !model.CanMutate(a.Role) {
		prometheus.RecordAuthError("readonly_mutation")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	var req struct {
		TaskID  string `json:"task_id"`
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse comment creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.TaskID == "" || req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "task_id and content are required"})
	}

	var task model.Task
	if result := scoped(h.DB, a).First(&task, "id = ?", req.TaskID); result.Error != nil {
		log.Warn("Task not found", zap.String("task_id", req.TaskID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Task not found"})
	}

	comment := model.Comment{
		CustomerID:   task.CustomerID,
		TaskID:       task.ID,
		AuthorUserID: a.UserID,
		Content:      req.Content,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := h.DB.Create(&comment); result.Error != nil {
		log.Error("Failed to create comment", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "comment.create", "comment", comment.ID, map[string]interface{}{
		"task_id": task.ID,
	})

	return c.JSON(http.StatusCreated, comment)
}

// List returns the comments on a task
func (h *CommentHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("comment", "list")
	a := actorFrom(c)

	taskID := c.QueryParam("task_id")
	if taskID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "task_id is required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var comments []model.Comment
	if result := scoped(h.DB, a).Where("task_id = ?", taskID).Order("created_at").Find(&comments); result.Error != nil {
		log.Error("Failed to list comments", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, comments)
}

func (h *CommentHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("comment", "get")
	a := actorFrom(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var comment model.Comment
	if result := scoped(h.DB, a).First(&comment, "id = ?", c.Param("id")); result.Error != nil {
		log.Warn("Comment not found", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Comment not found"})
	}

	return c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("comment", "update")
	a := actorFrom(c)

	if !model.CanMutate(a.Role) {
		prometheus.RecordAuthError("readonly_mutation")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var comment model.Comment
	if result := scoped(h.DB, a).First(&comment, "id = ?", c.Param("id")); result.Error != nil {
		log.Warn("Comment not found", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Comment not found"})
	}

	var req struct {
		Content *string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse comment update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Content != nil {
		comment.Content = *req.Content
	}

	if result := h.DB.Save(&comment); result.Error != nil {
		log.Error("Failed to update comment", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "comment.update", "comment", comment.ID, nil)

	return c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("comment", "delete")
	a := actorFrom(c)

	if !model.CanMutate(a.Role) {
		prometheus.RecordAuthError("readonly_mutation")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	var comment model.Comment
	if result := scoped(h.DB, a).First(&comment, "id = ?", c.Param("id")); result.Error != nil {
		log.Warn("Comment not found", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Comment not found"})
	}

	if result := h.DB.Delete(&comment); result.Error != nil {
		log.Error("Failed to delete comment", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "comment.delete", "comment", comment.ID, nil)

	return c.JSON(http.StatusOK, echo.Map{"message": "Comment deleted"})
}
