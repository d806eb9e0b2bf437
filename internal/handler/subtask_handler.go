package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pm-service/internal/model"
	"pm-service/pkg/logger"
	"pm-service/prometheus"
)

// Subtasks are tasks with a parent; they live in the same table and share
// the task field set. The parent anchors the subtask's project and tenant.

func (h *TaskHandler) CreateSubtask(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("subtask", "create")
	a := actorFrom(c)

	if !model.CanMutate(a.Role) {
		prometheus.RecordAuthError("readonly_mutation")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	var req taskRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse subtask creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Title == nil || *req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if req.ParentTaskID == nil || *req.ParentTaskID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "parent_task_id is required"})
	}

	var parent model.Task
	if result := scoped(h.DB, a).First(&parent, "id = ?", *req.ParentTaskID); result.Error != nil {
		log.Warn("Parent task not found", zap.String("parent_task_id", *req.ParentTaskID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Parent task not found"})
	}

	subtask := model.Task{
		CustomerID:   parent.CustomerID,
		ProjectID:    parent.ProjectID,
		ParentTaskID: &parent.ID,
		Status:       model.TaskStatusTodo,
		Priority:     model.PriorityMedium,
	}
	if msg := req.apply(&subtask); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := h.DB.Create(&subtask); result.Error != nil {
		log.Error("Failed to create subtask", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "task.create", "task", subtask.ID, map[string]interface{}{
		"title":          subtask.Title,
		"parent_task_id": parent.ID,
	})

	log.Info("Subtask created",
		zap.String("id", subtask.ID),
		zap.String("parent_task_id", parent.ID))
	return c.JSON(http.StatusCreated, subtask)
}

// ListSubtasks returns the subtasks of a parent task
func (h *TaskHandler) ListSubtasks(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("subtask", "list")
	a := actorFrom(c)

	parentTaskID := c.QueryParam("parent_task_id")
	if parentTaskID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "parent_task_id is required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var subtasks []model.Task
	if result := scoped(h.DB, a).Where("parent_task_id = ?", parentTaskID).Order("position").Find(&subtasks); result.Error != nil {
		log.Error("Failed to list subtasks", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, subtasks)
}
