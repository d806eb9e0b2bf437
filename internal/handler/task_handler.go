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

// TaskHandler serves task and subtask CRUD plus the calendar and kanban
// read views (see calendar_handler.go and kanban_handler.go)
type TaskHandler struct {
	DB *gorm.DB
}

func NewTaskHandler(db *gorm.DB) *TaskHandler {
	return &TaskHandler{DB: db}
}

// taskRequest is the shared mutable field set for task and subtask writes.
// Pointer fields distinguish "absent" from "set to zero" on partial updates.
type taskRequest struct {
	ProjectID      *string `json:"project_id"`
	ParentTaskID   *string `json:"parent_task_id"`
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	Status         *string `json:"status"`
	Priority       *string `json:"priority"`
	AssigneeUserID *string `json:"assignee_user_id"`
	StartDate      *string `json:"start_date"`
	DueDate        *string `json:"due_date"`
	CompletedAt    *string `json:"completed_at"`
	Position       *int    `json:"position"`
}

// apply copies the set fields onto the task, validating enums and dates.
// Returns a client-facing error message, or "" when everything applied.
func (r *taskRequest) apply(task *model.Task) string {
	if r.Title != nil {
		task.Title = *r.Title
	}
	if r.Description != nil {
		task.Description = *r.Description
	}
	if r.Status != nil {
		if !model.ValidTaskStatus(*r.Status) {
			return "invalid status"
		}
		task.Status = *r.Status
	}
	if r.Priority != nil {
		if !model.ValidPriority(*r.Priority) {
			return "invalid priority"
		}
		task.Priority = *r.Priority
	}
	if r.AssigneeUserID != nil {
		task.AssigneeUserID = r.AssigneeUserID
	}
	if r.StartDate != nil {
		t, ok := parseDate(*r.StartDate)
		if !ok {
			return "invalid start_date"
		}
		task.StartDate = t
	}
	if r.DueDate != nil {
		t, ok := parseDate(*r.DueDate)
		if !ok {
			return "invalid due_date"
		}
		task.DueDate = t
	}
	if r.CompletedAt != nil {
		t, ok := parseDate(*r.CompletedAt)
		if !ok {
			return "invalid completed_at"
		}
		task.CompletedAt = t
	}
	if r.Position != nil {
		task.Position = *r.Position
	}
	return ""
}

// List returns the customer's tasks, optionally filtered by project. Only
// top-level tasks are returned; subtasks are listed via /api/subtasks.
func (h *TaskHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("task", "list")
	a := actorFrom(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	query := scoped(h.DB, a).Where("parent_task_id IS NULL")
	if projectID := c.QueryParam("project_id"); projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}

	var tasks []model.Task
	if result := query.Order("position").Find(&tasks); result.Error != nil {
		log.Error("Failed to list tasks", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("task", "get")
	a := actorFrom(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var task model.Task
	if result := scoped(h.DB, a).First(&task, "id = ?", c.Param("id")); result.Error != nil {
		log.Warn("Task not found", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Task not found"})
	}

	return c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("task", "create")
	a := actorFrom(c)

	if !model.CanMutate(a.Role) {
		prometheus.RecordAuthError("readonly_mutation")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	var req taskRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse task creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Title == nil || *req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if req.ProjectID == nil || *req.ProjectID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "project_id is required"})
	}

	// The project anchors the task's tenant; superadmins inherit it
	var project model.Project
	if result := scoped(h.DB, a).First(&project, "id = ?", *req.ProjectID); result.Error != nil {
		log.Warn("Project not found", zap.String("project_id", *req.ProjectID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Project not found"})
	}

	task := model.Task{
		CustomerID: project.CustomerID,
		ProjectID:  project.ID,
		Status:     model.TaskStatusTodo,
		Priority:   model.PriorityMedium,
	}
	if msg := req.apply(&task); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := h.DB.Create(&task); result.Error != nil {
		log.Error("Failed to create task", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "task.create", "task", task.ID, map[string]interface{}{
		"title":      task.Title,
		"project_id": task.ProjectID,
	})

	log.Info("Task created", zap.String("id", task.ID), zap.String("title", task.Title))
	return c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("task", "update")
	a := actorFrom(c)

	if !model.CanMutate(a.Role) {
		prometheus.RecordAuthError("readonly_mutation")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var task model.Task
	if result := scoped(h.DB, a).First(&task, "id = ?", c.Param("id")); result.Error != nil {
		log.Warn("Task not found", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Task not found"})
	}

	var req taskRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse task update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if msg := req.apply(&task); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	if result := h.DB.Save(&task); result.Error != nil {
		log.Error("Failed to update task", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "task.update", "task", task.ID, nil)

	return c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("task", "delete")
	a := actorFrom(c)

	if !model.CanMutate(a.Role) {
		prometheus.RecordAuthError("readonly_mutation")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	var task model.Task
	if result := scoped(h.DB, a).First(&task, "id = ?", c.Param("id")); result.Error != nil {
		log.Warn("Task not found", zap.String("id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Task not found"})
	}

	if result := h.DB.Delete(&task); result.Error != nil {
		log.Error("Failed to delete task", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	writeAudit(h.DB, c, a, "task.delete", "task", task.ID, nil)

	return c.JSON(http.StatusOK, echo.Map{"message": "Task deleted"})
}
