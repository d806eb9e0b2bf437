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

type kanbanCard struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	AssigneeUserID *string    `json:"assignee_user_id"`
	DueDate        *time.Time `json:"due_date"`
	Position       int        `json:"position"`
}

// Kanban returns a project's tasks grouped into board columns by status.
// Every column is present in the response even when empty.
func (h *TaskHandler) Kanban(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("kanban", "get")
	a := actorFrom(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var tasks []model.Task
	if result := scoped(h.DB, a).Where("project_id = ?", c.Param("project_id")).Order("position").Find(&tasks); result.Error != nil {
		log.Error("Failed to load project tasks", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	board := map[string][]kanbanCard{
		model.TaskStatusTodo:       {},
		model.TaskStatusInProgress: {},
		model.TaskStatusDone:       {},
		model.TaskStatusBlocked:    {},
	}
	for _, t := range tasks {
		column, ok := board[t.Status]
		if !ok {
			// Tasks with an unknown status are dropped from the board
			continue
		}
		board[t.Status] = append(column, kanbanCard{
			ID:             t.ID,
			Title:          t.Title,
			AssigneeUserID: t.AssigneeUserID,
			DueDate:        t.DueDate,
			Position:       t.Position,
		})
	}

	return c.JSON(http.StatusOK, board)
}
