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

type calendarEvent struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Start          *time.Time `json:"start"`
	End            *time.Time `json:"end"`
	Status         string     `json:"status"`
	AssigneeUserID *string    `json:"assignee_user_id"`
}

// Calendar returns a project's tasks that carry a start or due date,
// shaped as calendar events
func (h *TaskHandler) Calendar(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("calendar", "get")
	a := actorFrom(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var tasks []model.Task
	if result := scoped(h.DB, a).Where("project_id = ?", c.Param("project_id")).Find(&tasks); result.Error != nil {
		log.Error("Failed to load project tasks", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	events := make([]calendarEvent, 0, len(tasks))
	for _, t := range tasks {
		if t.StartDate == nil && t.DueDate == nil {
			continue
		}
		events = append(events, calendarEvent{
			ID:             t.ID,
			Title:          t.Title,
			Start:          t.StartDate,
			End:            t.DueDate,
			Status:         t.Status,
			AssigneeUserID: t.AssigneeUserID,
		})
	}

	return c.JSON(http.StatusOK, events)
}
