package handler

import (
	"encoding/json"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pm-service/internal/middleware"
	"pm-service/internal/model"
	"pm-service/pkg/logger"
	"pm-service/prometheus"
)

// actor is the verified identity of the requester, extracted from the
// context keys set by the auth middleware
type actor struct {
	UserID     string
	Email      string
	Role       string
	CustomerID string // empty for superadmins
}

func actorFrom(c echo.Context) actor {
	a := actor{}
	a.UserID, _ = c.Get(middleware.ContextUserID).(string)
	a.Email, _ = c.Get(middleware.ContextEmail).(string)
	a.Role, _ = c.Get(middleware.ContextRole).(string)
	a.CustomerID, _ = c.Get(middleware.ContextCustomerID).(string)
	return a
}

// scoped narrows a query to the actor's customer. Superadmin roles see
// across customers and are left unscoped.
func scoped(q *gorm.DB, a actor) *gorm.DB {
	if model.BypassesTenantScope(a.Role) {
		return q
	}
	return q.Where("customer_id = ?", a.CustomerID)
}

// writeAudit appends an audit log entry. Audit writes are best effort: a
// failed append is logged but never fails the request that caused it.
func writeAudit(db *gorm.DB, c echo.Context, a actor, actionType, targetType, targetID string, meta map[string]interface{}) {
	entry := model.AuditLog{
		ActorUserID: a.UserID,
		ActionType:  actionType,
		TargetType:  targetType,
		TargetID:    targetID,
	}
	if a.CustomerID != "" {
		customerID := a.CustomerID
		entry.CustomerID = &customerID
	}
	if meta != nil {
		if encoded, err := json.Marshal(meta); err == nil {
			entry.Meta = string(encoded)
		}
	}

	if err := db.Create(&entry).Error; err != nil {
		logger.FromContext(c).Error("Failed to write audit log",
			zap.String("action_type", actionType),
			zap.Error(err))
		return
	}
	prometheus.AuditWriteCounter.Inc()
}

// parseDate accepts both date-only and RFC3339 timestamps
func parseDate(value string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, true
	}
	return nil, false
}
