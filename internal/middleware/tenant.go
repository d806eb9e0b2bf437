package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pm-service/internal/model"
	"pm-service/pkg/logger"
	"pm-service/prometheus"
)

// maxPeekBytes bounds how much of a request body the guard will inspect
const maxPeekBytes = 1 << 20

// TenantScope enforces tenant isolation on every resource route. It runs
// after Authenticate and is a pure gate: no side effects, stateless across
// requests.
//
// Superadmin roles bypass all customer checks. Everyone else must carry a
// customer_id claim, must not send a conflicting customer_id in a mutating
// request body, and must not address another customer's id in the path.
func TenantScope(skip Skipper) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}

			log := logger.FromContext(c)

			userID, _ := c.Get(ContextUserID).(string)
			role, _ := c.Get(ContextRole).(string)
			if userID == "" || role == "" {
				prometheus.RecordAuthError("missing_claims")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
			}

			// Superadmins can see and manage everything
			if model.BypassesTenantScope(role) {
				return next(c)
			}

			customerID, _ := c.Get(ContextCustomerID).(string)
			if customerID == "" {
				prometheus.RecordAuthError("missing_customer_context")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Customer context required"})
			}

			// Reject mutating requests whose body names another customer
			switch c.Request().Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
				bodyCustomerID, err := peekBodyCustomerID(c)
				if err != nil {
					log.Error("Failed to inspect request body", zap.Error(err))
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
				}
				if bodyCustomerID != "" && bodyCustomerID != customerID {
					log.Warn("Cross-customer write attempt",
						zap.String("user_id", userID),
						zap.String("claim_customer_id", customerID),
						zap.String("body_customer_id", bodyCustomerID))
					prometheus.RecordAuthError("cross_tenant")
					return c.JSON(http.StatusForbidden, echo.Map{"error": "Cross-customer access forbidden"})
				}
			}

			// Reject requests addressing another customer in the path
			if pathCustomerID := c.Param("customer_id"); pathCustomerID != "" && pathCustomerID != customerID {
				log.Warn("Cross-customer path access attempt",
					zap.String("user_id", userID),
					zap.String("claim_customer_id", customerID),
					zap.String("path_customer_id", pathCustomerID))
				prometheus.RecordAuthError("cross_tenant")
				return c.JSON(http.StatusForbidden, echo.Map{"error": "Cross-customer access forbidden"})
			}

			return next(c)
		}
	}
}

// peekBodyCustomerID reads an explicit customer_id out of a JSON request
// body, restoring the body so handlers can still bind it. Non-JSON and
// malformed bodies yield no customer id; handlers report those as 400s.
func peekBodyCustomerID(c echo.Context) (string, error) {
	req := c.Request()
	if req.Body == nil {
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, maxPeekBytes))
	if err != nil {
		return "", err
	}
	req.Body = io.NopCloser(bytes.NewReader(body))

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}

	raw, ok := payload["customer_id"]
	if !ok {
		return "", nil
	}

	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", nil
	}
	return id, nil
}
