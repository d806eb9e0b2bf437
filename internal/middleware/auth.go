package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pm-service/pkg/jwtutil"
	"pm-service/pkg/logger"
	"pm-service/prometheus"
)

// Context keys set by Authenticate and read by the tenant guard and handlers
const (
	ContextUserID     = "user_id"
	ContextEmail      = "email"
	ContextRole       = "role"
	ContextCustomerID = "customer_id"
)

// Skipper reports whether a request bypasses a middleware entirely. Both
// Authenticate and TenantScope run as global middleware with a skipper for
// the public surface; echo's group middleware registers catch-all routes
// that turn method mismatches into 404s instead of 405s.
type Skipper func(echo.Context) bool

// Authenticate validates the JWT token from the Authorization header and
// stashes the verified claims in the request context
func Authenticate(jwt *jwtutil.Manager, skip Skipper) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}

			log := logger.FromContext(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Error("Missing Authorization header")
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Error("Invalid Authorization header format")
				prometheus.RecordAuthError("invalid_auth_format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
			}

			claims, err := jwt.Validate(parts[1])
			if err != nil {
				log.Error("Invalid JWT token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			c.Set(ContextUserID, claims.Subject)
			c.Set(ContextEmail, claims.Email)
			c.Set(ContextRole, claims.Role)

			if claims.CustomerID != nil {
				c.Set(ContextCustomerID, *claims.CustomerID)

				log.Debug("Request authenticated with customer context",
					zap.String("customer_id", *claims.CustomerID),
					zap.String("role", claims.Role))
			}

			return next(c)
		}
	}
}
