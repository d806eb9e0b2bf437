package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"pm-service/internal/model"
	"pm-service/pkg/jwtutil"
	"pm-service/pkg/logger"
	"pm-service/prometheus"
)

// AuthHandler serves login and invitation acceptance
type AuthHandler struct {
	DB  *gorm.DB
	JWT *jwtutil.Manager
}

func NewAuthHandler(db *gorm.DB, jwt *jwtutil.Manager) *AuthHandler {
	return &AuthHandler{DB: db, JWT: jwt}
}

// Login authenticates by email and password and issues an access token.
// Unknown email and wrong password produce the identical response so the
// endpoint does not leak account existence.
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Email == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_login")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	result := h.DB.Where("email = ?", req.Email).First(&user)
	if result.Error != nil {
		log.Warn("Login for unknown email", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid email or password"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid email or password"})
	}

	token, err := h.JWT.Generate(user.ID, user.Email, user.Role, user.CustomerID)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	now := time.Now()
	if err := h.DB.Model(&user).Update("last_login_at", now).Error; err != nil {
		// Login still succeeds; the timestamp is advisory
		log.Error("Failed to record last login", zap.Error(err))
	}

	prometheus.IncreaseActiveTokens()
	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.String("role", user.Role))

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token,
		"user": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
	})
}

// AcceptInvitation consumes a one-time invitation token and sets the
// invited user's first password, activating the account
func (h *AuthHandler) AcceptInvitation(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse invitation request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Token == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_invitation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token and password are required"})
	}

	claims, err := h.JWT.ValidateInvitation(req.Token)
	if err != nil {
		log.Warn("Invalid invitation token", zap.Error(err))
		prometheus.RecordAuthError("invalid_invitation")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired invitation"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var user model.User
	if result := h.DB.First(&user, "id = ?", claims.Subject); result.Error != nil {
		log.Warn("Invitation for unknown user", zap.String("user_id", claims.Subject))
		prometheus.RecordAuthError("invalid_invitation")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired invitation"})
	}

	// The stored token is cleared on acceptance, making it one-time
	if user.Status != model.UserStatusPending || user.InvitationToken != req.Token {
		log.Warn("Invitation already consumed or mismatched", zap.String("user_id", user.ID))
		prometheus.RecordAuthError("invalid_invitation")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired invitation"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	updates := map[string]interface{}{
		"password_hash":    string(hashedPassword),
		"invitation_token": "",
		"status":           model.UserStatusActive,
	}
	if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
		log.Error("Failed to activate invited user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal Server Error"})
	}

	// Only a completed activation counts as an accepted invitation
	prometheus.InvitationCounter.WithLabelValues("accepted").Inc()
	writeAudit(h.DB, c, actor{UserID: user.ID, CustomerID: derefOrEmpty(user.CustomerID)},
		"invitation.accept", "user", user.ID, nil)

	log.Info("Invitation accepted", zap.String("email", user.Email))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Invitation accepted, account activated",
		"user": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
	})
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
