package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pm-service/internal/middleware"
	"pm-service/internal/model"
	"pm-service/pkg/config"
	"pm-service/pkg/database"
	"pm-service/pkg/jwtutil"
)

// Test helpers

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func testJWTManager() *jwtutil.Manager {
	return jwtutil.NewManager(&config.JWTConfig{
		SigningKey:            "test-signing-key",
		ExpirationHours:       1,
		InvitationExpiryHours: 1,
	})
}

// newTestServer wires the full authenticated route table the way cmd/main.go
// does, against an in-memory database
func newTestServer(t *testing.T, db *gorm.DB) (*echo.Echo, *jwtutil.Manager) {
	t.Helper()
	jwt := testJWTManager()

	authHandler := NewAuthHandler(db, jwt)
	userHandler := NewUserHandler(db)
	customerHandler := NewCustomerHandler(db, jwt, "yourapp.com")
	projectHandler := NewProjectHandler(db)
	taskHandler := NewTaskHandler(db)
	commentHandler := NewCommentHandler(db)
	fileHandler := NewFileHandler(db)

	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler

	auth := e.Group("/api/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/accept-invitation", authHandler.AcceptInvitation)

	public := func(c echo.Context) bool {
		p := c.Request().URL.Path
		if p == "/health" || p == "/metrics" {
			return true
		}
		return strings.HasPrefix(p, "/api/auth/")
	}
	e.Use(middleware.Authenticate(jwt, public))
	e.Use(middleware.TenantScope(public))

	api := e.Group("/api")

	users := api.Group("/users")
	users.GET("/list", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.POST("", userHandler.Create)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	customers := api.Group("/customers")
	customers.GET("", customerHandler.List)
	customers.POST("", customerHandler.Create)
	customers.GET("/:customer_id", customerHandler.Get)
	customers.GET("/:customer_id/users", customerHandler.GetUsers)
	customers.PATCH("/:customer_id", customerHandler.Update)
	customers.DELETE("/:customer_id", customerHandler.Delete)

	projects := api.Group("/projects")
	projects.GET("", projectHandler.List)
	projects.POST("", projectHandler.Create)
	projects.GET("/:id", projectHandler.Get)
	projects.PATCH("/:id", projectHandler.Update)
	projects.DELETE("/:id", projectHandler.Delete)

	tasks := api.Group("/tasks")
	tasks.GET("", taskHandler.List)
	tasks.POST("", taskHandler.Create)
	tasks.GET("/:id", taskHandler.Get)
	tasks.PATCH("/:id", taskHandler.Update)
	tasks.DELETE("/:id", taskHandler.Delete)

	subtasks := api.Group("/subtasks")
	subtasks.POST("", taskHandler.CreateSubtask)
	subtasks.GET("", taskHandler.ListSubtasks)
	subtasks.GET("/:id", taskHandler.Get)
	subtasks.PATCH("/:id", taskHandler.Update)
	subtasks.DELETE("/:id", taskHandler.Delete)

	comments := api.Group("/comments")
	comments.POST("", commentHandler.Create)
	comments.GET("", commentHandler.List)
	comments.GET("/:id", commentHandler.Get)
	comments.PATCH("/:id", commentHandler.Update)
	comments.DELETE("/:id", commentHandler.Delete)

	files := api.Group("/files")
	files.POST("", fileHandler.Create)
	files.GET("", fileHandler.List)
	files.GET("/:id", fileHandler.Get)
	files.PATCH("/:id", fileHandler.Update)
	files.DELETE("/:id", fileHandler.Delete)

	api.GET("/calendar/:project_id", taskHandler.Calendar)
	api.GET("/kanban/:project_id", taskHandler.Kanban)

	return e, jwt
}

func createTestCustomer(t *testing.T, db *gorm.DB, name, slug string) model.Customer {
	t.Helper()
	customer := model.Customer{
		Name:         name,
		Slug:         slug,
		SubdomainURL: "https://" + slug + ".yourapp.com",
		PlanType:     model.PlanFree,
		Status:       model.CustomerStatusActive,
	}
	require.NoError(t, db.Create(&customer).Error)
	return customer
}

func createTestUser(t *testing.T, db *gorm.DB, customerID *string, email, role, password string) model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := model.User{
		CustomerID:   customerID,
		Email:        email,
		Name:         "Test User",
		Role:         role,
		Status:       model.UserStatusActive,
		PasswordHash: string(hash),
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func tokenFor(t *testing.T, jwt *jwtutil.Manager, user model.User) string {
	t.Helper()
	token, err := jwt.Generate(user.ID, user.Email, user.Role, user.CustomerID)
	require.NoError(t, err)
	return token
}

// doRequest performs a JSON request against the test server and returns the
// recorded response
func doRequest(t *testing.T, e *echo.Echo, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}
