package main

import (
	"strings"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"pm-service/internal/handler"
	"pm-service/internal/middleware"
	"pm-service/internal/model"
	"pm-service/pkg/config"
	"pm-service/pkg/database"
	"pm-service/pkg/jwtutil"
	"pm-service/pkg/logger"
	"pm-service/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting project-management service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT manager
	jwt := jwtutil.NewManager(&cfg.JWT)
	log.Info("JWT manager initialized")

	// Create the bootstrap superadmin when configured and missing
	if err := ensureSuperadmin(db, cfg, log); err != nil {
		log.Fatal("Failed to ensure superadmin", zap.Error(err))
	}

	// Initialize Echo framework
	e := echo.New()
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	registerRoutes(e, db, jwt, cfg)

	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}

func registerRoutes(e *echo.Echo, db *gorm.DB, jwt *jwtutil.Manager, cfg *config.Config) {
	authHandler := handler.NewAuthHandler(db, jwt)
	userHandler := handler.NewUserHandler(db)
	customerHandler := handler.NewCustomerHandler(db, jwt, cfg.App.BaseDomain)
	projectHandler := handler.NewProjectHandler(db)
	taskHandler := handler.NewTaskHandler(db)
	commentHandler := handler.NewCommentHandler(db)
	fileHandler := handler.NewFileHandler(db)

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	auth := e.Group("/api/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/accept-invitation", authHandler.AcceptInvitation)

	// API routes - authenticated and tenant-scoped. Both run globally with a
	// public-path skipper rather than as group middleware: echo group
	// middleware registers catch-all 404 routes that would shadow 405s.
	e.Use(middleware.Authenticate(jwt, publicPath))
	e.Use(middleware.TenantScope(publicPath))

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

	// Subtasks share the task table and handlers
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
}

// publicPath reports whether a path is reachable without a token
func publicPath(c echo.Context) bool {
	p := c.Request().URL.Path
	if p == "/health" || p == "/metrics" {
		return true
	}
	return strings.HasPrefix(p, "/api/auth/")
}

// ensureSuperadmin creates the platform superadmin account on first start
func ensureSuperadmin(db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	if cfg.App.SuperadminEmail == "" || cfg.App.SuperadminPassword == "" {
		log.Warn("Superadmin bootstrap skipped: SUPERADMIN_EMAIL/SUPERADMIN_PASSWORD not set")
		return nil
	}

	var existing model.User
	if result := db.Where("email = ?", cfg.App.SuperadminEmail).First(&existing); result.Error == nil {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.App.SuperadminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	superadmin := model.User{
		Email:        cfg.App.SuperadminEmail,
		Name:         cfg.App.SuperadminName,
		Role:         model.RoleSuperadmin,
		Status:       model.UserStatusActive,
		PasswordHash: string(hashedPassword),
	}
	if result := db.Create(&superadmin); result.Error != nil {
		return result.Error
	}

	log.Info("Superadmin created", zap.String("email", superadmin.Email))
	return nil
}
