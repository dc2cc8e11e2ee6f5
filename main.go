package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/petconnect/petconnect-api/config"
	"github.com/petconnect/petconnect-api/logger"
	"github.com/petconnect/petconnect-api/middleware"
	"github.com/petconnect/petconnect-api/models"
	"github.com/petconnect/petconnect-api/routes"
	"github.com/petconnect/petconnect-api/services"
)

// StatusScope is the token scope needed to read the database status
const StatusScope = "read:status"

func main() {
	if err := run(); err != nil {
		logger.Log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// run starts the API and blocks until a shutdown signal or a fatal error.
// Deferred cleanups run before it returns.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Log.Info("Starting PetConnect API server...", "env", cfg.GoEnv)

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Log.Info("Database migration completed successfully")

	publisher := newPublisher(cfg)
	defer publisher.Close()

	dispatcher := services.NewDispatcher(db, cfg.OutboxMaxAttempts)
	services.RegisterHandlers(dispatcher, publisher, services.NewAlertScheduler(db))
	services.SetDispatcher(dispatcher)

	relay, err := services.StartOutboxRelay(dispatcher, cfg.OutboxSchedule)
	if err != nil {
		return fmt.Errorf("failed to start outbox relay: %w", err)
	}
	defer relay.Stop()

	if cfg.AWSS3Bucket != "" {
		store, err := services.NewS3Store(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		services.SetDocumentService(services.NewDocumentService(store))
	} else {
		logger.Log.Warn("AWS_S3_BUCKET not set, health document uploads are disabled")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	setupRoutes(router, middleware.EnsureValidToken(cfg))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	logger.Log.Info("Server is running", "addr", "http://localhost:"+cfg.Port)
	return serve(srv, quit, 10*time.Second)
}

// serve runs srv until it fails or a signal arrives on quit, then shuts it
// down gracefully within timeout.
func serve(srv *http.Server, quit <-chan os.Signal, timeout time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if !ok {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shut down: %w", err)
	}
	return nil
}

// newPublisher connects to RabbitMQ when configured and logs events otherwise
func newPublisher(cfg *config.Config) services.Publisher {
	if cfg.RabbitMQURL == "" {
		logger.Log.Warn("RABBITMQ_URL not set, status events will only be logged")
		return services.LogPublisher{}
	}
	publisher, err := services.NewAMQPPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	if err != nil {
		logger.Log.Error("failed to connect to RabbitMQ, status events will only be logged", "error", err)
		return services.LogPublisher{}
	}
	return publisher
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c
}

// setupRoutes mounts the public health endpoints and the authenticated API under /api/v1
func setupRoutes(router *gin.Engine, protect gin.HandlerFunc) {
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", protect, middleware.RequireScope(StatusScope), databaseStatus)
	}
	routes.Register(v1, protect)
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "PetConnect API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Get list of tables
	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
