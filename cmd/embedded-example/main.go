package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoflow/infrastructure/logger"
	"todoflow/pkg/todoflow"
)

// This example mounts todoflow inside a host gin application. With
// DATABASE_URL set it uses MySQL, otherwise the in-memory store.
func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Named("example")

	opts := []todoflow.Option{
		todoflow.WithRoutePrefix("/internal/todos"),
		todoflow.WithWorkerPoolSize(4),
		todoflow.WithJWT("example-secret", "embedded-example", time.Hour),
		todoflow.WithLogger(logger.Get()),
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		opts = append(opts, todoflow.WithMySQL(dsn, todoflow.WithMaxConnections(10)))
	} else {
		log.Info("DATABASE_URL not set, using the in-memory store")
		opts = append(opts, todoflow.WithMemoryStore())
	}

	app, err := todoflow.New(opts...)
	if err != nil {
		log.Fatal("Failed to initialize todoflow", zap.Error(err))
	}
	if err := app.Start(); err != nil {
		log.Fatal("Failed to start todoflow", zap.Error(err))
	}

	router := gin.Default()
	if err := app.RegisterRoutes(router); err != nil {
		log.Fatal("Failed to register routes", zap.Error(err))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"app":      "ok",
			"todoflow": app.HealthCheck(c.Request.Context()),
		})
	})

	// dev only: hands out tokens without any credential check
	router.POST("/login/:owner", func(c *gin.Context) {
		token, expires, err := app.IssueToken(c.Param("owner"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": expires})
	})

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server started on :8080",
			zap.Strings("endpoints", []string{
				"GET  /health",
				"POST /login/:owner",
				"GET  /internal/todos/todos",
				"POST /internal/todos/todos",
				"GET  /internal/todos/todos/stream",
				"GET  /metrics",
			}))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Error("Todoflow shutdown error", zap.Error(err))
	}
	log.Info("Server stopped")
}
