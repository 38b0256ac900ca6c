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

	"github.com/feichai0017/resource-ocr/api/handlers"
	"github.com/feichai0017/resource-ocr/api/routes"
	cfg "github.com/feichai0017/resource-ocr/config"
	"github.com/feichai0017/resource-ocr/internal/bootstrap"
	"github.com/feichai0017/resource-ocr/internal/repository"
	"github.com/feichai0017/resource-ocr/internal/service/resource"
	"github.com/feichai0017/resource-ocr/pkg/logger"
	"github.com/feichai0017/resource-ocr/pkg/queue"
)

func main() {
	// init logger
	log, err := bootstrap.NewLogger("server")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	serverCfg := cfg.GetServerConfig()
	ctx := context.Background()

	repo, err := repository.Open(ctx, cfg.GetDatabaseConfig(), log)
	if err != nil {
		log.Fatal("Failed to open resource database", logger.Error(err))
	}
	defer repo.Close()

	q, err := queue.NewAsynqQueue(bootstrap.QueueConfig())
	if err != nil {
		log.Fatal("Failed to initialize queue", logger.Error(err))
	}
	defer q.Close()

	checks := map[string]handlers.Checker{
		"database": func(ctx context.Context) error {
			_, err := repo.CountByStatus(ctx)
			return err
		},
		"redis": q.Ping,
	}

	// init handlers
	h := handlers.NewHandlers(resource.NewService(repo, q, log), checks, log)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	routes.SetupRoutes(r, h, serverCfg.AllowOrigins, log)

	srv := &http.Server{
		Addr:              serverCfg.APIAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// start server
	go func() {
		log.Info("Server starting", logger.String("addr", serverCfg.APIAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}
}
