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
	"github.com/feichai0017/resource-ocr/internal/ocr"
	"github.com/feichai0017/resource-ocr/pkg/logger"
	"github.com/feichai0017/resource-ocr/pkg/worker"
)

func main() {
	// 初始化日志
	log, err := bootstrap.NewLogger("worker")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// 创建上下文和取消函数
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.NewApp(ctx, log, bootstrap.Options{WithQueue: true})
	if err != nil {
		log.Error("Failed to create OCR service", logger.Error(err))
		os.Exit(1)
	}
	defer app.Close()

	serverCfg := cfg.GetServerConfig()
	ocrCfg := cfg.GetOcrConfig()

	// 创建 worker
	maintenanceWorker := worker.NewMaintenanceWorker(&worker.Config{
		Queue:       bootstrap.QueueConfig(),
		Concurrency: serverCfg.Concurrency,
	}, app.Service, log)
	if err := maintenanceWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	scheduler := ocr.NewScheduler(app.Service, log, nil)
	scheduler.Start(ctx, ocrCfg.Interval)

	health := handlers.NewHealthHandler(map[string]handlers.Checker{
		"database": func(ctx context.Context) error {
			_, err := app.Repo.CountByStatus(ctx)
			return err
		},
		"redis": app.Queue.Ping,
	})
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	routes.SetupWorkerRoutes(r, health)
	srv := &http.Server{
		Addr:              serverCfg.WorkerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Worker HTTP listening", logger.String("addr", serverCfg.WorkerAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Worker HTTP error", logger.Error(err))
		}
	}()

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	// 优雅关闭
	log.Info("Shutting down worker...")
	scheduler.Stop()
	maintenanceWorker.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Worker HTTP forced to shutdown", logger.Error(err))
	}
	log.Info("Worker stopped", logger.Int64("resourcesProcessed", app.Service.TotalProcessed()))
}
