package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/resource-ocr/api/handlers"
	"github.com/feichai0017/resource-ocr/api/middleware"
	"github.com/feichai0017/resource-ocr/pkg/logger"
	"github.com/feichai0017/resource-ocr/pkg/metrics"
)

// SetupRoutes 配置所有路由
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, allowOrigins []string, log logger.Logger) {
	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log.Named("http")))
	r.Use(middleware.CORS(allowOrigins))

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API 版本组
	v1 := r.Group("/api/v1")

	// 健康检查
	v1.GET("/health", h.Health.HealthCheck)

	ocr := v1.Group("/ocr")
	{
		ocr.GET("/supported-types", h.OCR.SupportedTypes)
		ocr.GET("/stats", h.OCR.Stats)
		ocr.GET("/resources/:id", h.OCR.GetResource)
		ocr.POST("/resources/:id/retry", h.OCR.RetryResource)
		ocr.POST("/maintenance", h.OCR.TriggerMaintenance)
		ocr.GET("/tasks/:taskId", h.OCR.GetTask)
		ocr.GET("/report", h.OCR.Report)
	}
}

// SetupWorkerRoutes exposes liveness and metrics on the worker process.
func SetupWorkerRoutes(r *gin.Engine, health *handlers.HealthHandler) {
	r.Use(gin.Recovery())
	r.GET("/health", health.HealthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}
