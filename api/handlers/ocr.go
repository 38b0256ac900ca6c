package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/resource-ocr/internal/ocr"
	"github.com/feichai0017/resource-ocr/internal/service/resource"
	"github.com/feichai0017/resource-ocr/internal/utils/validator"
	"github.com/feichai0017/resource-ocr/pkg/logger"
	"github.com/feichai0017/resource-ocr/pkg/queue"
)

type OCRHandler struct {
	service resource.ResourceService
	logger  logger.Logger
}

// ErrorResponse 定义错误响应结构
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MaintenanceBody is the optional body of POST /ocr/maintenance.
type MaintenanceBody struct {
	Locale string `json:"locale"`
}

func NewOCRHandler(service resource.ResourceService, log logger.Logger) *OCRHandler {
	return &OCRHandler{
		service: service,
		logger:  log.Named("api"),
	}
}

// SupportedTypes lists the mime types considered for OCR.
func (h *OCRHandler) SupportedTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mimeTypes": ocr.SupportedMimeTypes})
}

// GetResource 获取资源 OCR 结果
func (h *OCRHandler) GetResource(c *gin.Context) {
	result, err := h.service.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, "Failed to get resource", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RetryResource 重置资源状态
func (h *OCRHandler) RetryResource(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Retry(c.Request.Context(), id); err != nil {
		h.handleError(c, "Failed to reset resource", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "status": "pending"})
}

func (h *OCRHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.handleError(c, "Failed to count resources", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TriggerMaintenance queues a maintenance cycle.
func (h *OCRHandler) TriggerMaintenance(c *gin.Context) {
	var body MaintenanceBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			h.respond(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	status, err := h.service.TriggerMaintenance(c.Request.Context(), &queue.MaintenanceRequest{
		Locale:      body.Locale,
		RequestedBy: c.ClientIP(),
	})
	if err != nil {
		h.handleError(c, "Failed to trigger maintenance", err)
		return
	}
	c.JSON(http.StatusAccepted, status)
}

// GetTask 获取任务状态
func (h *OCRHandler) GetTask(c *gin.Context) {
	status, err := h.service.GetTaskStatus(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		h.handleError(c, "Failed to get task status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Report returns the latest cycle summary, or the most recent ones when
// ?limit=N is given.
func (h *OCRHandler) Report(c *gin.Context) {
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.respond(c, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		reports, err := h.service.RecentReports(c.Request.Context(), n)
		if err != nil {
			h.handleError(c, "Failed to list reports", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reports": reports})
		return
	}

	report, err := h.service.LatestReport(c.Request.Context())
	if err != nil {
		h.handleError(c, "Failed to get report", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleError maps service errors onto HTTP statuses.
func (h *OCRHandler) handleError(c *gin.Context, message string, err error) {
	var verr *validator.ValidationError
	switch {
	case errors.As(err, &verr):
		h.respond(c, http.StatusBadRequest, message, err)
	case resource.IsNotFound(err):
		h.respond(c, http.StatusNotFound, message, err)
	case errors.Is(err, resource.ErrQueueUnavailable):
		h.respond(c, http.StatusServiceUnavailable, message, err)
	default:
		h.respond(c, http.StatusInternalServerError, message, err)
	}
}

// respond 统一错误处理
func (h *OCRHandler) respond(c *gin.Context, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error(message,
			logger.String("path", c.Request.URL.Path),
			logger.Error(err),
		)
	}

	response := ErrorResponse{
		Message: message,
	}
	if err != nil {
		response.Error = err.Error()
	}

	c.JSON(status, response)
}
