package handlers

import (
	"github.com/feichai0017/resource-ocr/internal/service/resource"
	"github.com/feichai0017/resource-ocr/pkg/logger"
)

type Handlers struct {
	OCR    *OCRHandler
	Health *HealthHandler
}

func NewHandlers(
	resourceService resource.ResourceService,
	checks map[string]Checker,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		OCR:    NewOCRHandler(resourceService, log),
		Health: NewHealthHandler(checks),
	}
}
