package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	cfg "github.com/feichai0017/resource-ocr/config"
	"github.com/feichai0017/resource-ocr/internal/agent/document"
	"github.com/feichai0017/resource-ocr/internal/agent/document/image"
	"github.com/feichai0017/resource-ocr/internal/agent/document/pdf"
	"github.com/feichai0017/resource-ocr/internal/agent/document/remote"
	"github.com/feichai0017/resource-ocr/pkg/logger"
)

// NewEngine builds the recognition engine named by OCR_ENGINE.
func NewEngine(ctx context.Context, ocrCfg *cfg.OcrConfig, log logger.Logger) (document.Engine, error) {
	name := strings.ToLower(strings.TrimSpace(ocrCfg.Engine))
	log.Info("Creating recognition engine", logger.String("engine", name))

	switch name {
	case "", image.EngineName:
		opts := &image.TesseractOptions{PageSegMode: gosseract.PageSegMode(ocrCfg.TesseractPageSegMode)}
		if ocrCfg.Preprocess {
			opts.Preprocess = image.DefaultPipeline(nil)
		}
		engine, err := image.NewTesseractEngine(log, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create tesseract engine: %w", err)
		}
		return engine, nil
	case remote.TextractEngineName:
		engine, err := remote.NewTextractEngine(ctx, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create textract engine: %w", err)
		}
		return engine, nil
	case remote.OllamaEngineName:
		return remote.NewOllamaEngine(cfg.GetOllamaConfig(), log), nil
	default:
		log.Error("Unsupported recognition engine", logger.String("engine", name))
		return nil, fmt.Errorf("unsupported recognition engine: %s", name)
	}
}

// NewPageExtractor builds the PDF rasterizer from the OCR configuration.
func NewPageExtractor(ocrCfg *cfg.OcrConfig, log logger.Logger) *pdf.Extractor {
	return pdf.NewExtractor(pdf.Config{
		Pdftoppm: ocrCfg.Pdftoppm,
		DPI:      ocrCfg.PdfDPI,
		MaxPages: ocrCfg.PdfMaxPages,
	}, nil, log)
}
