package config

import (
	"log"
	"os"
	"sync"
	"time"
)

var (
	ocrOnce   sync.Once
	ocrConfig *OcrConfig
)

// OcrConfig drives the maintenance pipeline and its engines.
type OcrConfig struct {
	Locale             string
	TempDir            string
	Interval           time.Duration
	BatchSize          int
	PageConcurrency    int
	RecognitionTimeout time.Duration
	Engine             string // tesseract | textract | ollama

	TesseractPageSegMode int
	Preprocess           bool

	Pdftoppm    string
	PdfDPI      int
	PdfMaxPages int
}

func GetOcrConfig() *OcrConfig {
	ocrOnce.Do(func() {
		loadEnv()
		ocrConfig = loadOcrConfig()
	})
	return ocrConfig
}

const defaultOcrInterval = 5 * time.Minute

func loadOcrConfig() *OcrConfig {
	c := &OcrConfig{
		Locale:               getString("OCR_LOCALE", getString("LANG", "en_GB")),
		TempDir:              getString("OCR_TEMP_DIR", os.TempDir()),
		Interval:             getDuration("OCR_INTERVAL", defaultOcrInterval),
		BatchSize:            getInt("OCR_BATCH_SIZE", 100),
		PageConcurrency:      getInt("OCR_PAGE_CONCURRENCY", 1),
		RecognitionTimeout:   getDuration("OCR_RECOGNITION_TIMEOUT", 0),
		Engine:               getString("OCR_ENGINE", "tesseract"),
		TesseractPageSegMode: getInt("OCR_TESSERACT_PSM", 3),
		Preprocess:           getBool("OCR_PREPROCESS", true),
		Pdftoppm:             getString("OCR_PDFTOPPM", "pdftoppm"),
		PdfDPI:               getInt("OCR_PDF_DPI", 300),
		PdfMaxPages:          getInt("OCR_PDF_MAX_PAGES", 0),
	}

	if c.Interval <= 0 {
		log.Printf("Warning: OCR_INTERVAL must be positive, got %s, using %s", c.Interval, defaultOcrInterval)
		c.Interval = defaultOcrInterval
	}
	return c
}
