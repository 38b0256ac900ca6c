package document

import (
	"context"

	"github.com/feichai0017/resource-ocr/internal/models"
)

// Engine recognizes the text of a single image file.
type Engine interface {
	// Name identifies the engine in logs and metrics.
	Name() string

	// Recognize returns the text found in the image at filePath. language
	// is an ISO 639-3 code.
	Recognize(ctx context.Context, language, filePath string) (models.RecognizeResult, error)

	// Dispose releases the engine's resources.
	Dispose() error
}
