package image

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	_ "golang.org/x/image/webp"

	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/pkg/logger"
)

const EngineName = "tesseract"

type TesseractOptions struct {
	PageSegMode gosseract.PageSegMode
	// Preprocess nil disables preprocessing.
	Preprocess ImagePreprocessor
}

// TesseractEngine runs recognition through libtesseract. A client is
// created per call because gosseract clients are not safe for concurrent
// use.
type TesseractEngine struct {
	logger logger.Logger
	opts   *TesseractOptions
}

func NewTesseractEngine(log logger.Logger, opts *TesseractOptions) (*TesseractEngine, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if opts == nil {
		opts = &TesseractOptions{
			PageSegMode: gosseract.PSM_AUTO,
			Preprocess:  DefaultPipeline(nil),
		}
	}
	log.Info("Tesseract engine ready", logger.String("version", gosseract.Version()))
	return &TesseractEngine{logger: log.Named(EngineName), opts: opts}, nil
}

func (e *TesseractEngine) Name() string { return EngineName }

// Recognize blocks until tesseract returns; when ctx ends first the call
// returns immediately and the client is closed once tesseract finishes.
func (e *TesseractEngine) Recognize(ctx context.Context, language, filePath string) (models.RecognizeResult, error) {
	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		text, err := e.recognize(language, filePath)
		done <- outcome{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return models.RecognizeResult{}, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return models.RecognizeResult{}, out.err
		}
		return models.RecognizeResult{Text: out.text}, nil
	}
}

func (e *TesseractEngine) recognize(language, filePath string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
		return "", fmt.Errorf("failed to set language %s: %w", language, err)
	}
	if err := client.SetPageSegMode(e.opts.PageSegMode); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := e.setImage(client, filePath); err != nil {
		return "", err
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// setImage feeds the preprocessed image when Go can decode the format and
// falls back to letting leptonica read the file itself.
func (e *TesseractEngine) setImage(client *gosseract.Client, filePath string) error {
	if e.opts.Preprocess != nil {
		data, err := e.preprocess(filePath)
		if err == nil {
			return client.SetImageFromBytes(data)
		}
		e.logger.Debug("Preprocessing skipped",
			logger.String("path", filePath),
			logger.Error(err),
		)
	}
	if err := client.SetImage(filePath); err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	return nil
}

func (e *TesseractEngine) preprocess(filePath string) ([]byte, error) {
	img, err := imaging.Open(filePath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	img, err = e.opts.Preprocess.Process(img)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *TesseractEngine) Dispose() error {
	return nil
}
