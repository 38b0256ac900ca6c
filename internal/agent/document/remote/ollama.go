package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	cfg "github.com/feichai0017/resource-ocr/config"
	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/pkg/logger"
)

const OllamaEngineName = "ollama"

const ollamaPrompt = `Transcribe all text visible in this image. The text is most likely written in %s.
Output only the transcription, keeping the original line breaks. Do not describe the image or add commentary.`

// ollamaResponse 定义 Ollama API 响应结构
type ollamaResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// OllamaEngine asks a vision model served by Ollama to transcribe images.
type OllamaEngine struct {
	endpoint    string
	model       string
	temperature float64
	httpClient  *http.Client
	logger      logger.Logger
}

func NewOllamaEngine(config *cfg.OllamaConfig, log logger.Logger) *OllamaEngine {
	return &OllamaEngine{
		endpoint:    strings.TrimRight(config.Endpoint, "/"),
		model:       config.Model,
		temperature: config.Temperature,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: log.Named(OllamaEngineName),
	}
}

func (e *OllamaEngine) Name() string { return OllamaEngineName }

func (e *OllamaEngine) Recognize(ctx context.Context, lang, filePath string) (models.RecognizeResult, error) {
	data, err := loadImage(filePath, "jpg", "jpeg", "png")
	if err != nil {
		return models.RecognizeResult{}, err
	}

	reqData, err := json.Marshal(ollamaRequest{
		Model:   e.model,
		Prompt:  fmt.Sprintf(ollamaPrompt, languageName(lang)),
		Images:  []string{base64.StdEncoding.EncodeToString(data)},
		Stream:  false,
		Options: map[string]any{"temperature": e.temperature},
	})
	if err != nil {
		return models.RecognizeResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/api/generate", bytes.NewReader(reqData))
	if err != nil {
		return models.RecognizeResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return models.RecognizeResult{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return models.RecognizeResult{}, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var result ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.RecognizeResult{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != "" {
		return models.RecognizeResult{}, fmt.Errorf("ollama error: %s", result.Error)
	}

	return models.RecognizeResult{Text: strings.TrimSpace(result.Response)}, nil
}

func (e *OllamaEngine) Dispose() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

// languageName turns an ISO 639-3 code into an English language name for
// the prompt.
func languageName(code string) string {
	base, err := language.ParseBase(code)
	if err != nil {
		return "English"
	}
	name := display.English.Languages().Name(base)
	if name == "" {
		return "English"
	}
	return name
}
