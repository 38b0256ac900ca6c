package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	cfg "github.com/feichai0017/resource-ocr/config"
	"github.com/feichai0017/resource-ocr/internal/models"
	"github.com/feichai0017/resource-ocr/pkg/logger"
)

const TextractEngineName = "textract"

// TextractAPI is the part of the Textract client the engine calls.
type TextractAPI interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

// TextractEngine sends each image to AWS Textract. Textract detects the
// language on its own so the language argument is ignored.
type TextractEngine struct {
	client        TextractAPI
	logger        logger.Logger
	minConfidence float32
}

func NewTextractEngine(ctx context.Context, log logger.Logger) (*TextractEngine, error) {
	textractCfg := cfg.GetTextractConfig()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(textractCfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			textractCfg.AccessKey,
			textractCfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	client := textract.NewFromConfig(awsCfg, func(o *textract.Options) {
		if textractCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(textractCfg.Endpoint)
		}
	})
	return NewTextractEngineWithClient(client, float32(textractCfg.MinConfidence), log), nil
}

func NewTextractEngineWithClient(client TextractAPI, minConfidence float32, log logger.Logger) *TextractEngine {
	return &TextractEngine{
		client:        client,
		logger:        log.Named(TextractEngineName),
		minConfidence: minConfidence,
	}
}

func (e *TextractEngine) Name() string { return TextractEngineName }

func (e *TextractEngine) Recognize(ctx context.Context, _ string, filePath string) (models.RecognizeResult, error) {
	data, err := loadImage(filePath, "jpg", "jpeg", "png")
	if err != nil {
		return models.RecognizeResult{}, err
	}

	result, err := e.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: data},
	})
	if err != nil {
		return models.RecognizeResult{}, fmt.Errorf("failed to detect document text: %w", err)
	}

	lines := e.lines(result.Blocks)
	e.logger.Debug("Textract finished",
		logger.String("path", filePath),
		logger.Int("lines", len(lines)),
	)
	return models.RecognizeResult{Text: strings.Join(lines, "\n")}, nil
}

func (e *TextractEngine) lines(blocks []types.Block) []string {
	var texts []string
	for _, block := range blocks {
		if block.BlockType != types.BlockTypeLine || block.Text == nil {
			continue
		}
		if block.Confidence != nil && *block.Confidence < e.minConfidence {
			continue
		}
		texts = append(texts, *block.Text)
	}
	return texts
}

func (e *TextractEngine) Dispose() error {
	// textract client doesn't need special cleanup
	return nil
}
