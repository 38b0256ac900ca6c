package config

import "sync"

var (
	textractOnce   sync.Once
	textractConfig *TextractConfig
)

type TextractConfig struct {
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	MinConfidence float64
}

func GetTextractConfig() *TextractConfig {
	textractOnce.Do(func() {
		loadEnv()
		textractConfig = &TextractConfig{
			Region:        getString("AWS_REGION", "us-east-1"),
			Endpoint:      getString("AWS_TEXTRACT_ENDPOINT", ""),
			AccessKey:     getString("AWS_ACCESS_KEY", ""),
			SecretKey:     getString("AWS_SECRET_KEY", ""),
			MinConfidence: float64(getInt("TEXTRACT_MIN_CONFIDENCE", 0)),
		}
	})
	return textractConfig
}
