package config

import (
	"sync"
	"time"
)

var (
	ollamaOnce   sync.Once
	ollamaConfig *OllamaConfig
)

// OllamaConfig configures the vision model used by the "ollama" engine.
type OllamaConfig struct {
	Endpoint    string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

func GetOllamaConfig() *OllamaConfig {
	ollamaOnce.Do(func() {
		loadEnv()
		ollamaConfig = &OllamaConfig{
			Endpoint:    getString("OLLAMA_ENDPOINT", "http://localhost:11434"),
			Model:       getString("OLLAMA_MODEL", "llama3.2-vision"),
			Temperature: 0,
			Timeout:     getDuration("OLLAMA_TIMEOUT", 120*time.Second),
		}
	})
	return ollamaConfig
}
