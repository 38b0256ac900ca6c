package config

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

var envOnce sync.Once

// loadEnv reads the project .env file once; variables already present in
// the process environment win.
func loadEnv() {
	envOnce.Do(func() {
		if path := os.Getenv("OCR_ENV_FILE"); path != "" {
			if err := godotenv.Load(path); err != nil {
				log.Printf("Warning: could not load env file %s: %v", path, err)
			}
			return
		}

		_, filename, _, _ := runtime.Caller(0)
		rootDir := filepath.Dir(filepath.Dir(filename))
		envPath := filepath.Join(rootDir, ".env")

		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Warning: .env file not found at %s, falling back to environment variables", envPath)
		}
	})
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	n, err := cast.ToIntE(strings.TrimSpace(v))
	if err != nil {
		log.Printf("Warning: invalid integer for %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	b, err := cast.ToBoolE(strings.TrimSpace(v))
	if err != nil {
		log.Printf("Warning: invalid boolean for %s=%q, using %t", key, v, def)
		return def
	}
	return b
}

// getDuration accepts Go durations ("90s", "5m") and bare nanosecond counts.
func getDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	d, err := cast.ToDurationE(strings.TrimSpace(v))
	if err != nil {
		log.Printf("Warning: invalid duration for %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func getList(key string, def []string) []string {
	v := getString(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
