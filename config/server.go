package config

import "sync"

var (
	serverOnce   sync.Once
	serverConfig *ServerConfig
)

// ServerConfig covers the HTTP listeners and logging of both binaries.
type ServerConfig struct {
	APIAddr      string
	WorkerAddr   string
	AllowOrigins []string
	LogLevel     string
	LogEncoding  string
	LogDir       string
	Concurrency  int
}

func GetServerConfig() *ServerConfig {
	serverOnce.Do(func() {
		loadEnv()
		serverConfig = &ServerConfig{
			APIAddr:      getString("SERVER_HTTP_ADDR", ":8080"),
			WorkerAddr:   getString("WORKER_HTTP_ADDR", ":9090"),
			AllowOrigins: getList("CORS_ALLOW_ORIGINS", []string{"*"}),
			LogLevel:     getString("LOG_LEVEL", "info"),
			LogEncoding:  getString("LOG_ENCODING", "json"),
			LogDir:       getString("LOG_DIR", "logs"),
			Concurrency:  getInt("WORKER_CONCURRENCY", 1),
		}
	})
	return serverConfig
}
