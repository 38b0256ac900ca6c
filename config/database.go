package config

import (
	"sync"
	"time"
)

var (
	dbOnce   sync.Once
	dbConfig *DatabaseConfig
)

type DatabaseConfig struct {
	Driver           string // sqlite | postgres
	DSN              string
	MaxConns         int32
	StatementTimeout time.Duration
}

func GetDatabaseConfig() *DatabaseConfig {
	dbOnce.Do(func() {
		loadEnv()
		dbConfig = &DatabaseConfig{
			Driver:           getString("DB_DRIVER", "sqlite"),
			DSN:              getString("DB_DSN", "data/resources.db"),
			MaxConns:         int32(getInt("DB_MAX_CONNS", 4)),
			StatementTimeout: getDuration("DB_STATEMENT_TIMEOUT", 30*time.Second),
		}
	})
	return dbConfig
}
