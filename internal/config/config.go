package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	AppEnv            string
	AppName           string
	Stack             string
	InstanceID        string
	AppPort           string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	RedisPoolSize     int
	RedisMinIdleConns int
	RedisMaxRetries   int
	RegistryTimeout   time.Duration
	LogLevel          string
	AllowedOrigins    string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:          os.Getenv("APP_ENV"),
		AppName:         os.Getenv("APP_NAME"),
		Stack:           os.Getenv("STACK_NAME"),
		InstanceID:      os.Getenv("INSTANCE_ID"),
		AppPort:         os.Getenv("APP_PORT"),
		DBHost:          os.Getenv("DB_HOST"),
		DBPort:          os.Getenv("DB_PORT"),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          os.Getenv("DB_NAME"),
		DBSSLMode:       os.Getenv("DB_SSL_MODE"),
		RedisHost:       os.Getenv("REDIS_HOST"),
		RedisPort:       os.Getenv("REDIS_PORT"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		AllowedOrigins:  os.Getenv("WS_ALLOWED_ORIGINS"),
		RegistryTimeout: 3 * time.Second,
	}
	if cfg.AppName == "" {
		cfg.AppName = "realtime-gateway"
	}
	if cfg.Stack == "" {
		cfg.Stack = "rentracker-dev"
	}
	// Each process gets a fresh id unless the deployment pins one; the id
	// names this instance's pub/sub channel and registry ownership entries.
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if cfg.AppPort == "" {
		cfg.AppPort = "8080"
	}
	if cfg.DBSSLMode == "" {
		cfg.DBSSLMode = "disable"
	}
	if cfg.RedisPort == "" {
		cfg.RedisPort = "6379"
	}
	var err error
	if v := os.Getenv("REDIS_DB"); v != "" {
		cfg.RedisDB, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
	}
	if v := os.Getenv("REDIS_POOL_SIZE"); v != "" {
		cfg.RedisPoolSize, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_POOL_SIZE: %w", err)
		}
	}
	if v := os.Getenv("REDIS_MIN_IDLE_CONNS"); v != "" {
		cfg.RedisMinIdleConns, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_MIN_IDLE_CONNS: %w", err)
		}
	}
	if v := os.Getenv("REDIS_MAX_RETRIES"); v != "" {
		cfg.RedisMaxRetries, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_MAX_RETRIES: %w", err)
		}
	}
	if v := os.Getenv("REGISTRY_TIMEOUT"); v != "" {
		cfg.RegistryTimeout, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REGISTRY_TIMEOUT: %w", err)
		}
	}
	if cfg.DBHost == "" || cfg.DBUser == "" || cfg.DBName == "" || cfg.RedisHost == "" {
		return nil, fmt.Errorf("missing required environment variables")
	}
	if cfg.DBPort == "" {
		cfg.DBPort = "5432"
	}
	return cfg, nil
}
