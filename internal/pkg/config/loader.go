package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	cfg := getDefaultConfig()

	configFile := getConfigFile()
	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// getDefaultConfig returns default configuration values
func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            4000,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Queue: QueueConfig{
			SoftCapacity:      1000,
			DefaultTimeoutMs:  30000,
			DefaultMaxRetries: 3,
		},
		Worker: WorkerConfig{
			MaxWorkers:    10,
			MinWorkers:    1,
			RestartLimit:  5,
			RestartWindow: time.Minute,
		},
		Dispatcher: DispatcherConfig{
			CapacityBackoff: 5 * time.Second,
			IdleSleep:       100 * time.Millisecond,
			RestartBackoff:  time.Second,
			MaxRestarts:     5,
		},
		Executor: ExecutorConfig{
			Type:  "shell",
			Shell: "/bin/sh",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// getConfigFile determines which config file to use
func getConfigFile() string {
	if configFile := os.Getenv("CONFIG_FILE"); configFile != "" {
		return configFile
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	configPaths := []string{
		fmt.Sprintf("configs/%s.yaml", env),
		fmt.Sprintf("configs/%s.yml", env),
		"config.yaml",
		"config.yml",
	}

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}

	if maxWorkers := os.Getenv("MAX_WORKERS"); maxWorkers != "" {
		if n, err := strconv.Atoi(maxWorkers); err == nil && n > 0 {
			cfg.Worker.MaxWorkers = n
		}
	}
	if minWorkers := os.Getenv("MIN_WORKERS"); minWorkers != "" {
		if n, err := strconv.Atoi(minWorkers); err == nil && n >= 0 {
			cfg.Worker.MinWorkers = n
		}
	}

	if timeoutMs := os.Getenv("JOB_TIMEOUT_MS"); timeoutMs != "" {
		if n, err := strconv.Atoi(timeoutMs); err == nil && n > 0 {
			cfg.Queue.DefaultTimeoutMs = n
		}
	}
	if maxRetries := os.Getenv("MAX_RETRIES"); maxRetries != "" {
		if n, err := strconv.Atoi(maxRetries); err == nil && n >= 0 {
			cfg.Queue.DefaultMaxRetries = n
		}
	}
	if capacity := os.Getenv("QUEUE_CAPACITY"); capacity != "" {
		if n, err := strconv.Atoi(capacity); err == nil && n > 0 {
			cfg.Queue.SoftCapacity = n
		}
	}

	if executorType := os.Getenv("EXECUTOR_TYPE"); executorType != "" {
		cfg.Executor.Type = strings.ToLower(executorType)
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Logger.Level = strings.ToLower(logLevel)
	}
	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		cfg.Logger.Format = strings.ToLower(logFormat)
	}
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.Worker.MaxWorkers <= 0 {
		return fmt.Errorf("max workers must be positive: %d", cfg.Worker.MaxWorkers)
	}
	if cfg.Worker.MinWorkers < 0 || cfg.Worker.MinWorkers > cfg.Worker.MaxWorkers {
		return fmt.Errorf("min workers must be in [0, max_workers]: %d", cfg.Worker.MinWorkers)
	}

	if cfg.Queue.DefaultTimeoutMs <= 0 {
		return fmt.Errorf("default job timeout must be positive: %d", cfg.Queue.DefaultTimeoutMs)
	}
	if cfg.Queue.DefaultMaxRetries < 0 {
		return fmt.Errorf("default max retries cannot be negative: %d", cfg.Queue.DefaultMaxRetries)
	}

	validExecutors := map[string]bool{
		"shell": true, "echo": true,
	}
	if !validExecutors[cfg.Executor.Type] {
		return fmt.Errorf("invalid executor type: %s", cfg.Executor.Type)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[cfg.Logger.Level] {
		return fmt.Errorf("invalid log level: %s", cfg.Logger.Level)
	}

	validLogFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validLogFormats[cfg.Logger.Format] {
		return fmt.Errorf("invalid log format: %s", cfg.Logger.Format)
	}

	return nil
}
