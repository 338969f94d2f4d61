package config

import (
	"time"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server"`
	Queue      QueueConfig      `yaml:"queue" json:"queue"`
	Worker     WorkerConfig     `yaml:"worker" json:"worker"`
	Dispatcher DispatcherConfig `yaml:"dispatcher" json:"dispatcher"`
	Executor   ExecutorConfig   `yaml:"executor" json:"executor"`
	Logger     LoggerConfig     `yaml:"logger" json:"logger"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" json:"port"`
	Host            string        `yaml:"host" json:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// QueueConfig represents job admission defaults and the queue soft bound
type QueueConfig struct {
	SoftCapacity      int `yaml:"soft_capacity" json:"soft_capacity"`
	DefaultTimeoutMs  int `yaml:"default_timeout_ms" json:"default_timeout_ms"`
	DefaultMaxRetries int `yaml:"default_max_retries" json:"default_max_retries"`
}

// WorkerConfig represents worker pool configuration
type WorkerConfig struct {
	MaxWorkers    int           `yaml:"max_workers" json:"max_workers"`
	MinWorkers    int           `yaml:"min_workers" json:"min_workers"`
	RestartLimit  int           `yaml:"restart_limit" json:"restart_limit"`
	RestartWindow time.Duration `yaml:"restart_window" json:"restart_window"`
}

// DispatcherConfig represents dispatcher timing and supervision settings
type DispatcherConfig struct {
	CapacityBackoff time.Duration `yaml:"capacity_backoff" json:"capacity_backoff"`
	IdleSleep       time.Duration `yaml:"idle_sleep" json:"idle_sleep"`
	RestartBackoff  time.Duration `yaml:"restart_backoff" json:"restart_backoff"`
	MaxRestarts     int           `yaml:"max_restarts" json:"max_restarts"`
}

// ExecutorConfig selects how job commands are run
type ExecutorConfig struct {
	Type      string        `yaml:"type" json:"type"` // shell, echo
	Shell     string        `yaml:"shell" json:"shell"`
	EchoDelay time.Duration `yaml:"echo_delay" json:"echo_delay"`
}

// LoggerConfig represents logger configuration
type LoggerConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // json, text
	Output string `yaml:"output" json:"output"` // stdout, stderr, file
	File   string `yaml:"file" json:"file"`
}
