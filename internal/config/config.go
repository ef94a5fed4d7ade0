package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"    validate:"required"`
	LLM         LLMConfig         `mapstructure:"llm"         validate:"required"`
	Task        TaskConfig        `mapstructure:"task"        validate:"required"`
	Cache       CacheConfig       `mapstructure:"cache"       validate:"required"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"      validate:"required"`
	ModelName         string `mapstructure:"model_name"          validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=1,lte=60"`
}

// TaskConfig contains settings for the background job runner.
type TaskConfig struct {
	WorkerCount           int `mapstructure:"worker_count"            validate:"required,gt=0,lte=64"`
	QueueSize             int `mapstructure:"queue_size"              validate:"required,gt=0"`
	MaxAttempts           int `mapstructure:"max_attempts"            validate:"required,gte=1,lte=10"`
	JobTimeoutMinutes     int `mapstructure:"job_timeout_minutes"     validate:"required,gt=0"`
	ReaperIntervalSeconds int `mapstructure:"reaper_interval_seconds" validate:"required,gt=0"`
}

// CacheConfig contains the content cache retention policy. The thresholds
// are business policy, not structural invariants, so they are tunable here
// rather than hardcoded in the sweep.
type CacheConfig struct {
	RetentionDays        int `mapstructure:"retention_days"         validate:"required,gt=0"`
	UnusedDays           int `mapstructure:"unused_days"            validate:"required,gt=0"`
	MinUseCount          int `mapstructure:"min_use_count"          validate:"gte=0"`
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes" validate:"required,gt=0"`
}

// CoordinatorConfig contains multi-path execution settings.
// MinQuorum of 0 means every requested resource kind must succeed.
type CoordinatorConfig struct {
	MinQuorum int `mapstructure:"min_quorum" validate:"gte=0"`
}
