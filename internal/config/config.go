package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete service configuration. It is built once in
// cmd/server and handed to components through their constructors; no
// package keeps configuration state of its own.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Upload     UploadConfig
	Whisper    WhisperConfig
	Groq       ProviderConfig
	Mistral    ProviderConfig
	Evaluation EvaluationConfig
	Minio      MinioConfig
	Logging    LoggingConfig
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Port string
}

// DatabaseConfig contains the record store connection settings.
type DatabaseConfig struct {
	URL string
}

// UploadConfig contains the local upload area settings.
type UploadConfig struct {
	Dir string
}

// WhisperConfig contains the speech-recognition service settings.
type WhisperConfig struct {
	URL        string
	Language   string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// ProviderConfig contains the settings of one LLM provider. A missing
// APIKey is not a load error: the corresponding provider degrades to a
// configuration error at call time instead of crashing the process.
type ProviderConfig struct {
	APIKey string
	Model  string
}

// EvaluationConfig selects which providers the upload pipeline must
// consult. All of them have to succeed before a record is persisted.
type EvaluationConfig struct {
	Providers []string
}

// MinioConfig contains the optional object storage settings. When
// Endpoint is empty, audio artifacts are stored on local disk.
type MinioConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string
	Format string
}

// Load resolves the configuration from environment variables, applying
// defaults for everything except the provider API keys.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("database.url", "postgres://postgres:postgres@db:5432/smartnlp?sslmode=disable")
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("whisper.url", "http://whisper:9000/asr")
	v.SetDefault("whisper.language", "pt")
	v.SetDefault("whisper.timeout", "180s")
	v.SetDefault("whisper.max_retries", 5)
	v.SetDefault("whisper.retry_delay", "3s")
	v.SetDefault("groq.model", "llama3-70b-8192")
	v.SetDefault("mistral.model", "mistral-medium")
	v.SetDefault("evaluation.providers", "groq,mistral")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	bindings := map[string]string{
		"server.port":             "SERVER_PORT",
		"database.url":            "DATABASE_URL",
		"upload.dir":              "UPLOAD_DIR",
		"whisper.url":             "WHISPER_API_URL",
		"whisper.language":        "WHISPER_LANGUAGE",
		"groq.api_key":            "GROQ_API_KEY",
		"groq.model":              "GROQ_API_MODEL",
		"mistral.api_key":         "MISTRAL_API_KEY",
		"mistral.model":           "MISTRAL_API_MODEL",
		"evaluation.providers":    "EVAL_PROVIDERS",
		"minio.endpoint":          "MINIO_ENDPOINT",
		"minio.access_key_id":     "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key": "MINIO_SECRET_ACCESS_KEY",
		"minio.bucket_name":       "MINIO_BUCKET_NAME",
		"minio.use_ssl":           "MINIO_USE_SSL",
		"logging.level":           "LOG_LEVEL",
		"logging.format":          "LOG_FORMAT",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	cfg := &Config{
		Server:   ServerConfig{Port: v.GetString("server.port")},
		Database: DatabaseConfig{URL: v.GetString("database.url")},
		Upload:   UploadConfig{Dir: v.GetString("upload.dir")},
		Whisper: WhisperConfig{
			URL:        v.GetString("whisper.url"),
			Language:   v.GetString("whisper.language"),
			Timeout:    v.GetDuration("whisper.timeout"),
			MaxRetries: v.GetInt("whisper.max_retries"),
			RetryDelay: v.GetDuration("whisper.retry_delay"),
		},
		Groq: ProviderConfig{
			APIKey: v.GetString("groq.api_key"),
			Model:  v.GetString("groq.model"),
		},
		Mistral: ProviderConfig{
			APIKey: v.GetString("mistral.api_key"),
			Model:  v.GetString("mistral.model"),
		},
		Evaluation: EvaluationConfig{
			Providers: splitProviders(v.GetString("evaluation.providers")),
		},
		Minio: MinioConfig{
			Endpoint:        v.GetString("minio.endpoint"),
			AccessKeyID:     v.GetString("minio.access_key_id"),
			SecretAccessKey: v.GetString("minio.secret_access_key"),
			BucketName:      v.GetString("minio.bucket_name"),
			UseSSL:          v.GetBool("minio.use_ssl"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func splitProviders(raw string) []string {
	parts := strings.Split(raw, ",")
	providers := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			providers = append(providers, p)
		}
	}
	return providers
}

// Validate checks the configuration sections.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL cannot be empty")
	}
	if c.Upload.Dir == "" {
		return fmt.Errorf("upload dir cannot be empty")
	}
	if err := c.Whisper.Validate(); err != nil {
		return fmt.Errorf("whisper config: %w", err)
	}
	if err := c.Evaluation.Validate(); err != nil {
		return fmt.Errorf("evaluation config: %w", err)
	}
	if err := c.Minio.Validate(); err != nil {
		return fmt.Errorf("minio config: %w", err)
	}
	return nil
}

// Validate validates the speech service configuration.
func (w *WhisperConfig) Validate() error {
	if w.URL == "" {
		return fmt.Errorf("url cannot be empty")
	}
	if w.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}
	if w.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", w.MaxRetries)
	}
	if w.RetryDelay < 0 {
		return fmt.Errorf("retry_delay cannot be negative, got %s", w.RetryDelay)
	}
	if w.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1s, got %s", w.Timeout)
	}
	return nil
}

// Validate validates the provider selection.
func (e *EvaluationConfig) Validate() error {
	if len(e.Providers) == 0 {
		return fmt.Errorf("at least one provider must be selected")
	}
	for _, p := range e.Providers {
		if p != "groq" && p != "mistral" {
			return fmt.Errorf("unknown provider %q, must be one of [groq, mistral]", p)
		}
	}
	return nil
}

// Validate validates the object storage configuration. All fields are
// required once an endpoint is set.
func (m *MinioConfig) Validate() error {
	if m.Endpoint == "" {
		return nil
	}
	if m.AccessKeyID == "" || m.SecretAccessKey == "" || m.BucketName == "" {
		return fmt.Errorf("access_key_id, secret_access_key and bucket_name must be set when endpoint is configured")
	}
	return nil
}
