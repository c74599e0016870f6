// Package config loads the settings of the CLI and of the sandbox backend
// from the environment, optionally seeded by a .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"opd-claims/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// ClientConfig configures the CLI and its API client
type ClientConfig struct {
	APIBaseURL    string
	ToastDuration time.Duration
	RedirectDelay time.Duration
	Environment   string
	LogLevel      string
}

// SandboxConfig configures the local sandbox backend
type SandboxConfig struct {
	Port string
	// DatabaseURL selects Postgres storage. The sandbox keeps everything in
	// memory when it is empty.
	DatabaseURL    string
	AllowedOrigins []string
	UploadBaseURL  string
	SeedMembers    bool
	Environment    string
	LogLevel       string
	Storage        storage.StorageConfig
}

// LoadDotEnv loads .env from the working directory, then from the project
// root relative to cmd/<binary>. Missing files are not an error.
func LoadDotEnv() bool {
	if err := godotenv.Load(); err == nil {
		return true
	}
	return godotenv.Load("../../.env") == nil
}

// bindEnvVars binds config keys to environment variables.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadClient reads the client configuration
func LoadClient() (*ClientConfig, error) {
	v := viper.New()

	v.SetDefault("API_BASE_URL", "http://localhost:8000/api/v1")
	v.SetDefault("TOAST_DURATION", "5s")
	v.SetDefault("REDIRECT_DELAY", "1500ms")
	v.SetDefault("ENVIRONMENT", EnvDevelopment)
	v.SetDefault("LOG_LEVEL", "info")

	err := bindEnvVars(v, [][2]string{
		{"API_BASE_URL", "OPD_API_BASE_URL"},
		{"TOAST_DURATION", "OPD_TOAST_DURATION"},
		{"REDIRECT_DELAY", "OPD_REDIRECT_DELAY"},
		{"ENVIRONMENT", "ENVIRONMENT"},
		{"LOG_LEVEL", "LOG_LEVEL"},
	})
	if err != nil {
		return nil, err
	}

	cfg := &ClientConfig{
		APIBaseURL:    strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
		ToastDuration: v.GetDuration("TOAST_DURATION"),
		RedirectDelay: v.GetDuration("REDIRECT_DELAY"),
		Environment:   v.GetString("ENVIRONMENT"),
		LogLevel:      v.GetString("LOG_LEVEL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *ClientConfig) validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("OPD_API_BASE_URL must not be empty")
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("OPD_API_BASE_URL must be an http(s) URL, got %q", c.APIBaseURL)
	}
	if c.ToastDuration <= 0 {
		return fmt.Errorf("OPD_TOAST_DURATION must be positive")
	}
	if c.RedirectDelay <= 0 {
		return fmt.Errorf("OPD_REDIRECT_DELAY must be positive")
	}
	return ValidateLogLevel(c.LogLevel)
}

// ValidateLogLevel rejects levels zap does not know. An empty level means info.
func ValidateLogLevel(level string) error {
	if _, err := zapcore.ParseLevel(level); err != nil {
		return fmt.Errorf("LOG_LEVEL %q: %w", level, err)
	}
	return nil
}

// LoadSandbox reads the sandbox backend configuration
func LoadSandbox() (*SandboxConfig, error) {
	v := viper.New()

	v.SetDefault("SERVER.PORT", "8000")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", "*")
	v.SetDefault("SERVER.UPLOAD_BASE_URL", "/uploads")
	v.SetDefault("SERVER.SEED_MEMBERS", true)
	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE.TYPE", string(storage.StorageTypeLocal))
	v.SetDefault("STORAGE.LOCAL_PATH", "./uploads")
	v.SetDefault("STORAGE.S3_REGION", "us-east-1")

	err := bindEnvVars(v, [][2]string{
		{"SERVER.PORT", "PORT"},
		{"SERVER.DATABASE_URL", "DATABASE_URL"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.UPLOAD_BASE_URL", "UPLOAD_BASE_URL"},
		{"SERVER.SEED_MEMBERS", "SEED_MEMBERS"},
		{"SERVER.ENVIRONMENT", "ENVIRONMENT"},
		{"LOG_LEVEL", "LOG_LEVEL"},
		{"STORAGE.TYPE", "STORAGE_TYPE"},
		{"STORAGE.LOCAL_PATH", "STORAGE_LOCAL_PATH"},
		{"STORAGE.S3_BUCKET", "AWS_S3_BUCKET"},
		{"STORAGE.S3_REGION", "AWS_REGION"},
		{"STORAGE.S3_ENDPOINT", "AWS_S3_ENDPOINT"},
		{"STORAGE.AWS_ACCESS_KEY", "AWS_ACCESS_KEY_ID"},
		{"STORAGE.AWS_SECRET_KEY", "AWS_SECRET_ACCESS_KEY"},
	})
	if err != nil {
		return nil, err
	}

	cfg := &SandboxConfig{
		Port:           v.GetString("SERVER.PORT"),
		DatabaseURL:    v.GetString("SERVER.DATABASE_URL"),
		AllowedOrigins: splitList(v.GetString("SERVER.ALLOWED_ORIGINS")),
		UploadBaseURL:  strings.TrimRight(v.GetString("SERVER.UPLOAD_BASE_URL"), "/"),
		SeedMembers:    v.GetBool("SERVER.SEED_MEMBERS"),
		Environment:    v.GetString("SERVER.ENVIRONMENT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		Storage: storage.StorageConfig{
			Type:         storage.StorageType(strings.ToLower(v.GetString("STORAGE.TYPE"))),
			LocalPath:    v.GetString("STORAGE.LOCAL_PATH"),
			S3Bucket:     v.GetString("STORAGE.S3_BUCKET"),
			S3Region:     v.GetString("STORAGE.S3_REGION"),
			S3Endpoint:   v.GetString("STORAGE.S3_ENDPOINT"),
			AWSAccessKey: v.GetString("STORAGE.AWS_ACCESS_KEY"),
			AWSSecretKey: v.GetString("STORAGE.AWS_SECRET_KEY"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *SandboxConfig) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	switch c.Storage.Type {
	case storage.StorageTypeLocal:
	case storage.StorageTypeS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("AWS_S3_BUCKET is required when STORAGE_TYPE=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q", c.Storage.Type)
	}
	return ValidateLogLevel(c.LogLevel)
}

// UsesDatabase reports whether the sandbox should connect to Postgres
func (c *SandboxConfig) UsesDatabase() bool {
	return c.DatabaseURL != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
