package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config represents the application configuration
type Config struct {
	Environment string           `mapstructure:"environment" validate:"oneof=development staging production"`
	Debug       bool             `mapstructure:"debug"`
	Server      ServerConfig     `mapstructure:"server"`
	Imaging     ImagingConfig    `mapstructure:"imaging"`
	Compliance  ComplianceConfig `mapstructure:"compliance"`
	Template    TemplateConfig   `mapstructure:"template"`
	Audit       AuditConfig      `mapstructure:"audit"`
	Monitoring  MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	HTTPPort     int           `mapstructure:"http_port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// ImagingConfig contains image analysis and normalization settings
type ImagingConfig struct {
	DecodeTimeout time.Duration `mapstructure:"decode_timeout"`
	MaxUploadSize int64         `mapstructure:"max_upload_size" validate:"min=1"`
}

// ComplianceConfig contains compliance validation settings
type ComplianceConfig struct {
	CacheCapacity int  `mapstructure:"cache_capacity" validate:"min=1"`
	EnableCache   bool `mapstructure:"enable_cache"`
}

// TemplateConfig contains template builder settings
type TemplateConfig struct {
	LegacyDigest bool `mapstructure:"legacy_digest"`
}

// AuditConfig contains the recognition log store settings
type AuditConfig struct {
	BufferSize      int           `mapstructure:"buffer_size"`
	BatchSize       int           `mapstructure:"batch_size"`
	FlushInterval   time.Duration `mapstructure:"flush_interval"`
	RetentionPeriod time.Duration `mapstructure:"retention_period"`
}

// MonitoringConfig contains metrics settings
type MonitoringConfig struct {
	EnableMetrics bool   `mapstructure:"enable_metrics"`
	MetricsPath   string `mapstructure:"metrics_path"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.SetEnvPrefix("BIOMETRIC_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Defaults plus environment variables are a complete configuration.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("debug", false)

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "60s")

	// Imaging defaults
	viper.SetDefault("imaging.decode_timeout", "30s")
	viper.SetDefault("imaging.max_upload_size", 20*1024*1024)

	// Compliance defaults
	viper.SetDefault("compliance.cache_capacity", 256)
	viper.SetDefault("compliance.enable_cache", true)

	// Template defaults
	viper.SetDefault("template.legacy_digest", false)

	// Audit defaults
	viper.SetDefault("audit.buffer_size", 1024)
	viper.SetDefault("audit.batch_size", 64)
	viper.SetDefault("audit.flush_interval", "5s")
	viper.SetDefault("audit.retention_period", "87600h") // 10 years

	// Monitoring defaults
	viper.SetDefault("monitoring.enable_metrics", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	// Cross-field check the tag grammar cannot express.
	if c.Audit.BatchSize <= 0 || c.Audit.BufferSize < c.Audit.BatchSize {
		return fmt.Errorf("invalid audit buffer/batch sizes: %d/%d", c.Audit.BufferSize, c.Audit.BatchSize)
	}

	return nil
}

// InitLogger initializes the logger based on configuration
func (c *Config) InitLogger() (*zap.Logger, error) {
	var zapConfig zap.Config

	if c.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	if c.Debug {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}
