package core

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort             = 8080
	defaultDatabaseType     = "sqlite"
	defaultConnectionString = "fxshelf.db"
	defaultSourceHost       = "labs.google"
	defaultSourcePath       = "/fx/tools/image-fx"
	defaultMaxWidth         = 300
	defaultMaxHeight        = 200
	defaultQuality          = 80
	defaultDownloadTimeout  = 30 * time.Second
	defaultThumbnailWorkers = 4
	defaultPopularTags      = 10
)

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

// Source identifies the site records may be ingested from.
type Source struct {
	Host string `yaml:"host"`
	Path string `yaml:"path"`
}

type Thumbnail struct {
	MaxWidth        int           `yaml:"maxWidth"`
	MaxHeight       int           `yaml:"maxHeight"`
	Quality         int           `yaml:"quality"`
	DownloadTimeout time.Duration `yaml:"downloadTimeout"`
	// Workers bounds concurrent downloads when refreshing missing thumbnails
	Workers int `yaml:"workers"`
	// Disabled skips thumbnail generation during ingestion
	Disabled bool `yaml:"disabled"`
}

type ServiceConfig struct {
	Port        int       `yaml:"port"`
	LogLevel    string    `yaml:"logLevel"`
	Database    Database  `yaml:"database"`
	Source      Source    `yaml:"source"`
	Thumbnail   Thumbnail `yaml:"thumbnail"`
	PopularTags int       `yaml:"popularTags"`
}

// DefaultConfig returns the configuration used for omitted keys.
func DefaultConfig() *ServiceConfig {
	config := &ServiceConfig{}
	applyDefaults(config)
	return config
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	applyDefaults(&config)
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *ServiceConfig) {
	if config.Port == 0 {
		config.Port = defaultPort
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.Database.Type == "" {
		config.Database.Type = defaultDatabaseType
	}
	if config.Database.ConnectionString == "" && config.Database.Type == defaultDatabaseType {
		config.Database.ConnectionString = defaultConnectionString
	}
	if config.Source.Host == "" {
		config.Source.Host = defaultSourceHost
	}
	if config.Source.Path == "" {
		config.Source.Path = defaultSourcePath
	}
	if config.Thumbnail.MaxWidth == 0 {
		config.Thumbnail.MaxWidth = defaultMaxWidth
	}
	if config.Thumbnail.MaxHeight == 0 {
		config.Thumbnail.MaxHeight = defaultMaxHeight
	}
	if config.Thumbnail.Quality == 0 {
		config.Thumbnail.Quality = defaultQuality
	}
	if config.Thumbnail.DownloadTimeout == 0 {
		config.Thumbnail.DownloadTimeout = defaultDownloadTimeout
	}
	if config.Thumbnail.Workers == 0 {
		config.Thumbnail.Workers = defaultThumbnailWorkers
	}
	if config.PopularTags == 0 {
		config.PopularTags = defaultPopularTags
	}
}

// validateConfig ensures all configuration values are usable
func validateConfig(config *ServiceConfig) error {
	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("port %d out of range", config.Port)
	}
	if _, err := ParseLogLevel(config.LogLevel); err != nil {
		return err
	}
	switch config.Database.Type {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}
	if config.Database.ConnectionString == "" {
		return fmt.Errorf("database connectionString must be set for type %s", config.Database.Type)
	}
	if config.Thumbnail.MaxWidth < 0 || config.Thumbnail.MaxHeight < 0 {
		return fmt.Errorf("thumbnail bounds must be positive, got %dx%d",
			config.Thumbnail.MaxWidth, config.Thumbnail.MaxHeight)
	}
	if config.Thumbnail.Quality < 1 || config.Thumbnail.Quality > 100 {
		return fmt.Errorf("thumbnail quality must be within 1..100, got %d", config.Thumbnail.Quality)
	}
	if config.Thumbnail.DownloadTimeout < 0 {
		return fmt.Errorf("thumbnail downloadTimeout must not be negative")
	}
	if config.Thumbnail.Workers < 1 {
		return fmt.Errorf("thumbnail workers must be positive, got %d", config.Thumbnail.Workers)
	}
	if config.PopularTags < 0 {
		return fmt.Errorf("popularTags must not be negative, got %d", config.PopularTags)
	}
	return nil
}

func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
}
