package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Caia-Tech/caia-ocr/pkg/logging"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds complete application configuration
type Config struct {
	// Logging configuration
	Logging *logging.LogConfig `json:"logging"`

	// Recognition configuration
	Recognition *RecognitionConfig `json:"recognition"`

	// Server configuration
	Server *ServerConfig `json:"server"`

	// Event bus configuration
	Events *EventsConfig `json:"events"`
}

// RecognitionConfig holds OCR pipeline settings
type RecognitionConfig struct {
	Language    string        `json:"language"`      // tesseract language, fixed per deployment
	MaxFileSize int64         `json:"max_file_size"` // bytes
	Timeout     time.Duration `json:"timeout"`       // 0 disables the timeout
}

// ServerConfig holds settings for the local UI listener
type ServerConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	MaxRequestSize int      `json:"max_request_size"`
	CORSOrigins    string   `json:"cors_origins"`
	AcceptList     []string `json:"accept_list"`
}

// EventsConfig sizes the lifecycle event bus
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// Address returns host:port for the listener
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DefaultConfig returns a complete default configuration
func DefaultConfig() *Config {
	return &Config{
		Logging: logging.DefaultLogConfig(),

		Recognition: &RecognitionConfig{
			Language:    "eng",
			MaxFileSize: 50 * 1024 * 1024, // 50MB
			Timeout:     0,
		},

		Server: &ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			MaxRequestSize: 60 * 1024 * 1024,
			CORSOrigins:    "http://127.0.0.1:8080, http://localhost:8080",
			AcceptList:     []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".pdf"},
		},

		Events: &EventsConfig{
			BufferSize: 256,
		},
	}
}

// ProductionConfig returns configuration for an unattended install
func ProductionConfig() *Config {
	config := DefaultConfig()

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Console = false
	config.Logging.OutputFile = "logs/caia-ocr.log"

	return config
}

// DevelopmentConfig returns development configuration
func DevelopmentConfig() *Config {
	config := DefaultConfig()

	config.Logging.Level = "debug"
	config.Logging.Format = "pretty"
	config.Logging.Console = true

	config.Events.BufferSize = 64

	return config
}

// Load builds a configuration for the named environment ("production",
// "development" or anything else for defaults) and overlays environment
// variables. A .env file in the working directory is read first if present.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Debug().Err(err).Msg(".env file not loaded, using process environment")
	}

	var config *Config
	switch os.Getenv("CAIA_OCR_ENV") {
	case "production":
		config = ProductionConfig()
	case "development":
		config = DevelopmentConfig()
	default:
		config = DefaultConfig()
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Logging.Level, "CAIA_OCR_LOG_LEVEL")
	setString(&c.Logging.Format, "CAIA_OCR_LOG_FORMAT")
	setString(&c.Logging.OutputFile, "CAIA_OCR_LOG_FILE")

	setString(&c.Recognition.Language, "CAIA_OCR_LANGUAGE")
	setString(&c.Server.Host, "HOST")
	setString(&c.Server.CORSOrigins, "CORS_ORIGINS")

	if err := setInt(&c.Server.Port, "PORT"); err != nil {
		return err
	}
	if err := setInt64(&c.Recognition.MaxFileSize, "CAIA_OCR_MAX_FILE_SIZE"); err != nil {
		return err
	}
	if err := setDuration(&c.Recognition.Timeout, "CAIA_OCR_TIMEOUT"); err != nil {
		return err
	}
	return setInt(&c.Events.BufferSize, "CAIA_OCR_EVENT_BUFFER")
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Recognition.Language == "" {
		return fmt.Errorf("recognition language cannot be empty")
	}
	if c.Recognition.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive, got %d", c.Recognition.MaxFileSize)
	}
	if c.Recognition.Timeout < 0 {
		return fmt.Errorf("recognition timeout cannot be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Events.BufferSize <= 0 {
		return fmt.Errorf("event buffer size must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}
