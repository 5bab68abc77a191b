// Package config loads go-palette settings from env files, an optional YAML
// file and the process environment, in that order of increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-palette/pkg/camera"
)

// Defaults.
const (
	DefaultModel           = "gemini-1.5-flash"
	DefaultPort            = "8080"
	DefaultAnalysisTimeout = 60 * time.Second
	DefaultLogLevel        = "info"
)

// DefaultEnvFiles are read by Load. Earlier files win.
var DefaultEnvFiles = []string{".env.local", ".env"}

// ErrMissingAPIKey is returned by Validate when no Gemini key is configured.
var ErrMissingAPIKey = errors.New("config: GEMINI_API_KEY is required")

// Config is the full application configuration.
type Config struct {
	Gemini GeminiConfig `yaml:"gemini"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Camera CameraConfig `yaml:"camera"`

	// AnalysisTimeout bounds one analysis. Zero disables the bound.
	AnalysisTimeout time.Duration `yaml:"analysis_timeout"`
}

// GeminiConfig configures the vision model.
type GeminiConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`
}

// ServerConfig configures the web surface.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// LogConfig configures internal/log.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// CameraConfig configures server-side capture.
type CameraConfig struct {
	camera.Config `yaml:",inline"`

	// Image is a still used as the camera feed when no device is available.
	Image string `yaml:"image"`
}

// Default returns a config with every default applied and no API key.
func Default() *Config {
	return &Config{
		Gemini: GeminiConfig{Model: DefaultModel},
		Server: ServerConfig{Port: DefaultPort},
		Log:    LogConfig{Level: DefaultLogLevel},
		Camera: CameraConfig{Config: camera.DefaultConfig()},

		AnalysisTimeout: DefaultAnalysisTimeout,
	}
}

// Load reads DefaultEnvFiles, then the YAML file at path (skipped when path
// is empty), then environment overrides. It does not validate.
func Load(path string) (*Config, error) {
	if err := LoadEnvFiles(DefaultEnvFiles...); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		if err := cfg.readYAML(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFiles loads KEY=VALUE files into the environment. Missing files are
// skipped; variables already set are never overwritten.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) readYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := firstEnv("GEMINI_API_KEY", "NEXT_PUBLIC_GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	setString(&c.Gemini.Model, "GEMINI_MODEL")
	setString(&c.Gemini.BaseURL, "GEMINI_BASE_URL")
	setString(&c.Server.Port, "PORT")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Log.File, "LOG_FILE")
	setString(&c.Camera.Image, "CAMERA_IMAGE")

	var errs []error
	if v := os.Getenv("ANALYSIS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ANALYSIS_TIMEOUT: %w", err))
		} else {
			c.AnalysisTimeout = d
		}
	}
	errs = append(errs,
		setInt(&c.Gemini.MaxTokens, "GEMINI_MAX_TOKENS"),
		setInt(&c.Camera.DeviceID, "CAMERA_DEVICE"),
		setInt(&c.Camera.Width, "CAMERA_WIDTH"),
		setInt(&c.Camera.Height, "CAMERA_HEIGHT"),
	)
	return errors.Join(errs...)
}

// Validate returns ErrMissingAPIKey when no key is set, otherwise every
// invalid field joined into one error.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return ErrMissingAPIKey
	}

	var errs []error
	if c.Gemini.Model == "" {
		errs = append(errs, errors.New("gemini.model is required"))
	}
	if c.Gemini.MaxTokens < 0 {
		errs = append(errs, errors.New("gemini.max_tokens must be >= 0"))
	}
	if p, err := strconv.Atoi(c.Server.Port); err != nil || p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("server.port %q is not a valid port", c.Server.Port))
	}
	if c.AnalysisTimeout < 0 {
		errs = append(errs, errors.New("analysis_timeout must be >= 0"))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	for _, msg := range c.Camera.Validate() {
		errs = append(errs, errors.New("camera."+msg))
	}
	return errors.Join(errs...)
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
