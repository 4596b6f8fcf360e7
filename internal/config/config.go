// Package config loads CLI settings from a YAML file, FACTURE_OCR_*
// environment variables and command flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rezonia/facture-ocr/internal/logger"
	"github.com/rezonia/facture-ocr/internal/model"
	"github.com/rezonia/facture-ocr/internal/ocr"
)

// EnvPrefix is prepended to every environment key, e.g. FACTURE_OCR_API_KEY.
const EnvPrefix = "FACTURE_OCR"

// ErrMissingAPIKey is returned by Validate when no credential is configured.
var ErrMissingAPIKey = errors.New("api key is required (--api-key or FACTURE_OCR_API_KEY)")

type Config struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	Language  string        `mapstructure:"language"`
	Format    string        `mapstructure:"format"`
	Log       logger.Config `mapstructure:"log"`
	Server    ServerConfig  `mapstructure:"server"`
}

// ServerConfig configures the local API started by `serve`
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ProxySecret  string        `mapstructure:"proxy_secret"`
	Plan         string        `mapstructure:"plan"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Debug        bool          `mapstructure:"debug"`
}

// New returns a viper instance with defaults and environment lookup set up.
// Flags are bound by the caller before Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("api_key", "")
	v.SetDefault("base_url", ocr.DefaultBaseURL)
	v.SetDefault("timeout", ocr.DefaultTimeout)
	v.SetDefault("user_agent", ocr.DefaultUserAgent)
	v.SetDefault("language", string(model.DefaultLanguage))
	v.SetDefault("format", "json")

	def := logger.DefaultConfig()
	v.SetDefault("log.level", def.Level)
	v.SetDefault("log.format", def.Format)
	v.SetDefault("log.output", def.Output)
	v.SetDefault("log.enable_stacktrace", def.EnableStacktrace)
	v.SetDefault("log.file.filename", def.File.Filename)
	v.SetDefault("log.file.max_size", def.File.MaxSize)
	v.SetDefault("log.file.max_age", def.File.MaxAge)
	v.SetDefault("log.file.max_backups", def.File.MaxBackups)
	v.SetDefault("log.file.compress", def.File.Compress)

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.proxy_secret", "")
	v.SetDefault("server.plan", "PRO")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.debug", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the optional config file at path and unmarshals the merged
// settings. An empty path skips the file.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return &cfg, nil
}

// Validate checks settings needed to call the remote service.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if !model.Language(c.Language).IsSupported() {
		return fmt.Errorf("unsupported language %q", c.Language)
	}
	switch c.Format {
	case "json", "table", "csv":
	default:
		return fmt.Errorf("unsupported output format: %s", c.Format)
	}
	return nil
}

// ClientOptions maps the settings onto ocr client options.
func (c *Config) ClientOptions(l *zap.Logger) []ocr.ClientOption {
	opts := []ocr.ClientOption{
		ocr.WithBaseURL(c.BaseURL),
		ocr.WithTimeout(c.Timeout),
		ocr.WithUserAgent(c.UserAgent),
	}
	if l != nil {
		opts = append(opts, ocr.WithLogger(l))
	}
	return opts
}
