package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/rm-hull/blurr/internal/blur"
	"github.com/spf13/viper"
)

const EnvPrefix = "BLURR"

type Config struct {
	ScaleFactor    float64
	Radius         float64
	Workers        int
	QueueSize      int
	Port           int
	Debug          bool
	LogLevel       string
	LogFormat      string
	InboxDir       string
	OutboxDir      string
	WatchInterval  time.Duration
	MaxUploadBytes int64
}

// New returns a viper instance with defaults and BLURR_ environment lookups
// in place. A non-empty configFile is read explicitly, otherwise an optional
// blurr.toml in the working directory is used.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("scale_factor", blur.DefaultScaleFactor)
	v.SetDefault("radius", blur.DefaultRadius)
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("queue_size", 64)
	v.SetDefault("port", 8080)
	v.SetDefault("debug", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("inbox_dir", "")
	v.SetDefault("outbox_dir", "./data/outbox")
	v.SetDefault("watch_interval", time.Minute)
	v.SetDefault("max_upload_bytes", 20<<20)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file %s: %w", configFile, err)
		}
		return v, nil
	}

	v.AddConfigPath(".")
	v.SetConfigName("blurr")
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	}
	return v, nil
}

func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ScaleFactor:    v.GetFloat64("scale_factor"),
		Radius:         v.GetFloat64("radius"),
		Workers:        v.GetInt("workers"),
		QueueSize:      v.GetInt("queue_size"),
		Port:           v.GetInt("port"),
		Debug:          v.GetBool("debug"),
		LogLevel:       strings.ToLower(v.GetString("log_level")),
		LogFormat:      strings.ToLower(v.GetString("log_format")),
		InboxDir:       v.GetString("inbox_dir"),
		OutboxDir:      v.GetString("outbox_dir"),
		WatchInterval:  v.GetDuration("watch_interval"),
		MaxUploadBytes: v.GetInt64("max_upload_bytes"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Parameters().Validate(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("queue_size must not be negative, got %d", c.QueueSize)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if c.WatchInterval <= 0 {
		return fmt.Errorf("watch_interval must be positive, got %s", c.WatchInterval)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.OutboxDir == "" {
		return errors.New("outbox_dir must be set")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}

// Parameters are the default blur parameters for requests that do not
// override them.
func (c *Config) Parameters() blur.Parameters {
	return blur.Parameters{ScaleFactor: c.ScaleFactor, Radius: c.Radius}
}

func (c *Config) Engine() blur.Engine {
	return blur.NewEngine().WithParameters(c.ScaleFactor, c.Radius)
}
