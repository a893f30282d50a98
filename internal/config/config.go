package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. An explicit file path takes
// precedence over the search paths.
func New(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/phish-detect/")
		v.AddConfigPath("$HOME/.phish-detect")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("PHISH_DETECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	// Host
	v.SetDefault("host.type", "browser")
	v.SetDefault("host.url", "https://mail.google.com/mail/u/0/")
	v.SetDefault("host.file", "")
	v.SetDefault("host.browser.remote_url", "")
	v.SetDefault("host.browser.headless", false)
	v.SetDefault("host.browser.user_data_dir", "")
	v.SetDefault("host.browser.navigation_timeout", "30s")

	// Watcher
	v.SetDefault("watcher.root_selector", ".nH.oy8Mbf, .pY")
	v.SetDefault("watcher.candidate_selector", `div[role="main"] .nH.nn`)
	v.SetDefault("watcher.preview_selector", ".AO .zA")

	// Extraction
	v.SetDefault("extraction.sender_selector", "span.go")
	v.SetDefault("extraction.sender_email_selector", "span.gD")
	v.SetDefault("extraction.sender_email_attribute", "email")
	v.SetDefault("extraction.subject_selector", "h2.hP")
	v.SetDefault("extraction.body_selector", "div.msg > div.a3s")
	v.SetDefault("extraction.max_body_size", 0)

	// Classifier
	v.SetDefault("classifier.backend_url", "http://localhost:8000")
	v.SetDefault("classifier.timeout", "0s")
	v.SetDefault("classifier.rate_limit", 0.0)
	v.SetDefault("classifier.burst", 1)

	// Annotation
	v.SetDefault("annotation.header_selector", "div.nH.hx")

	// Dedup
	v.SetDefault("dedup.strategy", "message-id")
	v.SetDefault("dedup.id_attributes", []string{"data-message-id", "data-legacy-message-id"})

	// Pipeline
	v.SetDefault("pipeline.max_in_flight", 0)

	// Blocklist
	v.SetDefault("blocklist.type", "memory")
	v.SetDefault("blocklist.seed", []string{})
	v.SetDefault("blocklist.file_path", "./blocklist.json")
	v.SetDefault("blocklist.sqlite_path", "/data/phish_detect.db")
	v.SetDefault("blocklist.mysql_dsn", "user:password@tcp(localhost:3306)/phish_detect")
	v.SetDefault("blocklist.redis.address", "localhost:6379")
	v.SetDefault("blocklist.redis.password", "")
	v.SetDefault("blocklist.redis.db", 0)
	v.SetDefault("blocklist.redis.key_prefix", "phish-detect:")

	// Metrics
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_address", "127.0.0.1:9464")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
