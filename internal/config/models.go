package config

import (
	"time"

	"github.com/mikey/phish-detect/internal/adapters/classifier"
	"github.com/mikey/phish-detect/internal/adapters/host"
	"github.com/mikey/phish-detect/internal/adapters/store"
	"github.com/mikey/phish-detect/internal/extraction"
	"github.com/mikey/phish-detect/internal/watcher"
)

// HostConfig selects where the watched document comes from
type HostConfig struct {
	Type    string
	File    string
	Browser host.BrowserConfig
}

// BlocklistConfig represents the blocklist storage configuration
type BlocklistConfig struct {
	Type       string
	Seed       []string
	FilePath   string
	SQLitePath string
	MySQLDSN   string
	Redis      store.RedisOptions
}

// ClassifierConfig represents the classification service configuration
type ClassifierConfig struct {
	BackendURL string
	Options    classifier.Options
}

// DedupConfig represents the message identity configuration
type DedupConfig struct {
	Strategy     string
	IDAttributes []string
}

// MetricsConfig represents the metrics endpoint configuration
type MetricsConfig struct {
	Enabled       bool
	ListenAddress string
}

// GetHost returns the host configuration
func (c *Config) GetHost() (HostConfig, error) {
	timeout, err := c.GetDuration("host.browser.navigation_timeout")
	if err != nil {
		return HostConfig{}, err
	}
	return HostConfig{
		Type: c.GetString("host.type"),
		File: c.GetString("host.file"),
		Browser: host.BrowserConfig{
			URL:               c.GetString("host.url"),
			RemoteURL:         c.GetString("host.browser.remote_url"),
			Headless:          c.GetBool("host.browser.headless"),
			UserDataDir:       c.GetString("host.browser.user_data_dir"),
			NavigationTimeout: timeout,
			RootSelector:      c.GetString("watcher.root_selector"),
			CandidateSelector: c.GetString("watcher.candidate_selector"),
			HeaderSelector:    c.GetString("annotation.header_selector"),
		},
	}, nil
}

// GetWatcher returns the watcher selectors
func (c *Config) GetWatcher() watcher.Config {
	return watcher.Config{
		RootSelector:      c.GetString("watcher.root_selector"),
		CandidateSelector: c.GetString("watcher.candidate_selector"),
		PreviewSelector:   c.GetString("watcher.preview_selector"),
	}
}

// GetExtraction returns the extraction selectors and body limit
func (c *Config) GetExtraction() (extraction.Selectors, int) {
	return extraction.Selectors{
		Sender:         c.GetString("extraction.sender_selector"),
		SenderEmail:    c.GetString("extraction.sender_email_selector"),
		EmailAttribute: c.GetString("extraction.sender_email_attribute"),
		Subject:        c.GetString("extraction.subject_selector"),
		Body:           c.GetString("extraction.body_selector"),
	}, c.GetInt("extraction.max_body_size")
}

// GetClassifier returns the classification service configuration
func (c *Config) GetClassifier() (ClassifierConfig, error) {
	var timeout time.Duration
	if s := c.GetString("classifier.timeout"); s != "" {
		var err error
		if timeout, err = c.GetDuration("classifier.timeout"); err != nil {
			return ClassifierConfig{}, err
		}
	}
	return ClassifierConfig{
		BackendURL: c.GetString("classifier.backend_url"),
		Options: classifier.Options{
			Timeout:   timeout,
			RateLimit: c.GetFloat64("classifier.rate_limit"),
			Burst:     c.GetInt("classifier.burst"),
		},
	}, nil
}

// GetBlocklist returns the blocklist storage configuration
func (c *Config) GetBlocklist() BlocklistConfig {
	return BlocklistConfig{
		Type:       c.GetString("blocklist.type"),
		Seed:       c.GetStringSlice("blocklist.seed"),
		FilePath:   c.GetString("blocklist.file_path"),
		SQLitePath: c.GetString("blocklist.sqlite_path"),
		MySQLDSN:   c.GetString("blocklist.mysql_dsn"),
		Redis: store.RedisOptions{
			Address:   c.GetString("blocklist.redis.address"),
			Password:  c.GetString("blocklist.redis.password"),
			DB:        c.GetInt("blocklist.redis.db"),
			KeyPrefix: c.GetString("blocklist.redis.key_prefix"),
		},
	}
}

// GetDedup returns the message identity configuration
func (c *Config) GetDedup() DedupConfig {
	return DedupConfig{
		Strategy:     c.GetString("dedup.strategy"),
		IDAttributes: c.GetStringSlice("dedup.id_attributes"),
	}
}

// GetMetrics returns the metrics endpoint configuration
func (c *Config) GetMetrics() MetricsConfig {
	return MetricsConfig{
		Enabled:       c.GetBool("metrics.enabled"),
		ListenAddress: c.GetString("metrics.listen_address"),
	}
}
