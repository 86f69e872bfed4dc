package config

import (
	"time"

	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/beaconlabs/beacon/pkg/logger"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logger   logger.Config  `yaml:"logger"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	LLM      LLMConfig      `yaml:"llm"`
	Trends   TrendsConfig   `yaml:"trends"`
	Agent    AgentConfig    `yaml:"agent"`
}

type ServerConfig struct {
	Port       int    `yaml:"port"`
	Host       string `yaml:"host"`
	Mode       string `yaml:"mode"`
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
	TOTPSecret string `yaml:"totp_secret"`
}

type DatabaseConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

// ScraperConfig configures the external scraping provider. An empty token
// disables scraping entirely; callers then see empty batches.
type ScraperConfig struct {
	Token        string `yaml:"token"`
	BaseURL      string `yaml:"base_url"`
	MaxItems     int    `yaml:"max_items"`
	PollInterval string `yaml:"poll_interval"`
	Timeout      string `yaml:"timeout"`
}

type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type TrendsConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	DefaultTopic string `yaml:"default_topic"`
}

// AgentConfig holds the schedule knobs. Intervals are duration strings
// parsed with time.ParseDuration; they are configuration, not contracts.
type AgentConfig struct {
	Enabled          bool   `yaml:"enabled"`
	CycleInterval    string `yaml:"cycle_interval"`
	ResyncInterval   string `yaml:"resync_interval"`
	BriefingInterval string `yaml:"briefing_interval"`
	BackupInterval   string `yaml:"backup_interval"`
	BootupDelay      string `yaml:"bootup_delay"`
	CacheTTL         string `yaml:"cache_ttl"`
	SyncDelay        string `yaml:"sync_delay"`
	RetentionDays    int    `yaml:"retention_days"`
	BackupLimit      int    `yaml:"backup_limit"`
}

// Duration parses s, falling back to def when s is empty or malformed.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	// Set default values
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5340
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Scraper.BaseURL == "" {
		cfg.Scraper.BaseURL = "https://api.scrapeowl.dev"
	}
	if cfg.Scraper.MaxItems == 0 {
		cfg.Scraper.MaxItems = 25
	}
	if cfg.Scraper.PollInterval == "" {
		cfg.Scraper.PollInterval = "2s"
	}
	if cfg.Scraper.Timeout == "" {
		cfg.Scraper.Timeout = "90s"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.Trends.BaseURL == "" {
		cfg.Trends.BaseURL = "https://lunarcrush.com/api4/public"
	}
	if cfg.Trends.DefaultTopic == "" {
		cfg.Trends.DefaultTopic = "cryptocurrencies"
	}
	if !cfg.Agent.Enabled {
		cfg.Agent.Enabled = true
	}
	if cfg.Agent.CycleInterval == "" {
		cfg.Agent.CycleInterval = "1h"
	}
	if cfg.Agent.ResyncInterval == "" {
		cfg.Agent.ResyncInterval = "24h"
	}
	if cfg.Agent.BriefingInterval == "" {
		cfg.Agent.BriefingInterval = "24h"
	}
	if cfg.Agent.BackupInterval == "" {
		cfg.Agent.BackupInterval = "24h"
	}
	if cfg.Agent.BootupDelay == "" {
		cfg.Agent.BootupDelay = "30s"
	}
	if cfg.Agent.CacheTTL == "" {
		cfg.Agent.CacheTTL = "6h"
	}
	if cfg.Agent.SyncDelay == "" {
		cfg.Agent.SyncDelay = "2s"
	}
	if cfg.Agent.RetentionDays == 0 {
		cfg.Agent.RetentionDays = 30
	}
	if cfg.Agent.BackupLimit == 0 {
		cfg.Agent.BackupLimit = 500
	}

	return cfg, nil
}
