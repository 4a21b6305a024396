// Package config loads the auctiond configuration: YAML file first, then
// environment variable overrides for the values an operator is likely to
// inject at deploy time (log paths, archive credentials, OTLP endpoint).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Auction   AuctionConfig   `yaml:"auction"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// TeamEntry is one roster team in the setup config.
type TeamEntry struct {
	Name  string `yaml:"name"`
	Money int    `yaml:"money"`
}

// PlayerEntry is one roster player in the setup config.
type PlayerEntry struct {
	Name    string `yaml:"name"`
	BaseBid int    `yaml:"base_bid"`
}

// AuctionConfig holds the initial rosters and bid increment rules for a new
// auction. Ignored when resuming from an existing log, whose header is then
// the source of truth.
type AuctionConfig struct {
	Name              string        `yaml:"name"`
	Teams             []TeamEntry   `yaml:"teams"`
	Players           []PlayerEntry `yaml:"players"`
	BidIncrementRules [][2]int      `yaml:"bid_increment_rules"`
}

// LogConfig holds auction log file settings.
type LogConfig struct {
	// Dir is where new log files are created when Path is empty.
	Dir string `yaml:"dir" env:"AUCTION_LOG_DIR"`
	// Path pins the log file location for a new auction.
	Path string `yaml:"path" env:"AUCTION_LOG_PATH"`
}

// ServerConfig holds HTTP health server settings.
type ServerConfig struct {
	Port            int           `yaml:"port" env:"AUCTION_SERVER_PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" env:"AUCTION_OTLP_ENDPOINT"`
	Insecure       bool   `yaml:"insecure"`
}

// ArchiveConfig holds settings for the optional Postgres mirror of the
// auction log.
type ArchiveConfig struct {
	Enabled  bool   `yaml:"enabled" env:"AUCTION_ARCHIVE_ENABLED"`
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host" env:"AUCTION_ARCHIVE_HOST"`
	Port     int    `yaml:"port" env:"AUCTION_ARCHIVE_PORT"`
	User     string `yaml:"user" env:"AUCTION_ARCHIVE_USER"`
	Password string `yaml:"password" env:"AUCTION_ARCHIVE_PASSWORD"`
	DBName   string `yaml:"dbname" env:"AUCTION_ARCHIVE_DBNAME"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the Postgres connection string.
func (a ArchiveConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		a.Host, a.Port, a.User, a.Password, a.DBName, a.SSLMode,
	)
}

// Load reads a YAML configuration file and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{
		Auction: AuctionConfig{
			Name: "Untitled Auction",
		},
		Log: LogConfig{
			Dir: ".",
		},
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "auctiond",
			ServiceVersion: "0.1.0",
		},
		Archive: ArchiveConfig{
			Driver:  "postgres",
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.Archive.Enabled && c.Archive.Driver != "postgres" {
		return fmt.Errorf("unsupported archive driver %q: must be \"postgres\"", c.Archive.Driver)
	}
	for i, rule := range c.Auction.BidIncrementRules {
		if rule[0] < 0 || rule[1] <= 0 {
			return fmt.Errorf("bid_increment_rules[%d]: threshold must be >= 0 and increment > 0, got [%d,%d]", i, rule[0], rule[1])
		}
	}
	return nil
}
