package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jensholdgaard/auction-block/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
auction:
  name: Premier Auction 2026
  teams:
    - name: Alpha
      money: 5000
    - name: Bravo
      money: 4800
  players:
    - name: Player One
      base_bid: 100
    - name: Player Two
      base_bid: 80
  bid_increment_rules:
    - [0, 10]
    - [500, 50]
log:
  dir: /var/lib/auctiond
server:
  port: 9090
  shutdown_timeout: 5s
telemetry:
  service_name: auctiond
  otlp_endpoint: localhost:4318
  insecure: true
archive:
  enabled: true
  host: db.internal
  dbname: auctions
  user: auctiond
  password: secret
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Auction.Name != "Premier Auction 2026" {
		t.Errorf("auction name = %q", cfg.Auction.Name)
	}
	if len(cfg.Auction.Teams) != 2 || cfg.Auction.Teams[1].Money != 4800 {
		t.Errorf("teams = %+v", cfg.Auction.Teams)
	}
	if len(cfg.Auction.Players) != 2 || cfg.Auction.Players[0].BaseBid != 100 {
		t.Errorf("players = %+v", cfg.Auction.Players)
	}
	if len(cfg.Auction.BidIncrementRules) != 2 || cfg.Auction.BidIncrementRules[1] != [2]int{500, 50} {
		t.Errorf("rules = %+v", cfg.Auction.BidIncrementRules)
	}
	if cfg.Log.Dir != "/var/lib/auctiond" {
		t.Errorf("log dir = %q", cfg.Log.Dir)
	}
	if cfg.Server.Port != 9090 || cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if !cfg.Archive.Enabled || cfg.Archive.Host != "db.internal" {
		t.Errorf("archive = %+v", cfg.Archive)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
auction:
  name: Minimal
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("default shutdown timeout = %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Log.Dir != "." {
		t.Errorf("default log dir = %q", cfg.Log.Dir)
	}
	if cfg.Archive.Enabled {
		t.Error("archive should default to disabled")
	}
	if cfg.Archive.Driver != "postgres" || cfg.Archive.Port != 5432 {
		t.Errorf("archive defaults = %+v", cfg.Archive)
	}
	if cfg.Telemetry.ServiceName != "auctiond" {
		t.Errorf("telemetry service name = %q", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AUCTION_LOG_DIR", "/tmp/logs")
	t.Setenv("AUCTION_ARCHIVE_PASSWORD", "from-env")
	t.Setenv("AUCTION_SERVER_PORT", "7070")

	path := writeConfig(t, `
auction:
  name: EnvTest
log:
  dir: /from/yaml
archive:
  password: from-yaml
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Log.Dir != "/tmp/logs" {
		t.Errorf("log dir = %q, want env override", cfg.Log.Dir)
	}
	if cfg.Archive.Password != "from-env" {
		t.Errorf("archive password = %q, want env override", cfg.Archive.Password)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "bad archive driver",
			content: `
archive:
  enabled: true
  driver: mysql
`,
		},
		{
			name: "negative rule threshold",
			content: `
auction:
  bid_increment_rules:
    - [-1, 10]
`,
		},
		{
			name: "zero rule increment",
			content: `
auction:
  bid_increment_rules:
    - [100, 0]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := config.Load(path); err == nil {
				t.Error("Load() should have failed")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestArchiveConfig_DSN(t *testing.T) {
	cfg := config.ArchiveConfig{
		Host: "localhost", Port: 5432, User: "u", Password: "p", DBName: "auctions", SSLMode: "disable",
	}
	want := "host=localhost port=5432 user=u password=p dbname=auctions sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
