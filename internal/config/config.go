// Package config provides YAML-based configuration loading for reportflow.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Destination resolution strategies. StrategyAssigned posts to the group
// pre-assigned to the submitter; StrategyInteractive asks the submitter to
// pick a group after the photo step.
const (
	StrategyAssigned    = "assigned"
	StrategyInteractive = "interactive"
)

// Config is the top-level reportflow configuration, loaded from config.yaml.
type Config struct {
	Platform   string          `yaml:"platform"` // "discord" or "slack"
	Strategy   string          `yaml:"strategy"` // "assigned" or "interactive"
	ApproverID string          `yaml:"approver_id"`
	Trigger    string          `yaml:"trigger"` // message text that starts a report
	Discord    DiscordConfig   `yaml:"discord"`
	Slack      SlackConfig     `yaml:"slack"`
	Database   DatabaseConfig  `yaml:"database"`
	Redis      RedisConfig     `yaml:"redis"`
	Session    SessionConfig   `yaml:"session"`
	Sheets     SheetsConfig    `yaml:"sheets"`
	Dashboard  DashboardConfig `yaml:"dashboard"`
	Digest     DigestConfig    `yaml:"digest"`
}

// DiscordConfig holds Discord bot credentials and the default channel.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// SlackConfig holds Slack Socket Mode credentials and the default channel.
type SlackConfig struct {
	AppToken  string `yaml:"app_token"`
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DatabaseConfig holds connection settings for the relational store.
// Driver "sqlite" uses Path; driver "mysql" uses the remaining fields.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Path     string `yaml:"path"`
}

// RedisConfig holds connection settings for the redis session store.
// An empty Addr selects the in-memory store instead.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SessionConfig controls conversational session expiry.
type SessionConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

// SheetsConfig points at the Google service-account credentials file.
type SheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
}

// DashboardConfig controls the read-only ops HTTP server.
type DashboardConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// DigestConfig controls the scheduled pending-report digest.
type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// Load reads a YAML config file from path and returns a validated Config.
// Secrets are overlaid from the environment (a .env file is honored when
// present) so tokens never have to live in config.yaml.
func Load(path string) (*Config, error) {
	godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays secret fields from environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("REPORTFLOW_DISCORD_TOKEN"); v != "" {
		c.Discord.BotToken = v
	}
	if v := os.Getenv("REPORTFLOW_SLACK_APP_TOKEN"); v != "" {
		c.Slack.AppToken = v
	}
	if v := os.Getenv("REPORTFLOW_SLACK_BOT_TOKEN"); v != "" {
		c.Slack.BotToken = v
	}
	if v := os.Getenv("REPORTFLOW_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("REPORTFLOW_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Strategy == "" {
		c.Strategy = StrategyAssigned
	}
	if c.Trigger == "" {
		c.Trigger = "/report"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "reportflow"
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Path == "" {
		c.Database.Path = "reportflow.db"
	}
	if c.Session.TTLMinutes <= 0 {
		c.Session.TTLMinutes = 60
	}
	if c.Sheets.CredentialsFile == "" {
		c.Sheets.CredentialsFile = "credentials.json"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.Digest.Cron == "" {
		c.Digest.Cron = "0 9 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Platform {
	case "discord":
		if c.Discord.BotToken == "" {
			errs = append(errs, "discord.bot_token is required (or REPORTFLOW_DISCORD_TOKEN)")
		}
	case "slack":
		if c.Slack.AppToken == "" {
			errs = append(errs, "slack.app_token is required (or REPORTFLOW_SLACK_APP_TOKEN)")
		}
		if c.Slack.BotToken == "" {
			errs = append(errs, "slack.bot_token is required (or REPORTFLOW_SLACK_BOT_TOKEN)")
		}
	case "":
		errs = append(errs, "platform is required")
	default:
		errs = append(errs, fmt.Sprintf("platform %q is not supported (discord, slack)", c.Platform))
	}
	if c.Strategy != StrategyAssigned && c.Strategy != StrategyInteractive {
		errs = append(errs, fmt.Sprintf("strategy %q is not supported (%s, %s)", c.Strategy, StrategyAssigned, StrategyInteractive))
	}
	if c.ApproverID == "" {
		errs = append(errs, "approver_id is required")
	}
	if c.Database.Driver != "mysql" && c.Database.Driver != "sqlite" {
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (mysql, sqlite)", c.Database.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
