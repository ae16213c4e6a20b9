// Package config provides configuration parsing for partition-archiver.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/fgeck/partition-archiver/internal/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultPort is used when DATABASE_URL carries no port.
const DefaultPort = "5432"

// Parser handles configuration parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	_ = v.BindEnv("database.url", "DATABASE_URL")

	v.SetDefault("dump.binary", "pg_dump")
	v.SetDefault("dump.output_dir", ".")
	v.SetDefault("dump.compression", "zstd:9")
	v.SetDefault("catalog.order", models.OrderBound)

	return &Parser{v: v}
}

// LoadDotEnv loads a .env file from the working directory if one exists.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading .env: %w", err)
}

// Load builds the configuration from the environment only.
func (p *Parser) Load() (*models.AppConfig, error) {
	return p.parse()
}

// LoadFile loads configuration from a file path. An empty path is the same as Load.
func (p *Parser) LoadFile(path string) (*models.AppConfig, error) {
	if path == "" {
		return p.parse()
	}

	p.v.SetConfigFile(path)
	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a string (useful for testing).
func (p *Parser) LoadReader(content string) (*models.AppConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

//nolint:gocognit // parsing config requires checking many fields
func (p *Parser) parse() (*models.AppConfig, error) {
	cfg := &models.AppConfig{}

	// DATABASE_URL is taken verbatim: passwords may contain '$'.
	rawURL := os.Getenv("DATABASE_URL")
	if rawURL == "" {
		rawURL = p.expandEnv(p.v.GetString("database.url"))
	}
	if rawURL == "" {
		return nil, models.ErrMissingDatabaseURL
	}

	conn, err := ParseConnectionURL(rawURL)
	if err != nil {
		return nil, err
	}
	cfg.Connection = *conn

	cfg.Dump = models.DumpSettings{
		Binary:      p.v.GetString("dump.binary"),
		OutputDir:   p.expandEnv(p.v.GetString("dump.output_dir")),
		Compression: p.v.GetString("dump.compression"),
	}

	cfg.Order = p.v.GetString("catalog.order")
	validOrders := map[string]bool{models.OrderBound: true, models.OrderChronological: true}
	if !validOrders[cfg.Order] {
		return nil, fmt.Errorf("catalog.order must be one of: bound, chronological")
	}

	// Parse optional restic config.
	if p.v.IsSet("restic") {
		cfg.Restic = &models.ResticConfig{
			Repository:   p.expandEnv(p.v.GetString("restic.repository")),
			Password:     p.expandEnv(p.v.GetString("restic.password")),
			RestUser:     p.expandEnv(p.v.GetString("restic.rest_user")),
			RestPassword: p.expandEnv(p.v.GetString("restic.rest_password")),
			Tags:         p.v.GetStringSlice("restic.tags"),
			Host:         p.v.GetString("restic.host"),
		}

		if cfg.Restic.Repository == "" {
			return nil, fmt.Errorf("restic.repository is required when restic is configured")
		}
		if cfg.Restic.Password == "" {
			return nil, fmt.Errorf("restic.password is required when restic is configured")
		}
		if len(cfg.Restic.Tags) == 0 {
			cfg.Restic.Tags = []string{"partition-archiver"}
		}
		if cfg.Restic.Host == "" {
			hostname, err := os.Hostname()
			if err != nil {
				cfg.Restic.Host = "unknown"
			} else {
				cfg.Restic.Host = hostname
			}
		}
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("telegram.chat_id")),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// ParseConnectionURL derives the connection descriptor from a postgres URL.
func ParseConnectionURL(raw string) (*models.ConnectionConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	port := u.Port()
	if port == "" {
		port = DefaultPort
	}

	password, _ := u.User.Password()

	return &models.ConnectionConfig{
		URL:      raw,
		Host:     u.Hostname(),
		Port:     port,
		Username: u.User.Username(),
		Password: password,
		Database: strings.TrimPrefix(u.Path, "/"),
	}, nil
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.Connection.URL == "" {
		return models.ErrMissingDatabaseURL
	}

	if cfg.Dump.Binary == "" {
		return fmt.Errorf("dump.binary is required")
	}

	return nil
}
