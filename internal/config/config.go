package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StoreDriver selects the installation store backend
type StoreDriver string

const (
	StoreDriverMemory   StoreDriver = "memory"
	StoreDriverSQLite   StoreDriver = "sqlite"
	StoreDriverPostgres StoreDriver = "postgres"
)

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxConnections  int
	IdleConnections int
	MaxLifetime     time.Duration
}

// Config holds all configuration for the Dash bot
type Config struct {
	// Slack configuration
	SlackBotToken      string
	SlackAppToken      string
	SlackSigningSecret string
	SlackClientID      string
	SlackClientSecret  string
	SlackRedirectURL   string
	SlackScopes        []string
	SocketMode         bool

	// Summarizer configuration
	AnthropicAPIKey  string
	AnthropicBaseURL string
	SummaryModel     string
	SummaryTimeout   time.Duration

	// Channel configuration
	ChannelPrefix       string
	DirectoryCacheTTL   time.Duration
	PinFetchConcurrency int

	// Logging configuration
	LogLevel    string
	LogFormat   string
	EnableDebug bool

	// Server configuration
	ServerPort      int
	ServerHost      string
	HealthCheckPath string

	// Installation store configuration
	StoreDriver StoreDriver
	SQLitePath  string
	Database    DatabaseConfig

	AppVersion string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		SocketMode:          true,
		SlackScopes:         []string{"channels:manage", "channels:join", "channels:read", "channels:history", "chat:write", "commands", "pins:read", "pins:write", "users:read"},
		SummaryModel:        "claude-haiku-4-5",
		SummaryTimeout:      time.Minute,
		ChannelPrefix:       "-",
		DirectoryCacheTTL:   30 * time.Second,
		PinFetchConcurrency: 8,
		LogLevel:            "info",
		LogFormat:           "json",
		ServerPort:          8080,
		ServerHost:          "0.0.0.0",
		HealthCheckPath:     "/health",
		StoreDriver:         StoreDriverMemory,
		SQLitePath:          "dash.db",
		// Database defaults
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "dash",
			User:            "dash",
			SSLMode:         "disable",
			MaxConnections:  10,
			IdleConnections: 2,
			MaxLifetime:     time.Hour,
		},
		AppVersion: "1.0.0",
	}

	var err error

	cfg.SlackBotToken = os.Getenv("SLACK_BOT_TOKEN")
	cfg.SlackAppToken = os.Getenv("SLACK_APP_TOKEN")
	cfg.SlackSigningSecret = os.Getenv("SLACK_SIGNING_SECRET")
	cfg.SlackClientID = os.Getenv("SLACK_CLIENT_ID")
	cfg.SlackClientSecret = os.Getenv("SLACK_CLIENT_SECRET")
	cfg.SlackRedirectURL = os.Getenv("SLACK_REDIRECT_URL")

	if val := os.Getenv("SLACK_SCOPES"); val != "" {
		cfg.SlackScopes = splitList(val)
	}

	if val := os.Getenv("SOCKET_MODE"); val != "" {
		cfg.SocketMode, err = strconv.ParseBool(val)
		if err != nil {
			return nil, fmt.Errorf("invalid SOCKET_MODE: %v", err)
		}
	}

	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.AnthropicBaseURL = os.Getenv("ANTHROPIC_BASE_URL")

	if val := os.Getenv("SUMMARY_MODEL"); val != "" {
		cfg.SummaryModel = val
	}

	if val := os.Getenv("SUMMARY_TIMEOUT"); val != "" {
		cfg.SummaryTimeout, err = time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid SUMMARY_TIMEOUT: %v", err)
		}
	}

	if val := os.Getenv("CHANNEL_PREFIX"); val != "" {
		cfg.ChannelPrefix = val
	}

	if val := os.Getenv("DIRECTORY_CACHE_TTL"); val != "" {
		cfg.DirectoryCacheTTL, err = time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid DIRECTORY_CACHE_TTL: %v", err)
		}
	}

	if val := os.Getenv("PIN_FETCH_CONCURRENCY"); val != "" {
		cfg.PinFetchConcurrency, err = strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid PIN_FETCH_CONCURRENCY: %v", err)
		}
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}

	if val := os.Getenv("LOG_FORMAT"); val != "" {
		cfg.LogFormat = val
	}

	if val := os.Getenv("DEBUG"); val != "" {
		cfg.EnableDebug, err = strconv.ParseBool(val)
		if err != nil {
			return nil, fmt.Errorf("invalid DEBUG: %v", err)
		}
	}

	if val := os.Getenv("SERVER_PORT"); val != "" {
		cfg.ServerPort, err = strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid SERVER_PORT: %v", err)
		}
	}

	if val := os.Getenv("SERVER_HOST"); val != "" {
		cfg.ServerHost = val
	}

	if val := os.Getenv("HEALTH_CHECK_PATH"); val != "" {
		cfg.HealthCheckPath = val
	}

	if val := os.Getenv("STORE_DRIVER"); val != "" {
		cfg.StoreDriver = StoreDriver(strings.ToLower(val))
	}

	if val := os.Getenv("SQLITE_PATH"); val != "" {
		cfg.SQLitePath = val
	}

	// Database configuration
	if val := os.Getenv("DATABASE_URL"); val != "" {
		cfg.Database.URL = val
	}

	if val := os.Getenv("DB_HOST"); val != "" {
		cfg.Database.Host = val
	}

	if val := os.Getenv("DB_PORT"); val != "" {
		cfg.Database.Port, err = strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT: %v", err)
		}
	}

	if val := os.Getenv("DB_NAME"); val != "" {
		cfg.Database.Name = val
	}

	if val := os.Getenv("DB_USER"); val != "" {
		cfg.Database.User = val
	}

	if val := os.Getenv("DB_PASSWORD"); val != "" {
		cfg.Database.Password = val
	}

	if val := os.Getenv("DB_SSLMODE"); val != "" {
		cfg.Database.SSLMode = val
	}

	if val := os.Getenv("DB_MAX_CONNECTIONS"); val != "" {
		cfg.Database.MaxConnections, err = strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_MAX_CONNECTIONS: %v", err)
		}
	}

	if val := os.Getenv("DB_IDLE_CONNECTIONS"); val != "" {
		cfg.Database.IdleConnections, err = strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_IDLE_CONNECTIONS: %v", err)
		}
	}

	if val := os.Getenv("DB_MAX_LIFETIME"); val != "" {
		cfg.Database.MaxLifetime, err = time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_MAX_LIFETIME: %v", err)
		}
	}

	if val := os.Getenv("APP_VERSION"); val != "" {
		cfg.AppVersion = val
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.SlackBotToken == "" && !c.OAuthEnabled() {
		return fmt.Errorf("slack bot token is required unless OAuth install is configured")
	}
	if c.SocketMode && c.SlackAppToken == "" {
		return fmt.Errorf("slack app token is required in socket mode")
	}
	if !c.SocketMode && c.SlackSigningSecret == "" {
		return fmt.Errorf("slack signing secret is required in HTTP mode")
	}
	if c.ChannelPrefix == "" {
		return fmt.Errorf("channel prefix must not be empty")
	}
	if c.DirectoryCacheTTL < 0 {
		return fmt.Errorf("directory cache TTL must not be negative")
	}
	if c.PinFetchConcurrency <= 0 {
		return fmt.Errorf("pin fetch concurrency must be positive")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	switch c.StoreDriver {
	case StoreDriverMemory, StoreDriverSQLite, StoreDriverPostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.OAuthEnabled() && c.StoreDriver == StoreDriverMemory {
		return fmt.Errorf("OAuth install needs a persistent store driver (sqlite or postgres)")
	}
	return nil
}

// OAuthEnabled reports whether multi-workspace install is configured
func (c *Config) OAuthEnabled() bool {
	return c.SlackClientID != "" && c.SlackClientSecret != ""
}

// SummariesEnabled reports whether an Anthropic key is configured
func (c *Config) SummariesEnabled() bool {
	return c.AnthropicAPIKey != ""
}

// Addr is the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
