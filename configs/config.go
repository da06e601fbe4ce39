package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported database drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Worker   WorkerConfig
	Reminder ReminderConfig
	Auth     AuthConfig
	Session  SessionConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	RoutePrefix string   `mapstructure:"route_prefix"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// how long a ?wait=true mutation or a first snapshot is awaited
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type WorkerConfig struct {
	PoolSize   int           `mapstructure:"pool_size"`
	QueueSize  int           `mapstructure:"queue_size"`
	JobTimeout time.Duration `mapstructure:"job_timeout"`
}

type ReminderConfig struct {
	WebhookURL          string        `mapstructure:"webhook_url"`
	WebhookSecret       string        `mapstructure:"webhook_secret"`
	WebhookTimeout      time.Duration `mapstructure:"webhook_timeout"`
	WebhookMaxAttempts  int           `mapstructure:"webhook_max_attempts"`
	BreakerMaxFailures  int           `mapstructure:"breaker_max_failures"`
	BreakerResetTimeout time.Duration `mapstructure:"breaker_reset_timeout"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type SessionConfig struct {
	RestartBackoff time.Duration `mapstructure:"restart_backoff"`
	// sessions nobody asked for during IdleTimeout are stopped; 0 disables
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// durationKeys are read as strings and parsed explicitly so that values
// from the environment ("5s") and the file behave the same
var durationKeys = map[string]func(*Config) *time.Duration{
	"server.wait_timeout":            func(c *Config) *time.Duration { return &c.Server.WaitTimeout },
	"database.conn_max_lifetime":     func(c *Config) *time.Duration { return &c.Database.ConnMaxLifetime },
	"database.conn_max_idle_time":    func(c *Config) *time.Duration { return &c.Database.ConnMaxIdleTime },
	"database.poll_interval":         func(c *Config) *time.Duration { return &c.Database.PollInterval },
	"worker.job_timeout":             func(c *Config) *time.Duration { return &c.Worker.JobTimeout },
	"reminder.webhook_timeout":       func(c *Config) *time.Duration { return &c.Reminder.WebhookTimeout },
	"reminder.breaker_reset_timeout": func(c *Config) *time.Duration { return &c.Reminder.BreakerResetTimeout },
	"auth.token_ttl":                 func(c *Config) *time.Duration { return &c.Auth.TokenTTL },
	"session.restart_backoff":        func(c *Config) *time.Duration { return &c.Session.RestartBackoff },
	"session.idle_timeout":           func(c *Config) *time.Duration { return &c.Session.IdleTimeout },
}

// LoadConfig loads configuration from config.yaml and environment variables
// Environment variables (TODOFLOW_SERVER_PORT, ...) take precedence over
// config file values
//
// Config file search order (first found is used):
// 1. Path from TODOFLOW_CONFIG_FILE environment variable
// 2. ./configs/config.yaml (relative to working directory)
// 3. <executable_dir>/configs/config.yaml
// 4. <project_root>/configs/config.yaml (detected by go.mod)
//
// Without any config file the defaults and environment are used.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("TODOFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := parseDurations(v, &config); err != nil {
		return nil, fmt.Errorf("failed to parse durations: %w", err)
	}

	// comma separated in the environment
	if origins := os.Getenv("TODOFLOW_SERVER_CORS_ORIGINS"); origins != "" {
		config.Server.CORSOrigins = splitList(origins)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// findConfigFile searches for config.yaml in multiple locations
func findConfigFile() string {
	if envPath := os.Getenv("TODOFLOW_CONFIG_FILE"); envPath != "" {
		if fileExists(envPath) {
			return envPath
		}
	}

	candidates := []string{
		"./configs/config.yaml",
		"./config.yaml",
	}

	if exeDir, err := getExecutableDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(exeDir, "configs", "config.yaml"),
			filepath.Join(exeDir, "config.yaml"),
		)
	}

	if projectRoot, err := findProjectRoot(); err == nil {
		candidates = append(candidates,
			filepath.Join(projectRoot, "configs", "config.yaml"),
			filepath.Join(projectRoot, "config.yaml"),
		)
	}

	for _, candidate := range candidates {
		absPath, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if fileExists(absPath) {
			return absPath
		}
	}

	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func getExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// findProjectRoot walks up from the working directory to the first go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if fileExists(filepath.Join(dir, "go.mod")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.route_prefix", "/api/v1")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.wait_timeout", "5s")

	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("database.poll_interval", "2s")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("worker.pool_size", 8)
	v.SetDefault("worker.queue_size", 256)
	v.SetDefault("worker.job_timeout", "10s")

	v.SetDefault("reminder.webhook_url", "")
	v.SetDefault("reminder.webhook_secret", "")
	v.SetDefault("reminder.webhook_timeout", "10s")
	v.SetDefault("reminder.webhook_max_attempts", 3)
	v.SetDefault("reminder.breaker_max_failures", 5)
	v.SetDefault("reminder.breaker_reset_timeout", "1m")

	v.SetDefault("auth.jwt_secret", "change-this-in-production")
	v.SetDefault("auth.issuer", "todoflow")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("session.restart_backoff", "2s")
	v.SetDefault("session.idle_timeout", "15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// parseDurations parses duration strings into time.Duration values
func parseDurations(v *viper.Viper, config *Config) error {
	for key, field := range durationKeys {
		raw := v.GetString(key)
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*field(config) = d
	}
	return nil
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case DriverMemory:
	case DriverPostgres, DriverMySQL:
		if config.Database.URL == "" {
			return fmt.Errorf("database.url is required for driver %q", config.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver must be one of memory, postgres, mysql (got %q)", config.Database.Driver)
	}

	if config.Database.PollInterval <= 0 {
		return fmt.Errorf("database.poll_interval must be positive")
	}
	if config.Worker.PoolSize <= 0 {
		return fmt.Errorf("worker.pool_size must be positive")
	}
	if config.Worker.QueueSize <= 0 {
		return fmt.Errorf("worker.queue_size must be positive")
	}
	if config.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker.job_timeout must be positive")
	}
	if config.Server.WaitTimeout <= 0 {
		return fmt.Errorf("server.wait_timeout must be positive")
	}
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if config.Reminder.WebhookURL != "" && config.Reminder.WebhookTimeout <= 0 {
		return fmt.Errorf("reminder.webhook_timeout must be positive")
	}
	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if config.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if config.Session.IdleTimeout < 0 {
		return fmt.Errorf("session.idle_timeout must be non-negative")
	}
	if config.Session.RestartBackoff < 0 {
		return fmt.Errorf("session.restart_backoff must be non-negative")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
