package todoflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"todoflow/configs"
)

// Option is a function that configures a Todoflow instance
type Option func(*Config) error

// DBOption is a function that configures database settings
type DBOption func(*configs.DatabaseConfig) error

// Config holds all configuration for a Todoflow instance
type Config struct {
	// Database
	Driver   string
	DBMode   DBMode
	Database configs.DatabaseConfig
	PgPool   *pgxpool.Pool
	DB       *sqlx.DB

	// HTTP
	RoutePrefix string
	CORSOrigins []string
	WaitTimeout time.Duration

	// Worker Pool
	WorkerPoolSize int
	QueueSize      int
	JobTimeout     time.Duration

	// Reminders
	Reminder configs.ReminderConfig

	// Auth
	Auth configs.AuthConfig

	// Sessions
	RestartBackoff     time.Duration
	SessionIdleTimeout time.Duration

	// Logging
	Logger *zap.Logger
}

// DBMode represents the database connection mode
type DBMode int

const (
	// DBModeShared means Todoflow uses a connection provided by the app
	DBModeShared DBMode = iota

	// DBModeSeparate means Todoflow creates and manages its own connection
	DBModeSeparate
)

func (m DBMode) String() string {
	switch m {
	case DBModeShared:
		return "shared"
	case DBModeSeparate:
		return "separate"
	default:
		return "unknown"
	}
}

// WithMemoryStore keeps todos in process. Nothing survives a restart.
func WithMemoryStore() Option {
	return func(c *Config) error {
		c.Driver = configs.DriverMemory
		c.DBMode = DBModeSeparate
		return nil
	}
}

// WithPostgres configures Todoflow to open its own PostgreSQL pool.
// The pool will be closed by Shutdown.
func WithPostgres(url string, opts ...DBOption) Option {
	return separate(configs.DriverPostgres, url, opts)
}

// WithMySQL configures Todoflow to open its own MySQL connection.
// The connection will be closed by Shutdown.
func WithMySQL(dsn string, opts ...DBOption) Option {
	return separate(configs.DriverMySQL, dsn, opts)
}

func separate(driver, url string, opts []DBOption) Option {
	return func(c *Config) error {
		if url == "" {
			return fmt.Errorf("DSN cannot be empty")
		}
		c.Driver = driver
		c.DBMode = DBModeSeparate
		c.Database.Driver = driver
		c.Database.URL = url

		for _, opt := range opts {
			if err := opt(&c.Database); err != nil {
				return fmt.Errorf("database option error: %w", err)
			}
		}
		return nil
	}
}

// WithSharedPostgres uses an existing pool; Shutdown leaves it open
func WithSharedPostgres(pool *pgxpool.Pool) Option {
	return func(c *Config) error {
		if pool == nil {
			return fmt.Errorf("database pool cannot be nil")
		}
		c.Driver = configs.DriverPostgres
		c.DBMode = DBModeShared
		c.PgPool = pool
		return nil
	}
}

// WithSharedMySQL uses an existing connection; Shutdown leaves it open
func WithSharedMySQL(db *sqlx.DB) Option {
	return func(c *Config) error {
		if db == nil {
			return fmt.Errorf("database connection cannot be nil")
		}
		c.Driver = configs.DriverMySQL
		c.DBMode = DBModeShared
		c.DB = db
		return nil
	}
}

// WithMaxConnections sets the maximum number of open database connections
func WithMaxConnections(max int) DBOption {
	return func(c *configs.DatabaseConfig) error {
		if max <= 0 {
			return fmt.Errorf("max connections must be positive")
		}
		c.MaxConnections = max
		c.MaxOpenConns = max
		return nil
	}
}

// WithMaxIdleConnections sets the maximum number of idle MySQL connections
func WithMaxIdleConnections(max int) DBOption {
	return func(c *configs.DatabaseConfig) error {
		if max < 0 {
			return fmt.Errorf("max idle connections cannot be negative")
		}
		c.MaxIdleConns = max
		return nil
	}
}

// WithConnectionMaxLifetime sets the maximum lifetime of a database connection
func WithConnectionMaxLifetime(lifetime time.Duration) DBOption {
	return func(c *configs.DatabaseConfig) error {
		if lifetime < 0 {
			return fmt.Errorf("connection max lifetime cannot be negative")
		}
		c.ConnMaxLifetime = lifetime
		return nil
	}
}

// WithConnectionMaxIdleTime sets the maximum idle time of a database connection
func WithConnectionMaxIdleTime(idleTime time.Duration) DBOption {
	return func(c *configs.DatabaseConfig) error {
		if idleTime < 0 {
			return fmt.Errorf("connection max idle time cannot be negative")
		}
		c.ConnMaxIdleTime = idleTime
		return nil
	}
}

// WithPollInterval sets how often the MySQL store re-reads a watched list
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) error {
		if interval <= 0 {
			return fmt.Errorf("poll interval must be positive")
		}
		c.Database.PollInterval = interval
		return nil
	}
}

// WithAutoMigration enables or disables schema migration on New.
// Defaults to true
func WithAutoMigration(enabled bool) Option {
	return func(c *Config) error {
		c.Database.AutoMigrate = enabled
		return nil
	}
}

// WithRoutePrefix sets the HTTP route prefix for the API.
// Defaults to "/api/v1"
func WithRoutePrefix(prefix string) Option {
	return func(c *Config) error {
		if prefix == "" {
			return fmt.Errorf("route prefix cannot be empty")
		}
		c.RoutePrefix = prefix
		return nil
	}
}

// WithCORSOrigins allows browser clients from origins ("*" for any)
func WithCORSOrigins(origins ...string) Option {
	return func(c *Config) error {
		c.CORSOrigins = nil
		for _, o := range origins {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
		return nil
	}
}

// WithWaitTimeout bounds how long a request waits for a session to load or
// a mutation to finish. Defaults to 5 seconds
func WithWaitTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("wait timeout must be positive")
		}
		c.WaitTimeout = timeout
		return nil
	}
}

// WithWorkerPoolSize sets the number of worker pool workers.
// Defaults to 8
func WithWorkerPoolSize(size int) Option {
	return func(c *Config) error {
		if size <= 0 {
			return fmt.Errorf("worker pool size must be positive")
		}
		c.WorkerPoolSize = size
		return nil
	}
}

// WithQueueSize sets how many jobs may wait for a worker
func WithQueueSize(size int) Option {
	return func(c *Config) error {
		if size <= 0 {
			return fmt.Errorf("queue size must be positive")
		}
		c.QueueSize = size
		return nil
	}
}

// WithJobTimeout bounds a single mutation or reminder delivery
func WithJobTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("job timeout must be positive")
		}
		c.JobTimeout = timeout
		return nil
	}
}

// WithWebhook posts due reminders to url. With a secret each request
// carries an X-Signature header.
func WithWebhook(url, secret string) Option {
	return func(c *Config) error {
		if url == "" {
			return fmt.Errorf("webhook url cannot be empty")
		}
		c.Reminder.WebhookURL = url
		c.Reminder.WebhookSecret = secret
		return nil
	}
}

// WithWebhookTimeout sets the HTTP timeout of one webhook attempt.
// Defaults to 10 seconds
func WithWebhookTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("webhook timeout must be positive")
		}
		c.Reminder.WebhookTimeout = timeout
		return nil
	}
}

// WithWebhookAttempts sets how many times a failing webhook is tried
func WithWebhookAttempts(attempts int) Option {
	return func(c *Config) error {
		if attempts <= 0 {
			return fmt.Errorf("webhook attempts must be positive")
		}
		c.Reminder.WebhookMaxAttempts = attempts
		return nil
	}
}

// WithCircuitBreaker configures the breaker guarding the webhook
func WithCircuitBreaker(maxFailures int, resetTimeout time.Duration) Option {
	return func(c *Config) error {
		if maxFailures <= 0 || resetTimeout <= 0 {
			return fmt.Errorf("circuit breaker settings must be positive")
		}
		c.Reminder.BreakerMaxFailures = maxFailures
		c.Reminder.BreakerResetTimeout = resetTimeout
		return nil
	}
}

// WithJWT sets the HS256 secret, issuer and lifetime of bearer tokens
func WithJWT(secret, issuer string, ttl time.Duration) Option {
	return func(c *Config) error {
		if secret == "" {
			return fmt.Errorf("jwt secret cannot be empty")
		}
		if ttl <= 0 {
			return fmt.Errorf("token ttl must be positive")
		}
		c.Auth.JWTSecret = secret
		if issuer != "" {
			c.Auth.Issuer = issuer
		}
		c.Auth.TokenTTL = ttl
		return nil
	}
}

// WithRestartBackoff sets the delay before a failed subscription restarts
func WithRestartBackoff(backoff time.Duration) Option {
	return func(c *Config) error {
		if backoff <= 0 {
			return fmt.Errorf("restart backoff must be positive")
		}
		c.RestartBackoff = backoff
		return nil
	}
}

// WithSessionIdleTimeout stops sessions without requests or stream clients
// for d. Zero keeps them until shutdown.
func WithSessionIdleTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return fmt.Errorf("session idle timeout must not be negative")
		}
		c.SessionIdleTimeout = d
		return nil
	}
}

// WithLogger sets a custom logger.
// Defaults to global zap logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.Logger = logger
		return nil
	}
}

// FromConfig applies a loaded configuration file. Options given after it
// override its values.
func FromConfig(cfg *configs.Config) Option {
	return func(c *Config) error {
		if cfg == nil {
			return fmt.Errorf("config cannot be nil")
		}

		c.Driver = cfg.Database.Driver
		c.DBMode = DBModeSeparate
		poll := c.Database.PollInterval
		c.Database = cfg.Database
		if c.Database.PollInterval <= 0 {
			c.Database.PollInterval = poll
		}

		if cfg.Server.RoutePrefix != "" {
			c.RoutePrefix = cfg.Server.RoutePrefix
		}
		c.CORSOrigins = cfg.Server.CORSOrigins
		if cfg.Server.WaitTimeout > 0 {
			c.WaitTimeout = cfg.Server.WaitTimeout
		}

		if cfg.Worker.PoolSize > 0 {
			c.WorkerPoolSize = cfg.Worker.PoolSize
		}
		if cfg.Worker.QueueSize > 0 {
			c.QueueSize = cfg.Worker.QueueSize
		}
		if cfg.Worker.JobTimeout > 0 {
			c.JobTimeout = cfg.Worker.JobTimeout
		}

		c.Reminder = mergeReminder(c.Reminder, cfg.Reminder)

		c.Auth.JWTSecret = cfg.Auth.JWTSecret
		if cfg.Auth.Issuer != "" {
			c.Auth.Issuer = cfg.Auth.Issuer
		}
		if cfg.Auth.TokenTTL > 0 {
			c.Auth.TokenTTL = cfg.Auth.TokenTTL
		}

		if cfg.Session.RestartBackoff > 0 {
			c.RestartBackoff = cfg.Session.RestartBackoff
		}
		c.SessionIdleTimeout = cfg.Session.IdleTimeout
		return nil
	}
}

func mergeReminder(dst, src configs.ReminderConfig) configs.ReminderConfig {
	dst.WebhookURL = src.WebhookURL
	dst.WebhookSecret = src.WebhookSecret
	if src.WebhookTimeout > 0 {
		dst.WebhookTimeout = src.WebhookTimeout
	}
	if src.WebhookMaxAttempts > 0 {
		dst.WebhookMaxAttempts = src.WebhookMaxAttempts
	}
	if src.BreakerMaxFailures > 0 {
		dst.BreakerMaxFailures = src.BreakerMaxFailures
	}
	if src.BreakerResetTimeout > 0 {
		dst.BreakerResetTimeout = src.BreakerResetTimeout
	}
	return dst
}
