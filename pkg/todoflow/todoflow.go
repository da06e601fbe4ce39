// Package todoflow embeds the multi-user todo service into a host
// application: storage, live sessions, reminders and the HTTP API.
package todoflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"todoflow/auth"
	"todoflow/callback"
	"todoflow/configs"
	"todoflow/delivery/rest"
	"todoflow/delivery/websocket"
	"todoflow/domain/repository"
	"todoflow/infrastructure/circuitbreaker"
	"todoflow/infrastructure/worker"
	"todoflow/metrics"
	"todoflow/reminder"
	"todoflow/repository/memory"
	"todoflow/repository/mysql"
	"todoflow/repository/postgres"
	"todoflow/todo"
)

// Todoflow is the main struct that wires the todo service together
type Todoflow struct {
	// Core components
	store      repository.Store
	workerPool worker.WorkerPool
	scheduler  *reminder.Scheduler
	callback   *callback.Service
	gateway    *todo.Gateway
	manager    *todo.Manager
	hub        *websocket.Hub
	tokens     *auth.TokenService
	metrics    *metrics.Metrics
	handler    *rest.Handler

	// Database
	pgPool  *pgxpool.Pool
	db      *sqlx.DB
	closeDB bool

	// Configuration
	config *Config
	logger *zap.Logger

	// Lifecycle
	started bool
	stopped bool
	mu      sync.RWMutex
}

// New creates a new Todoflow instance with functional options
func New(opts ...Option) (*Todoflow, error) {
	cfg := &Config{
		Driver:         configs.DriverMemory,
		DBMode:         DBModeSeparate,
		RoutePrefix:    "/api/v1",
		WaitTimeout:    rest.DefaultWaitTimeout,
		WorkerPoolSize: 8,
		QueueSize:      256,
		JobTimeout:     10 * time.Second,
		Reminder: configs.ReminderConfig{
			WebhookTimeout:      10 * time.Second,
			WebhookMaxAttempts:  3,
			BreakerMaxFailures:  5,
			BreakerResetTimeout: 60 * time.Second,
		},
		Auth: configs.AuthConfig{
			Issuer:   "todoflow",
			TokenTTL: 24 * time.Hour,
		},
		RestartBackoff:     2 * time.Second,
		SessionIdleTimeout: 15 * time.Minute,
		Logger:             zap.L(),
	}
	cfg.Database.AutoMigrate = true
	cfg.Database.PollInterval = 2 * time.Second

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	t := &Todoflow{
		config: cfg,
		logger: cfg.Logger,
	}

	if err := t.setupDatabase(); err != nil {
		return nil, fmt.Errorf("database setup failed: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := t.RunMigrations(context.Background()); err != nil {
			t.closeDatabase()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}

	t.initComponents()

	t.logger.Info("Todoflow initialized",
		zap.String("driver", cfg.Driver),
		zap.String("db_mode", cfg.DBMode.String()),
		zap.Int("worker_pool_size", cfg.WorkerPoolSize),
		zap.String("route_prefix", cfg.RoutePrefix),
		zap.Bool("webhook", cfg.Reminder.WebhookURL != ""),
	)

	return t, nil
}

func validate(cfg *Config) error {
	switch cfg.Driver {
	case configs.DriverMemory:
	case configs.DriverPostgres:
		if cfg.DBMode == DBModeShared && cfg.PgPool == nil {
			return fmt.Errorf("shared DB mode requires a database pool")
		}
		if cfg.DBMode == DBModeSeparate && cfg.Database.URL == "" {
			return fmt.Errorf("separate DB mode requires DSN")
		}
	case configs.DriverMySQL:
		if cfg.DBMode == DBModeShared && cfg.DB == nil {
			return fmt.Errorf("shared DB mode requires DB connection")
		}
		if cfg.DBMode == DBModeSeparate && cfg.Database.URL == "" {
			return fmt.Errorf("separate DB mode requires DSN")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	return nil
}

func (t *Todoflow) setupDatabase() error {
	cfg := t.config
	log := t.logger.Named("database")

	switch cfg.Driver {
	case configs.DriverPostgres:
		if cfg.DBMode == DBModeShared {
			t.pgPool = cfg.PgPool
			log.Info("Using shared PostgreSQL pool")
			return nil
		}
		log.Info("Creating PostgreSQL pool", zap.String("dsn", maskDSN(cfg.Database.URL)))
		pool, err := postgres.NewConnection(&cfg.Database, log)
		if err != nil {
			return err
		}
		t.pgPool = pool
		t.closeDB = true

	case configs.DriverMySQL:
		if cfg.DBMode == DBModeShared {
			t.db = cfg.DB
			log.Info("Using shared MySQL connection")
			return nil
		}
		log.Info("Creating MySQL connection", zap.String("dsn", maskDSN(cfg.Database.URL)))
		db, err := mysql.NewConnection(&cfg.Database, log)
		if err != nil {
			return err
		}
		t.db = db
		t.closeDB = true
	}
	return nil
}

func (t *Todoflow) initComponents() {
	cfg := t.config
	t.logger.Debug("Initializing components")

	t.metrics = metrics.New()

	switch cfg.Driver {
	case configs.DriverPostgres:
		t.store = postgres.NewTodoRepository(t.pgPool, t.logger.Named("postgres"))
	case configs.DriverMySQL:
		t.store = mysql.NewTodoRepository(t.db, cfg.Database.PollInterval, t.logger.Named("mysql"))
	default:
		t.store = memory.NewTodoRepository()
	}

	t.workerPool = worker.NewWorkerPool(cfg.QueueSize, cfg.JobTimeout, t.logger.Named("worker"))

	t.hub = websocket.NewHub(t.logger.Named("websocket"), t.metrics)

	notifiers := reminder.Fanout{
		reminder.LogNotifier(t.logger.Named("reminder")),
		t.hub,
	}
	if cfg.Reminder.WebhookURL != "" {
		cb := circuitbreaker.NewCircuitBreaker(
			cfg.Reminder.BreakerMaxFailures,
			cfg.Reminder.BreakerResetTimeout,
			t.logger.Named("circuitbreaker"),
		)
		t.callback = callback.NewService(
			cfg.Reminder.WebhookURL,
			cfg.Reminder.WebhookTimeout,
			cb,
			cfg.Reminder.WebhookSecret,
			cfg.Reminder.WebhookMaxAttempts,
			t.logger.Named("callback"),
		)
		notifiers = append(notifiers, t.callback)
	}

	t.scheduler = reminder.NewScheduler(notifiers, t.workerPool,
		reminder.WithLogger(t.logger.Named("reminder")),
		reminder.WithObserver(t.metrics),
	)

	t.gateway = todo.NewGateway(t.store, t.scheduler, auth.ContextIdentity{}, t.workerPool,
		todo.WithGatewayLogger(t.logger.Named("gateway")),
		todo.WithRecorder(t.metrics),
	)

	t.manager = todo.NewManager(t.store, t.gateway,
		todo.WithRestartBackoff(cfg.RestartBackoff),
		todo.WithIdleTimeout(cfg.SessionIdleTimeout),
		todo.WithKeepAlive(t.hub.HasClients),
		todo.WithManagerLogger(t.logger.Named("manager")),
		todo.WithSessionObserver(t.metrics),
	)
	t.manager.OnSnapshot(t.hub.PublishSnapshot)

	t.tokens = auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	t.handler = rest.NewHandler(t.manager,
		rest.WithHub(t.hub),
		rest.WithReminders(t.scheduler),
		rest.WithHealth(t.HealthCheck),
		rest.WithWaitTimeout(cfg.WaitTimeout),
		rest.WithLogger(t.logger.Named("http")),
	)

	t.logger.Debug("Components initialized")
}

func (t *Todoflow) closeDatabase() error {
	if !t.closeDB {
		return nil
	}
	if t.pgPool != nil {
		t.pgPool.Close()
	}
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}

// maskDSN masks sensitive information in DSN for logging
func maskDSN(dsn string) string {
	if len(dsn) > 20 {
		return dsn[:20] + "***"
	}
	return "***"
}
