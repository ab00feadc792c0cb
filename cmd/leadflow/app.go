package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-redis/redis/v8"

	"github.com/fixora/leadflow/internal/adapter/events"
	"github.com/fixora/leadflow/internal/adapter/identity"
	"github.com/fixora/leadflow/internal/adapter/persistence"
	"github.com/fixora/leadflow/internal/config"
	"github.com/fixora/leadflow/internal/infra/logger"
	"github.com/fixora/leadflow/internal/infra/migrate"
	"github.com/fixora/leadflow/internal/infra/retry"
	"github.com/fixora/leadflow/internal/ports"
	"github.com/fixora/leadflow/internal/usecase"
)

// app holds the wired workflow and the resources it owns
type app struct {
	cfg        *config.Config
	logger     logger.Logger
	db         *sql.DB
	redis      *redis.Client
	identities ports.IdentityResolver
	workflow   *usecase.WorkflowUseCase
	reconciler *usecase.Reconciler

	// set with the memory storage driver only
	memLeads      *persistence.MemoryLeadDirectory
	memIdentities *identity.StaticResolver
}

// repositories holds all repository implementations
type repositories struct {
	Requests   ports.LeadStatusRequestRepository
	Archive    ports.ArchiveRepository
	ChangeLog  ports.ModificationLogRepository
	Leads      ports.LeadDirectory
	Identities ports.IdentityResolver
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: log}

	repos, err := a.initRepositories(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var publisher ports.EventPublisher = events.NewLogPublisher(log)
	identities := repos.Identities
	if cfg.Redis.Enabled {
		client, err := initRedis(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		identities = identity.NewCachedResolver(identities, identity.NewRedisCache(client), cfg.Workflow.IdentityCacheTTL, log)
		publisher = events.NewRedisPublisher(client, cfg.Workflow.EventChannel)
	}
	a.identities = identities

	policy, err := cfg.ApproverPolicy()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.workflow = usecase.NewWorkflowUseCase(usecase.WorkflowDeps{
		Ledger:     usecase.NewRequestLedger(repos.Requests, policy),
		Archive:    usecase.NewArchive(repos.Archive),
		ChangeLog:  usecase.NewChangeLogRecorder(repos.ChangeLog),
		Leads:      repos.Leads,
		Identities: identities,
		Events:     publisher,
		Logger:     log,
	}, usecase.WorkflowConfig{LogRejections: cfg.Workflow.LogRejections})

	a.reconciler = usecase.NewReconciler(
		a.workflow,
		retry.NewStrategy(cfg.ToRetryConfig(), log),
		cfg.Workflow.ReconcileInterval,
		log,
	)

	return a, nil
}

// initRepositories initializes the repositories of the configured driver
func (a *app) initRepositories(ctx context.Context) (repositories, error) {
	if a.cfg.Workflow.StorageDriver == config.StorageMemory {
		a.memLeads = persistence.NewMemoryLeadDirectory()
		a.memIdentities = identity.NewStaticResolver()
		if path := a.cfg.Workflow.SeedFile; path != "" {
			leads, identities, err := loadSeed(path, a.memLeads, a.memIdentities)
			if err != nil {
				return repositories{}, err
			}
			a.logger.Info(ctx, "Memory storage seeded", map[string]interface{}{
				"path":       path,
				"leads":      leads,
				"identities": identities,
			})
		} else {
			a.logger.Warn(ctx, "Memory storage started without a seed file", nil)
		}
		return repositories{
			Requests:   persistence.NewMemoryRequestRepository(),
			Archive:    persistence.NewMemoryArchiveRepository(),
			ChangeLog:  persistence.NewMemoryModificationLogRepository(),
			Leads:      a.memLeads,
			Identities: a.memIdentities,
		}, nil
	}

	db, err := initDatabase(ctx, a.cfg)
	if err != nil {
		return repositories{}, err
	}
	a.db = db
	a.logger.Info(ctx, "Database connection established", map[string]interface{}{
		"host": a.cfg.Database.Host,
		"name": a.cfg.Database.DBName,
	})

	return repositories{
		Requests:   persistence.NewPostgresRequestRepository(db),
		Archive:    persistence.NewPostgresArchiveRepository(db),
		ChangeLog:  persistence.NewPostgresModificationLogRepository(db),
		Leads:      persistence.NewPostgresLeadDirectory(db),
		Identities: identity.NewPostgresResolver(db),
	}, nil
}

// migrate applies pending schema migrations
func (a *app) migrate(ctx context.Context) (int, error) {
	if a.db == nil {
		return 0, errors.New("migrations require the postgres storage driver")
	}
	files, err := migrate.LoadFiles(a.cfg.Database.MigrationsPath)
	if err != nil {
		return 0, err
	}
	m := migrate.New(a.db, a.logger)
	if err := m.EnsureSchemaTable(ctx); err != nil {
		return 0, err
	}
	return m.Up(ctx, files)
}

// Close releases the database and Redis connections
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// initDatabase initializes the database connection
func initDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxConnections / 2)
	db.SetConnMaxIdleTime(cfg.Database.MaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// initRedis connects the client backing the identity cache and event channel
func initRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.Timeout,
		ReadTimeout:  cfg.Redis.Timeout,
		WriteTimeout: cfg.Redis.Timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// newLogger builds the process logger from configuration
func newLogger(cfg *config.Config, stdout, stderr io.Writer) logger.Logger {
	var output io.Writer = stderr
	if cfg.Logging.Output == "stdout" {
		output = stdout
	}
	if output == nil {
		output = os.Stderr
	}
	return logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      output,
		ServiceName: cfg.App.Name,
	})
}
