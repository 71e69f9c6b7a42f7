package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"marketplace/config"
	"marketplace/internal/domain/lifecycle"
	"marketplace/internal/errors"

	pgLib "github.com/slighter12/go-lib/database/postgres"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const (
	poolCheckInterval    = 5 * time.Second
	poolWaitWarnAfter    = 50 * time.Millisecond
	defaultAppName       = "marketplace-identity"
	defaultStmtTimeout   = 5 * time.Second
	defaultLockTimeout   = 2 * time.Second
	defaultIdleTxTimeout = 10 * time.Second
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New opens the identity database. The connection is pinged, and the tables
// migrated when env.autoMigrate is set, on application start.
func New(params Params) (*gorm.DB, error) {
	conn := withIdentityDefaults(params.Config.Postgres, params.Config.Env.ServiceName)

	db, err := pgLib.New(conn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PostgreSQL client")
	}
	db = db.Session(&gorm.Session{
		// Multi-step writes go through TransactionManager.Execute.
		SkipDefaultTransaction: true,
		Logger:                 newGormSlogLogger(params.Logger, params.Config),
	})

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get PostgreSQL sql.DB")
	}

	monitor := &poolMonitor{logger: params.Logger, stats: sqlDB.Stats}
	monitorCtx, cancelMonitor := context.WithCancel(context.Background())

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := sqlDB.PingContext(ctx); err != nil {
				return errors.Wrap(err, "failed to ping PostgreSQL")
			}
			if err := migrateOnStart(ctx, db, params.Config, params.Logger); err != nil {
				return err
			}

			go monitor.run(monitorCtx, poolCheckInterval)

			return nil
		},
		OnStop: func(_ context.Context) error {
			cancelMonitor()

			return sqlDB.Close()
		},
	})

	return db, nil
}

// withIdentityDefaults returns a copy of conn with the session limits the
// identity tables are tuned for. Explicit configuration wins.
func withIdentityDefaults(conn *pgLib.DBConn, serviceName string) *pgLib.DBConn {
	tuned := *conn
	if tuned.ApplicationName == "" {
		tuned.ApplicationName = serviceName
	}
	if tuned.ApplicationName == "" {
		tuned.ApplicationName = defaultAppName
	}
	if tuned.StatementTimeout <= 0 {
		tuned.StatementTimeout = defaultStmtTimeout
	}
	if tuned.LockTimeout <= 0 {
		tuned.LockTimeout = defaultLockTimeout
	}
	if tuned.IdleInTransactionSessionTimeout <= 0 {
		tuned.IdleInTransactionSessionTimeout = defaultIdleTxTimeout
	}

	return &tuned
}

func migrateOnStart(ctx context.Context, db *gorm.DB, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.Env.AutoMigrate {
		return nil
	}
	if err := Migrate(db.WithContext(ctx)); err != nil {
		return err
	}
	logger.Info("Identity tables migrated", slog.Int("tables", len(Models())))

	return nil
}

// poolMonitor reports connection pool waits between two samples.
type poolMonitor struct {
	logger *slog.Logger
	stats  func() sql.DBStats
	prev   sql.DBStats
}

func (m *poolMonitor) run(ctx context.Context, interval time.Duration) {
	if m.logger == nil || m.stats == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.prev = m.stats()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.observe(ctx, m.stats())
		}
	}
}

// observe logs the wait accumulated since the previous sample, if any.
func (m *poolMonitor) observe(ctx context.Context, cur sql.DBStats) {
	waits := cur.WaitCount - m.prev.WaitCount
	waited := cur.WaitDuration - m.prev.WaitDuration
	m.prev = cur
	if waits <= 0 {
		return
	}

	level := slog.LevelDebug
	if waited >= poolWaitWarnAfter {
		level = slog.LevelWarn
	}
	m.logger.LogAttrs(ctx, level, "Postgres pool wait",
		slog.Int64("waits", waits),
		slog.Duration("waited", waited),
		slog.Duration("avgWait", waited/time.Duration(waits)),
		slog.Int("maxOpenConns", cur.MaxOpenConnections),
		slog.Int("inUse", cur.InUse),
		slog.Int("idle", cur.Idle),
	)
}
