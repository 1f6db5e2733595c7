// pkg/connector/postgres.go
package connector

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/config"
)

// PostgreSQL driver names
const (
	DriverPgx      = "pgx"      // github.com/jackc/pgx/v4/stdlib
	DriverPostgres = "postgres" // github.com/lib/pq
)

// OpenPostgres connects to PostgreSQL through driver and verifies the connection
func OpenPostgres(ctx context.Context, driver string, cfg *config.PostgresConfig, logger *zap.Logger) (*sqlx.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("postgreSQL configuration is required for %s sources", driver)
	}
	if driver != DriverPgx && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported PostgreSQL driver %q", driver)
	}

	logger = logger.Named("postgres-connector")

	// Log connection attempt
	logger.Info("Connecting to PostgreSQL",
		zap.String("driver", driver),
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	db, err := sqlx.Open(driver, cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	// Configure connection pool
	ApplyConnectionSettings(
		db.DB,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	// Verify connection
	if err := PingWithTimeout(ctx, db.DB, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// Set statement timeout if configured
	if cfg.StatementTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("SET statement_timeout = %d", cfg.StatementTimeout.Milliseconds()),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	LogConnectionStats(logger, cfg.Database, db.DB)
	return db, nil
}
