// pkg/connector/factory.go
package connector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/config"
	"github.com/David-Botos/dni-validator/pkg/converter"
)

// DriverDefault selects the configured SQL_DRIVER
const DriverDefault = "sql"

// SourceFactory creates table sources from source strings:
//
//	path/to/file.xlsx | path/to/file.csv
//	s3://bucket/key.xlsx
//	pgx:SELECT ... | postgres:SELECT ... | snowflake:SELECT ... | sql:SELECT ...
//
// Database connections and the S3 client are opened on first use and shared.
type SourceFactory struct {
	cfg       *config.Config
	logger    *zap.Logger
	converter *converter.TypeConverter
	s3        S3API
	dbs       map[string]*sqlx.DB
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) (*SourceFactory, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &SourceFactory{
		cfg:       cfg,
		logger:    logger,
		converter: converter.NewTypeConverterWithConfig(logger.Named("converter"), cfg.ConverterConfig()),
		dbs:       make(map[string]*sqlx.DB),
	}, nil
}

// WithS3Client sets the S3 client used for s3:// sources
func (f *SourceFactory) WithS3Client(client S3API) *SourceFactory {
	f.s3 = client
	return f
}

// WithDB registers an open connection for driver
func (f *SourceFactory) WithDB(driver string, db *sqlx.DB) *SourceFactory {
	f.dbs[driver] = db
	return f
}

// Create builds the source for location. label names the resulting table.
func (f *SourceFactory) Create(ctx context.Context, location, label string) (TableSource, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("%w: empty source for %s", ErrSourceNotFound, label)
	}

	if strings.HasPrefix(location, "s3://") {
		client, err := f.s3Client(ctx)
		if err != nil {
			return nil, err
		}
		return NewS3Source(client, location, label, f.logger, f.converter)
	}

	if driver, query, ok := splitQuery(location); ok {
		if driver == DriverDefault {
			driver = f.cfg.SQLDriver
		}
		db, err := f.database(ctx, driver)
		if err != nil {
			return nil, err
		}
		return NewQuerySource(db, driver, query, label, f.logger, f.converter)
	}

	return NewFileSource(location, label, f.logger, f.converter)
}

// S3Client returns the shared S3 client, creating it if needed
func (f *SourceFactory) S3Client(ctx context.Context) (S3API, error) {
	return f.s3Client(ctx)
}

func (f *SourceFactory) s3Client(ctx context.Context) (S3API, error) {
	if f.s3 != nil {
		return f.s3, nil
	}
	f.logger.Info("Creating S3 client", zap.String("region", f.cfg.S3.Region))
	client, err := NewS3Client(ctx, f.cfg.S3)
	if err != nil {
		return nil, err
	}
	f.s3 = client
	return client, nil
}

func (f *SourceFactory) database(ctx context.Context, driver string) (*sqlx.DB, error) {
	if db, ok := f.dbs[driver]; ok {
		return db, nil
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch driver {
	case DriverPgx, DriverPostgres:
		db, err = OpenPostgres(ctx, driver, f.cfg.Postgres, f.logger)
	case DriverSnowflake:
		db, err = OpenSnowflake(ctx, f.cfg.Snowflake, f.logger)
	default:
		return nil, fmt.Errorf("unsupported SQL driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	f.dbs[driver] = db
	return db, nil
}

// Close closes every database connection the factory opened
func (f *SourceFactory) Close() error {
	var errs []error
	for driver, db := range f.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s connection: %w", driver, err))
		}
		delete(f.dbs, driver)
	}
	return errors.Join(errs...)
}

// splitQuery recognizes "<driver>:<query>"
func splitQuery(location string) (driver, query string, ok bool) {
	i := strings.Index(location, ":")
	if i <= 0 {
		return "", "", false
	}
	switch prefix := strings.ToLower(location[:i]); prefix {
	case DriverPgx, DriverPostgres, DriverSnowflake, DriverDefault:
		return prefix, strings.TrimSpace(location[i+1:]), true
	default:
		return "", "", false
	}
}
