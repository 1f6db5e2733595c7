// pkg/connector/query.go
package connector

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/converter"
	"github.com/David-Botos/dni-validator/pkg/model"
)

// QuerySource loads a table from the result set of a SQL query
type QuerySource struct {
	db        *sqlx.DB
	driver    string
	query     string
	label     string
	logger    *zap.Logger
	converter *converter.TypeConverter
}

// NewQuerySource creates a QuerySource running query on db
func NewQuerySource(
	db *sqlx.DB,
	driver, query, label string,
	logger *zap.Logger,
	conv *converter.TypeConverter,
) (*QuerySource, error) {
	if db == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if query == "" {
		return nil, errors.New("query cannot be empty")
	}
	if conv == nil {
		conv = converter.NewTypeConverter(logger)
	}
	return &QuerySource{
		db:        db,
		driver:    driver,
		query:     query,
		label:     label,
		logger:    logger.Named("query-source"),
		converter: conv,
	}, nil
}

// Name returns the driver and query
func (s *QuerySource) Name() string {
	return s.driver + ":" + s.query
}

// Load runs the query and reads every row
func (s *QuerySource) Load(ctx context.Context) (*model.Table, error) {
	rows, err := s.db.QueryxContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var data [][]model.Cell
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(data)+1, err)
		}
		row := make([]model.Cell, len(values))
		for i, v := range values {
			row[i] = s.converter.FromValue(v)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	table, err := model.FromRows(s.label, buildHeader(columns, len(columns)), data)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loaded table from query",
		zap.String("driver", s.driver),
		zap.String("table", s.label),
		zap.Int("rows", table.Len()),
		zap.Int("columns", len(columns)))

	return table, nil
}
