// pkg/converter/converter.go
package converter

import (
	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/model"
)

// TypeConverter turns values read from sources into table cells
type TypeConverter struct {
	logger *zap.Logger
	// Configuration options
	config TypeConverterConfig
}

// TypeConverterConfig provides configuration options for cell conversion
type TypeConverterConfig struct {
	// Trim surrounding whitespace from text values
	TrimText bool
	// Treat whitespace-only text as a missing value
	BlankAsEmpty bool
	// Keep numeric-looking text with leading zeros ("0123") as text
	PreserveLeadingZeros bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() TypeConverterConfig {
	return TypeConverterConfig{
		TrimText:             false,
		BlankAsEmpty:         true,
		PreserveLeadingZeros: true,
	}
}

// NewTypeConverter creates a new TypeConverter with default configuration
func NewTypeConverter(logger *zap.Logger) *TypeConverter {
	return NewTypeConverterWithConfig(logger, DefaultConfig())
}

// NewTypeConverterWithConfig creates a TypeConverter with custom configuration
func NewTypeConverterWithConfig(logger *zap.Logger, config TypeConverterConfig) *TypeConverter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TypeConverter{
		logger: logger,
		config: config,
	}
}

// ParseRaw converts raw cell text (spreadsheet or CSV) into a cell.
// Numeric-looking text becomes a number that keeps its raw representation.
func (c *TypeConverter) ParseRaw(raw string) model.Cell {
	if isBlank(raw) && c.config.BlankAsEmpty {
		return model.EmptyCell()
	}
	if raw == "" {
		return model.EmptyCell()
	}

	text := raw
	if c.config.TrimText {
		text = trim(raw)
	}

	if c.config.PreserveLeadingZeros && hasLeadingZero(trim(text)) {
		return model.TextCell(text)
	}

	if f, ok := parseFloat(text); ok {
		return model.Cell{Kind: model.CellNumber, Number: f, Text: trim(text)}
	}

	return model.TextCell(text)
}

// ParseRow converts a row of raw strings
func (c *TypeConverter) ParseRow(raw []string) []model.Cell {
	row := make([]model.Cell, len(raw))
	for i, v := range raw {
		row[i] = c.ParseRaw(v)
	}
	return row
}
