// pkg/cleaner/cleaner.go
package cleaner

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/model"
)

const operationCanonicalization = "identity_canonicalization"

// IdentityNormalizer canonicalizes identity columns and keeps track of the
// values it rewrote
type IdentityNormalizer struct {
	logger *zap.Logger
}

// NewIdentityNormalizer creates a new IdentityNormalizer instance
func NewIdentityNormalizer(logger *zap.Logger) (*IdentityNormalizer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &IdentityNormalizer{
		logger: logger.Named("identity-normalizer"),
	}, nil
}

// NormalizeColumn returns the canonical key of every row of column, in row
// order, together with the operations that changed a value. The table is not
// modified.
func (n *IdentityNormalizer) NormalizeColumn(
	table *model.Table,
	column string,
) ([]string, []model.NormalizationOperation, error) {
	if table == nil {
		return nil, nil, errors.New("table cannot be nil")
	}

	cells, ok := table.Column(column)
	if !ok {
		return nil, nil, fmt.Errorf("table %s has no column %q", table.Name, column)
	}

	keys := make([]string, len(cells))
	var operations []model.NormalizationOperation

	for row, cell := range cells {
		original := cell.String()
		key, reasons := canonicalizeWithReasons(original)
		keys[row] = key

		if cell.IsEmpty() {
			reasons = append([]string{reasonMissingValue}, reasons...)
		}
		if len(reasons) == 0 {
			continue
		}

		operations = append(operations, model.NormalizationOperation{
			Table:         table.Name,
			Column:        column,
			Row:           row,
			OriginalValue: original,
			NewValue:      key,
			Operation:     operationCanonicalization,
			Reason:        strings.Join(reasons, ","),
		})
	}

	n.logOperations(table.Name, column, len(cells), operations)

	return keys, operations, nil
}

// logOperations logs a per-reason summary at info and each operation at debug
func (n *IdentityNormalizer) logOperations(
	table, column string,
	rows int,
	operations []model.NormalizationOperation,
) {
	counts := CountByReason(operations)
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	fields := []zap.Field{
		zap.String("table", table),
		zap.String("column", column),
		zap.Int("rows", rows),
		zap.Int("rewritten", len(operations)),
	}
	for _, reason := range reasons {
		fields = append(fields, zap.Int(reason, counts[reason]))
	}
	n.logger.Info("Normalized identity column", fields...)

	if !n.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	for _, op := range operations {
		n.logger.Debug("Identity value rewritten",
			zap.Int("row", op.Row),
			zap.String("original", op.OriginalValue),
			zap.String("canonical", op.NewValue),
			zap.String("reason", op.Reason))
	}
}

// CountByReason counts operations per individual reason
func CountByReason(operations []model.NormalizationOperation) map[string]int {
	counts := make(map[string]int)
	for _, op := range operations {
		for _, reason := range strings.Split(op.Reason, ",") {
			if reason != "" {
				counts[reason]++
			}
		}
	}
	return counts
}
