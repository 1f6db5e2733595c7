// pkg/export/exporter.go
package export

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/model"
)

// Targets are the four tabular artifact paths
type Targets struct {
	ValidXLSX    string
	RejectedXLSX string
	ValidCSV     string
	RejectedCSV  string
}

// Exporter writes the valid and rejected subsets in both formats
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates a new Exporter
func NewExporter(logger *zap.Logger) (*Exporter, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Exporter{logger: logger.Named("exporter")}, nil
}

// Export renders both subsets against raw and writes the four files
func (e *Exporter) Export(
	raw *model.Table,
	valid, rejected []model.ClassificationRecord,
	identityColumn string,
	targets Targets,
) error {
	start := time.Now()

	validSheet := BuildSheet(raw, valid, identityColumn)
	rejectedSheet := BuildSheet(raw, rejected, identityColumn)

	writes := []struct {
		path  string
		sheet Sheet
		write func(Sheet, string) error
	}{
		{targets.ValidXLSX, validSheet, WriteXLSX},
		{targets.RejectedXLSX, rejectedSheet, WriteXLSX},
		{targets.ValidCSV, validSheet, WriteCSV},
		{targets.RejectedCSV, rejectedSheet, WriteCSV},
	}

	for _, w := range writes {
		if w.path == "" {
			return errors.New("export target path cannot be empty")
		}
		if err := w.write(w.sheet, w.path); err != nil {
			return fmt.Errorf("failed to write %s: %w", w.path, err)
		}
		e.logger.Debug("Wrote artifact",
			zap.String("path", w.path),
			zap.Int("rows", len(w.sheet.Rows)))
	}

	e.logger.Info("Exported subsets",
		zap.Int("valid_rows", len(valid)),
		zap.Int("rejected_rows", len(rejected)),
		zap.Duration("duration", time.Since(start)))

	return nil
}
