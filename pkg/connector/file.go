// pkg/connector/file.go
package connector

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/David-Botos/dni-validator/pkg/converter"
	"github.com/David-Botos/dni-validator/pkg/model"
)

// Format is a tabular file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectFormat picks a format from a file name extension
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported file type %q", filepath.Ext(name))
	}
}

// FileSource loads a table from a local spreadsheet or CSV file
type FileSource struct {
	path      string
	label     string
	logger    *zap.Logger
	converter *converter.TypeConverter
}

// NewFileSource creates a FileSource for path. label names the table.
func NewFileSource(path, label string, logger *zap.Logger, conv *converter.TypeConverter) (*FileSource, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if conv == nil {
		conv = converter.NewTypeConverter(logger)
	}
	if label == "" {
		label = filepath.Base(path)
	}
	return &FileSource{
		path:      path,
		label:     label,
		logger:    logger.Named("file-source"),
		converter: conv,
	}, nil
}

// Name returns the file path
func (s *FileSource) Name() string {
	return s.path
}

// Load reads the whole file
func (s *FileSource) Load(ctx context.Context) (*model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, err := DetectFormat(s.path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	table, err := ParseTable(data, format, s.label, s.converter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}

	s.logger.Info("Loaded table",
		zap.String("path", s.path),
		zap.String("format", string(format)),
		zap.Int("rows", table.Len()),
		zap.Int("columns", len(table.ColumnNames())))

	return table, nil
}

// ParseTable parses file contents in the given format
func ParseTable(data []byte, format Format, label string, conv *converter.TypeConverter) (*model.Table, error) {
	switch format {
	case FormatXLSX:
		return ParseXLSX(bytes.NewReader(data), label, conv)
	case FormatCSV:
		return ParseCSV(data, label, conv)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// ParseXLSX reads the first sheet of a workbook. The first non-blank row is
// the header.
func ParseXLSX(r io.Reader, label string, conv *converter.TypeConverter) (*model.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("no sheets found in Excel file")
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	return tableFromRecords(label, rows, conv)
}

// ParseCSV reads comma or semicolon separated text. UTF-8 input may start
// with a byte order mark; anything that is not valid UTF-8 is decoded as
// Windows-1252.
func ParseCSV(data []byte, label string, conv *converter.TypeConverter) (*model.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode Windows-1252 text: %w", err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	return tableFromRecords(label, records, conv)
}

// detectDelimiter looks at the header line and prefers ';' when it occurs
// more often than ','
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

// tableFromRecords turns a header row plus data rows into a table. Fully
// blank rows are skipped, including those before the header.
func tableFromRecords(label string, records [][]string, conv *converter.TypeConverter) (*model.Table, error) {
	for len(records) > 0 && isBlankRow(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return model.FromRows(label, nil, nil)
	}

	width := len(records[0])
	data := make([][]model.Cell, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlankRow(rec) {
			continue
		}
		if len(rec) > width {
			width = len(rec)
		}
		data = append(data, conv.ParseRow(rec))
	}

	return model.FromRows(label, buildHeader(records[0], width), data)
}
