// pkg/export/csv.go
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// TextPrefix marks identity values as text for spreadsheet imports
const TextPrefix = "'"

// WriteCSV writes sheet to path as comma separated UTF-8
func WriteCSV(sheet Sheet, path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close CSV file: %w", cerr)
		}
	}()

	return EncodeCSV(file, sheet)
}

// EncodeCSV writes sheet to w
func EncodeCSV(w io.Writer, sheet Sheet) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(sheet.Headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(sheet.Headers))
	for r, row := range sheet.Rows {
		for c := range record {
			if c >= len(row) {
				record[c] = ""
				continue
			}
			value := row[c].String()
			if c == sheet.IdentityIndex {
				value = TextPrefix + value
			}
			record[c] = value
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", r+1, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
