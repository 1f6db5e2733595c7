// pkg/export/xlsx.go
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/David-Botos/dni-validator/pkg/model"
)

const (
	sheetName = "Sheet1"
	// Built-in number format "@"
	textNumFmt = 49
)

// WriteXLSX writes sheet to path. The identity column is formatted as text
// and its values are written as strings.
func WriteXLSX(sheet Sheet, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	textStyle, err := f.NewStyle(&excelize.Style{
		NumFmt: textNumFmt,
	})
	if err != nil {
		return fmt.Errorf("failed to create text style: %w", err)
	}
	textHeaderStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		NumFmt: textNumFmt,
	})
	if err != nil {
		return fmt.Errorf("failed to create identity header style: %w", err)
	}

	header := make([]interface{}, len(sheet.Headers))
	for i, h := range sheet.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for r, row := range sheet.Rows {
		values := make([]interface{}, len(row))
		for c, cell := range row {
			if c == sheet.IdentityIndex {
				values[c] = cell.String()
				continue
			}
			values[c] = cellValue(cell)
		}
		start, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, start, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	if len(sheet.Headers) > 0 {
		last, err := excelize.CoordinatesToCellName(len(sheet.Headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	if sheet.IdentityIndex >= 0 && sheet.IdentityIndex < len(sheet.Headers) {
		col, err := excelize.ColumnNumberToName(sheet.IdentityIndex + 1)
		if err != nil {
			return err
		}
		if err := f.SetColStyle(sheetName, col, textStyle); err != nil {
			return fmt.Errorf("failed to set identity column format: %w", err)
		}
		if err := f.SetCellStyle(sheetName, col+"1", col+"1", textHeaderStyle); err != nil {
			return fmt.Errorf("failed to style identity header: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, 14); err != nil {
			return fmt.Errorf("failed to set identity column width: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

// cellValue maps a cell to the value excelize should store
func cellValue(cell model.Cell) interface{} {
	switch cell.Kind {
	case model.CellNumber:
		return cell.Number
	case model.CellText:
		return cell.Text
	default:
		return nil
	}
}
