// pkg/model/table.go
package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CellKind identifies what a cell holds
type CellKind int

const (
	// CellEmpty is a missing value (blank spreadsheet cell, SQL NULL)
	CellEmpty CellKind = iota
	// CellNumber is a numeric value
	CellNumber
	// CellText is any other value, kept as text
	CellText
)

// Cell is a single scalar value of a table
type Cell struct {
	Kind   CellKind
	Text   string  // Text value, or the raw representation a number was read from
	Number float64 // Only meaningful when Kind == CellNumber
}

// EmptyCell returns a missing value
func EmptyCell() Cell {
	return Cell{Kind: CellEmpty}
}

// TextCell returns a text value
func TextCell(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

// NumberCell returns a numeric value without a raw representation
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Number: f}
}

// IsEmpty reports whether the cell is missing
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// String renders the cell as plain text. Numbers keep the representation
// they were read from; numbers built in memory never use exponent notation.
func (c Cell) String() string {
	switch c.Kind {
	case CellEmpty:
		return ""
	case CellNumber:
		if c.Text != "" {
			return c.Text
		}
		return FormatNumber(c.Number)
	default:
		return c.Text
	}
}

// FormatNumber renders a float as plain decimal text ("30", "29.9")
func FormatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Column is a named sequence of cells
type Column struct {
	Name  string
	Cells []Cell
}

// Table is an ordered set of name-indexed columns of equal length.
// Tables are read-only once built: derived data is held in new values.
type Table struct {
	Name    string // Source label used in logs and errors
	columns []Column
	index   map[string]int
	rows    int
}

// NewTable builds a table from columns. All columns must have the same
// length and distinct names.
func NewTable(name string, columns ...Column) (*Table, error) {
	t := &Table{
		Name:    name,
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}

	for i, col := range columns {
		if _, dup := t.index[col.Name]; dup {
			return nil, fmt.Errorf("table %s: duplicate column %q", name, col.Name)
		}
		if i == 0 {
			t.rows = len(col.Cells)
		} else if len(col.Cells) != t.rows {
			return nil, fmt.Errorf("table %s: column %q has %d cells, expected %d",
				name, col.Name, len(col.Cells), t.rows)
		}

		cells := make([]Cell, len(col.Cells))
		copy(cells, col.Cells)
		t.index[col.Name] = len(t.columns)
		t.columns = append(t.columns, Column{Name: col.Name, Cells: cells})
	}

	return t, nil
}

// FromRows builds a table from a header and row-major cells. Short rows are
// padded with empty cells; cells beyond the header are dropped.
func FromRows(name string, header []string, rows [][]Cell) (*Table, error) {
	if len(header) == 0 && len(rows) > 0 {
		return nil, errors.New("table " + name + ": rows without a header")
	}

	columns := make([]Column, len(header))
	for i, h := range header {
		columns[i] = Column{Name: h, Cells: make([]Cell, len(rows))}
	}

	for r, row := range rows {
		for c := range columns {
			if c < len(row) {
				columns[c].Cells[r] = row[c]
			} else {
				columns[c].Cells[r] = EmptyCell()
			}
		}
	}

	return NewTable(name, columns...)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return t.rows
}

// ColumnNames returns the column names in table order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// HasColumn reports whether a column with exactly this name exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the cells of a column. The slice must not be modified.
func (t *Table) Column(name string) ([]Cell, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i].Cells, true
}

// GetColumnByName returns the column whose name matches case-insensitively.
// When several do, the last one in table order wins. Returns an empty string
// if not found.
func (t *Table) GetColumnByName(name string) string {
	normalized := strings.ToLower(name)
	for i := len(t.columns) - 1; i >= 0; i-- {
		if strings.ToLower(t.columns[i].Name) == normalized {
			return t.columns[i].Name
		}
	}
	return ""
}

// Cell returns a single value; out-of-range lookups return an empty cell
func (t *Table) Cell(column string, row int) Cell {
	cells, ok := t.Column(column)
	if !ok || row < 0 || row >= len(cells) {
		return EmptyCell()
	}
	return cells[row]
}

// Row returns a copy of a row in column order
func (t *Table) Row(row int) []Cell {
	out := make([]Cell, len(t.columns))
	for i, col := range t.columns {
		if row >= 0 && row < len(col.Cells) {
			out[i] = col.Cells[row]
		}
	}
	return out
}
