package connector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/converter"
	"github.com/David-Botos/dni-validator/pkg/model"
)

func testConverter() *converter.TypeConverter {
	return converter.NewTypeConverter(zap.NewNop())
}

func TestParseCSV(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("DNI,dias,DNI,\n00012345,10,x,y\n,,,\n2.345.678,abc,,\n")...)

	table, err := ParseCSV(data, "suscriptores", testConverter())
	require.NoError(t, err)

	assert.Equal(t, []string{"DNI", "dias", "DNI.1", "Unnamed: 3"}, table.ColumnNames())
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, model.TextCell("00012345"), table.Cell("DNI", 0))
	assert.Equal(t, model.CellNumber, table.Cell("dias", 0).Kind)
	assert.Equal(t, "2.345.678", table.Cell("DNI", 1).String())
	assert.Equal(t, "abc", table.Cell("dias", 1).String())
	assert.True(t, table.Cell("DNI.1", 1).IsEmpty())
}

func TestParseCSVSemicolonWindows1252(t *testing.T) {
	data := []byte("N\xba documento;d\xedas\n12345678;29,9\n")

	table, err := ParseCSV(data, "raw", testConverter())
	require.NoError(t, err)

	assert.Equal(t, []string{"Nº documento", "días"}, table.ColumnNames())
	assert.Equal(t, "12345678", table.Cell("Nº documento", 0).String())
	assert.Equal(t, model.TextCell("29,9"), table.Cell("días", 0))
}

func TestParseCSVWidensHeader(t *testing.T) {
	table, err := ParseCSV([]byte("DNI\n1,extra\n"), "raw", testConverter())
	require.NoError(t, err)
	assert.Equal(t, []string{"DNI", "Unnamed: 1"}, table.ColumnNames())
	assert.Equal(t, "extra", table.Cell("Unnamed: 1", 0).String())
}

func TestBuildHeaderSuffixes(t *testing.T) {
	assert.Equal(t,
		[]string{"a", "a.1", "a.2", "a.1.1", "Unnamed: 4"},
		buildHeader([]string{"a", "a", "a", "a.1", ""}, 5))
}

func writeWorkbook(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestFileSourceLoadsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bruto.xlsx")
	writeWorkbook(t, path, [][]interface{}{
		{"DNI", "nombre", "dias"},
		{"00012345", "Ana", 10},
		{nil, nil, nil},
		{12345678, "Luis", 29.9},
	})

	src, err := NewFileSource(path, "raw", zap.NewNop(), nil)
	require.NoError(t, err)
	assert.Equal(t, path, src.Name())

	table, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "raw", table.Name)
	assert.Equal(t, []string{"DNI", "nombre", "dias"}, table.ColumnNames())
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "00012345", table.Cell("DNI", 0).String())
	assert.Equal(t, "12345678", table.Cell("DNI", 1).String())
	assert.Equal(t, 29.9, table.Cell("dias", 1).Number)
}

func TestFileSourceSkipsBlankRowsBeforeHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suscriptores.xlsx")
	writeWorkbook(t, path, [][]interface{}{
		{nil, nil},
		{"DNI", "dias"},
		{"12345678", 10},
	})

	src, err := NewFileSource(path, "subscribers", zap.NewNop(), nil)
	require.NoError(t, err)
	table, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"DNI", "dias"}, table.ColumnNames())
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "12345678", table.Cell("DNI", 0).String())
	assert.Equal(t, float64(10), table.Cell("dias", 0).Number)
}

func TestParseCSVSkipsBlankRowsBeforeHeader(t *testing.T) {
	table, err := ParseCSV([]byte(",\n , \nDNI,dias\n1,2\n"), "raw", testConverter())
	require.NoError(t, err)
	assert.Equal(t, []string{"DNI", "dias"}, table.ColumnNames())
	assert.Equal(t, 1, table.Len())
}

func TestFileSourceLoadsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detalles.csv")
	require.NoError(t, os.WriteFile(path, []byte("DNI\n1\n2\n"), 0o644))

	src, err := NewFileSource(path, "", zap.NewNop(), nil)
	require.NoError(t, err)

	table, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "detalles.csv", table.Name)
	assert.Equal(t, 2, table.Len())
}

func TestFileSourceMissingFile(t *testing.T) {
	src, err := NewFileSource(filepath.Join(t.TempDir(), "nope.xlsx"), "raw", zap.NewNop(), nil)
	require.NoError(t, err)

	_, err = src.Load(context.Background())
	assert.True(t, errors.Is(err, ErrSourceNotFound))
}

func TestFileSourceRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tabla.ods")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	src, err := NewFileSource(path, "raw", zap.NewNop(), nil)
	require.NoError(t, err)

	_, err = src.Load(context.Background())
	assert.Error(t, err)
}

func TestFileSourceHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src, err := NewFileSource("bruto.xlsx", "raw", zap.NewNop(), nil)
	require.NoError(t, err)

	_, err = src.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
