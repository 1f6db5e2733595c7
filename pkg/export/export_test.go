package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/model"
)

func rawTable(t *testing.T) *model.Table {
	t.Helper()
	table, err := model.FromRows("raw", []string{"nombre", "DNI"}, [][]model.Cell{
		{model.TextCell("Ana"), model.NumberCell(12345)},
		{model.TextCell("Luis"), model.TextCell("2.345.678")},
		{model.TextCell("Eva"), model.TextCell("3")},
	})
	require.NoError(t, err)
	return table
}

func testRecords() []model.ClassificationRecord {
	return []model.ClassificationRecord{
		{Row: 0, Key: "00012345", Days: model.Present(10)},
		{Row: 1, Key: "02345678", Days: model.Present(45), Reasons: []model.Reason{model.ReasonDaysExceeded}},
		{Row: 2, Key: "00000003", Reasons: []model.Reason{model.ReasonNotInDetail, model.ReasonNotInSubscribers}},
	}
}

func TestPartitionPreservesOrder(t *testing.T) {
	records := append(testRecords(), model.ClassificationRecord{Row: 3, Key: "00000004"})

	valid, rejected := Partition(records)

	require.Len(t, valid, 2)
	require.Len(t, rejected, 2)
	assert.Equal(t, 0, valid[0].Row)
	assert.Equal(t, 3, valid[1].Row)
	assert.Equal(t, 1, rejected[0].Row)
	assert.Equal(t, 2, rejected[1].Row)
	assert.Equal(t, len(records), len(valid)+len(rejected))
}

func TestBuildSheet(t *testing.T) {
	sheet := BuildSheet(rawTable(t), testRecords(), "DNI")

	assert.Equal(t, []string{"nombre", "DNI", ColumnReason, ColumnDays}, sheet.Headers)
	assert.Equal(t, 1, sheet.IdentityIndex)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, model.TextCell("00012345"), sheet.Rows[0][1])
	assert.True(t, sheet.Rows[0][2].IsEmpty())
	assert.Equal(t, "10", sheet.Rows[0][3].String())
	assert.Equal(t, "dias>=30", sheet.Rows[1][2].String())
	assert.Equal(t, "no_en_detalles;no_en_suscriptores", sheet.Rows[2][2].String())
	assert.True(t, sheet.Rows[2][3].IsEmpty())
}

func TestBuildSheetSynthesizesIdentity(t *testing.T) {
	raw, err := model.FromRows("raw", []string{"nombre"}, [][]model.Cell{{model.TextCell("Ana")}})
	require.NoError(t, err)

	sheet := BuildSheet(raw, []model.ClassificationRecord{{Row: 0, Key: "00000001"}}, "documento")

	assert.Equal(t, []string{"documento", "nombre", ColumnReason, ColumnDays}, sheet.Headers)
	assert.Equal(t, 0, sheet.IdentityIndex)
	assert.Equal(t, "00000001", sheet.Rows[0][0].String())
	assert.Equal(t, "Ana", sheet.Rows[0][1].String())
}

func TestEncodeCSVPrefixesIdentity(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, BuildSheet(rawTable(t), testRecords()[:2], "DNI")))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"nombre", "DNI", "_motivo_rechazo", "_dias_assoc"},
		{"Ana", "'00012345", "", "10"},
		{"Luis", "'02345678", "dias>=30", "45"},
	}, records)
}

func TestWriteXLSXKeepsIdentityAsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validos.xlsx")
	require.NoError(t, WriteXLSX(BuildSheet(rawTable(t), testRecords(), "DNI"), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"nombre", "DNI", "_motivo_rechazo", "_dias_assoc"}, rows[0])
	assert.Equal(t, "00012345", rows[1][1])
	assert.Equal(t, "02345678", rows[2][1])

	cellType, err := f.GetCellType(f.GetSheetName(0), "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeNumber, cellType)

	styleID, err := f.GetCellStyle(f.GetSheetName(0), "B2")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	assert.Equal(t, textNumFmt, style.NumFmt)
}

func TestExporterWritesFourFiles(t *testing.T) {
	dir := t.TempDir()
	targets := Targets{
		ValidXLSX:    filepath.Join(dir, "validos.xlsx"),
		RejectedXLSX: filepath.Join(dir, "rechazados.xlsx"),
		ValidCSV:     filepath.Join(dir, "validos.csv"),
		RejectedCSV:  filepath.Join(dir, "rechazados.csv"),
	}

	exporter, err := NewExporter(zap.NewNop())
	require.NoError(t, err)

	valid, rejected := Partition(testRecords())
	require.NoError(t, exporter.Export(rawTable(t), valid, rejected, "DNI", targets))

	for _, p := range []string{targets.ValidXLSX, targets.RejectedXLSX, targets.ValidCSV, targets.RejectedCSV} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Greater(t, info.Size(), int64(0))
	}

	data, err := os.ReadFile(targets.RejectedCSV)
	require.NoError(t, err)
	assert.Contains(t, string(data), "'00000003,no_en_detalles;no_en_suscriptores,")
}

func TestExporterRejectsEmptyTarget(t *testing.T) {
	exporter, err := NewExporter(zap.NewNop())
	require.NoError(t, err)

	err = exporter.Export(rawTable(t), nil, nil, "DNI", Targets{})
	assert.Error(t, err)
}
