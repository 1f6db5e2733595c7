// pkg/export/partition.go
package export

import (
	"github.com/David-Botos/dni-validator/pkg/model"
)

// Derived output columns
const (
	ColumnReason = "_motivo_rechazo"
	ColumnDays   = "_dias_assoc"
)

// DefaultIdentityColumn names the synthesized identity column when the
// caller has none
const DefaultIdentityColumn = "DNI"

// Sheet is a rendered subset ready to be serialized
type Sheet struct {
	Headers       []string
	Rows          [][]model.Cell
	IdentityIndex int // Position of the identity column in Headers
}

// Partition splits records into passed and rejected, keeping input order
func Partition(records []model.ClassificationRecord) (valid, rejected []model.ClassificationRecord) {
	valid = make([]model.ClassificationRecord, 0, len(records))
	rejected = make([]model.ClassificationRecord, 0, len(records))
	for _, rec := range records {
		if rec.Passed() {
			valid = append(valid, rec)
		} else {
			rejected = append(rejected, rec)
		}
	}
	return valid, rejected
}

// BuildSheet renders records against the RAW table. Each row keeps the RAW
// columns, with the identity column replaced by the canonical key as text
// (inserted first when RAW has no such column), followed by the rejection
// reasons and the associated days value.
func BuildSheet(raw *model.Table, records []model.ClassificationRecord, identityColumn string) Sheet {
	if identityColumn == "" {
		identityColumn = DefaultIdentityColumn
	}

	var rawNames []string
	if raw != nil {
		rawNames = raw.ColumnNames()
	}

	headers := make([]string, 0, len(rawNames)+3)
	synthesized := raw == nil || !raw.HasColumn(identityColumn)
	if synthesized {
		headers = append(headers, identityColumn)
	}
	headers = append(headers, rawNames...)

	identityIdx := indexOf(headers, identityColumn)
	reasonIdx := indexOf(headers, ColumnReason)
	if reasonIdx < 0 {
		headers = append(headers, ColumnReason)
		reasonIdx = len(headers) - 1
	}
	daysIdx := indexOf(headers, ColumnDays)
	if daysIdx < 0 {
		headers = append(headers, ColumnDays)
		daysIdx = len(headers) - 1
	}

	offset := 0
	if synthesized {
		offset = 1
	}

	rows := make([][]model.Cell, len(records))
	for i, rec := range records {
		row := make([]model.Cell, len(headers))
		if raw != nil {
			for c, cell := range raw.Row(rec.Row) {
				row[c+offset] = cell
			}
		}

		row[identityIdx] = model.TextCell(rec.Key)
		if motive := rec.Motive(); motive != "" {
			row[reasonIdx] = model.TextCell(motive)
		} else {
			row[reasonIdx] = model.EmptyCell()
		}
		row[daysIdx] = rec.Days.Cell()

		rows[i] = row
	}

	return Sheet{Headers: headers, Rows: rows, IdentityIndex: identityIdx}
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
