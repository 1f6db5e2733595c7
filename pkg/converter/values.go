// pkg/converter/values.go
package converter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/model"
)

// FromValue converts a value scanned from a database driver into a cell
func (c *TypeConverter) FromValue(value interface{}) model.Cell {
	switch v := value.(type) {
	case nil:
		return model.EmptyCell()
	case string:
		return c.ParseRaw(v)
	case []byte:
		return c.ParseRaw(string(v))
	case int:
		return intCell(int64(v))
	case int8:
		return intCell(int64(v))
	case int16:
		return intCell(int64(v))
	case int32:
		return intCell(int64(v))
	case int64:
		return intCell(v)
	case uint, uint8, uint16, uint32, uint64:
		s := fmt.Sprintf("%d", v)
		f, _ := strconv.ParseFloat(s, 64)
		return model.Cell{Kind: model.CellNumber, Number: f, Text: s}
	case float32:
		return floatCell(float64(v))
	case float64:
		return floatCell(v)
	case bool:
		return model.TextCell(strconv.FormatBool(v))
	case time.Time:
		return model.TextCell(v.Format(time.RFC3339))
	default:
		c.logger.Debug("Converting unexpected value type to text",
			zap.String("type", fmt.Sprintf("%T", value)))
		return model.TextCell(fmt.Sprintf("%v", v))
	}
}

// ToNumber coerces a cell to a number. Missing and non-numeric values are
// absent; ok is false only when a non-empty value failed to coerce.
func ToNumber(cell model.Cell) (n model.Number, ok bool) {
	switch cell.Kind {
	case model.CellEmpty:
		return model.Absent, true
	case model.CellNumber:
		if math.IsNaN(cell.Number) {
			return model.Absent, true
		}
		return model.Present(cell.Number), true
	default:
		if isBlank(cell.Text) {
			return model.Absent, true
		}
		f, parsed := parseFloat(cell.Text)
		if !parsed {
			return model.Absent, false
		}
		return model.Present(f), true
	}
}

func intCell(v int64) model.Cell {
	return model.Cell{Kind: model.CellNumber, Number: float64(v), Text: strconv.FormatInt(v, 10)}
}

func floatCell(v float64) model.Cell {
	if math.IsNaN(v) {
		return model.EmptyCell()
	}
	return model.NumberCell(v)
}

// parseFloat parses plain decimal text; NaN, Inf, hex and digit separators are rejected
func parseFloat(s string) (float64, bool) {
	s = trim(s)
	if s == "" || strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// hasLeadingZero reports text like "0123" whose zeros a number would lose
func hasLeadingZero(s string) bool {
	return len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9'
}

func isBlank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}

func trim(s string) string {
	return strings.TrimFunc(s, unicode.IsSpace)
}
