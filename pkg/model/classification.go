// pkg/model/classification.go
package model

import (
	"sort"
	"strings"
)

// Reason is a machine-readable rejection tag
type Reason string

const (
	ReasonNotInDetail      Reason = "no_en_detalles"
	ReasonNotInSubscribers Reason = "no_en_suscriptores"
	ReasonFlagged          Reason = "descargado"
	ReasonNoDays           Reason = "sin_dias"
	ReasonDaysExceeded     Reason = "dias>=30"
)

// ReasonSeparator joins reasons in the rejection column
const ReasonSeparator = ";"

// Number is a numeric value that may be absent
type Number struct {
	Value   float64
	Present bool
}

// Present wraps a value
func Present(v float64) Number {
	return Number{Value: v, Present: true}
}

// Absent is the missing number
var Absent = Number{}

// Cell renders the number as a table cell
func (n Number) Cell() Cell {
	if !n.Present {
		return EmptyCell()
	}
	return NumberCell(n.Value)
}

// ClassificationRecord is one RAW row with its derived verdict
type ClassificationRecord struct {
	Row     int      // Index of the row in the RAW table
	Key     string   // Canonical identity key
	Days    Number   // Days remaining associated with the key
	Reasons []Reason // Rejection reasons in rule order, empty if passed
}

// Passed reports whether the row has no rejection reason
func (r ClassificationRecord) Passed() bool {
	return len(r.Reasons) == 0
}

// Motive returns the reasons joined in rule order, or "" if passed
func (r ClassificationRecord) Motive() string {
	parts := make([]string, len(r.Reasons))
	for i, reason := range r.Reasons {
		parts[i] = string(reason)
	}
	return strings.Join(parts, ReasonSeparator)
}

// NormalizationOperation records a value rewritten during normalization
type NormalizationOperation struct {
	Table         string // Table label
	Column        string // Column that was normalized
	Row           int    // Row index in the table
	OriginalValue string // Value as read
	NewValue      string // Value after normalization
	Operation     string // Type of normalization (e.g., "identity_canonicalization")
	Reason        string // What changed (e.g., "stripped_separators,zero_padded")
}

// ReasonCount is one entry of the reason tally
type ReasonCount struct {
	Reason Reason `json:"motivo"`
	Count  int    `json:"cantidad"`
}

// RunSummary aggregates a run
type RunSummary struct {
	Total        int            `json:"total"`
	Valid        int            `json:"validos"`
	Rejected     int            `json:"rechazados"`
	ReasonCounts map[Reason]int `json:"motivos_counts"`
	Tally        []ReasonCount  `json:"-"`
}

// Summarize tallies every reason occurrence across all records. Tally
// entries follow order; reasons outside order are appended alphabetically.
func Summarize(records []ClassificationRecord, order []Reason) RunSummary {
	summary := RunSummary{
		Total:        len(records),
		ReasonCounts: make(map[Reason]int),
	}

	for _, rec := range records {
		if rec.Passed() {
			summary.Valid++
			continue
		}
		summary.Rejected++
		for _, reason := range rec.Reasons {
			summary.ReasonCounts[reason]++
		}
	}

	seen := make(map[Reason]bool, len(order))
	for _, reason := range order {
		if seen[reason] {
			continue
		}
		seen[reason] = true
		if n := summary.ReasonCounts[reason]; n > 0 {
			summary.Tally = append(summary.Tally, ReasonCount{Reason: reason, Count: n})
		}
	}

	var extra []Reason
	for reason := range summary.ReasonCounts {
		if !seen[reason] {
			extra = append(extra, reason)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, reason := range extra {
		summary.Tally = append(summary.Tally, ReasonCount{Reason: reason, Count: summary.ReasonCounts[reason]})
	}

	return summary
}
