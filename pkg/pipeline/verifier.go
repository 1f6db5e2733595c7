// pkg/pipeline/verifier.go
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/cleaner"
	"github.com/David-Botos/dni-validator/pkg/model"
)

// IntegrityIssue is a verification failure
type IntegrityIssue struct {
	IssueType   string
	Description string
	Row         int // RAW row index, -1 when not row specific
}

// VerificationReport contains the results of a partition verification
type VerificationReport struct {
	VerificationTime time.Time
	TotalRows        int
	ValidRows        int
	RejectedRows     int
	Issues           []IntegrityIssue
	Duration         time.Duration
}

// Passed reports whether no issue was found
func (r *VerificationReport) Passed() bool {
	return len(r.Issues) == 0
}

// Error summarises the issues
func (r *VerificationReport) Error() string {
	parts := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.IssueType, issue.Description))
	}
	return strings.Join(parts, "; ")
}

// Verifier checks a classification before its artifacts are committed
type Verifier struct {
	logger *zap.Logger
}

// NewVerifier creates a new verifier
func NewVerifier(logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{logger: logger.Named("verifier")}
}

// VerifyPartition checks that every RAW row lands in exactly one subset, in
// RAW order, with a canonical key and a verdict consistent with its reasons,
// and that summary agrees with the subsets
func (v *Verifier) VerifyPartition(
	rawRows int,
	valid, rejected []model.ClassificationRecord,
	summary model.RunSummary,
) *VerificationReport {
	start := time.Now()
	report := &VerificationReport{
		VerificationTime: start,
		TotalRows:        rawRows,
		ValidRows:        len(valid),
		RejectedRows:     len(rejected),
	}

	addIssue := func(kind string, row int, format string, args ...interface{}) {
		report.Issues = append(report.Issues, IntegrityIssue{
			IssueType:   kind,
			Description: fmt.Sprintf(format, args...),
			Row:         row,
		})
	}

	if len(valid)+len(rejected) != rawRows {
		addIssue("row_count", -1, "valid (%d) + rejected (%d) != raw rows (%d)",
			len(valid), len(rejected), rawRows)
	}

	seen := make(map[int]int, rawRows)
	check := func(subset string, records []model.ClassificationRecord, wantPassed bool) {
		last := -1
		for _, rec := range records {
			if rec.Row < 0 || rec.Row >= rawRows {
				addIssue("row_range", rec.Row, "%s row %d outside raw table", subset, rec.Row)
				continue
			}
			seen[rec.Row]++
			if rec.Row <= last {
				addIssue("row_order", rec.Row, "%s row %d after row %d", subset, rec.Row, last)
			}
			last = rec.Row
			if !cleaner.IsCanonical(rec.Key) {
				addIssue("key_format", rec.Row, "%s row %d key %q is not canonical", subset, rec.Row, rec.Key)
			}
			if rec.Passed() != wantPassed {
				addIssue("verdict", rec.Row, "%s row %d has reasons %q", subset, rec.Row, rec.Motive())
			}
		}
	}
	check("valid", valid, true)
	check("rejected", rejected, false)

	for row, n := range seen {
		if n > 1 {
			addIssue("duplicate_row", row, "row %d appears %d times", row, n)
		}
	}

	if summary.Total != rawRows || summary.Valid != len(valid) || summary.Rejected != len(rejected) {
		addIssue("summary", -1, "summary %d/%d/%d does not match subsets %d/%d/%d",
			summary.Total, summary.Valid, summary.Rejected, rawRows, len(valid), len(rejected))
	}

	tally := make(map[model.Reason]int)
	for _, rec := range rejected {
		for _, reason := range rec.Reasons {
			tally[reason]++
		}
	}
	for reason, n := range tally {
		if summary.ReasonCounts[reason] != n {
			addIssue("tally", -1, "reason %s counted %d, summary has %d",
				reason, n, summary.ReasonCounts[reason])
		}
	}
	if len(tally) != len(summary.ReasonCounts) {
		addIssue("tally", -1, "summary has %d reasons, subsets have %d",
			len(summary.ReasonCounts), len(tally))
	}

	report.Duration = time.Since(start)

	if report.Passed() {
		v.logger.Info("Partition verified",
			zap.Int("total", rawRows),
			zap.Int("valid", len(valid)),
			zap.Int("rejected", len(rejected)),
			zap.Duration("duration", report.Duration))
	} else {
		v.logger.Error("Partition verification failed",
			zap.Int("issues", len(report.Issues)),
			zap.String("details", report.Error()))
	}

	return report
}
