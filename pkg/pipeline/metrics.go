// pkg/pipeline/metrics.go
package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Stage names
const (
	StageLoad      = "load"
	StageResolve   = "resolve"
	StageReference = "reference"
	StageClassify  = "classify"
	StageVerify    = "verify"
	StageExport    = "export"
	StageReport    = "report"
	StageCommit    = "commit"
	StagePublish   = "publish"
)

// StageTiming is the duration of one pipeline stage
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration_ns"`
}

// RunMetrics tracks metrics for a validation run
type RunMetrics struct {
	logger *zap.Logger

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Stages    []StageTiming `json:"stages"`

	RawRows           int `json:"raw_rows"`
	DetailRows        int `json:"detail_rows"`
	SubscriberRows    int `json:"subscriber_rows"`
	ValidRows         int `json:"valid_rows"`
	RejectedRows      int `json:"rejected_rows"`
	DetailKeys        int `json:"detail_keys"`
	SubscriberKeys    int `json:"subscriber_keys"`
	FlaggedKeys       int `json:"flagged_keys"`
	CoercionAnomalies int `json:"coercion_anomalies"`

	NormalizationOps      int            `json:"normalization_operations"`
	NormalizationByReason map[string]int `json:"normalization_by_reason"`

	stageStart time.Time
	stage      string
}

// NewRunMetrics creates a new RunMetrics instance
func NewRunMetrics(logger *zap.Logger) *RunMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunMetrics{
		logger:                logger,
		StartTime:             time.Now(),
		NormalizationByReason: make(map[string]int),
	}
}

// StartStage ends the running stage, if any, and starts stage
func (m *RunMetrics) StartStage(stage string) {
	m.endStage()
	m.stage = stage
	m.stageStart = time.Now()
}

func (m *RunMetrics) endStage() {
	if m.stage == "" {
		return
	}
	d := time.Since(m.stageStart)
	m.Stages = append(m.Stages, StageTiming{Stage: m.stage, Duration: d})
	m.logger.Debug("Stage completed", zap.String("stage", m.stage), zap.Duration("duration", d))
	m.stage = ""
}

// RecordNormalization adds per-reason normalization counts
func (m *RunMetrics) RecordNormalization(byReason map[string]int, total int) {
	m.NormalizationOps += total
	for reason, n := range byReason {
		m.NormalizationByReason[reason] += n
	}
}

// Complete ends the running stage and logs the run metrics
func (m *RunMetrics) Complete() {
	m.endStage()
	m.EndTime = time.Now()

	fields := []zap.Field{
		zap.Duration("duration", m.Duration()),
		zap.Int("raw_rows", m.RawRows),
		zap.Int("valid_rows", m.ValidRows),
		zap.Int("rejected_rows", m.RejectedRows),
		zap.Int("detail_keys", m.DetailKeys),
		zap.Int("subscriber_keys", m.SubscriberKeys),
		zap.Int("flagged_keys", m.FlaggedKeys),
		zap.Int("coercion_anomalies", m.CoercionAnomalies),
		zap.Int("normalization_operations", m.NormalizationOps),
	}
	for _, s := range m.Stages {
		fields = append(fields, zap.Duration("stage_"+s.Stage, s.Duration))
	}
	m.logger.Info("Run metrics", fields...)
}

// Duration returns the total run duration
func (m *RunMetrics) Duration() time.Duration {
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// Report returns a human-readable metrics report
func (m *RunMetrics) Report() string {
	var b strings.Builder
	b.WriteString("Validation run metrics\n")
	b.WriteString("======================\n")
	line := func(label string, value interface{}) {
		fmt.Fprintf(&b, "%-21s %v\n", label+":", value)
	}
	line("Duration", formatDuration(m.Duration()))
	line("Rows (raw)", m.RawRows)
	line("Rows (detail)", m.DetailRows)
	line("Rows (subscribers)", m.SubscriberRows)
	line("Valid / rejected", fmt.Sprintf("%d / %d", m.ValidRows, m.RejectedRows))
	line("Coercion anomalies", m.CoercionAnomalies)
	line("Normalized values", m.NormalizationOps)
	if len(m.Stages) > 0 {
		b.WriteString("Stages:\n")
		for _, s := range m.Stages {
			fmt.Fprintf(&b, "  %-10s %s\n", s.Stage, formatDuration(s.Duration))
		}
	}
	return b.String()
}

// ToJSON converts metrics to JSON format
func (m *RunMetrics) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
