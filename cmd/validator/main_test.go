package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/dni-validator/pkg/config"
	"github.com/David-Botos/dni-validator/pkg/model"
	"github.com/David-Botos/dni-validator/pkg/pipeline"
)

func TestApplyFlags(t *testing.T) {
	cfg := &config.Config{RawSource: "env.xlsx", OutputDir: "."}
	applyFlags(cfg, options{detail: "detalles.csv", out: "salida"})

	assert.Equal(t, "env.xlsx", cfg.RawSource)
	assert.Equal(t, "detalles.csv", cfg.DetailSource)
	assert.Equal(t, "salida", cfg.OutputDir)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("debug", "console")
	assert.NoError(t, err)
	_, err = newLogger("info", "json")
	assert.NoError(t, err)
	_, err = newLogger("loud", "json")
	assert.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	result := &pipeline.Result{
		RunID: "run-1",
		Summary: model.RunSummary{
			Total: 3, Valid: 1, Rejected: 2,
			ReasonCounts: map[model.Reason]int{model.ReasonDaysExceeded: 2},
			Tally:        []model.ReasonCount{{Reason: model.ReasonDaysExceeded, Count: 2}},
		},
		Artifacts: pipeline.Artifacts{Report: "/tmp/reporte_validacion.pdf"},
	}

	var text bytes.Buffer
	require.NoError(t, printResult(&text, result, false))
	assert.Contains(t, text.String(), "Total: 3  Valid: 1  Rejected: 2")
	assert.Contains(t, text.String(), "dias>=30")
	assert.Contains(t, text.String(), "/tmp/reporte_validacion.pdf")

	var out bytes.Buffer
	require.NoError(t, printResult(&out, result, true))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	summary := decoded["summary"].(map[string]interface{})
	assert.Equal(t, float64(2), summary["rechazados"])
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	raw := write("bruto.csv", "DNI,nombre\n1.111.111,Ana\n22222222,Luis\n33333333,Eva\n")
	detail := write("detalles.csv", "dni\n01111111\n22222222\n")
	subs := write("suscriptores.csv", "Nº documento,dias_restantes\n1111111,10\n22222222,45\n")
	out := filepath.Join(dir, "salida")

	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("ARTIFACT_BUCKET", "")

	var stdout bytes.Buffer
	err := run(options{raw: raw, detail: detail, subscribers: subs, out: out, jsonOutput: true}, &stdout)
	require.NoError(t, err)

	var decoded struct {
		Summary model.RunSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
	assert.Equal(t, 3, decoded.Summary.Total)
	assert.Equal(t, 1, decoded.Summary.Valid)
	assert.FileExists(t, filepath.Join(out, "reporte_validacion.pdf"))
}

func TestRunWithRulesAndMetrics(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	raw := write("bruto.csv", "DNI\n1111111\n22222222\n")
	detail := write("detalles.csv", "dni\n1111111\n22222222\n")
	subs := write("suscriptores.csv", "dni,dias_restantes\n1111111,10\n22222222,45\n")
	rules := write("reglas.yaml", "days_threshold: 50\n")
	metrics := filepath.Join(dir, "metricas.json")

	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("ARTIFACT_BUCKET", "")
	t.Setenv("RULES_FILE", "")

	opts := options{
		raw: raw, detail: detail, subscribers: subs,
		out: filepath.Join(dir, "salida"), rules: rules, metrics: metrics, jsonOutput: true,
	}
	var stdout bytes.Buffer
	require.NoError(t, run(opts, &stdout))

	var decoded struct {
		Summary model.RunSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
	assert.Equal(t, 2, decoded.Summary.Valid)
	assert.Empty(t, os.Getenv("RULES_FILE"))

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	var m pipeline.RunMetrics
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, 2, m.RawRows)
	assert.Equal(t, 2, m.ValidRows)
}

func TestRunMissingSource(t *testing.T) {
	t.Setenv("RAW_SOURCE", "")
	t.Setenv("DETAIL_SOURCE", "")
	t.Setenv("SUBSCRIBERS_SOURCE", "")
	err := run(options{raw: "bruto.xlsx"}, &bytes.Buffer{})
	assert.Error(t, err)
}
