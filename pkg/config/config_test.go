package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/snowflakedb/gosnowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/dni-validator/pkg/classifier"
	"github.com/David-Botos/dni-validator/pkg/columns"
	"github.com/David-Botos/dni-validator/pkg/converter"
	"github.com/David-Botos/dni-validator/pkg/reference"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RAW_SOURCE", "DETAIL_SOURCE", "SUBSCRIBERS_SOURCE", "OUTPUT_DIR", "PER_RUN_DIR",
		"RULES_FILE", "DAYS_THRESHOLD", "FLAGGED_STATUS", "RUN_TIMEOUT_SECONDS",
		"LOG_LEVEL", "LOG_FORMAT", "IDENTITY_CANDIDATES", "DAYS_CANDIDATES", "STATUS_CANDIDATES",
		"VALID_XLSX_NAME", "REJECTED_XLSX_NAME", "VALID_CSV_NAME", "REJECTED_CSV_NAME", "REPORT_NAME",
		"POSTGRES_USER", "POSTGRES_DB", "POSTGRES_PASSWORD", "POSTGRES_HOST", "POSTGRES_PORT",
		"SNOWFLAKE_USER", "SNOWFLAKE_ACCOUNT", "SNOWFLAKE_PASSWORD", "SNOWFLAKE_AUTHENTICATOR",
		"ARTIFACT_BUCKET", "ARTIFACT_PREFIX", "SQL_DRIVER",
		"S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_ENDPOINT", "TRIM_TEXT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.OutputDir)
	assert.False(t, cfg.PerRunDir)
	assert.Equal(t, DefaultArtifactNames(), cfg.Artifacts)
	assert.Equal(t, float64(classifier.DefaultDaysThreshold), cfg.DaysThreshold)
	assert.Equal(t, reference.DefaultFlaggedStatus, cfg.FlaggedStatus)
	assert.Equal(t, columns.DefaultSet(), cfg.Candidates)
	assert.Equal(t, time.Duration(0), cfg.RunTimeout)
	assert.Equal(t, DefaultSQLDriver, cfg.SQLDriver)
	assert.Nil(t, cfg.Postgres)
	assert.Nil(t, cfg.Snowflake)
	assert.False(t, cfg.S3.PublishEnabled())
	assert.Equal(t, converter.DefaultConfig(), cfg.ConverterConfig())
}

func TestConverterConfigTrimText(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRIM_TEXT", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	conv := cfg.ConverterConfig()
	assert.True(t, conv.TrimText)
	assert.Equal(t, converter.DefaultConfig().PreserveLeadingZeros, conv.PreserveLeadingZeros)
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("RAW_SOURCE", "bruto.xlsx")
	t.Setenv("OUTPUT_DIR", "/tmp/out")
	t.Setenv("PER_RUN_DIR", "true")
	t.Setenv("DAYS_THRESHOLD", "45")
	t.Setenv("RUN_TIMEOUT_SECONDS", "90")
	t.Setenv("IDENTITY_CANDIDATES", `cedula, "doc, nro", cedula`)
	t.Setenv("POSTGRES_USER", "validator")
	t.Setenv("POSTGRES_DB", "crm")
	t.Setenv("ARTIFACT_BUCKET", "reports")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "bruto.xlsx", cfg.RawSource)
	assert.True(t, cfg.PerRunDir)
	assert.Equal(t, 45.0, cfg.DaysThreshold)
	assert.Equal(t, 90*time.Second, cfg.RunTimeout)
	assert.Equal(t, []string{"cedula", "doc, nro"}, cfg.Candidates.Identity)
	assert.Equal(t, columns.DaysCandidates, cfg.Candidates.Days)
	require.NotNil(t, cfg.Postgres)
	assert.Equal(t, "host=localhost port=5432 user=validator password= dbname=crm sslmode=disable",
		cfg.Postgres.ConnectionString())
	assert.True(t, cfg.S3.PublishEnabled())

	assert.Error(t, cfg.ValidateSources())
}

func TestLoadConfigSnowflakeRequiresPassword(t *testing.T) {
	clearEnv(t)
	t.Setenv("SNOWFLAKE_ACCOUNT", "acme")
	t.Setenv("SNOWFLAKE_USER", "svc")

	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("SNOWFLAKE_AUTHENTICATOR", "externalbrowser")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, gosnowflake.AuthTypeExternalBrowser, cfg.Snowflake.Authenticator)
}

func TestLoadConfigAppliesRulesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
candidates:
  days: [vigencia, vigencia, dias]
days_threshold: 15
flagged_status: baja
`), 0o644))
	t.Setenv("RULES_FILE", path)
	t.Setenv("DAYS_THRESHOLD", "60")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"vigencia", "dias"}, cfg.Candidates.Days)
	assert.Equal(t, columns.IdentityCandidates, cfg.Candidates.Identity)
	assert.Equal(t, 15.0, cfg.DaysThreshold)
	assert.Equal(t, "baja", cfg.FlaggedStatus)
}

func TestApplyRulesFile(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig()
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("days_threshold: 50\n"), 0o644))

	require.NoError(t, cfg.ApplyRulesFile(path))
	assert.Equal(t, 50.0, cfg.DaysThreshold)
	assert.Equal(t, path, cfg.RulesFile)
	assert.Empty(t, os.Getenv("RULES_FILE"))

	bad := filepath.Join(dir, "negative.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("days_threshold: -1\n"), 0o644))
	assert.Error(t, cfg.ApplyRulesFile(bad))
}

func TestLoadRulesErrors(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("candidates: [unclosed"), 0o644))
	_, err = LoadRules(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			OutputDir:     "out",
			Artifacts:     DefaultArtifactNames(),
			DaysThreshold: 30,
			FlaggedStatus: "descargado",
			LogFormat:     "json",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty output dir", func(c *Config) { c.OutputDir = "" }},
		{"zero threshold", func(c *Config) { c.DaysThreshold = 0 }},
		{"blank flagged status", func(c *Config) { c.FlaggedStatus = "  " }},
		{"negative timeout", func(c *Config) { c.RunTimeout = -time.Second }},
		{"duplicate artifact name", func(c *Config) { c.Artifacts.ValidCSV = c.Artifacts.RejectedCSV }},
		{"artifact name with separator", func(c *Config) { c.Artifacts.Report = "a/b.pdf" }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
		{"S3 key without secret", func(c *Config) { c.S3.AccessKeyID = "AKIA" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
