// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/David-Botos/dni-validator/pkg/classifier"
	"github.com/David-Botos/dni-validator/pkg/columns"
	"github.com/David-Botos/dni-validator/pkg/converter"
	"github.com/David-Botos/dni-validator/pkg/reference"
)

// DefaultSQLDriver is used for "sql:" sources
const DefaultSQLDriver = "pgx"

// Config represents the application configuration
type Config struct {
	// Table sources: file paths, s3:// URLs or driver-prefixed queries
	RawSource         string
	DetailSource      string
	SubscribersSource string

	// Output
	OutputDir string
	PerRunDir bool
	Artifacts ArtifactNames

	// Rules
	RulesFile     string
	Candidates    columns.Set
	DaysThreshold float64
	FlaggedStatus string

	// Run budget, zero means unlimited
	RunTimeout time.Duration

	// Trim surrounding whitespace from text cells read from sources
	TrimText bool

	// SQL sources
	SQLDriver string
	Postgres  *PostgresConfig  // nil when not configured
	Snowflake *SnowflakeConfig // nil when not configured

	// S3 sources and artifact publication
	S3 S3Config

	// Logging
	LogLevel  string
	LogFormat string
}

// ArtifactNames are the file names of the five run artifacts
type ArtifactNames struct {
	ValidXLSX    string
	RejectedXLSX string
	ValidCSV     string
	RejectedCSV  string
	Report       string
}

// DefaultArtifactNames returns the standard artifact names
func DefaultArtifactNames() ArtifactNames {
	return ArtifactNames{
		ValidXLSX:    "validos.xlsx",
		RejectedXLSX: "rechazados.xlsx",
		ValidCSV:     "validos.csv",
		RejectedCSV:  "rechazados.csv",
		Report:       "reporte_validacion.pdf",
	}
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is loaded first if present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	names := DefaultArtifactNames()
	cfg := &Config{
		RawSource:         getEnv("RAW_SOURCE", ""),
		DetailSource:      getEnv("DETAIL_SOURCE", ""),
		SubscribersSource: getEnv("SUBSCRIBERS_SOURCE", ""),

		OutputDir: getEnv("OUTPUT_DIR", "."),
		PerRunDir: getEnvAsBool("PER_RUN_DIR", false),
		Artifacts: ArtifactNames{
			ValidXLSX:    getEnv("VALID_XLSX_NAME", names.ValidXLSX),
			RejectedXLSX: getEnv("REJECTED_XLSX_NAME", names.RejectedXLSX),
			ValidCSV:     getEnv("VALID_CSV_NAME", names.ValidCSV),
			RejectedCSV:  getEnv("REJECTED_CSV_NAME", names.RejectedCSV),
			Report:       getEnv("REPORT_NAME", names.Report),
		},

		RulesFile: getEnv("RULES_FILE", ""),
		Candidates: columns.Set{
			Identity: getEnvAsStringSlice("IDENTITY_CANDIDATES", nil),
			Days:     getEnvAsStringSlice("DAYS_CANDIDATES", nil),
			Status:   getEnvAsStringSlice("STATUS_CANDIDATES", nil),
		},
		DaysThreshold: getEnvAsFloat("DAYS_THRESHOLD", classifier.DefaultDaysThreshold),
		FlaggedStatus: getEnv("FLAGGED_STATUS", reference.DefaultFlaggedStatus),

		RunTimeout: time.Duration(getEnvAsInt("RUN_TIMEOUT_SECONDS", 0)) * time.Second,
		TrimText:   getEnvAsBool("TRIM_TEXT", false),

		SQLDriver: getEnv("SQL_DRIVER", DefaultSQLDriver),
		S3:        LoadS3Config(),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if postgresConfigured() {
		pgConfig, err := LoadPostgresConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load PostgreSQL configuration: %w", err)
		}
		cfg.Postgres = pgConfig
	}

	if snowflakeConfigured() {
		snowConfig, err := LoadSnowflakeConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load Snowflake configuration: %w", err)
		}
		cfg.Snowflake = snowConfig
	}

	if cfg.RulesFile != "" {
		if err := cfg.ApplyRulesFile(cfg.RulesFile); err != nil {
			return nil, err
		}
	}

	cfg.Candidates = cfg.Candidates.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures configuration values are usable. Sources are checked
// by the caller, since flags may still provide them.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory is required")
	}

	if c.DaysThreshold <= 0 {
		return errors.New("days threshold must be positive")
	}

	if strings.TrimSpace(c.FlaggedStatus) == "" {
		return errors.New("flagged status cannot be empty")
	}

	if c.RunTimeout < 0 {
		return errors.New("run timeout cannot be negative")
	}

	names := []string{c.Artifacts.ValidXLSX, c.Artifacts.RejectedXLSX,
		c.Artifacts.ValidCSV, c.Artifacts.RejectedCSV, c.Artifacts.Report}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			return errors.New("artifact names cannot be empty")
		}
		if strings.ContainsAny(n, `/\`) {
			return fmt.Errorf("artifact name %q must not contain a path separator", n)
		}
		if seen[n] {
			return fmt.Errorf("artifact name %q is used twice", n)
		}
		seen[n] = true
	}

	if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
		return errors.New("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}

	return nil
}

// ApplyRulesFile overrides c with the rules file at path and validates the
// result
func (c *Config) ApplyRulesFile(path string) error {
	rules, err := LoadRules(path)
	if err != nil {
		return err
	}
	c.RulesFile = path
	rules.Apply(c)
	c.Candidates = c.Candidates.WithDefaults()
	return c.Validate()
}

// ConverterConfig returns the cell conversion settings for table sources
func (c *Config) ConverterConfig() converter.TypeConverterConfig {
	conv := converter.DefaultConfig()
	conv.TrimText = c.TrimText
	return conv
}

// ValidateSources ensures all three table sources are set
func (c *Config) ValidateSources() error {
	missing := make([]string, 0, 3)
	if c.RawSource == "" {
		missing = append(missing, "raw")
	}
	if c.DetailSource == "" {
		missing = append(missing, "detail")
	}
	if c.SubscribersSource == "" {
		missing = append(missing, "subscribers")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing table sources: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(valueStr), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsStringSlice parses a comma separated list. Double quotes protect
// commas inside an item.
func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result []string
	for _, v := range splitCommaDelimited(value) {
		if v != "" {
			result = append(result, v)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

func splitCommaDelimited(s string) []string {
	var (
		result   []string
		current  strings.Builder
		inQuotes bool
	)

	for _, char := range s {
		switch {
		case char == '"':
			inQuotes = !inQuotes
		case char == ',' && !inQuotes:
			result = append(result, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(char)
		}
	}
	result = append(result, strings.TrimSpace(current.String()))

	return result
}
