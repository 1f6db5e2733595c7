// cmd/validator/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/config"
	"github.com/David-Botos/dni-validator/pkg/connector"
	"github.com/David-Botos/dni-validator/pkg/pipeline"
)

type options struct {
	raw         string
	detail      string
	subscribers string
	out         string
	rules       string
	metrics     string
	jsonOutput  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.raw, "raw", "", "RAW table source (file, s3:// URL or driver:query)")
	flag.StringVar(&opts.detail, "detail", "", "DETAIL table source")
	flag.StringVar(&opts.subscribers, "subscribers", "", "SUBSCRIBERS table source")
	flag.StringVar(&opts.out, "out", "", "Output directory for the artifacts")
	flag.StringVar(&opts.rules, "rules", "", "Optional YAML rules file")
	flag.StringVar(&opts.metrics, "metrics", "", "Write the run metrics as JSON to this file")
	flag.BoolVar(&opts.jsonOutput, "json", false, "Print the run result as JSON")
	flag.Parse()

	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, stdout io.Writer) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.rules != "" {
		if err := cfg.ApplyRulesFile(opts.rules); err != nil {
			return fmt.Errorf("failed to apply rules file: %w", err)
		}
	}
	applyFlags(cfg, opts)
	if err := cfg.ValidateSources(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	factory, err := connector.NewSourceFactory(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := factory.Close(); err != nil {
			logger.Warn("Failed to close connections", zap.Error(err))
		}
	}()

	sources, err := createSources(ctx, factory, cfg)
	if err != nil {
		return err
	}

	runner, err := pipeline.NewRunner(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.S3.PublishEnabled() {
		client, err := factory.S3Client(ctx)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		publisher, err := connector.NewArtifactPublisher(client, cfg.S3.Bucket, cfg.S3.Prefix, logger)
		if err != nil {
			return err
		}
		runner.WithPublisher(publisher)
	}

	logger.Info("Starting validation run",
		zap.String("raw", cfg.RawSource),
		zap.String("detail", cfg.DetailSource),
		zap.String("subscribers", cfg.SubscribersSource),
		zap.String("output_dir", cfg.OutputDir))

	result, runErr := runner.Run(ctx, sources)
	if result != nil {
		if err := printResult(stdout, result, opts.jsonOutput); err != nil {
			return err
		}
		if opts.metrics != "" && result.Metrics != nil {
			if err := writeMetrics(opts.metrics, result.Metrics); err != nil {
				return err
			}
		}
	}
	if runErr != nil {
		logger.Error("Validation run failed",
			zap.String("category", pipeline.CategoryOf(runErr).String()),
			zap.Error(runErr))
		return runErr
	}
	return nil
}

func applyFlags(cfg *config.Config, opts options) {
	if opts.raw != "" {
		cfg.RawSource = opts.raw
	}
	if opts.detail != "" {
		cfg.DetailSource = opts.detail
	}
	if opts.subscribers != "" {
		cfg.SubscribersSource = opts.subscribers
	}
	if opts.out != "" {
		cfg.OutputDir = opts.out
	}
}

func createSources(ctx context.Context, factory *connector.SourceFactory, cfg *config.Config) (pipeline.Sources, error) {
	var sources pipeline.Sources

	inputs := []struct {
		role     string
		location string
		dst      *connector.TableSource
	}{
		{pipeline.RoleRaw, cfg.RawSource, &sources.Raw},
		{pipeline.RoleDetail, cfg.DetailSource, &sources.Detail},
		{pipeline.RoleSubscribers, cfg.SubscribersSource, &sources.Subscribers},
	}
	for _, s := range inputs {
		src, err := factory.Create(ctx, s.location, s.role)
		if err != nil {
			return sources, fmt.Errorf("failed to create %s source: %w", s.role, err)
		}
		*s.dst = src
	}
	return sources, nil
}

func newLogger(level, format string) (*zap.Logger, error) {
	var zcfg zap.Config
	if format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = lvl

	return zcfg.Build()
}

func writeMetrics(path string, m *pipeline.RunMetrics) error {
	data, err := m.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

func printResult(w io.Writer, result *pipeline.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	s := result.Summary
	fmt.Fprintf(w, "Run %s\n", result.RunID)
	fmt.Fprintf(w, "Total: %d  Valid: %d  Rejected: %d\n", s.Total, s.Valid, s.Rejected)
	for _, rc := range s.Tally {
		fmt.Fprintf(w, "  %-20s %d\n", rc.Reason, rc.Count)
	}
	fmt.Fprintln(w, "Artifacts:")
	for _, p := range result.Artifacts.Paths() {
		fmt.Fprintf(w, "  %s\n", p)
	}
	for _, url := range result.Published {
		fmt.Fprintf(w, "  %s\n", url)
	}
	if result.Metrics != nil {
		fmt.Fprintln(w)
		fmt.Fprint(w, result.Metrics.Report())
	}
	return nil
}
