// pkg/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/classifier"
	"github.com/David-Botos/dni-validator/pkg/cleaner"
	"github.com/David-Botos/dni-validator/pkg/columns"
	"github.com/David-Botos/dni-validator/pkg/config"
	"github.com/David-Botos/dni-validator/pkg/connector"
	"github.com/David-Botos/dni-validator/pkg/export"
	"github.com/David-Botos/dni-validator/pkg/model"
	"github.com/David-Botos/dni-validator/pkg/reference"
	"github.com/David-Botos/dni-validator/pkg/report"
)

// Sources are the three input tables of a run
type Sources struct {
	Raw         connector.TableSource
	Detail      connector.TableSource
	Subscribers connector.TableSource
}

// Publisher copies committed artifacts to remote storage
type Publisher interface {
	Publish(ctx context.Context, runID string, paths []string) ([]string, error)
}

// ResolvedColumns are the column names detected for a run
type ResolvedColumns struct {
	RawIdentity        columns.Match  `json:"raw_identity"`
	DetailIdentity     columns.Match  `json:"detail_identity"`
	SubscriberIdentity columns.Match  `json:"subscriber_identity"`
	Days               columns.Match  `json:"days"`
	Status             *columns.Match `json:"status,omitempty"`
}

// Result is the outcome of a successful run
type Result struct {
	RunID          string                       `json:"run_id"`
	Summary        model.RunSummary             `json:"summary"`
	IdentityColumn string                       `json:"identity_column"`
	Columns        ResolvedColumns              `json:"columns"`
	Artifacts      Artifacts                    `json:"artifacts"`
	Published      []string                     `json:"published,omitempty"`
	Metrics        *RunMetrics                  `json:"metrics"`
	Valid          []model.ClassificationRecord `json:"-"`
	Rejected       []model.ClassificationRecord `json:"-"`
}

// Runner orchestrates a validation run
type Runner struct {
	logger     *zap.Logger
	normalizer *cleaner.IdentityNormalizer
	builder    *reference.Builder
	classifier *classifier.Classifier
	exporter   *export.Exporter
	emitter    *report.PDFEmitter
	verifier   *Verifier
	publisher  Publisher

	candidates columns.Set
	names      config.ArtifactNames
	outputDir  string
	perRunDir  bool
}

// NewRunner creates a runner from cfg. Unset rule settings and artifact
// names fall back to their defaults.
func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("output directory cannot be empty")
	}

	threshold := cfg.DaysThreshold
	if threshold == 0 {
		threshold = classifier.DefaultDaysThreshold
	}
	names := cfg.Artifacts
	if names == (config.ArtifactNames{}) {
		names = config.DefaultArtifactNames()
	}

	normalizer, err := cleaner.NewIdentityNormalizer(logger)
	if err != nil {
		return nil, err
	}
	builder, err := reference.NewBuilder(logger, normalizer, cfg.FlaggedStatus)
	if err != nil {
		return nil, err
	}
	cls, err := classifier.New(logger, classifier.DefaultRules(threshold)...)
	if err != nil {
		return nil, err
	}
	exporter, err := export.NewExporter(logger)
	if err != nil {
		return nil, err
	}
	emitter, err := report.NewPDFEmitter(logger)
	if err != nil {
		return nil, err
	}

	return &Runner{
		logger:     logger.Named("pipeline"),
		normalizer: normalizer,
		builder:    builder,
		classifier: cls,
		exporter:   exporter,
		emitter:    emitter,
		verifier:   NewVerifier(logger),
		candidates: cfg.Candidates.WithDefaults(),
		names:      names,
		outputDir:  cfg.OutputDir,
		perRunDir:  cfg.PerRunDir,
	}, nil
}

// WithPublisher publishes committed artifacts after each run
func (r *Runner) WithPublisher(p Publisher) *Runner {
	r.publisher = p
	return r
}

// WithClock sets the time source used for the report timestamp
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.emitter = r.emitter.WithClock(now)
	return r
}

// Run loads the three sources and validates them
func (r *Runner) Run(ctx context.Context, sources Sources) (*Result, error) {
	metrics := NewRunMetrics(r.logger)
	metrics.StartStage(StageLoad)

	inputs := []struct {
		role   string
		source connector.TableSource
	}{
		{RoleRaw, sources.Raw},
		{RoleDetail, sources.Detail},
		{RoleSubscribers, sources.Subscribers},
	}

	tables := make([]*model.Table, len(inputs))
	for i, in := range inputs {
		if in.source == nil {
			return nil, missingInput(in.role, errors.New("no source configured"))
		}
		table, err := in.source.Load(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("run cancelled while loading %s table: %w", in.role, ctxErr)
			}
			return nil, missingInput(in.role, err).WithPath(in.source.Name())
		}
		r.logger.Info("Loaded table",
			zap.String("role", in.role),
			zap.String("source", in.source.Name()),
			zap.Int("rows", table.Len()),
			zap.Strings("columns", table.ColumnNames()))
		tables[i] = table
	}

	return r.run(ctx, metrics, tables[0], tables[1], tables[2])
}

// RunTables validates tables already in memory
func (r *Runner) RunTables(ctx context.Context, raw, detail, subscribers *model.Table) (*Result, error) {
	return r.run(ctx, NewRunMetrics(r.logger), raw, detail, subscribers)
}

func (r *Runner) run(ctx context.Context, metrics *RunMetrics, raw, detail, subscribers *model.Table) (*Result, error) {
	for _, in := range []struct {
		role  string
		table *model.Table
	}{
		{RoleRaw, raw},
		{RoleDetail, detail},
		{RoleSubscribers, subscribers},
	} {
		if in.table == nil {
			return nil, missingInput(in.role, errors.New("table is nil"))
		}
	}

	metrics.RawRows = raw.Len()
	metrics.DetailRows = detail.Len()
	metrics.SubscriberRows = subscribers.Len()

	if err := checkContext(ctx, StageResolve); err != nil {
		return nil, err
	}
	metrics.StartStage(StageResolve)
	cols, err := r.resolve(raw, detail, subscribers)
	if err != nil {
		return nil, err
	}

	metrics.StartStage(StageReference)
	rawKeys, rawOps, err := r.normalizer.NormalizeColumn(raw, cols.RawIdentity.Column)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize raw identities: %w", err)
	}
	refCols := reference.Columns{
		DetailIdentity:     cols.DetailIdentity.Column,
		SubscriberIdentity: cols.SubscriberIdentity.Column,
		Days:               cols.Days.Column,
	}
	if cols.Status != nil {
		refCols.Status = cols.Status.Column
	}
	ref, err := r.builder.Build(detail, subscribers, refCols)
	if err != nil {
		return nil, fmt.Errorf("failed to build reference lookups: %w", err)
	}

	ops := append(rawOps, ref.Operations...)
	metrics.RecordNormalization(cleaner.CountByReason(ops), len(ops))
	metrics.DetailKeys = ref.Stats.DetailKeys
	metrics.SubscriberKeys = ref.Stats.SubscriberKeys
	metrics.FlaggedKeys = ref.Stats.FlaggedKeys
	metrics.CoercionAnomalies = ref.Stats.CoercionAnomalies

	if err := checkContext(ctx, StageClassify); err != nil {
		return nil, err
	}
	metrics.StartStage(StageClassify)
	records := r.classifier.Classify(rawKeys, ref)
	summary := model.Summarize(records, r.classifier.Reasons())
	valid, rejected := export.Partition(records)
	metrics.ValidRows = len(valid)
	metrics.RejectedRows = len(rejected)

	metrics.StartStage(StageVerify)
	if check := r.verifier.VerifyPartition(raw.Len(), valid, rejected, summary); !check.Passed() {
		return nil, NewRunError(ErrorCategoryVerification, errors.New(check.Error()))
	}

	if err := checkContext(ctx, StageExport); err != nil {
		return nil, err
	}
	job, err := NewRunJob(r.outputDir, r.names, r.perRunDir)
	if err != nil {
		return nil, NewRunError(ErrorCategoryExport, err)
	}
	if err := r.write(ctx, metrics, job, raw, cols.RawIdentity.Column, valid, rejected, summary); err != nil {
		job.Abort()
		return nil, err
	}

	result := &Result{
		RunID:          job.ID.String(),
		Summary:        summary,
		IdentityColumn: cols.RawIdentity.Column,
		Columns:        cols,
		Artifacts:      job.Final(),
		Metrics:        metrics,
		Valid:          valid,
		Rejected:       rejected,
	}

	if r.publisher != nil {
		metrics.StartStage(StagePublish)
		urls, err := r.publisher.Publish(ctx, result.RunID, result.Artifacts.Paths())
		if err != nil {
			metrics.Complete()
			// Local artifacts stay committed
			return result, NewRunError(ErrorCategoryPublish, err)
		}
		result.Published = urls
	}

	metrics.Complete()

	r.logger.Info("Validation run completed",
		zap.String("run_id", result.RunID),
		zap.Int("total", summary.Total),
		zap.Int("valid", summary.Valid),
		zap.Int("rejected", summary.Rejected),
		zap.String("output_dir", job.OutputDir))

	return result, nil
}

// write stages the five artifacts and commits them
func (r *Runner) write(
	ctx context.Context,
	metrics *RunMetrics,
	job *RunJob,
	raw *model.Table,
	identityColumn string,
	valid, rejected []model.ClassificationRecord,
	summary model.RunSummary,
) error {
	if err := job.Prepare(); err != nil {
		return NewRunError(ErrorCategoryExport, err).WithPath(job.StagingDir())
	}
	staged := job.Staged()

	metrics.StartStage(StageExport)
	if err := r.exporter.Export(raw, valid, rejected, identityColumn, staged.Targets()); err != nil {
		return NewRunError(ErrorCategoryExport, err)
	}

	metrics.StartStage(StageReport)
	if err := r.emitter.Emit(summary, staged.Report); err != nil {
		return NewRunError(ErrorCategoryReport, err).WithPath(staged.Report)
	}

	if err := checkContext(ctx, StageCommit); err != nil {
		return err
	}
	metrics.StartStage(StageCommit)
	if err := job.Commit(); err != nil {
		return NewRunError(ErrorCategoryExport, err).WithPath(job.OutputDir)
	}
	return nil
}

// resolve detects every column the run needs
func (r *Runner) resolve(raw, detail, subscribers *model.Table) (ResolvedColumns, error) {
	var cols ResolvedColumns

	lookups := []struct {
		role, column string
		table        *model.Table
		candidates   []string
		dst          *columns.Match
	}{
		{RoleRaw, ColumnIdentity, raw, r.candidates.Identity, &cols.RawIdentity},
		{RoleDetail, ColumnIdentity, detail, r.candidates.Identity, &cols.DetailIdentity},
		{RoleSubscribers, ColumnIdentity, subscribers, r.candidates.Identity, &cols.SubscriberIdentity},
		{RoleSubscribers, ColumnDays, subscribers, r.candidates.Days, &cols.Days},
	}

	for _, l := range lookups {
		match, ok := columns.FindMatch(l.table, l.candidates)
		if !ok {
			err := columnNotFound(l.role, l.column, l.table.Name, l.candidates)
			r.logger.Error("Column resolution failed",
				zap.String("table", l.role),
				zap.String("column", l.column),
				zap.Strings("available", l.table.ColumnNames()))
			return cols, err
		}
		*l.dst = match
		r.logger.Info("Resolved column",
			zap.String("table", l.role),
			zap.String("role", l.column),
			zap.String("column", match.Column),
			zap.String("candidate", match.Candidate),
			zap.String("strategy", string(match.Strategy)))
	}

	if match, ok := columns.FindMatch(subscribers, r.candidates.Status); ok {
		cols.Status = &match
		r.logger.Info("Resolved column",
			zap.String("table", RoleSubscribers),
			zap.String("role", ColumnStatus),
			zap.String("column", match.Column))
	} else {
		r.logger.Info("No status column, flagged-status rule inactive",
			zap.String("table", RoleSubscribers))
	}

	return cols, nil
}

func checkContext(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled before %s stage: %w", stage, err)
	}
	return nil
}
