// pkg/reference/builder.go
package reference

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/cleaner"
	"github.com/David-Botos/dni-validator/pkg/converter"
	"github.com/David-Botos/dni-validator/pkg/model"
)

// DefaultFlaggedStatus is the status value that marks a subscriber as flagged
const DefaultFlaggedStatus = "descargado"

// Columns names the resolved columns of the two reference tables
type Columns struct {
	DetailIdentity     string
	SubscriberIdentity string
	Days               string
	Status             string // Empty when no status column was found
}

// Stats describes what the builder saw
type Stats struct {
	DetailRows        int
	SubscriberRows    int
	DetailKeys        int
	SubscriberKeys    int
	DaysKeys          int // Keys with a present days value
	FlaggedKeys       int
	CoercionAnomalies int // Non-empty days values that were not numeric
}

// Reference holds the lookups the rules are evaluated against
type Reference struct {
	DetailSet     map[string]struct{}
	SubscriberSet map[string]struct{}
	Days          map[string]model.Number
	Flagged       map[string]struct{}
	Operations    []model.NormalizationOperation
	Stats         Stats
}

// InDetail reports whether key is in the detail table
func (r *Reference) InDetail(key string) bool {
	_, ok := r.DetailSet[key]
	return ok
}

// InSubscribers reports whether key is in the subscribers table
func (r *Reference) InSubscribers(key string) bool {
	_, ok := r.SubscriberSet[key]
	return ok
}

// IsFlagged reports whether key carries the flagged status
func (r *Reference) IsFlagged(key string) bool {
	_, ok := r.Flagged[key]
	return ok
}

// DaysFor returns the days value associated with key
func (r *Reference) DaysFor(key string) model.Number {
	return r.Days[key]
}

// Builder turns the reference tables into lookups
type Builder struct {
	logger        *zap.Logger
	normalizer    *cleaner.IdentityNormalizer
	flaggedStatus string
}

// NewBuilder creates a Builder. An empty flaggedStatus uses DefaultFlaggedStatus.
func NewBuilder(logger *zap.Logger, normalizer *cleaner.IdentityNormalizer, flaggedStatus string) (*Builder, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if normalizer == nil {
		return nil, errors.New("normalizer cannot be nil")
	}

	status := normalizeStatus(flaggedStatus)
	if status == "" {
		status = DefaultFlaggedStatus
	}

	return &Builder{
		logger:        logger.Named("reference-builder"),
		normalizer:    normalizer,
		flaggedStatus: status,
	}, nil
}

// Build produces the detail and subscriber sets, the days map and the
// flagged set. Input tables are read only.
func (b *Builder) Build(detail, subscribers *model.Table, cols Columns) (*Reference, error) {
	if detail == nil || subscribers == nil {
		return nil, errors.New("reference tables cannot be nil")
	}

	detailKeys, detailOps, err := b.normalizer.NormalizeColumn(detail, cols.DetailIdentity)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize detail identities: %w", err)
	}
	subKeys, subOps, err := b.normalizer.NormalizeColumn(subscribers, cols.SubscriberIdentity)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize subscriber identities: %w", err)
	}

	daysCells, ok := subscribers.Column(cols.Days)
	if !ok {
		return nil, fmt.Errorf("table %s has no days column %q", subscribers.Name, cols.Days)
	}

	ref := &Reference{
		DetailSet:     keySet(detailKeys),
		SubscriberSet: keySet(subKeys),
		Days:          make(map[string]model.Number),
		Flagged:       make(map[string]struct{}),
		Operations:    append(detailOps, subOps...),
	}

	for row, key := range subKeys {
		days, coerced := converter.ToNumber(daysCells[row])
		if !coerced {
			ref.Stats.CoercionAnomalies++
			b.logger.Debug("Days value is not numeric, treating as absent",
				zap.Int("row", row),
				zap.String("value", daysCells[row].String()))
		}

		// First present value wins; a later present value fills an absent one
		if current, seen := ref.Days[key]; !seen || !current.Present {
			ref.Days[key] = days
		}
	}

	if cols.Status != "" {
		statusCells, ok := subscribers.Column(cols.Status)
		if !ok {
			return nil, fmt.Errorf("table %s has no status column %q", subscribers.Name, cols.Status)
		}
		for row, key := range subKeys {
			if normalizeStatus(statusCells[row].String()) == b.flaggedStatus {
				ref.Flagged[key] = struct{}{}
			}
		}
	}

	ref.Stats.DetailRows = detail.Len()
	ref.Stats.SubscriberRows = subscribers.Len()
	ref.Stats.DetailKeys = len(ref.DetailSet)
	ref.Stats.SubscriberKeys = len(ref.SubscriberSet)
	ref.Stats.FlaggedKeys = len(ref.Flagged)
	for _, n := range ref.Days {
		if n.Present {
			ref.Stats.DaysKeys++
		}
	}

	b.logger.Info("Built reference lookups",
		zap.Int("detail_keys", ref.Stats.DetailKeys),
		zap.Int("subscriber_keys", ref.Stats.SubscriberKeys),
		zap.Int("days_keys", ref.Stats.DaysKeys),
		zap.Int("flagged_keys", ref.Stats.FlaggedKeys),
		zap.Int("coercion_anomalies", ref.Stats.CoercionAnomalies),
		zap.Bool("status_column", cols.Status != ""))

	return ref, nil
}

func keySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func normalizeStatus(s string) string {
	return strings.ToLower(strings.TrimFunc(s, unicode.IsSpace))
}
