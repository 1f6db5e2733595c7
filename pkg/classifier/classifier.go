// pkg/classifier/classifier.go
package classifier

import (
	"errors"

	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/model"
)

// Classifier runs an ordered rule chain over canonical keys
type Classifier struct {
	logger *zap.Logger
	rules  []Rule
}

// New creates a Classifier. With no rules, the default chain is used.
func New(logger *zap.Logger, rules ...Rule) (*Classifier, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if len(rules) == 0 {
		rules = DefaultRules(DefaultDaysThreshold)
	}
	for _, r := range rules {
		if r == nil {
			return nil, errors.New("rule cannot be nil")
		}
	}

	return &Classifier{
		logger: logger.Named("classifier"),
		rules:  append([]Rule(nil), rules...),
	}, nil
}

// Reasons returns every tag the chain can emit, in rule order
func (c *Classifier) Reasons() []model.Reason {
	var out []model.Reason
	for _, r := range c.rules {
		out = append(out, r.Reasons()...)
	}
	return out
}

// Classify evaluates every rule for every key and returns one record per
// key, in input order
func (c *Classifier) Classify(keys []string, ref Lookups) []model.ClassificationRecord {
	records := make([]model.ClassificationRecord, len(keys))
	hits := make(map[string]int, len(c.rules))

	for row, key := range keys {
		rec := model.ClassificationRecord{
			Row:  row,
			Key:  key,
			Days: ref.DaysFor(key),
		}
		for _, rule := range c.rules {
			if reason, rejected := rule.Evaluate(key, ref); rejected {
				rec.Reasons = append(rec.Reasons, reason)
				hits[rule.Name()]++
			}
		}
		records[row] = rec
	}

	fields := []zap.Field{zap.Int("rows", len(keys))}
	for _, rule := range c.rules {
		fields = append(fields, zap.Int(rule.Name(), hits[rule.Name()]))
	}
	c.logger.Info("Classified rows", fields...)

	return records
}
