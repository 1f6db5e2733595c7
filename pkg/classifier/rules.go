// pkg/classifier/rules.go
package classifier

import (
	"fmt"

	"github.com/David-Botos/dni-validator/pkg/model"
)

// DefaultDaysThreshold is the number of remaining days at which a row fails
const DefaultDaysThreshold = 30

// Lookups is what rules are evaluated against
type Lookups interface {
	InDetail(key string) bool
	InSubscribers(key string) bool
	IsFlagged(key string) bool
	DaysFor(key string) model.Number
}

// Rule checks one condition for a canonical key. Rules are independent: each
// is evaluated for every row regardless of what the others returned.
type Rule interface {
	// Name identifies the rule in logs
	Name() string
	// Reasons lists every tag the rule can emit, in order
	Reasons() []model.Reason
	// Evaluate returns the tag to attach, or false if the rule passes
	Evaluate(key string, ref Lookups) (model.Reason, bool)
}

// NotInDetail rejects keys missing from the detail table
type NotInDetail struct{}

func (NotInDetail) Name() string            { return "not_in_detail" }
func (NotInDetail) Reasons() []model.Reason { return []model.Reason{model.ReasonNotInDetail} }

func (NotInDetail) Evaluate(key string, ref Lookups) (model.Reason, bool) {
	if ref.InDetail(key) {
		return "", false
	}
	return model.ReasonNotInDetail, true
}

// NotInSubscribers rejects keys missing from the subscribers table
type NotInSubscribers struct{}

func (NotInSubscribers) Name() string            { return "not_in_subscribers" }
func (NotInSubscribers) Reasons() []model.Reason { return []model.Reason{model.ReasonNotInSubscribers} }

func (NotInSubscribers) Evaluate(key string, ref Lookups) (model.Reason, bool) {
	if ref.InSubscribers(key) {
		return "", false
	}
	return model.ReasonNotInSubscribers, true
}

// FlaggedStatus rejects keys whose subscriber status is flagged. An empty
// flagged set never rejects.
type FlaggedStatus struct{}

func (FlaggedStatus) Name() string            { return "flagged_status" }
func (FlaggedStatus) Reasons() []model.Reason { return []model.Reason{model.ReasonFlagged} }

func (FlaggedStatus) Evaluate(key string, ref Lookups) (model.Reason, bool) {
	if ref.IsFlagged(key) {
		return model.ReasonFlagged, true
	}
	return "", false
}

// DaysRemaining rejects keys without a days value (only when the key is a
// known subscriber) and keys whose value is not below Threshold
type DaysRemaining struct {
	Threshold float64
}

func (r DaysRemaining) Name() string { return "days_remaining" }

func (r DaysRemaining) Reasons() []model.Reason {
	return []model.Reason{model.ReasonNoDays, r.exceeded()}
}

func (r DaysRemaining) Evaluate(key string, ref Lookups) (model.Reason, bool) {
	days := ref.DaysFor(key)
	if !days.Present {
		if ref.InSubscribers(key) {
			return model.ReasonNoDays, true
		}
		return "", false
	}
	if days.Value < r.Threshold {
		return "", false
	}
	return r.exceeded(), true
}

// exceeded is the tag for values at or over the threshold ("dias>=30")
func (r DaysRemaining) exceeded() model.Reason {
	if r.Threshold == DefaultDaysThreshold {
		return model.ReasonDaysExceeded
	}
	return model.Reason(fmt.Sprintf("dias>=%s", model.FormatNumber(r.Threshold)))
}

// DefaultRules returns the standard chain in evaluation order
func DefaultRules(threshold float64) []Rule {
	return []Rule{
		NotInDetail{},
		NotInSubscribers{},
		FlaggedStatus{},
		DaysRemaining{Threshold: threshold},
	}
}
