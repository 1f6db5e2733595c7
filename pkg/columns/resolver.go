// pkg/columns/resolver.go
package columns

import (
	"strings"

	"github.com/David-Botos/dni-validator/pkg/model"
)

// Strategy is how a column was matched
type Strategy string

const (
	StrategyExact     Strategy = "exact"
	StrategySubstring Strategy = "substring"
)

// Default candidate lists, highest priority first
var (
	IdentityCandidates = []string{"DNI", "dni", "Nº documento", "NRO DOCUMENTO", "DOCUMENTO", "documento", "NRO_DOC"}
	DaysCandidates     = []string{"dias_restantes", "dias restantes", "dias", "días", "dias_rest"}
	StatusCandidates   = []string{"estado", "Estado", "ESTADO"}
)

// Match is a resolved column
type Match struct {
	Column    string   // Column name as it appears in the table
	Candidate string   // Candidate that matched
	Strategy  Strategy // Matching phase that found it
}

// Find returns the column best matching candidates, or false if none does
func Find(t *model.Table, candidates []string) (string, bool) {
	m, ok := FindMatch(t, candidates)
	return m.Column, ok
}

// FindMatch resolves a column in two phases. First a case-insensitive exact
// match, trying candidates in priority order. Then, for each candidate in
// order, the first column (in table order) whose lowercased name contains it.
func FindMatch(t *model.Table, candidates []string) (Match, bool) {
	if t == nil || len(candidates) == 0 {
		return Match{}, false
	}

	for _, cand := range candidates {
		if name := t.GetColumnByName(cand); name != "" {
			return Match{Column: name, Candidate: cand, Strategy: StrategyExact}, true
		}
	}

	names := t.ColumnNames()

	for _, cand := range candidates {
		needle := strings.ToLower(cand)
		if needle == "" {
			continue
		}
		for _, name := range names {
			if strings.Contains(strings.ToLower(name), needle) {
				return Match{Column: name, Candidate: cand, Strategy: StrategySubstring}, true
			}
		}
	}

	return Match{}, false
}

// Dedupe removes repeated candidates, keeping the first occurrence
func Dedupe(candidates []string) []string {
	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Set holds the candidate lists used for one run
type Set struct {
	Identity []string `yaml:"identity"`
	Days     []string `yaml:"days"`
	Status   []string `yaml:"status"`
}

// DefaultSet returns copies of the default candidate lists
func DefaultSet() Set {
	return Set{
		Identity: append([]string(nil), IdentityCandidates...),
		Days:     append([]string(nil), DaysCandidates...),
		Status:   append([]string(nil), StatusCandidates...),
	}
}

// WithDefaults fills empty lists with the defaults and removes duplicates
func (s Set) WithDefaults() Set {
	def := DefaultSet()
	if len(s.Identity) == 0 {
		s.Identity = def.Identity
	}
	if len(s.Days) == 0 {
		s.Days = def.Days
	}
	if len(s.Status) == 0 {
		s.Status = def.Status
	}
	s.Identity = Dedupe(s.Identity)
	s.Days = Dedupe(s.Days)
	s.Status = Dedupe(s.Status)
	return s
}
