// pkg/config/rules.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/David-Botos/dni-validator/pkg/columns"
)

// RulesConfig is the optional YAML rules file
//
//	candidates:
//	  identity: [DNI, documento]
//	  days: [dias_restantes, dias]
//	  status: [estado]
//	days_threshold: 30
//	flagged_status: descargado
type RulesConfig struct {
	Candidates    columns.Set `yaml:"candidates"`
	DaysThreshold *float64    `yaml:"days_threshold"`
	FlaggedStatus string      `yaml:"flagged_status"`
}

// LoadRules reads a rules file
func LoadRules(path string) (*RulesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	var rules RulesConfig
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	return &rules, nil
}

// Apply overrides cfg with every value set in the rules file
func (r *RulesConfig) Apply(cfg *Config) {
	if len(r.Candidates.Identity) > 0 {
		cfg.Candidates.Identity = r.Candidates.Identity
	}
	if len(r.Candidates.Days) > 0 {
		cfg.Candidates.Days = r.Candidates.Days
	}
	if len(r.Candidates.Status) > 0 {
		cfg.Candidates.Status = r.Candidates.Status
	}
	if r.DaysThreshold != nil {
		cfg.DaysThreshold = *r.DaysThreshold
	}
	if r.FlaggedStatus != "" {
		cfg.FlaggedStatus = r.FlaggedStatus
	}
}
