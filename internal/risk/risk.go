// Package risk holds the capability policy table: which actions exist per
// capability, how risky they are, and whether they must wait for approval.
package risk

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"relaybot/internal/policy"
)

// Risk tiers, lowest to highest.
const (
	TierLow      = "low"
	TierMedium   = "medium"
	TierHigh     = "high"
	TierCritical = "critical"
)

// ActionPolicy describes one capability action.
type ActionPolicy struct {
	RiskTier         string   `yaml:"risk_tier"`
	RequiresApproval bool     `yaml:"requires_approval"`
	// RequiredFlags must accompany the APPROVE that releases this action.
	RequiredFlags []string `yaml:"required_flags"`
}

// Table maps capability → action → policy.
type Table map[string]map[string]ActionPolicy

// DefaultTable returns the built-in capability policy.
func DefaultTable() Table {
	return Table{
		"process": {
			"restart": {RiskTier: TierHigh, RequiresApproval: true},
			"status":  {RiskTier: TierLow, RequiresApproval: false},
		},
		"file": {
			"list":   {RiskTier: TierLow, RequiresApproval: false},
			"read":   {RiskTier: TierMedium, RequiresApproval: false},
			"write":  {RiskTier: TierHigh, RequiresApproval: true},
			"delete": {RiskTier: TierCritical, RequiresApproval: true, RequiredFlags: []string{"confirm-delete"}},
		},
		"exec": {
			"run": {RiskTier: TierCritical, RequiresApproval: true, RequiredFlags: []string{"confirm-exec"}},
		},
	}
}

// DefaultTablePath returns the default capability table location.
func DefaultTablePath() string {
	return filepath.Join(policy.DefaultDir(), "capabilities.yaml")
}

// Load reads a capability table from YAML, merged over the defaults.
// Missing file returns defaults.
func Load(path string) (Table, error) {
	if path == "" {
		path = DefaultTablePath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultTable(), nil
		}
		return nil, fmt.Errorf("failed to read capability table: %w", err)
	}

	tbl := DefaultTable()
	if err := yaml.Unmarshal(data, &tbl); err != nil {
		return nil, fmt.Errorf("failed to parse capability table: %w", err)
	}

	return tbl, nil
}

// Lookup resolves a capability/action pair. The second return is false
// when either the capability or the action is unknown.
func (t Table) Lookup(capability, action string) (ActionPolicy, bool) {
	actions, ok := t[capability]
	if !ok {
		return ActionPolicy{}, false
	}
	ap, ok := actions[action]
	return ap, ok
}

// Capabilities returns the known capability names, sorted.
func (t Table) Capabilities() []string {
	names := make([]string, 0, len(t))
	for c := range t {
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

// Actions returns the supported actions for a capability, sorted.
// Empty when the capability is unknown.
func (t Table) Actions(capability string) []string {
	actions, ok := t[capability]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(actions))
	for a := range actions {
		names = append(names, a)
	}
	sort.Strings(names)
	return names
}
