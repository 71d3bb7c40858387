package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Budget is the live budget document consulted by the api-key lane guard.
// A zero monthly budget combined with the approval-required flag means paid
// API calls need an explicit approval flag before the lane opens.
type Budget struct {
	MonthlyAPIBudgetYen     int  `yaml:"monthly_api_budget_yen"`
	PaidAPIRequiresApproval bool `yaml:"paid_api_requires_approval"`
}

// DefaultBudget returns the built-in budget document: no paid budget,
// approval required.
func DefaultBudget() Budget {
	return Budget{
		MonthlyAPIBudgetYen:     0,
		PaidAPIRequiresApproval: true,
	}
}

// DefaultBudgetPath returns the default budget file location.
func DefaultBudgetPath() string {
	return filepath.Join(DefaultDir(), "budget.yaml")
}

// LoadBudget loads the budget document. Empty path falls back to the
// default location; missing file returns defaults.
func LoadBudget(path string) (Budget, error) {
	if path == "" {
		path = DefaultBudgetPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultBudget(), nil
		}
		return Budget{}, fmt.Errorf("failed to read budget: %w", err)
	}

	cfg := DefaultBudget()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Budget{}, fmt.Errorf("failed to parse budget: %w", err)
	}

	return cfg, nil
}
