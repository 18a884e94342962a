package subscription

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PlanConfig describes a named plan and its provider-side identifiers.
// Read-only to the billing core; supplied by the host application.
type PlanConfig struct {
	Name          string           `json:"name" yaml:"name"`
	MonthlyPlanID string           `json:"monthlyPlanId" yaml:"monthlyPlanId"`
	AnnualPlanID  string           `json:"annualPlanId,omitempty" yaml:"annualPlanId"`
	Limits        map[string]int64 `json:"limits,omitempty" yaml:"limits"`
	FreeTrialDays int              `json:"freeTrialDays,omitempty" yaml:"freeTrialDays"`
}

// ProviderPlanID resolves the provider plan identifier for the requested
// billing interval, falling back to the monthly ID when no annual ID is
// configured.
func (p PlanConfig) ProviderPlanID(annual bool) string {
	if annual && p.AnnualPlanID != "" {
		return p.AnnualPlanID
	}
	return p.MonthlyPlanID
}

// providerPlanIDPrefix is the recognizable prefix of provider plan
// identifiers (e.g. plan_00000000000001).
const providerPlanIDPrefix = "plan_"

// ResolvePlan finds a plan by selector. A selector carrying the provider
// plan ID prefix is matched against the monthly and annual provider IDs;
// anything else is matched against the display name. Matching is exact and
// case-sensitive on purpose: client code depends on the current behavior.
func ResolvePlan(plans []PlanConfig, selector string) (PlanConfig, bool) {
	if strings.HasPrefix(selector, providerPlanIDPrefix) {
		for _, p := range plans {
			if p.MonthlyPlanID == selector || p.AnnualPlanID == selector {
				return p, true
			}
		}
		return PlanConfig{}, false
	}

	for _, p := range plans {
		if p.Name == selector {
			return p, true
		}
	}
	return PlanConfig{}, false
}

// PlanSource loads the plan catalog. Sources may be static or backed by a
// file or remote configuration; the catalog is resolved once per request
// and never mutated by the billing core.
type PlanSource interface {
	Load(ctx context.Context) ([]PlanConfig, error)
}

type staticPlans []PlanConfig

// StaticPlans returns a PlanSource over a fixed plan list. Panics if no
// plans are provided so the service always has at least one valid plan.
func StaticPlans(plans ...PlanConfig) PlanSource {
	if len(plans) == 0 {
		panic("subscription: at least one plan is required")
	}
	out := make(staticPlans, len(plans))
	copy(out, plans)
	return out
}

func (s staticPlans) Load(context.Context) ([]PlanConfig, error) {
	out := make([]PlanConfig, len(s))
	copy(out, s)
	return out, nil
}

type yamlPlans struct {
	path string
}

// YAMLPlans returns a PlanSource reading the catalog from a YAML file on
// every load, so plan changes do not require a restart.
//
//	- name: Starter
//	  monthlyPlanId: plan_00000000000001
//	  annualPlanId: plan_00000000000002
//	  freeTrialDays: 14
func YAMLPlans(path string) PlanSource {
	if path == "" {
		panic("subscription: plan file path is required")
	}
	return &yamlPlans{path: path}
}

func (y *yamlPlans) Load(context.Context) ([]PlanConfig, error) {
	raw, err := os.ReadFile(y.path)
	if err != nil {
		return nil, fmt.Errorf("subscription: read plan file: %w", err)
	}
	var plans []PlanConfig
	if err := yaml.Unmarshal(raw, &plans); err != nil {
		return nil, fmt.Errorf("subscription: parse plan file: %w", err)
	}
	return plans, nil
}
