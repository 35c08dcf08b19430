package pipeline

import "noctua/pkg/config"

// stageBudgetUSD returns the configured ceiling for stage, the value every
// Invoke call within that stage is bound to (spec.md §4.1.6). SCHEMA,
// CODEGEN, TEST, REPAIR, and HARDEN each get their full stage allocation
// in one call; RECON splits its allocation across Explore/Synthesize via
// reconExploreBudget/reconSynthesizeBudget instead.
func stageBudgetUSD(budgets config.StageBudgets, stage Stage) float64 {
	switch stage {
	case StageRecon:
		return budgets.Recon
	case StageSchema:
		return budgets.Schema
	case StageCodegen:
		return budgets.Codegen
	case StageTest:
		return budgets.Test
	case StageRepair:
		return budgets.Repair
	case StageHarden:
		return budgets.Harden
	default:
		return 0
	}
}

// reconExploreRatio and reconSynthesizeRatio are RECON's internal 70/30
// split between Phase A (Explore) and Phase B (Synthesize), per spec.md
// §4.1.1 and §4.1.6.
const (
	reconExploreRatio    = 0.70
	reconSynthesizeRatio = 0.30
)

func reconExploreBudget(budgets config.StageBudgets) float64 {
	return budgets.Recon * reconExploreRatio
}

func reconSynthesizeBudget(budgets config.StageBudgets) float64 {
	return budgets.Recon * reconSynthesizeRatio
}
