package pipeline

import (
	"testing"

	"noctua/pkg/config"
)

func TestStageBudgetUSD_PerStage(t *testing.T) {
	budgets := config.StageBudgets{Recon: 10, Schema: 20, Codegen: 30, Test: 40, Repair: 50, Harden: 60}

	cases := []struct {
		stage Stage
		want  float64
	}{
		{StageRecon, 10},
		{StageSchema, 20},
		{StageCodegen, 30},
		{StageTest, 40},
		{StageRepair, 50},
		{StageHarden, 60},
		{StageDone, 0},
	}
	for _, c := range cases {
		if got := stageBudgetUSD(budgets, c.stage); got != c.want {
			t.Errorf("stageBudgetUSD(%s) = %v, want %v", c.stage, got, c.want)
		}
	}
}

func TestReconBudgetSplit_SumsToReconBudget(t *testing.T) {
	budgets := config.StageBudgets{Recon: 100}
	explore := reconExploreBudget(budgets)
	synth := reconSynthesizeBudget(budgets)

	if explore != 70 {
		t.Errorf("got explore budget %v, want 70", explore)
	}
	if synth != 30 {
		t.Errorf("got synthesize budget %v, want 30", synth)
	}
	if explore+synth != budgets.Recon {
		t.Errorf("explore+synthesize = %v, want %v", explore+synth, budgets.Recon)
	}
}
