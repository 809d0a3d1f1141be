package syscall

import "testing"

func TestInstructionCostClasses(t *testing.T) {
	g := DefaultGasSchedule()
	cases := map[string]uint64{
		"div": g.DivRemCost, "remu": g.DivRemCost,
		"mul": g.MulCost, "mulhu": g.MulCost,
		"lw": g.LoadStoreCost, "sd": g.LoadStoreCost,
		"beq": g.BranchJumpCost, "jal": g.BranchJumpCost,
		"addi": g.DefaultCost, "other": g.DefaultCost,
	}
	for mnemonic, want := range cases {
		if got := g.InstructionCost(mnemonic); got != want {
			t.Errorf("InstructionCost(%q) = %d, want %d", mnemonic, got, want)
		}
	}
}

func TestTallyGasSubtractsDecodeCost(t *testing.T) {
	g := DefaultGasSchedule()
	counts := map[string]uint64{"addi": g.EmptyCalldataDecodeCost + 100}
	if got := g.TallyGas(counts); got != 100 {
		t.Fatalf("TallyGas = %d, want 100", got)
	}
}

func TestTallyGasNeverNegative(t *testing.T) {
	g := DefaultGasSchedule()
	counts := map[string]uint64{"addi": 10}
	if got := g.TallyGas(counts); got != 0 {
		t.Fatalf("TallyGas = %d, want 0 (clamped)", got)
	}
}
