package syscall

// GasSchedule holds the mnemonic-keyed instruction cost table and the
// fixed gas constants from spec.md §4.2/§6, kept as a single source of
// truth shared between the emulator's instruction counter and this bridge
// (spec.md §9 "Gas metering vs accurate cycle counting").
type GasSchedule struct {
	// Per-class RISC-V instruction costs. InstructionCost maps the
	// mnemonic keys of riscv.CPU.InstCounter onto these classes.
	DivRemCost    uint64
	MulCost       uint64
	LoadStoreCost uint64
	BranchJumpCost uint64
	DefaultCost   uint64

	// EmptyCalldataDecodeCost is subtracted from the tallied instruction
	// cost to normalise ABI-decoding overhead common to every contract.
	EmptyCalldataDecodeCost uint64

	SloadCold  uint64
	SloadWarm  uint64
	SstoreCold uint64
	SstoreWarm uint64

	CallBase              uint64
	NewAccountSurcharge   uint64
	EmptyAccountSurcharge uint64
	ValueTransferSurcharge uint64
	CreateBase            uint64
}

// DefaultGasSchedule returns the bit-exact constants from spec.md §4.2/§6.
func DefaultGasSchedule() GasSchedule {
	return GasSchedule{
		DivRemCost:     25,
		MulCost:        5,
		LoadStoreCost:  3,
		BranchJumpCost: 3,
		DefaultCost:    1,

		EmptyCalldataDecodeCost: 9_175_538,

		SloadCold:  2100,
		SloadWarm:  100,
		SstoreCold: 2200,
		SstoreWarm: 100,

		CallBase:               100,
		NewAccountSurcharge:    2600,
		EmptyAccountSurcharge:  25_000,
		ValueTransferSurcharge: 9_000,
		CreateBase:             32_000,
	}
}

// instructionClasses maps the mnemonic classes riscv.CPU.InstCounter keys
// instructions by onto their priced class, per spec.md §4.2's cost table.
var instructionClasses = map[string]string{
	"div": "divrem", "divu": "divrem", "rem": "divrem", "remu": "divrem",
	"divw": "divrem", "divuw": "divrem", "remw": "divrem", "remuw": "divrem",

	"mul": "mul", "mulh": "mul", "mulhsu": "mul", "mulhu": "mul", "mulw": "mul",

	"lb": "loadstore", "lh": "loadstore", "lw": "loadstore", "ld": "loadstore",
	"lbu": "loadstore", "lhu": "loadstore", "lwu": "loadstore",
	"sb": "loadstore", "sh": "loadstore", "sw": "loadstore", "sd": "loadstore",

	"beq": "branchjump", "bne": "branchjump", "blt": "branchjump",
	"bge": "branchjump", "bltu": "branchjump", "bgeu": "branchjump",
	"jal": "branchjump", "jalr": "branchjump",
}

// InstructionCost returns the per-class gas cost of one executed
// instruction of the given mnemonic, per spec.md §4.2's table: division/
// remainder 25, multiplication 5, load/store 3, branch/jump 3, everything
// else 1.
func (g GasSchedule) InstructionCost(mnemonic string) uint64 {
	switch instructionClasses[mnemonic] {
	case "divrem":
		return g.DivRemCost
	case "mul":
		return g.MulCost
	case "loadstore":
		return g.LoadStoreCost
	case "branchjump":
		return g.BranchJumpCost
	default:
		return g.DefaultCost
	}
}

// TallyGas sums the instruction-counter contents into a total gas charge,
// normalised by subtracting EmptyCalldataDecodeCost. The result never goes
// negative; a tally that would undercut the constant collapses to zero.
func (g GasSchedule) TallyGas(counts map[string]uint64) uint64 {
	var total uint64
	for mnemonic, n := range counts {
		total += g.InstructionCost(mnemonic) * n
	}
	if total < g.EmptyCalldataDecodeCost {
		return 0
	}
	return total - g.EmptyCalldataDecodeCost
}
