package assembler

import (
	"testing"

	"github.com/abhandari/pipesim/internal/capability"
)

func testISA(t *testing.T) *capability.ISA {
	t.Helper()
	isa, err := capability.LoadISA([]capability.Row{
		{Mnemonic: "ADD", Capability: "ALU"},
		{Mnemonic: "LW", Capability: "MEM"},
	}, capability.NewSet("ALU", "MEM"))
	if err != nil {
		t.Fatalf("LoadISA() error = %v", err)
	}
	return isa
}

func TestAssemble(t *testing.T) {
	isa := testISA(t)

	lines := []string{
		"# a comment",
		"",
		"ADD R1, R2, R3",
		"LW R4, (R5)",
	}

	prog, err := Assemble(lines, isa)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if len(prog.Instructions) != 2 {
		t.Fatalf("Assemble() produced %d instructions, want 2", len(prog.Instructions))
	}

	add := prog.Instructions[0]
	if add.Index != 0 || add.Mnemonic != "ADD" || add.Destination != "R1" {
		t.Errorf("instruction 0 = %+v, want index 0, mnemonic ADD, destination R1", add)
	}
	if len(add.Sources) != 2 || add.Sources[0] != "R2" || add.Sources[1] != "R3" {
		t.Errorf("instruction 0 sources = %v, want [R2 R3]", add.Sources)
	}

	lw := prog.Instructions[1]
	if lw.Destination != "R4" || len(lw.Sources) != 1 || lw.Sources[0] != "R5" {
		t.Errorf("instruction 1 = %+v, want destination R4, source [R5] (parens stripped)", lw)
	}
}

func TestAssemble_UnknownMnemonic(t *testing.T) {
	isa := testISA(t)

	_, err := Assemble([]string{"MUL R1, R2, R3"}, isa)
	var target *UnknownMnemonicError
	if !castTo(err, &target) {
		t.Errorf("Assemble() error = %T, want *UnknownMnemonicError", err)
	}
}

func TestAssemble_EmptyInstruction(t *testing.T) {
	isa := testISA(t)

	_, err := Assemble([]string{"   ,  ,  "}, isa)
	var target *EmptyInstructionError
	if !castTo(err, &target) {
		t.Errorf("Assemble() error = %T, want *EmptyInstructionError", err)
	}
}

func TestAssemble_MissingDestination(t *testing.T) {
	isa := testISA(t)

	_, err := Assemble([]string{"ADD"}, isa)
	var target *MissingDestinationError
	if !castTo(err, &target) {
		t.Errorf("Assemble() error = %T, want *MissingDestinationError", err)
	}
}

func TestAssemble_BlankProgram(t *testing.T) {
	isa := testISA(t)

	prog, err := Assemble([]string{"", "# nothing here", "   "}, isa)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(prog.Instructions) != 0 {
		t.Errorf("Assemble() produced %d instructions, want 0", len(prog.Instructions))
	}
}

func castTo[T error](err error, target *T) bool {
	t, ok := err.(T)
	if !ok {
		return false
	}
	*target = t
	return true
}
