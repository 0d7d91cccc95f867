package topology

import (
	"testing"

	"github.com/abhandari/pipesim/internal/capability"
)

func unit(name string, width int, caps ...string) UnitModel {
	return UnitModel{Name: name, Width: width, Capabilities: capability.NewSet(caps...)}
}

func classicFiveStage() ProcessorDesc {
	return ProcessorDesc{
		InPorts: []UnitModel{unit("F", 1, "ALU", "MEM")},
		OutPorts: []FuncUnit{
			{Unit: UnitModel{Name: "W", Width: 1, Capabilities: capability.NewSet("ALU", "MEM"), WriteLock: true}, Preds: []string{"M"}},
		},
		InternalUnits: []FuncUnit{
			{Unit: UnitModel{Name: "D", Width: 1, Capabilities: capability.NewSet("ALU", "MEM"), ReadLock: true}, Preds: []string{"F"}},
			{Unit: unit("X", 1, "ALU", "MEM"), Preds: []string{"D"}},
			{Unit: UnitModel{Name: "M", Width: 1, Capabilities: capability.NewSet("ALU", "MEM"), MemAccess: capability.NewSet("ALU", "MEM")}, Preds: []string{"X"}},
		},
	}
}

func TestBuild_ClassicFiveStage(t *testing.T) {
	g, err := Build(classicFiveStage())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if g.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", g.Len())
	}
	if len(g.Entries()) != 1 || g.Unit(g.Entries()[0]).Name != "F" {
		t.Errorf("Entries() = %v, want just F", g.Entries())
	}
	if len(g.Exits()) != 1 || g.Unit(g.Exits()[0]).Name != "W" {
		t.Errorf("Exits() = %v, want just W", g.Exits())
	}

	f, _ := g.ByName("f")
	d, _ := g.ByName("D")
	succ := g.Successors(f)
	if len(succ) != 1 || succ[0] != d {
		t.Errorf("Successors(F) = %v, want [D]", succ)
	}
}

func TestBuild_DuplicateName(t *testing.T) {
	desc := classicFiveStage()
	desc.InOutPorts = []UnitModel{unit("f", 1, "ALU")}

	_, err := Build(desc)
	var dupErr *DuplicateNameError
	if err == nil {
		t.Fatal("Build() expected DuplicateNameError, got nil")
	}
	if !asType(err, &dupErr) {
		t.Errorf("Build() error = %T, want *DuplicateNameError", err)
	}
}

func TestBuild_DanglingPredecessor(t *testing.T) {
	desc := classicFiveStage()
	desc.InternalUnits[0].Preds = []string{"Ghost"}

	_, err := Build(desc)
	var dangErr *DanglingPredecessorError
	if !asType(err, &dangErr) {
		t.Errorf("Build() error = %T, want *DanglingPredecessorError", err)
	}
}

func TestBuild_CyclicPipeline(t *testing.T) {
	desc := ProcessorDesc{
		InPorts: []UnitModel{unit("F", 1, "ALU")},
		OutPorts: []FuncUnit{
			{Unit: unit("W", 1, "ALU"), Preds: []string{"B"}},
		},
		InternalUnits: []FuncUnit{
			{Unit: unit("A", 1, "ALU"), Preds: []string{"F", "B"}},
			{Unit: unit("B", 1, "ALU"), Preds: []string{"A"}},
		},
	}

	_, err := Build(desc)
	var cycErr *CyclicPipelineError
	if !asType(err, &cycErr) {
		t.Errorf("Build() error = %T, want *CyclicPipelineError", err)
	}
}

func TestBuild_DeadEnd(t *testing.T) {
	desc := classicFiveStage()
	desc.InternalUnits = append(desc.InternalUnits, FuncUnit{Unit: unit("Orphan", 1, "ALU")})

	_, err := Build(desc)
	var deadErr *DeadEndError
	if !asType(err, &deadErr) {
		t.Errorf("Build() error = %T, want *DeadEndError", err)
	}
}

func TestBuild_UnreachableCapability(t *testing.T) {
	desc := ProcessorDesc{
		InPorts: []UnitModel{unit("F", 1, "ALU")},
		OutPorts: []FuncUnit{
			{Unit: unit("W", 1, "ALU", "MEM"), Preds: []string{"F"}},
		},
	}

	_, err := Build(desc)
	var unreachErr *UnreachableCapabilityError
	if !asType(err, &unreachErr) {
		t.Errorf("Build() error = %T, want *UnreachableCapabilityError", err)
	}
}

func TestBuild_InOutPorts(t *testing.T) {
	desc := ProcessorDesc{
		InOutPorts: []UnitModel{unit("Single", 1, "ALU")},
	}

	g, err := Build(desc)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(g.Entries()) != 1 || len(g.Exits()) != 1 {
		t.Errorf("expected Single to be both an entry and an exit, got entries=%v exits=%v", g.Entries(), g.Exits())
	}
}

func TestGraph_SupportedCapabilities(t *testing.T) {
	g, err := Build(classicFiveStage())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	supported := g.SupportedCapabilities()
	if !supported.Contains("ALU") || !supported.Contains("MEM") {
		t.Errorf("SupportedCapabilities() = %v, want ALU and MEM", supported)
	}
}

func TestGraph_NoWriteCommitRequired(t *testing.T) {
	g, err := Build(classicFiveStage())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	w, _ := g.ByName("W")
	if g.NoWriteCommitRequired(w) {
		t.Errorf("W is itself write-locking; every path to it passes a write-locking unit")
	}

	f, _ := g.ByName("F")
	if !g.NoWriteCommitRequired(f) {
		t.Errorf("F precedes every write-locking unit; it should need no write commitment yet")
	}
}

func TestGraph_NoWriteCommitRequired_BypassPath(t *testing.T) {
	desc := ProcessorDesc{
		InPorts: []UnitModel{unit("F", 2, "ALU")},
		OutPorts: []FuncUnit{
			{Unit: unit("W", 2, "ALU"), Preds: []string{"Bypass", "Locked"}},
		},
		InternalUnits: []FuncUnit{
			{Unit: unit("Bypass", 1, "ALU"), Preds: []string{"F"}},
			{Unit: UnitModel{Name: "Locked", Width: 1, Capabilities: capability.NewSet("ALU"), WriteLock: true}, Preds: []string{"F"}},
		},
	}

	g, err := Build(desc)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	w, _ := g.ByName("W")
	if !g.NoWriteCommitRequired(w) {
		t.Errorf("W has a bypass path through Bypass that never passes Locked; it should need no write commitment")
	}

	locked, _ := g.ByName("Locked")
	if g.NoWriteCommitRequired(locked) {
		t.Errorf("Locked is itself write-locking; no bypass path reaches it")
	}
}

// asType reports whether err can be assigned to *target, mirroring
// errors.As without requiring the caller to import the errors package in
// every test.
func asType[T error](err error, target *T) bool {
	t, ok := err.(T)
	if !ok {
		return false
	}
	*target = t
	return true
}
