package engine

import (
	"github.com/abhandari/pipesim/internal/capability"
	"github.com/abhandari/pipesim/internal/timeline"
	"github.com/abhandari/pipesim/internal/topology"
)

// instructionState is the engine's mutable runtime record for one program
// instruction (spec §3, "InstructionState"). It is created once at engine
// start and mutated only by the engine's tick loop.
type instructionState struct {
	index       int
	mnemonic    string
	requiredCap capability.Capability
	sources     []string
	destination string

	currentUnit topology.NodeID
	retired     bool
	history     []timeline.Entry

	// reachedWriteLock is set once the instruction has occupied (or is
	// currently occupying) any write-locking unit. It never resets.
	// Together with retired (see Engine.writeCommitted) it is the only
	// cross-instruction hazard state the engine carries between ticks.
	reachedWriteLock bool
}

func newInstructionState(idx int, mnemonic string, cap capability.Capability, destination string, sources []string) *instructionState {
	return &instructionState{
		index:       idx,
		mnemonic:    mnemonic,
		requiredCap: cap,
		sources:     sources,
		destination: destination,
		currentUnit: topology.None,
	}
}

func (s *instructionState) entered() bool { return s.currentUnit != topology.None }

// sourcesOverlap reports whether s reads a register that other writes.
func (s *instructionState) sourcesOverlap(other *instructionState) bool {
	for _, src := range s.sources {
		if src == other.destination {
			return true
		}
	}
	return false
}
