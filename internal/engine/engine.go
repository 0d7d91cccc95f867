// Package engine implements the per-cycle dispatch / hazard simulation that
// advances instructions across a processor graph (spec §4.3).
package engine

import (
	"fmt"

	"github.com/abhandari/pipesim/internal/assembler"
	"github.com/abhandari/pipesim/internal/timeline"
	"github.com/abhandari/pipesim/internal/topology"
)

// Engine owns the per-cycle simulation state for one (ProcessorDesc,
// Program) pair. It is single-threaded and non-reentrant; callers running
// simulations concurrently must use independent Engine instances (spec §5).
type Engine struct {
	graph   *topology.Graph
	states  []*instructionState
	cycle   uint32
	safeCap uint32
}

// New builds an Engine ready to run program against graph.
func New(graph *topology.Graph, program *assembler.Program) *Engine {
	states := make([]*instructionState, len(program.Instructions))
	for i, inst := range program.Instructions {
		states[i] = newInstructionState(inst.Index, inst.Mnemonic, inst.RequiredCap, inst.Destination, inst.Sources)
	}

	depth := graph.Depth()
	maxWidth := graph.MaxWidth()
	safetyCap := uint32(len(states)) * uint32(depth+1) * uint32(maxWidth)
	if safetyCap == 0 {
		safetyCap = 1
	}

	return &Engine{graph: graph, states: states, safeCap: safetyCap}
}

// Run advances the engine, cycle by cycle, until every instruction has
// retired or the tick makes no progress while instructions remain live.
func (e *Engine) Run() (timeline.Timeline, error) {
	for !e.allRetired() {
		if e.cycle >= e.safeCap {
			return timeline.Timeline{}, e.deadlockWithReason("safety cycle cap exceeded; pipeline cannot make progress on this program")
		}

		e.cycle++
		retiredAny := e.harvest()
		movedAny := e.planAndCommit()

		if !movedAny && !retiredAny && !e.allRetired() {
			return timeline.Timeline{}, e.deadlock()
		}
	}

	return e.buildTimeline(), nil
}

func (e *Engine) allRetired() bool {
	for _, s := range e.states {
		if !s.retired {
			return false
		}
	}
	return true
}

// deadlock reports the first blocked instruction and the specific reason
// its preferred target was rejected this tick (spec §4.3, §7).
func (e *Engine) deadlock() error {
	for _, s := range e.states {
		if !s.retired {
			return &StructuralDeadlockError{Index: s.index, Cycle: e.cycle, Reason: e.blockReason(s)}
		}
	}
	return &StructuralDeadlockError{Cycle: e.cycle, Reason: "no instruction could advance and none retired this cycle"}
}

// deadlockWithReason reports the first blocked instruction with a caller-
// supplied reason, used when the failure isn't tied to a single tick's
// rejected move (e.g. the safety cycle cap).
func (e *Engine) deadlockWithReason(reason string) error {
	for _, s := range e.states {
		if !s.retired {
			return &StructuralDeadlockError{Index: s.index, Cycle: e.cycle, Reason: reason}
		}
	}
	return &StructuralDeadlockError{Cycle: e.cycle, Reason: reason}
}

// blockReason names s's preferred candidate target and the gate that
// rejected it — width, write-lock ordering, read-lock hazard, or unified-
// memory exclusion — mirroring planMove's check order. Called only when a
// tick has already made no progress, so no other instruction holds a width
// or memory token this cycle; the sole remaining width cause is a target at
// or below zero capacity.
func (e *Engine) blockReason(s *instructionState) string {
	candidates := e.candidateTargets(s)
	if len(candidates) == 0 {
		return fmt.Sprintf("no entry or successor unit offers required capability %q", s.requiredCap.String())
	}

	target := candidates[0]
	unit := e.graph.Unit(target)

	if unit.Width <= 0 {
		return fmt.Sprintf("unit %q has zero capacity and can never admit an instruction", unit.Name)
	}
	if unit.WriteLock && e.blockedByWriteOrdering(s) {
		return fmt.Sprintf("write-lock ordering: an earlier instruction writing register %q has not yet passed write-locking unit %q", s.destination, unit.Name)
	}
	if unit.ReadLock && e.blockedByReadHazard(s) {
		return fmt.Sprintf("read-lock hazard: an earlier instruction writing a register instruction %d reads has not yet passed its write-locking unit, blocking entry to read-locking unit %q", s.index, unit.Name)
	}
	if unit.MemAccess.Has(s.requiredCap) {
		return fmt.Sprintf("unified-memory exclusion: another instruction already holds the %q memory token this cycle at %q", s.requiredCap, unit.Name)
	}
	return fmt.Sprintf("unit %q rejected the move for an unspecified reason", unit.Name)
}

// harvest retires every instruction sitting at an exit unit whose write
// commitments are satisfied: it has already passed a write-locking stage,
// or its path to this exit never required one (spec §4.3 step 1). Retired
// instructions record no further history.
func (e *Engine) harvest() bool {
	retiredAny := false
	for _, s := range e.states {
		if s.retired || !s.entered() {
			continue
		}
		if !e.isExit(s.currentUnit) {
			continue
		}
		if !s.reachedWriteLock && !e.graph.NoWriteCommitRequired(s.currentUnit) {
			continue
		}
		s.retired = true
		retiredAny = true
	}
	return retiredAny
}

func (e *Engine) isExit(id topology.NodeID) bool {
	for _, ex := range e.graph.Exits() {
		if ex == id {
			return true
		}
	}
	return false
}

type plannedMove struct {
	state  *instructionState
	target topology.NodeID
}

// planAndCommit runs one tick's planning pass in program order, then
// commits every accepted move atomically (spec §4.3, §5).
func (e *Engine) planAndCommit() bool {
	widthUsed := make(map[topology.NodeID]int)
	memTokenUsed := make(map[string]bool)

	var moves []plannedMove
	var stalled []*instructionState

	for _, s := range e.states {
		if s.retired {
			continue
		}

		target, ok := e.planMove(s, widthUsed, memTokenUsed)
		if !ok {
			if s.entered() {
				stalled = append(stalled, s)
			}
			continue
		}

		widthUsed[target]++
		unit := e.graph.Unit(target)
		if unit.MemAccess.Has(s.requiredCap) {
			memTokenUsed[s.requiredCap.Key()] = true
		}
		moves = append(moves, plannedMove{state: s, target: target})
	}

	for _, m := range moves {
		m.state.currentUnit = m.target
		unit := e.graph.Unit(m.target)
		m.state.history = append(m.state.history, timeline.Entry{Cycle: e.cycle, Unit: unit.Name})
		if unit.WriteLock {
			m.state.reachedWriteLock = true
		}
	}
	for _, s := range stalled {
		unit := e.graph.Unit(s.currentUnit)
		s.history = append(s.history, timeline.Entry{Cycle: e.cycle, Unit: unit.Name})
		if unit.WriteLock {
			s.reachedWriteLock = true
		}
	}

	return len(moves) > 0
}

// planMove picks the successor (or entry unit, if s hasn't entered yet)
// with the earliest canonical topological index among those that satisfy
// every structural and hazard constraint.
func (e *Engine) planMove(s *instructionState, widthUsed map[topology.NodeID]int, memTokenUsed map[string]bool) (topology.NodeID, bool) {
	candidates := e.candidateTargets(s)

	for _, target := range candidates {
		unit := e.graph.Unit(target)

		if widthUsed[target] >= unit.Width {
			continue
		}
		if unit.WriteLock && e.blockedByWriteOrdering(s) {
			continue
		}
		if unit.ReadLock && e.blockedByReadHazard(s) {
			continue
		}
		if unit.MemAccess.Has(s.requiredCap) && memTokenUsed[s.requiredCap.Key()] {
			continue
		}

		return target, true
	}

	return topology.None, false
}

func (e *Engine) candidateTargets(s *instructionState) []topology.NodeID {
	var pool []topology.NodeID
	if !s.entered() {
		pool = e.graph.Entries()
	} else {
		pool = e.graph.Successors(s.currentUnit)
	}

	out := make([]topology.NodeID, 0, len(pool))
	for _, id := range pool {
		if e.graph.Unit(id).Capabilities.Has(s.requiredCap) {
			out = append(out, id)
		}
	}
	return out
}

// blockedByWriteOrdering reports whether some earlier instruction writing
// the same register as s has not yet committed that write (spec §4.3,
// "write-lock ordering").
func (e *Engine) blockedByWriteOrdering(s *instructionState) bool {
	for _, other := range e.states {
		if other.index >= s.index {
			continue
		}
		if other.destination != s.destination {
			continue
		}
		if !e.writeCommitted(other) {
			return true
		}
	}
	return false
}

// blockedByReadHazard reports whether some earlier instruction destined for
// a register s reads has not yet committed that write — the classic RAW
// stall (spec §4.3, "read-lock hazard").
func (e *Engine) blockedByReadHazard(s *instructionState) bool {
	for _, other := range e.states {
		if other.index >= s.index {
			continue
		}
		if !s.sourcesOverlap(other) {
			continue
		}
		if !e.writeCommitted(other) {
			return true
		}
	}
	return false
}

// writeCommitted reports whether s's write, if any, is settled: either it
// has passed a write-locking unit, or it has already retired (harvest only
// retires once a write commitment is satisfied or was never owed — spec
// §4.3 step 1 — so a retired instruction is always settled even if its
// particular path never passed a write-locking unit).
func (e *Engine) writeCommitted(s *instructionState) bool {
	return s.reachedWriteLock || s.retired
}

func (e *Engine) buildTimeline() timeline.Timeline {
	histories := make([][]timeline.Entry, len(e.states))
	for i, s := range e.states {
		histories[i] = s.history
	}
	return timeline.Timeline{Histories: histories}
}
