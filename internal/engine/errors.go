package engine

import "fmt"

// StructuralDeadlockError is raised when a tick makes no progress while
// instructions remain live — a pipeline design unable to execute the
// program (spec §4.3, §7).
type StructuralDeadlockError struct {
	Index  int
	Cycle  uint32
	Reason string
}

func (e *StructuralDeadlockError) Error() string {
	return fmt.Sprintf("structural deadlock at cycle %d: instruction %d cannot advance: %s", e.Cycle, e.Index, e.Reason)
}
