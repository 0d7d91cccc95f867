package topology

import "fmt"

// DuplicateNameError is raised when two units share a case-folded name.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("unit name %q is declared more than once", e.Name)
}

// DanglingPredecessorError is raised when a FuncUnit names an unknown
// predecessor.
type DanglingPredecessorError struct {
	Unit string
	Pred string
}

func (e *DanglingPredecessorError) Error() string {
	return fmt.Sprintf("unit %q names unknown predecessor %q", e.Unit, e.Pred)
}

// CyclicPipelineError is raised when the unit graph contains a cycle.
type CyclicPipelineError struct {
	Cycle []string
}

func (e *CyclicPipelineError) Error() string {
	return fmt.Sprintf("unit graph contains a cycle: %v", e.Cycle)
}

// DeadEndError is raised when a unit cannot reach any exit, or an entry
// cannot reach any exit, or an exit cannot be reached from any entry.
type DeadEndError struct {
	Unit   string
	Reason string
}

func (e *DeadEndError) Error() string {
	return fmt.Sprintf("unit %q is a dead end: %s", e.Unit, e.Reason)
}

// UnreachableCapabilityError is raised when a capability present at an exit
// has no entry-to-exit path supporting it at every hop.
type UnreachableCapabilityError struct {
	Capability string
}

func (e *UnreachableCapabilityError) Error() string {
	return fmt.Sprintf("capability %q at an exit has no supporting entry-to-exit path", e.Capability)
}
