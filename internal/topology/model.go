// Package topology validates a declarative unit graph into a canonical,
// index-based pipeline DAG (spec §3-4.2).
package topology

import "github.com/abhandari/pipesim/internal/capability"

// UnitModel is a static descriptor for one pipeline stage.
type UnitModel struct {
	Name         string
	Width        int
	Capabilities capability.Set
	ReadLock     bool
	WriteLock    bool
	MemAccess    capability.Set
}

// FuncUnit is an edge-bearing unit: a UnitModel together with the names of
// its direct predecessors.
type FuncUnit struct {
	Unit  UnitModel
	Preds []string
}

// ProcessorDesc is the decoded external processor description: four
// disjoint port lists that together define the graph (spec §6).
type ProcessorDesc struct {
	InPorts       []UnitModel
	OutPorts      []FuncUnit
	InOutPorts    []UnitModel
	InternalUnits []FuncUnit
}

func (d ProcessorDesc) allFuncUnits() []FuncUnit {
	out := make([]FuncUnit, 0, len(d.InPorts)+len(d.OutPorts)+len(d.InOutPorts)+len(d.InternalUnits))
	for _, u := range d.InPorts {
		out = append(out, FuncUnit{Unit: u})
	}
	out = append(out, d.OutPorts...)
	for _, u := range d.InOutPorts {
		out = append(out, FuncUnit{Unit: u})
	}
	out = append(out, d.InternalUnits...)
	return out
}
