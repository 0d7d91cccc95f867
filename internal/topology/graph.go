package topology

import (
	"sort"
	"strings"

	"github.com/abhandari/pipesim/internal/capability"
)

// NodeID indexes a unit within a canonical Graph. Code outside this package
// should never resolve units by name again once a Graph exists.
type NodeID int

// None is the sentinel NodeID used by callers to mean "not yet entered any
// unit".
const None NodeID = -1

// Graph is the canonical, index-based pipeline DAG produced by Build. Units
// are ordered by a stable topological sort (ties broken by case-folded
// name), so NodeID 0 is always an entry and iterating 0..Len()-1 visits
// every unit before its successors.
type Graph struct {
	units   []UnitModel
	index   map[string]NodeID
	succ    [][]NodeID
	pred    [][]NodeID
	entries []NodeID
	exits   []NodeID

	// noWriteCommit holds every unit reachable from some entry along a path
	// that never passes a write-locking unit. An instruction sitting at an
	// exit in this set owes no write commitment before retiring, regardless
	// of the path it actually took (spec §4.3 step 1).
	noWriteCommit map[NodeID]bool
}

type namedEdge struct {
	unit  UnitModel
	preds []string
}

// Build validates desc against the invariants of spec §4.2 and returns its
// canonical graph. Validation fails on the first violated invariant, in the
// order: name uniqueness, edge resolution, acyclicity, connectivity,
// capability closure.
func Build(desc ProcessorDesc) (*Graph, error) {
	funcUnits := desc.allFuncUnits()

	byName := make(map[string]namedEdge, len(funcUnits))
	order := make([]string, 0, len(funcUnits))
	for _, fu := range funcUnits {
		key := strings.ToLower(fu.Unit.Name)
		if _, exists := byName[key]; exists {
			return nil, &DuplicateNameError{Name: fu.Unit.Name}
		}
		byName[key] = namedEdge{unit: fu.Unit, preds: fu.Preds}
		order = append(order, key)
	}

	for _, key := range order {
		edge := byName[key]
		for _, predName := range edge.preds {
			if _, ok := byName[strings.ToLower(predName)]; !ok {
				return nil, &DanglingPredecessorError{Unit: edge.unit.Name, Pred: predName}
			}
		}
	}

	topo, err := topologicalSort(byName, order)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		units: make([]UnitModel, len(topo)),
		index: make(map[string]NodeID, len(topo)),
	}
	for i, key := range topo {
		g.units[i] = byName[key].unit
		g.index[key] = NodeID(i)
	}

	g.succ = make([][]NodeID, len(g.units))
	g.pred = make([][]NodeID, len(g.units))
	for i, key := range topo {
		for _, predName := range byName[key].preds {
			p := g.index[strings.ToLower(predName)]
			g.pred[i] = append(g.pred[i], p)
			g.succ[p] = append(g.succ[p], NodeID(i))
		}
	}
	for i := range g.succ {
		sort.Slice(g.succ[i], func(a, b int) bool { return g.succ[i][a] < g.succ[i][b] })
	}

	entrySet := unitNameSet(desc.InPorts, desc.InOutPorts)
	exitSet := unitNameSet(exitUnits(desc.OutPorts), desc.InOutPorts)
	for i := range g.units {
		key := strings.ToLower(g.units[i].Name)
		if entrySet[key] {
			g.entries = append(g.entries, NodeID(i))
		}
		if exitSet[key] {
			g.exits = append(g.exits, NodeID(i))
		}
	}

	if err := g.checkConnectivity(); err != nil {
		return nil, err
	}
	if err := g.checkCapabilityClosure(); err != nil {
		return nil, err
	}

	g.noWriteCommit = g.reachableWithoutWriteLock()

	return g, nil
}

func exitUnits(ports []FuncUnit) []UnitModel {
	out := make([]UnitModel, len(ports))
	for i, p := range ports {
		out[i] = p.Unit
	}
	return out
}

func unitNameSet(groups ...[]UnitModel) map[string]bool {
	set := make(map[string]bool)
	for _, units := range groups {
		for _, u := range units {
			set[strings.ToLower(u.Name)] = true
		}
	}
	return set
}

// topologicalSort performs Kahn's algorithm over the name-keyed adjacency,
// always advancing the lexicographically smallest ready name so the result
// is a deterministic, stable order.
func topologicalSort(byName map[string]namedEdge, allKeys []string) ([]string, error) {
	indegree := make(map[string]int, len(byName))
	children := make(map[string][]string, len(byName))
	for key, edge := range byName {
		if _, ok := indegree[key]; !ok {
			indegree[key] = 0
		}
		for _, predName := range edge.preds {
			predKey := strings.ToLower(predName)
			indegree[key]++
			children[predKey] = append(children[predKey], key)
		}
	}

	ready := make([]string, 0, len(byName))
	for _, key := range allKeys {
		if indegree[key] == 0 {
			ready = append(ready, key)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(byName))
	for len(ready) > 0 {
		key := ready[0]
		ready = ready[1:]
		order = append(order, key)

		newlyReady := make([]string, 0)
		kids := children[key]
		sort.Strings(kids)
		for _, child := range kids {
			indegree[child]--
			if indegree[child] == 0 {
				newlyReady = append(newlyReady, child)
			}
		}
		if len(newlyReady) > 0 {
			ready = append(ready, newlyReady...)
			sort.Strings(ready)
		}
	}

	if len(order) != len(byName) {
		cycle := findCycle(byName)
		return nil, &CyclicPipelineError{Cycle: cycle}
	}

	return order, nil
}

// findCycle locates one cycle (by original unit names) for diagnostics,
// once topologicalSort has already determined one exists.
func findCycle(byName map[string]namedEdge) []string {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(byName))
	var stack []string

	var visit func(key string) []string
	visit = func(key string) []string {
		state[key] = visiting
		stack = append(stack, key)
		edge := byName[key]
		preds := append([]string{}, edge.preds...)
		sort.Strings(preds)
		for _, predName := range preds {
			predKey := strings.ToLower(predName)
			switch state[predKey] {
			case unvisited:
				if cyc := visit(predKey); cyc != nil {
					return cyc
				}
			case visiting:
				cyc := []string{byName[predKey].unit.Name}
				for i := len(stack) - 1; i >= 0; i-- {
					cyc = append(cyc, byName[stack[i]].unit.Name)
					if stack[i] == predKey {
						break
					}
				}
				return cyc
			}
		}
		stack = stack[:len(stack)-1]
		state[key] = done
		return nil
	}

	keys := make([]string, 0, len(byName))
	for key := range byName {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if state[key] == unvisited {
			if cyc := visit(key); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

func (g *Graph) checkConnectivity() error {
	fromEntries := g.reachableForward(g.entries)
	toExits := g.reachableToward(g.exits)

	for i := range g.units {
		id := NodeID(i)
		if !fromEntries[id] || !toExits[id] {
			reason := "not reachable from any entry unit"
			if fromEntries[id] {
				reason = "cannot reach any exit unit"
			}
			return &DeadEndError{Unit: g.units[i].Name, Reason: reason}
		}
	}
	return nil
}

func (g *Graph) reachableForward(from []NodeID) map[NodeID]bool {
	seen := make(map[NodeID]bool, len(g.units))
	queue := append([]NodeID{}, from...)
	for _, id := range from {
		seen[id] = true
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.succ[cur] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

func (g *Graph) reachableToward(to []NodeID) map[NodeID]bool {
	seen := make(map[NodeID]bool, len(g.units))
	queue := append([]NodeID{}, to...)
	for _, id := range to {
		seen[id] = true
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, prev := range g.pred[cur] {
			if !seen[prev] {
				seen[prev] = true
				queue = append(queue, prev)
			}
		}
	}
	return seen
}

// checkCapabilityClosure ensures every capability present at an exit has at
// least one entry-to-exit path that supports it at every hop.
func (g *Graph) checkCapabilityClosure() error {
	exitCaps := capability.Set{}
	for _, id := range g.exits {
		exitCaps = exitCaps.Union(g.units[id].Capabilities)
	}

	for _, c := range exitCaps.Slice() {
		if !g.hasSupportingPath(c) {
			return &UnreachableCapabilityError{Capability: c.String()}
		}
	}
	return nil
}

func (g *Graph) hasSupportingPath(c capability.Capability) bool {
	supports := func(id NodeID) bool { return g.units[id].Capabilities.Has(c) }

	var capableEntries []NodeID
	for _, id := range g.entries {
		if supports(id) {
			capableEntries = append(capableEntries, id)
		}
	}
	if len(capableEntries) == 0 {
		return false
	}

	seen := make(map[NodeID]bool)
	queue := append([]NodeID{}, capableEntries...)
	for _, id := range capableEntries {
		seen[id] = true
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if g.isExit(cur) {
			return true
		}
		for _, next := range g.succ[cur] {
			if !seen[next] && supports(next) {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// reachableWithoutWriteLock computes every unit reachable from some entry
// using only non-write-locking units — the set of units an instruction can
// occupy without ever having been required to pass a write-locking stage.
func (g *Graph) reachableWithoutWriteLock() map[NodeID]bool {
	seen := make(map[NodeID]bool, len(g.units))
	var queue []NodeID
	for _, id := range g.entries {
		if !g.units[id].WriteLock {
			seen[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.succ[cur] {
			if !seen[next] && !g.units[next].WriteLock {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

// NoWriteCommitRequired reports whether some entry-to-id path exists that
// never passes a write-locking unit, meaning an instruction reaching id by
// that path owes no write commitment before retiring there.
func (g *Graph) NoWriteCommitRequired(id NodeID) bool {
	return g.noWriteCommit[id]
}

func (g *Graph) isExit(id NodeID) bool {
	for _, e := range g.exits {
		if e == id {
			return true
		}
	}
	return false
}

// Len returns the number of units in the graph.
func (g *Graph) Len() int { return len(g.units) }

// Unit returns the UnitModel for id.
func (g *Graph) Unit(id NodeID) UnitModel { return g.units[id] }

// Successors returns the direct successors of id, in canonical order.
func (g *Graph) Successors(id NodeID) []NodeID { return g.succ[id] }

// Predecessors returns the direct predecessors of id.
func (g *Graph) Predecessors(id NodeID) []NodeID { return g.pred[id] }

// Entries returns every entry unit, in canonical order.
func (g *Graph) Entries() []NodeID { return g.entries }

// Exits returns every exit unit, in canonical order.
func (g *Graph) Exits() []NodeID { return g.exits }

// ByName resolves a unit name (case-insensitively) to its NodeID.
func (g *Graph) ByName(name string) (NodeID, bool) {
	id, ok := g.index[strings.ToLower(name)]
	return id, ok
}

// SupportedCapabilities returns the union of capabilities carried by every
// entry unit — the set an ISA's mnemonics must resolve within (spec §4.1).
func (g *Graph) SupportedCapabilities() capability.Set {
	out := capability.Set{}
	for _, id := range g.entries {
		out = out.Union(g.units[id].Capabilities)
	}
	return out
}

// Depth returns the length of the longest path in the graph, measured in
// units. It is used only to compute the engine's safety cycle cap.
func (g *Graph) Depth() int {
	depth := make([]int, len(g.units))
	best := 0
	for i := range g.units {
		depth[i] = 1
		for _, p := range g.pred[i] {
			if depth[p]+1 > depth[i] {
				depth[i] = depth[p] + 1
			}
		}
		if depth[i] > best {
			best = depth[i]
		}
	}
	return best
}

// MaxWidth returns the largest width declared by any unit.
func (g *Graph) MaxWidth() int {
	max := 1
	for _, u := range g.units {
		if u.Width > max {
			max = u.Width
		}
	}
	return max
}
