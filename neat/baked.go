package neat

import "fmt"

// bakedEdge is one weighted incoming connection, already remapped to the
// baked node ordering. isBack marks an edge whose source has not been
// (re)computed yet in the current evaluation pass — its value is read
// from the previous pass's snapshot instead.
type bakedEdge struct {
	sourceIndex int
	weight      float64
	isBack      bool
}

type bakedNode struct {
	id            NodeId
	hasActivation bool
	funcIndex     int
	edges         []bakedEdge
	raw           float64
	activated     float64
	prevActivated float64
}

// BakedNetwork is a compact, read-only-topology snapshot of a Network,
// built once after a structural change and then evaluated repeatedly
// without the bookkeeping Network.Evaluate needs to tolerate arbitrary
// structural edits. Index lookups are O(1) slice/map accesses rather than
// the map-of-pointers walk the mutable network requires.
type BakedNetwork struct {
	registry *ActivationRegistry
	funcs    []ActivationId
	entries  []bakedNode
	index    map[NodeId]int
	inputs   []int
	outputs  []int
}

// Bake builds a BakedNetwork from the current state of n. The resulting
// snapshot is stale the instant n's topology changes again; callers are
// responsible for rebuilding it (Genome does this via its rebake-dirty
// flag).
func Bake(n *Network) (*BakedNetwork, error) {
	b := &BakedNetwork{
		registry: n.registry,
		index:    make(map[NodeId]int),
	}

	order, err := bakeOrder(n)
	if err != nil {
		return nil, err
	}

	funcIndexOf := make(map[ActivationId]int)
	for i, id := range order {
		b.index[id] = i
	}

	for _, id := range order {
		node, _ := n.GetNode(id)
		fi := -1
		if node.HasActivation {
			var ok bool
			fi, ok = funcIndexOf[node.Activation]
			if !ok {
				fi = len(b.funcs)
				funcIndexOf[node.Activation] = fi
				b.funcs = append(b.funcs, node.Activation)
			}
		}

		incoming, _ := n.IncomingEdges(id)
		var edges []bakedEdge
		myIndex := b.index[id]
		for _, eid := range incoming {
			e, _ := n.GetEdge(eid)
			if !e.Enabled || e.Weight == 0 {
				continue
			}
			srcIndex, ok := b.index[e.In]
			if !ok {
				return nil, fmt.Errorf("neat: bake: source node %d not yet ordered", e.In)
			}
			edges = append(edges, bakedEdge{
				sourceIndex: srcIndex,
				weight:      e.Weight,
				isBack:      srcIndex >= myIndex,
			})
		}

		b.entries = append(b.entries, bakedNode{
			id:            id,
			hasActivation: node.HasActivation,
			funcIndex:     fi,
			edges:         edges,
			raw:           node.Value,
		})
	}

	for _, id := range n.InputNodes() {
		b.inputs = append(b.inputs, b.index[id])
	}
	for _, id := range n.OutputNodes() {
		b.outputs = append(b.outputs, b.index[id])
	}
	return b, nil
}

// bakeOrder computes the evaluation order by DFS backward from every
// output node, as specified: already-committed predecessors are skipped,
// predecessors on the current DFS path are treated as committed (their
// previous-step value will be used), and a node is appended to the order
// only once every predecessor is committed.
func bakeOrder(n *Network) ([]NodeId, error) {
	committed := make(map[NodeId]bool)
	onPath := make(map[NodeId]bool)
	var order []NodeId

	var visit func(NodeId) error
	visit = func(id NodeId) error {
		if committed[id] {
			return nil
		}
		r, ok := n.nodes[id]
		if !ok {
			return fmt.Errorf("%w: node %d", ErrUnknownNode, id)
		}
		onPath[id] = true
		for _, eid := range r.incoming {
			e := n.edges[eid]
			if e == nil || !e.Enabled {
				continue
			}
			if committed[e.In] || onPath[e.In] {
				continue
			}
			if err := visit(e.In); err != nil {
				return err
			}
		}
		onPath[id] = false
		if !committed[id] {
			committed[id] = true
			order = append(order, id)
		}
		return nil
	}

	for _, id := range n.OutputNodes() {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	// Nodes unreachable backward from any output (e.g. pure inputs feeding
	// nothing live) still need a slot so SetNodeValue/GetNodeValue work for
	// every node in the genome.
	for id := range n.nodes {
		if !committed[id] {
			committed[id] = true
			order = append(order, id)
		}
	}
	return order, nil
}

func (b *BakedNetwork) activate(e *bakedNode, x float64) float64 {
	if !e.hasActivation || e.funcIndex < 0 {
		return x
	}
	a, ok := b.registry.Get(b.funcs[e.funcIndex])
	if !ok {
		return x
	}
	return a.Fn(x)
}

// SetNodeValue stores v as a node's raw value and immediately pre-applies
// its activation, so both the raw and activated fields reflect v. This is
// how a fitness calculator seeds input and bias values before Evaluate.
func (b *BakedNetwork) SetNodeValue(id NodeId, v float64) error {
	idx, ok := b.index[id]
	if !ok {
		return fmt.Errorf("%w: node %d", ErrUnknownNode, id)
	}
	b.entries[idx].raw = v
	b.entries[idx].activated = b.activate(&b.entries[idx], v)
	return nil
}

// GetNodeValue returns a node's activated value.
func (b *BakedNetwork) GetNodeValue(id NodeId) (float64, error) {
	idx, ok := b.index[id]
	if !ok {
		return 0, fmt.Errorf("%w: node %d", ErrUnknownNode, id)
	}
	return b.entries[idx].activated, nil
}

// ClearNodeValues resets every node's raw, activated and previous-step
// value to zero.
func (b *BakedNetwork) ClearNodeValues() {
	for i := range b.entries {
		b.entries[i].raw = 0
		b.entries[i].activated = 0
		b.entries[i].prevActivated = 0
	}
}

// Depth returns a conservative upper bound on the number of Evaluate calls
// needed for a signal to propagate from every input to every output: the
// entry count, since bakeOrder never places a node before a forward
// dependency and a feed-forward topology fully settles in a single pass.
func (b *BakedNetwork) Depth() int { return len(b.entries) }

// OutputValues returns the current activated value of every output node,
// in the same order as the source Network's OutputNodes.
func (b *BakedNetwork) OutputValues() []float64 {
	out := make([]float64, len(b.outputs))
	for i, idx := range b.outputs {
		out[i] = b.entries[idx].activated
	}
	return out
}

// Evaluate walks node entries in stored order. Forward edges (source
// already recomputed this pass) read the current activated value;
// back edges read the value snapshotted at the start of this call, i.e.
// the previous step's value, giving the recurrent baked network a
// well-defined, order-independent semantics across repeated calls.
func (b *BakedNetwork) Evaluate() error {
	for i := range b.entries {
		b.entries[i].prevActivated = b.entries[i].activated
	}
	for i := range b.entries {
		e := &b.entries[i]
		if len(e.edges) == 0 {
			e.activated = b.activate(e, e.raw)
			continue
		}
		var sum float64
		for _, be := range e.edges {
			if be.isBack {
				sum += be.weight * b.entries[be.sourceIndex].prevActivated
			} else {
				sum += be.weight * b.entries[be.sourceIndex].activated
			}
		}
		e.raw = sum
		e.activated = b.activate(e, sum)
	}
	return nil
}
