package neat

import "fmt"

// NodeType classifies a node's role in the network. Input and bias nodes
// never carry an activation and never receive incoming edges; hidden and
// output nodes are activated during evaluation.
type NodeType int

const (
	NodeInput NodeType = iota
	NodeHidden
	NodeOutput
	NodeBias
)

func (t NodeType) String() string {
	switch t {
	case NodeInput:
		return "input"
	case NodeHidden:
		return "hidden"
	case NodeOutput:
		return "output"
	case NodeBias:
		return "bias"
	default:
		return "unknown"
	}
}

// Node is the value a caller sees back from GetNode: a snapshot, not a
// handle. Mutating it has no effect on the network; structural and write
// operations go through the network's own methods.
type Node struct {
	Id            NodeId
	Type          NodeType
	Activation    ActivationId
	HasActivation bool
	Value         float64 // raw, pre-activation
	Activated     float64 // set only after Evaluate
}

// Edge is immutable in its endpoints; Weight is always the raw stored
// value, preserved across a disable/re-enable cycle. Use Network.Weight to
// get the observed (zero-if-disabled) value a consumer actually sees.
type Edge struct {
	Id      EdgeId
	In, Out NodeId
	Weight  float64
	Enabled bool
}

// NetworkKind selects which of the two edge-insertion disciplines a
// Network enforces. There is no virtual dispatch between the two; a
// feed-forward network is a General network with one extra guard in
// AddEdgeAt.
type NetworkKind int

const (
	General NetworkKind = iota
	FeedForward
)

type nodeRecord struct {
	node      Node
	incoming  []EdgeId
	outgoing  []EdgeId
	evaluated bool
}

// Network is the mutable neural network graph: nodes keyed by NodeId,
// edges keyed by EdgeId, with arena-style ownership — nodes reference
// edges only by id, and the edge map is the sole owner of Edge values.
// Cycle detection is a graph search over this map, never a reference
// cycle in Go's memory graph.
type Network struct {
	kind     NetworkKind
	registry *ActivationRegistry
	nodes    map[NodeId]*nodeRecord
	edges    map[EdgeId]*Edge
	inputs   []NodeId
	outputs  []NodeId
}

// NewNetwork returns an empty network of the given kind. registry is
// consulted by Evaluate to resolve a node's activation function; it is
// expected to be shared read-only across every network in a run.
func NewNetwork(kind NetworkKind, registry *ActivationRegistry) *Network {
	return &Network{
		kind:     kind,
		registry: registry,
		nodes:    make(map[NodeId]*nodeRecord),
		edges:    make(map[EdgeId]*Edge),
	}
}

func (n *Network) Kind() NetworkKind { return n.kind }

// --- read ---

func (n *Network) NumNodes() int { return len(n.nodes) }
func (n *Network) NumEdges() int { return len(n.edges) }

func (n *Network) HasNode(id NodeId) bool {
	_, ok := n.nodes[id]
	return ok
}

func (n *Network) GetNode(id NodeId) (Node, bool) {
	r, ok := n.nodes[id]
	if !ok {
		return Node{}, false
	}
	return r.node, true
}

func (n *Network) IncomingEdges(id NodeId) ([]EdgeId, bool) {
	r, ok := n.nodes[id]
	if !ok {
		return nil, false
	}
	out := make([]EdgeId, len(r.incoming))
	copy(out, r.incoming)
	return out, true
}

func (n *Network) OutgoingEdges(id NodeId) ([]EdgeId, bool) {
	r, ok := n.nodes[id]
	if !ok {
		return nil, false
	}
	out := make([]EdgeId, len(r.outgoing))
	copy(out, r.outgoing)
	return out, true
}

// IsConnected reports whether any edge, in either direction, joins a and b.
func (n *Network) IsConnected(a, b NodeId) bool {
	ra, ok := n.nodes[a]
	if !ok {
		return false
	}
	for _, eid := range ra.incoming {
		if e := n.edges[eid]; e != nil && e.In == b {
			return true
		}
	}
	for _, eid := range ra.outgoing {
		if e := n.edges[eid]; e != nil && e.Out == b {
			return true
		}
	}
	return false
}

func (n *Network) InputNodes() []NodeId {
	out := make([]NodeId, len(n.inputs))
	copy(out, n.inputs)
	return out
}

func (n *Network) OutputNodes() []NodeId {
	out := make([]NodeId, len(n.outputs))
	copy(out, n.outputs)
	return out
}

func (n *Network) GetEdge(id EdgeId) (Edge, bool) {
	e, ok := n.edges[id]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

func (n *Network) InNode(id EdgeId) (NodeId, bool) {
	e, ok := n.edges[id]
	if !ok {
		return InvalidNodeId, false
	}
	return e.In, true
}

func (n *Network) OutNode(id EdgeId) (NodeId, bool) {
	e, ok := n.edges[id]
	if !ok {
		return InvalidNodeId, false
	}
	return e.Out, true
}

// Weight returns the observed weight of id: the stored weight if enabled,
// zero otherwise.
func (n *Network) Weight(id EdgeId) (float64, bool) {
	e, ok := n.edges[id]
	if !ok {
		return 0, false
	}
	if !e.Enabled {
		return 0, true
	}
	return e.Weight, true
}

// --- write ---

func (n *Network) SetNodeValue(id NodeId, v float64) error {
	r, ok := n.nodes[id]
	if !ok {
		return fmt.Errorf("%w: node %d", ErrUnknownNode, id)
	}
	r.node.Value = v
	return nil
}

// SetAllNodeValues sets the raw value of every node named in values.
func (n *Network) SetAllNodeValues(values map[NodeId]float64) error {
	for id, v := range values {
		if err := n.SetNodeValue(id, v); err != nil {
			return err
		}
	}
	return nil
}

// SetWeight sets an edge's raw weight regardless of its enabled state.
func (n *Network) SetWeight(id EdgeId, w float64) error {
	e, ok := n.edges[id]
	if !ok {
		return fmt.Errorf("%w: edge %d", ErrUnknownEdge, id)
	}
	e.Weight = w
	return nil
}

// SetEdgeEnabled toggles an edge without touching its stored raw weight,
// so a later re-enable restores exactly the weight it had before.
func (n *Network) SetEdgeEnabled(id EdgeId, enabled bool) error {
	e, ok := n.edges[id]
	if !ok {
		return fmt.Errorf("%w: edge %d", ErrUnknownEdge, id)
	}
	e.Enabled = enabled
	return nil
}

// --- structural ---

// AddNode registers a fresh node of the given type and activation. It is
// the low-level primitive genome construction and AddNodeAt build on; it
// performs no structural validation beyond rejecting a duplicate id.
func (n *Network) AddNode(id NodeId, typ NodeType, activation ActivationId, hasActivation bool) error {
	if _, exists := n.nodes[id]; exists {
		return fmt.Errorf("neat: node %d already exists", id)
	}
	n.nodes[id] = &nodeRecord{node: Node{
		Id:            id,
		Type:          typ,
		Activation:    activation,
		HasActivation: hasActivation,
	}}
	switch typ {
	case NodeInput:
		n.inputs = append(n.inputs, id)
	case NodeOutput:
		n.outputs = append(n.outputs, id)
	}
	return nil
}

// canAddEdge reports whether inserting a->b is legal for this network's
// kind, without mutating anything.
func (n *Network) canAddEdge(a, b NodeId) error {
	ra, ok := n.nodes[a]
	if !ok {
		return fmt.Errorf("%w: node %d", ErrUnknownNode, a)
	}
	if _, ok := n.nodes[b]; !ok {
		return fmt.Errorf("%w: node %d", ErrUnknownNode, b)
	}
	if n.IsConnected(a, b) {
		return ErrAlreadyConnected
	}
	if n.kind == FeedForward && n.createsCycle(a, b) {
		return ErrWouldCreateCycle
	}
	bt := n.nodes[b].node.Type
	if bt == NodeBias || bt == NodeInput {
		return ErrInvalidDirection
	}
	if n.kind != FeedForward {
		return nil
	}
	if ra.node.Type == NodeOutput {
		return ErrInvalidDirection
	}
	return nil
}

// createsCycle reports whether adding the edge a->b would close a cycle:
// true iff b is already an ancestor of a, found by walking backward from a
// over existing edges.
func (n *Network) createsCycle(a, b NodeId) bool {
	if a == b {
		return true
	}
	visited := make(map[NodeId]bool)
	stack := []NodeId{a}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == b {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		r, ok := n.nodes[cur]
		if !ok {
			continue
		}
		for _, eid := range r.incoming {
			e := n.edges[eid]
			if e == nil {
				continue
			}
			stack = append(stack, e.In)
		}
	}
	return false
}

// CanAddEdgeAt reports whether AddEdgeAt(a, b, ...) would accept the edge,
// without changing the network.
func (n *Network) CanAddEdgeAt(a, b NodeId) error {
	return n.canAddEdge(a, b)
}

// AddEdgeAt inserts a new enabled edge a->b with the given id and weight.
func (n *Network) AddEdgeAt(a, b NodeId, id EdgeId, weight float64) error {
	if err := n.canAddEdge(a, b); err != nil {
		return err
	}
	if _, exists := n.edges[id]; exists {
		return fmt.Errorf("neat: edge %d already exists", id)
	}
	n.edges[id] = &Edge{Id: id, In: a, Out: b, Weight: weight, Enabled: true}
	n.nodes[a].outgoing = append(n.nodes[a].outgoing, id)
	n.nodes[b].incoming = append(n.nodes[b].incoming, id)
	return nil
}

// addEdgeUnchecked inserts a->b with the given enabled state, bypassing
// canAddEdge's already-connected and cycle checks. Crossover's
// child-construction pass uses this: combining two parents' edge sets can
// produce a transient cycle or an opposite-direction duplicate that
// repairCycles (for feed-forward children) is responsible for resolving
// afterward, not something the insertion itself should silently drop.
func (n *Network) addEdgeUnchecked(a, b NodeId, id EdgeId, weight float64, enabled bool) error {
	if _, exists := n.edges[id]; exists {
		return fmt.Errorf("neat: edge %d already exists", id)
	}
	n.edges[id] = &Edge{Id: id, In: a, Out: b, Weight: weight, Enabled: enabled}
	n.nodes[a].outgoing = append(n.nodes[a].outgoing, id)
	n.nodes[b].incoming = append(n.nodes[b].incoming, id)
	return nil
}

// AddNodeAt splits edge e: e is disabled, a new hidden node n is inserted,
// and two new edges replace it — in(e)->n with weight 1, n->out(e) with
// e's original weight. The split preserves the network's function at the
// instant of division when activation is the identity function.
func (n *Network) AddNodeAt(e EdgeId, newNode NodeId, newInEdge, newOutEdge EdgeId, activation ActivationId, hasActivation bool) error {
	edge, ok := n.edges[e]
	if !ok {
		return fmt.Errorf("%w: edge %d", ErrUnknownEdge, e)
	}
	in, out, weight := edge.In, edge.Out, edge.Weight
	if err := n.SetEdgeEnabled(e, false); err != nil {
		return err
	}
	if err := n.AddNode(newNode, NodeHidden, activation, hasActivation); err != nil {
		return err
	}
	n.edges[newInEdge] = &Edge{Id: newInEdge, In: in, Out: newNode, Weight: 1, Enabled: true}
	n.nodes[in].outgoing = append(n.nodes[in].outgoing, newInEdge)
	n.nodes[newNode].incoming = append(n.nodes[newNode].incoming, newInEdge)

	n.edges[newOutEdge] = &Edge{Id: newOutEdge, In: newNode, Out: out, Weight: weight, Enabled: true}
	n.nodes[newNode].outgoing = append(n.nodes[newNode].outgoing, newOutEdge)
	n.nodes[out].incoming = append(n.nodes[out].incoming, newOutEdge)
	return nil
}

// RemoveEdge deletes an edge unconditionally. Callers that must not
// isolate an output node (the mutator) are responsible for
// checking that themselves first.
func (n *Network) RemoveEdge(id EdgeId) error {
	e, ok := n.edges[id]
	if !ok {
		return fmt.Errorf("%w: edge %d", ErrUnknownEdge, id)
	}
	delete(n.edges, id)
	removeEdgeId(&n.nodes[e.In].outgoing, id)
	removeEdgeId(&n.nodes[e.Out].incoming, id)
	return nil
}

func removeEdgeId(list *[]EdgeId, id EdgeId) {
	for i, e := range *list {
		if e == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// ReplaceNodeId renames a node, keeping every edge endpoint and the
// input/output order lists consistent.
func (n *Network) ReplaceNodeId(oldId, newId NodeId) error {
	r, ok := n.nodes[oldId]
	if !ok {
		return fmt.Errorf("%w: node %d", ErrUnknownNode, oldId)
	}
	if _, exists := n.nodes[newId]; exists {
		return fmt.Errorf("neat: node %d already exists", newId)
	}
	r.node.Id = newId
	delete(n.nodes, oldId)
	n.nodes[newId] = r
	for _, eid := range r.incoming {
		n.edges[eid].Out = newId
	}
	for _, eid := range r.outgoing {
		n.edges[eid].In = newId
	}
	replaceNodeIdIn(n.inputs, oldId, newId)
	replaceNodeIdIn(n.outputs, oldId, newId)
	return nil
}

func replaceNodeIdIn(list []NodeId, oldId, newId NodeId) {
	for i, id := range list {
		if id == oldId {
			list[i] = newId
			return
		}
	}
}

// ReplaceEdgeId renames an edge, keeping both endpoints' incoming/outgoing
// lists consistent. replace_edge_id(e, e'); replace_edge_id(e', e) is a
// no-op on the network's observable state.
func (n *Network) ReplaceEdgeId(oldId, newId EdgeId) error {
	e, ok := n.edges[oldId]
	if !ok {
		return fmt.Errorf("%w: edge %d", ErrUnknownEdge, oldId)
	}
	if _, exists := n.edges[newId]; exists {
		return fmt.Errorf("neat: edge %d already exists", newId)
	}
	e.Id = newId
	delete(n.edges, oldId)
	n.edges[newId] = e
	replaceEdgeIdIn(n.nodes[e.In].outgoing, oldId, newId)
	replaceEdgeIdIn(n.nodes[e.Out].incoming, oldId, newId)
	return nil
}

func replaceEdgeIdIn(list []EdgeId, oldId, newId EdgeId) {
	for i, id := range list {
		if id == oldId {
			list[i] = newId
			return
		}
	}
}

// --- evaluate ---

// Evaluate computes every hidden and output node's activated value from
// the current raw input/bias values, tolerating recurrent back-edges: a
// node on the current DFS path is treated as already committed and its
// prior activated value is used, so recurrent descent always terminates.
func (n *Network) Evaluate() error {
	for _, r := range n.nodes {
		r.evaluated = false
	}
	for _, r := range n.nodes {
		if len(r.incoming) == 0 {
			r.node.Activated = n.activate(r.node, r.node.Value)
			r.evaluated = true
		}
	}
	for _, id := range n.outputs {
		if err := n.evaluateNode(id, make(map[NodeId]bool)); err != nil {
			return err
		}
	}
	return nil
}

func (n *Network) activate(node Node, x float64) float64 {
	if !node.HasActivation {
		return x
	}
	a, ok := n.registry.Get(node.Activation)
	if !ok {
		return x
	}
	return a.Fn(x)
}

func (n *Network) evaluateNode(id NodeId, path map[NodeId]bool) error {
	r, ok := n.nodes[id]
	if !ok {
		return fmt.Errorf("%w: node %d", ErrUnknownNode, id)
	}
	if r.evaluated {
		return nil
	}
	path[id] = true
	var sum float64
	for _, eid := range r.incoming {
		e := n.edges[eid]
		if e == nil || !e.Enabled {
			continue
		}
		src := n.nodes[e.In]
		if !src.evaluated && !path[e.In] {
			if err := n.evaluateNode(e.In, path); err != nil {
				return err
			}
		}
		sum += e.Weight * src.node.Activated
	}
	delete(path, id)
	r.node.Value = sum
	r.node.Activated = n.activate(r.node, sum)
	r.evaluated = true
	return nil
}

// Validate is the debug-build precondition check: every edge's endpoints
// exist, every node's incoming/outgoing lists are exactly the edges that
// reference it, input nodes have no incoming edges, and feed-forward
// networks contain no cycle among enabled edges.
func (n *Network) Validate() bool {
	seenIncoming := make(map[NodeId]map[EdgeId]bool)
	seenOutgoing := make(map[NodeId]map[EdgeId]bool)
	for id := range n.nodes {
		seenIncoming[id] = make(map[EdgeId]bool)
		seenOutgoing[id] = make(map[EdgeId]bool)
	}
	for id, e := range n.edges {
		if e.Id != id {
			return false
		}
		if _, ok := n.nodes[e.In]; !ok {
			return false
		}
		if _, ok := n.nodes[e.Out]; !ok {
			return false
		}
		seenOutgoing[e.In][id] = true
		seenIncoming[e.Out][id] = true
	}
	for id, r := range n.nodes {
		if r.node.Id != id {
			return false
		}
		if len(r.incoming) != len(seenIncoming[id]) {
			return false
		}
		for _, eid := range r.incoming {
			if !seenIncoming[id][eid] {
				return false
			}
		}
		if len(r.outgoing) != len(seenOutgoing[id]) {
			return false
		}
		for _, eid := range r.outgoing {
			if !seenOutgoing[id][eid] {
				return false
			}
		}
		if r.node.Type == NodeInput && len(r.incoming) != 0 {
			return false
		}
	}
	if n.kind == FeedForward && n.hasCycle() {
		return false
	}
	return true
}

// hasCycle runs a standard three-color DFS over enabled edges.
func (n *Network) hasCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[NodeId]int, len(n.nodes))
	var visit func(NodeId) bool
	visit = func(id NodeId) bool {
		color[id] = gray
		r := n.nodes[id]
		for _, eid := range r.outgoing {
			e := n.edges[eid]
			if e == nil || !e.Enabled {
				continue
			}
			switch color[e.Out] {
			case white:
				if visit(e.Out) {
					return true
				}
			case gray:
				return true
			}
		}
		color[id] = black
		return false
	}
	for id := range n.nodes {
		if color[id] == white {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy: new node and edge maps, independent from n.
// The activation registry is shared, since it is read-only after setup.
func (n *Network) Clone() *Network {
	out := NewNetwork(n.kind, n.registry)
	for id, r := range n.nodes {
		out.nodes[id] = &nodeRecord{
			node:     r.node,
			incoming: append([]EdgeId(nil), r.incoming...),
			outgoing: append([]EdgeId(nil), r.outgoing...),
		}
	}
	for id, e := range n.edges {
		cp := *e
		out.edges[id] = &cp
	}
	out.inputs = append([]NodeId(nil), n.inputs...)
	out.outputs = append([]NodeId(nil), n.outputs...)
	return out
}
