package neat

// MutationParams collects the probabilities and ranges governing a single
// genome's mutation pass, plus the capabilities (activation provider,
// random source) the pass draws from.
type MutationParams struct {
	WeightMutationRate       float64
	WeightMutationNewValRate float64
	WeightMutationPerturbation float64
	WeightMutationValMin     float64
	WeightMutationValMax     float64

	AddNodeMutationRate    float64
	AddEdgeMutationRate    float64
	RemoveEdgeMutationRate float64
	ChangeActivationRate   float64

	NewEdgeMinWeight float64
	NewEdgeMaxWeight float64

	MutatedGenomesRate float64

	ActivationProvider ActivationProvider
	Random             RandomSource
}

// mutationOutput records the ids a single genome's mutation pass
// introduced, for the per-generation deduplication pass the Mutator runs
// across the whole population.
type mutationOutput struct {
	prevEdgeSplit  EdgeId // edge that was split to create newNode; InvalidEdgeId if no add-node happened
	newNodeActivation ActivationId
	newNode       NodeId
	newInEdge     EdgeId
	newOutEdge    EdgeId

	newEdgeNodes  nodePair // (a, b) of an add-edge mutation; zero value if none happened
	newEdgeId     EdgeId
}

// Mutator applies the five-step mutation procedure to genomes and
// deduplicates structurally identical mutations discovered independently
// within the same generation, by renaming the later one's ids to match
// the earlier one's.
type Mutator struct {
	params  MutationParams
	outputs []mutationOutput
}

// NewMutator returns a Mutator with an empty per-generation log.
func NewMutator(params MutationParams) *Mutator {
	return &Mutator{params: params}
}

// ResetGeneration clears the deduplication log; the Generation loop calls
// this once per evolution step, before any genome is mutated.
func (m *Mutator) ResetGeneration() {
	m.outputs = m.outputs[:0]
}

// Mutate runs the five-step procedure on g in order: weight mutation,
// activation change, remove-edge, add-node, add-edge. Steps after the
// first run in the fixed order the specification requires, because later
// steps must avoid touching ids an earlier step in the same pass already
// changed.
func (m *Mutator) Mutate(g *Genome) error {
	rng := m.params.Random
	out := mutationOutput{prevEdgeSplit: InvalidEdgeId, newEdgeId: InvalidEdgeId}

	if err := m.mutateWeights(g, rng); err != nil {
		return err
	}

	activationMutatedNode := InvalidNodeId
	if m.params.ActivationProvider != nil && rng.Real01() < m.params.ChangeActivationRate {
		id, err := m.mutateActivation(g, rng)
		if err != nil {
			return err
		}
		activationMutatedNode = id
	}

	if rng.Real01() < m.params.RemoveEdgeMutationRate {
		m.mutateRemoveEdge(g, rng)
	}

	if rng.Real01() < m.params.AddNodeMutationRate {
		if err := m.mutateAddNode(g, rng, activationMutatedNode, &out); err != nil {
			return err
		}
	}

	if rng.Real01() < m.params.AddEdgeMutationRate {
		if err := m.mutateAddEdge(g, rng, activationMutatedNode, &out); err != nil {
			return err
		}
	}

	m.dedupe(g, &out)
	m.outputs = append(m.outputs, out)
	return nil
}

// mutateWeights perturbs or replaces every edge's weight independently.
func (m *Mutator) mutateWeights(g *Genome, rng RandomSource) error {
	for _, eid := range g.innovations {
		if rng.Real01() >= m.params.WeightMutationRate {
			continue
		}
		e, ok := g.Net.GetEdge(eid)
		if !ok {
			continue
		}
		var w float64
		if rng.Real01() < m.params.WeightMutationNewValRate {
			w = rng.Real(m.params.WeightMutationValMin, m.params.WeightMutationValMax)
		} else {
			p := m.params.WeightMutationPerturbation
			u := rng.Real(-p, p)
			w = clampF(e.Weight*(1+u), m.params.WeightMutationValMin, m.params.WeightMutationValMax)
		}
		if err := g.Net.SetWeight(eid, w); err != nil {
			return err
		}
	}
	return nil
}

func clampF(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// mutateActivation picks a random hidden/output node, assigns it a new
// activation, then reassigns its id and every incident edge's id via the
// innovation counter so that the same topology with a different
// activation is treated as a distinct innovation.
func (m *Mutator) mutateActivation(g *Genome, rng RandomSource) (NodeId, error) {
	candidates := hiddenAndOutputNodes(g.Net)
	if len(candidates) == 0 {
		return InvalidNodeId, nil
	}
	nid := candidates[rng.Integer(0, len(candidates)-1)]
	act, err := m.params.ActivationProvider.GetActivation()
	if err != nil {
		return InvalidNodeId, nil
	}

	node, _ := g.Net.GetNode(nid)
	node.Activation = act.Id
	node.HasActivation = true
	g.Net.nodes[nid].node.Activation = act.Id
	g.Net.nodes[nid].node.HasActivation = true

	newNodeId := g.Config.InnovationCounter.NextNodeId()
	if err := g.ReassignNodeId(nid, newNodeId); err != nil {
		return InvalidNodeId, err
	}
	incoming, _ := g.Net.IncomingEdges(newNodeId)
	for _, eid := range incoming {
		e, _ := g.Net.GetEdge(eid)
		newEid := g.Config.InnovationCounter.EdgeIdFor(e.In, newNodeId)
		if newEid != eid {
			if err := g.ReassignInnovation(eid, newEid); err != nil {
				return InvalidNodeId, err
			}
		}
	}
	outgoing, _ := g.Net.OutgoingEdges(newNodeId)
	for _, eid := range outgoing {
		e, _ := g.Net.GetEdge(eid)
		newEid := g.Config.InnovationCounter.EdgeIdFor(newNodeId, e.Out)
		if newEid != eid {
			if err := g.ReassignInnovation(eid, newEid); err != nil {
				return InvalidNodeId, err
			}
		}
	}
	return newNodeId, nil
}

// mutateRemoveEdge removes a random edge, refusing if doing so would
// leave an output node with no incoming edges.
func (m *Mutator) mutateRemoveEdge(g *Genome, rng RandomSource) {
	ids := g.innovations
	if len(ids) == 0 {
		return
	}
	eid := ids[rng.Integer(0, len(ids)-1)]
	e, ok := g.Net.GetEdge(eid)
	if !ok {
		return
	}
	outNode, _ := g.Net.GetNode(e.Out)
	if outNode.Type == NodeOutput {
		incoming, _ := g.Net.IncomingEdges(e.Out)
		if len(incoming) <= 1 {
			return
		}
	}
	_ = g.RemoveEdge(eid)
}

// mutateAddNode splits a random eligible edge: enabled, not originating
// at a bias node, and not incident to the node step 2 just mutated.
func (m *Mutator) mutateAddNode(g *Genome, rng RandomSource, excludeNode NodeId, out *mutationOutput) error {
	var candidates []EdgeId
	for _, eid := range g.innovations {
		e, _ := g.Net.GetEdge(eid)
		if !e.Enabled {
			continue
		}
		inNode, _ := g.Net.GetNode(e.In)
		if inNode.Type == NodeBias {
			continue
		}
		if excludeNode != InvalidNodeId && (e.In == excludeNode || e.Out == excludeNode) {
			continue
		}
		candidates = append(candidates, eid)
	}
	if len(candidates) == 0 {
		return nil
	}
	splitEdge := candidates[rng.Integer(0, len(candidates)-1)]

	act, hasAct := resolveActivation(m.params.ActivationProvider)
	newNode, inEdge, outEdge, err := g.AddNodeAt(splitEdge, act, hasAct)
	if err != nil {
		return err
	}
	out.prevEdgeSplit = splitEdge
	out.newNodeActivation = act
	out.newNode = newNode
	out.newInEdge = inEdge
	out.newOutEdge = outEdge
	return nil
}

// mutateAddEdge connects a random eligible node pair, retrying with the
// endpoints swapped if the direct orientation fails with a cycle on a
// feed-forward network and neither endpoint forbids the swap.
func (m *Mutator) mutateAddEdge(g *Genome, rng RandomSource, excludeNode NodeId, out *mutationOutput) error {
	type pair struct{ a, b NodeId }
	var candidates []pair
	var allIds []NodeId
	for id := range g.Net.nodes {
		allIds = append(allIds, id)
	}
	for _, a := range allIds {
		if a == excludeNode {
			continue
		}
		an, _ := g.Net.GetNode(a)
		for _, b := range allIds {
			if b == excludeNode || a == b {
				continue
			}
			bn, _ := g.Net.GetNode(b)
			if an.Type == NodeOutput && bn.Type == NodeOutput {
				continue
			}
			if (an.Type == NodeInput || an.Type == NodeBias) && (bn.Type == NodeInput || bn.Type == NodeBias) {
				continue
			}
			if g.Net.IsConnected(a, b) {
				continue
			}
			candidates = append(candidates, pair{a, b})
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	p := candidates[rng.Integer(0, len(candidates)-1)]
	w := rng.Real(m.params.NewEdgeMinWeight, m.params.NewEdgeMaxWeight)

	allowSwap := true
	an, _ := g.Net.GetNode(p.a)
	bn, _ := g.Net.GetNode(p.b)
	if an.Type == NodeInput || an.Type == NodeBias || bn.Type == NodeOutput {
		allowSwap = false
	}

	eid, err := g.AddEdgeAt(p.a, p.b, w, allowSwap)
	if err != nil {
		return nil
	}
	a, b := p.a, p.b
	if in, _ := g.Net.InNode(eid); in != p.a {
		a, b = p.b, p.a
	}
	out.newEdgeNodes = nodePair{a, b}
	out.newEdgeId = eid
	return nil
}

func hiddenAndOutputNodes(n *Network) []NodeId {
	var out []NodeId
	for id, r := range n.nodes {
		if r.node.Type == NodeHidden || r.node.Type == NodeOutput {
			out = append(out, id)
		}
	}
	return out
}

// dedupe checks out's new-node signature (prevEdgeSplit, newNodeActivation)
// against every earlier output recorded this generation. Edge-pair
// deduplication needs no extra bookkeeping: the shared InnovationCounter
// already guarantees it.
func (m *Mutator) dedupe(g *Genome, out *mutationOutput) {
	if out.prevEdgeSplit == InvalidEdgeId {
		return
	}
	for _, prior := range m.outputs {
		if prior.prevEdgeSplit == out.prevEdgeSplit && prior.newNodeActivation == out.newNodeActivation {
			if prior.newNode == out.newNode {
				return
			}
			_ = g.ReassignNodeId(out.newNode, prior.newNode)
			_ = g.ReassignInnovation(out.newInEdge, prior.newInEdge)
			_ = g.ReassignInnovation(out.newOutEdge, prior.newOutEdge)
			out.newNode = prior.newNode
			out.newInEdge = prior.newInEdge
			out.newOutEdge = prior.newOutEdge
			return
		}
	}
}
