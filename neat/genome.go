package neat

import (
	"fmt"
	"sort"
)

// GenomeConfig controls how NewGenome builds the initial, fully-connected
// network for a fresh genome.
type GenomeConfig struct {
	NumInputNodes     int
	NumOutputNodes    int
	CreateBiasNode    bool
	BiasValue         float64 // default 1 when zero-valued and CreateBiasNode is set
	InnovationCounter *InnovationCounter
	ActivationProvider ActivationProvider // optional; nil means hidden/output nodes carry no activation
	NetworkType       NetworkKind
}

// CalcDistParams controls the weighting of Genome.CalcDistance.
type CalcDistParams struct {
	DisjointFactor             float64 // default 1.0
	WeightFactor               float64 // default 0.4
	EdgeNormalizationThreshold int     // default 20
}

// DefaultCalcDistParams returns the specification's defaults.
func DefaultCalcDistParams() CalcDistParams {
	return CalcDistParams{DisjointFactor: 1.0, WeightFactor: 0.4, EdgeNormalizationThreshold: 20}
}

// Genome is a mutable network plus its innovation history: the sorted
// list of edge ids currently present, used for alignment during crossover
// and distance computation. A Genome exclusively owns its Network;
// cloning deep-copies both.
type Genome struct {
	Id         GenomeId
	Config     GenomeConfig
	Net        *Network
	BiasNode   NodeId // InvalidNodeId if Config.CreateBiasNode is false
	innovations []EdgeId // sorted ascending; mirrors Net's current edge ids

	dirty bool
	baked *BakedNetwork
}

// NewGenome builds a genome with one node per input, an optional bias
// node, one node per output, and a complete bipartite layer of edges from
// every input (and the bias, if present) to every output. Every hidden or
// output node's activation comes from cfg.ActivationProvider, if supplied.
func NewGenome(id GenomeId, cfg GenomeConfig, registry *ActivationRegistry, weights func() float64) (*Genome, error) {
	if cfg.InnovationCounter == nil {
		return nil, fmt.Errorf("neat: GenomeConfig.InnovationCounter is required")
	}
	if cfg.CreateBiasNode && cfg.BiasValue == 0 {
		cfg.BiasValue = 1
	}
	net := NewNetwork(cfg.NetworkType, registry)
	g := &Genome{Id: id, Config: cfg, Net: net, BiasNode: InvalidNodeId}

	var inputIds []NodeId
	for i := 0; i < cfg.NumInputNodes; i++ {
		nid := cfg.InnovationCounter.NextNodeId()
		if err := net.AddNode(nid, NodeInput, InvalidActivationId, false); err != nil {
			return nil, err
		}
		inputIds = append(inputIds, nid)
	}

	if cfg.CreateBiasNode {
		nid := cfg.InnovationCounter.NextNodeId()
		if err := net.AddNode(nid, NodeBias, InvalidActivationId, false); err != nil {
			return nil, err
		}
		g.BiasNode = nid
	}

	var outputIds []NodeId
	for i := 0; i < cfg.NumOutputNodes; i++ {
		nid := cfg.InnovationCounter.NextNodeId()
		act, hasAct := resolveActivation(cfg.ActivationProvider)
		if err := net.AddNode(nid, NodeOutput, act, hasAct); err != nil {
			return nil, err
		}
		outputIds = append(outputIds, nid)
	}

	sources := append([]NodeId(nil), inputIds...)
	if g.BiasNode != InvalidNodeId {
		sources = append(sources, g.BiasNode)
	}
	for _, src := range sources {
		for _, dst := range outputIds {
			eid := cfg.InnovationCounter.EdgeIdFor(src, dst)
			w := 0.0
			if weights != nil {
				w = weights()
			}
			if err := net.AddEdgeAt(src, dst, eid, w); err != nil {
				return nil, err
			}
		}
	}

	g.rebuildInnovations()
	g.dirty = true
	return g, nil
}

func resolveActivation(p ActivationProvider) (ActivationId, bool) {
	if p == nil {
		return InvalidActivationId, false
	}
	a, err := p.GetActivation()
	if err != nil {
		return InvalidActivationId, false
	}
	return a.Id, true
}

func (g *Genome) rebuildInnovations() {
	ids := make([]EdgeId, 0, g.Net.NumEdges())
	for id := range g.Net.edges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	g.innovations = ids
}

// Innovations returns the genome's sorted innovation list. The returned
// slice is a copy.
func (g *Genome) Innovations() []EdgeId {
	out := make([]EdgeId, len(g.innovations))
	copy(out, g.innovations)
	return out
}

func (g *Genome) markDirty() {
	g.dirty = true
}

// AddNodeAt splits edge e via the genome's innovation counter, keyed on
// (in(e), new_node_id) and (new_node_id, out(e)) so that two genomes that
// independently split the same edge into the same activation converge on
// identical ids once deduplicated by the mutator.
func (g *Genome) AddNodeAt(e EdgeId, activation ActivationId, hasActivation bool) (NodeId, EdgeId, EdgeId, error) {
	in, ok := g.Net.InNode(e)
	if !ok {
		return InvalidNodeId, InvalidEdgeId, InvalidEdgeId, fmt.Errorf("%w: edge %d", ErrUnknownEdge, e)
	}
	out, _ := g.Net.OutNode(e)

	newNode := g.Config.InnovationCounter.NextNodeId()
	inEdge := g.Config.InnovationCounter.EdgeIdFor(in, newNode)
	outEdge := g.Config.InnovationCounter.EdgeIdFor(newNode, out)

	if err := g.Net.AddNodeAt(e, newNode, inEdge, outEdge, activation, hasActivation); err != nil {
		return InvalidNodeId, InvalidEdgeId, InvalidEdgeId, err
	}
	g.rebuildInnovations()
	g.markDirty()
	return newNode, inEdge, outEdge, nil
}

// AddEdgeAt connects a->b via the innovation counter. If the direct
// orientation fails on a feed-forward network and tryFlippedOnFail is
// set, it retries with the endpoints swapped.
func (g *Genome) AddEdgeAt(a, b NodeId, weight float64, tryFlippedOnFail bool) (EdgeId, error) {
	eid := g.Config.InnovationCounter.EdgeIdFor(a, b)
	err := g.Net.AddEdgeAt(a, b, eid, weight)
	if err == nil {
		g.rebuildInnovations()
		g.markDirty()
		return eid, nil
	}
	if !tryFlippedOnFail || err != ErrWouldCreateCycle {
		return InvalidEdgeId, err
	}
	eid2 := g.Config.InnovationCounter.EdgeIdFor(b, a)
	if err2 := g.Net.AddEdgeAt(b, a, eid2, weight); err2 != nil {
		return InvalidEdgeId, err
	}
	g.rebuildInnovations()
	g.markDirty()
	return eid2, nil
}

// RemoveEdge removes an edge and updates the innovation list.
func (g *Genome) RemoveEdge(e EdgeId) error {
	if err := g.Net.RemoveEdge(e); err != nil {
		return err
	}
	g.rebuildInnovations()
	g.markDirty()
	return nil
}

// ReassignInnovation renames an edge id, used by the mutator's
// per-generation deduplication to fold two independently-discovered
// identical mutations onto the same id.
func (g *Genome) ReassignInnovation(oldId, newId EdgeId) error {
	if err := g.Net.ReplaceEdgeId(oldId, newId); err != nil {
		return err
	}
	g.rebuildInnovations()
	g.markDirty()
	return nil
}

// ReassignNodeId renames a node id, used for the same deduplication
// purpose on the node half of an add-node mutation.
func (g *Genome) ReassignNodeId(oldId, newId NodeId) error {
	if err := g.Net.ReplaceNodeId(oldId, newId); err != nil {
		return err
	}
	g.markDirty()
	return nil
}

// CalcDistance computes the genetic distance between g and other:
// disjoint_factor * (#disjoint + #excess) / normalizer + weight_factor *
// mean(|delta weight|) over matching edges. Matching means the same edge
// id appears, raw (enabled-ignoring) weight, in both genomes.
func (g *Genome) CalcDistance(other *Genome, params CalcDistParams) float64 {
	a, b := g.innovations, other.innovations
	ai, bi := 0, 0
	var matching, disjoint, excess int
	var weightDiffSum float64

	for ai < len(a) && bi < len(b) {
		switch {
		case a[ai] == b[bi]:
			ea, _ := g.Net.GetEdge(a[ai])
			eb, _ := other.Net.GetEdge(b[bi])
			weightDiffSum += abs(ea.Weight - eb.Weight)
			matching++
			ai++
			bi++
		case a[ai] < b[bi]:
			disjoint++
			ai++
		default:
			disjoint++
			bi++
		}
	}
	excess = (len(a) - ai) + (len(b) - bi)

	normalizer := 1.0
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen > params.EdgeNormalizationThreshold {
		normalizer = float64(maxLen)
	}

	dist := params.DisjointFactor * float64(disjoint+excess) / normalizer
	if matching > 0 {
		dist += params.WeightFactor * (weightDiffSum / float64(matching))
	}
	return dist
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Clone returns a deep, independent copy of g: a new Network, its own
// innovation list slice, and no shared baked cache.
func (g *Genome) Clone(newId GenomeId) *Genome {
	return &Genome{
		Id:          newId,
		Config:      g.Config,
		Net:         g.Net.Clone(),
		BiasNode:    g.BiasNode,
		innovations: append([]EdgeId(nil), g.innovations...),
		dirty:       true,
	}
}

// Baked returns the genome's cached baked network, rebuilding it first if
// the dirty flag is set (i.e. a structural edit has happened since the
// last bake).
func (g *Genome) Baked() (*BakedNetwork, error) {
	if g.dirty || g.baked == nil {
		b, err := Bake(g.Net)
		if err != nil {
			return nil, err
		}
		g.baked = b
		g.dirty = false
	}
	return g.baked, nil
}

// Evaluate runs the mutable network's evaluator directly, bypassing the
// baked cache; used by the fitness calculator's single-shot evaluation
// path and by tests checking baked/mutable agreement.
func (g *Genome) Evaluate() error {
	return g.Net.Evaluate()
}
