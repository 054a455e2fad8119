package neat

import (
	"fmt"
	"sort"
)

// CrossoverParams controls how Crossover inherits matching, disjoint and
// excess edges from its two parents.
type CrossoverParams struct {
	DisablingEdgeRate        float64 // default 0.75
	MatchingEdgeSelectionRate float64 // default 0.5
	NumCrossOverGenomesRate  float64
	Random                   RandomSource
}

// DefaultCrossoverParams returns the specification's defaults.
func DefaultCrossoverParams(rng RandomSource) CrossoverParams {
	return CrossoverParams{DisablingEdgeRate: 0.75, MatchingEdgeSelectionRate: 0.5, Random: rng}
}

// edgeChoice records which parent an inherited edge id came from and
// whether it was newly enabled (re-enabled from a disabled match) or
// inherited as a disjoint-enabled edge under same_fitness, so cycle
// repair on a feed-forward child can prefer disabling those first.
type edgeChoiceKind int

const (
	choiceMatching edgeChoiceKind = iota
	choiceDisjointA
	choiceDisjointBSameFitness
	choiceExcess
)

type edgeChoice struct {
	id           EdgeId
	from         *Genome // parent the endpoints are taken from
	kind         edgeChoiceKind
	newlyEnabled bool
	enabled      bool // overrides from.Net's enabled state for this edge in the child
}

// Crossover combines parent A and parent B into a new genome. By
// convention A is the fitter parent unless sameFitness is true, in which
// case disjoint and excess edges are drawn from both.
func Crossover(childId GenomeId, a, b *Genome, sameFitness bool, params CrossoverParams) (*Genome, error) {
	choices := chooseEdges(a, b, sameFitness, params)

	child := &Genome{
		Id:       childId,
		Config:   a.Config,
		Net:      NewNetwork(a.Net.Kind(), a.Net.registry),
		BiasNode: InvalidNodeId,
	}

	// Node set: endpoints of every inherited edge, preferring A; plus all
	// of A's input/output/bias nodes unconditionally.
	included := make(map[NodeId]bool)
	addNodeFrom := func(id NodeId) {
		if included[id] {
			return
		}
		if n, ok := a.Net.GetNode(id); ok {
			included[id] = true
			addNodeToChild(child, n)
			return
		}
		if n, ok := b.Net.GetNode(id); ok {
			included[id] = true
			addNodeToChild(child, n)
		}
	}

	for _, c := range choices {
		e, _ := c.from.Net.GetEdge(c.id)
		addNodeFrom(e.In)
		addNodeFrom(e.Out)
	}
	for _, id := range a.Net.InputNodes() {
		addNodeFrom(id)
	}
	for _, id := range a.Net.OutputNodes() {
		addNodeFrom(id)
	}
	if a.BiasNode != InvalidNodeId {
		addNodeFrom(a.BiasNode)
		child.BiasNode = a.BiasNode
	}

	// Insert every chosen edge unconditionally: combining disjoint/excess
	// edges from two independently-evolved parents can produce a transient
	// cycle or an opposite-direction pair that would trip canAddEdge's
	// connected/cycle guards, silently dropping an edge chooseEdges already
	// committed to. repairCycles below is what resolves that, not this loop.
	sort.Slice(choices, func(i, j int) bool { return choices[i].id < choices[j].id })
	for _, c := range choices {
		e, _ := c.from.Net.GetEdge(c.id)
		if err := child.Net.addEdgeUnchecked(e.In, e.Out, e.Id, e.Weight, c.enabled); err != nil {
			return nil, fmt.Errorf("neat: crossover: %w", err)
		}
	}

	if child.Net.Kind() == FeedForward {
		repairCycles(child, choices)
	}

	child.rebuildInnovations()
	child.dirty = true
	return child, nil
}

func addNodeToChild(child *Genome, n Node) {
	if child.Net.HasNode(n.Id) {
		return
	}
	_ = child.Net.AddNode(n.Id, n.Type, n.Activation, n.HasActivation)
}

// chooseEdges walks both parents' sorted innovation lists and decides,
// per the specification's matching/disjoint/excess rules, which parent
// each inherited edge id comes from and whether it ends up enabled.
func chooseEdges(a, b *Genome, sameFitness bool, params CrossoverParams) []edgeChoice {
	rng := params.Random
	al, bl := a.innovations, b.innovations
	ai, bi := 0, 0
	var out []edgeChoice

	for ai < len(al) && bi < len(bl) {
		switch {
		case al[ai] == bl[bi]:
			id := al[ai]
			ea, _ := a.Net.GetEdge(id)
			eb, _ := b.Net.GetEdge(id)
			from := a
			if rng.Real01() >= params.MatchingEdgeSelectionRate {
				from = b
			}
			enabled := true
			newlyEnabled := false
			if !ea.Enabled || !eb.Enabled {
				enabled = rng.Real01() >= params.DisablingEdgeRate
				newlyEnabled = enabled
			}
			out = append(out, edgeChoice{id: id, from: from, kind: choiceMatching, newlyEnabled: newlyEnabled, enabled: enabled})
			ai++
			bi++
		case al[ai] < bl[bi]:
			e, _ := a.Net.GetEdge(al[ai])
			out = append(out, edgeChoice{id: al[ai], from: a, kind: choiceDisjointA, enabled: e.Enabled})
			ai++
		default:
			if sameFitness {
				e, _ := b.Net.GetEdge(bl[bi])
				out = append(out, edgeChoice{id: bl[bi], from: b, kind: choiceDisjointBSameFitness, enabled: e.Enabled})
			}
			bi++
		}
	}
	for ; ai < len(al); ai++ {
		e, _ := a.Net.GetEdge(al[ai])
		out = append(out, edgeChoice{id: al[ai], from: a, kind: choiceExcess, enabled: e.Enabled})
	}
	if sameFitness {
		for ; bi < len(bl); bi++ {
			e, _ := b.Net.GetEdge(bl[bi])
			out = append(out, edgeChoice{id: bl[bi], from: b, kind: choiceExcess, enabled: e.Enabled})
		}
	}
	return out
}

// repairCycles disables edges, preferring disjoint-enabled ones first and
// then newly-enabled matching ones, until the feed-forward child has no
// cycle among its enabled edges.
func repairCycles(child *Genome, choices []edgeChoice) {
	priority := func(kind edgeChoiceKind, newlyEnabled bool) int {
		switch {
		case kind == choiceDisjointBSameFitness:
			return 0
		case newlyEnabled:
			return 1
		default:
			return 2
		}
	}
	ordered := append([]edgeChoice(nil), choices...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return priority(ordered[i].kind, ordered[i].newlyEnabled) < priority(ordered[j].kind, ordered[j].newlyEnabled)
	})

	for child.Net.hasCycle() {
		disabledAny := false
		for _, c := range ordered {
			e, ok := child.Net.GetEdge(c.id)
			if !ok || !e.Enabled {
				continue
			}
			_ = child.Net.SetEdgeEnabled(c.id, false)
			disabledAny = true
			if !child.Net.hasCycle() {
				break
			}
		}
		if !disabledAny {
			break
		}
	}
}
