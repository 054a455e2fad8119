package neat

import "fmt"

// NodeId, EdgeId, ActivationId, GenomeId, SpeciesId and GenerationId are
// opaque, comparable integer identifiers. They are never arithmetic; the
// only way to obtain one is a UniqueIdCounter or an InnovationCounter.
type (
	NodeId       int64
	EdgeId       int64
	ActivationId int64
	GenomeId     int64
	SpeciesId    int64
	GenerationId int64
)

// Invalid* are the distinguished invalid values for each id type.
const (
	InvalidNodeId       NodeId       = -1
	InvalidEdgeId       EdgeId       = -1
	InvalidActivationId ActivationId = -1
	InvalidGenomeId     GenomeId     = -1
	InvalidSpeciesId    SpeciesId    = -1
	InvalidGenerationId GenerationId = -1
)

// idLike is satisfied by every identifier type above.
type idLike interface {
	~int64
}

// UniqueIdCounter produces a monotonically increasing stream of ids of type
// T, never recycling a value. Overflow is a fatal, loudly reported condition
// rather than a recoverable error, per the specification's resource
// exhaustion handling.
type UniqueIdCounter[T idLike] struct {
	next int64
}

// NewUniqueIdCounter returns a counter whose first Next() call yields 0.
func NewUniqueIdCounter[T idLike]() *UniqueIdCounter[T] {
	return &UniqueIdCounter[T]{}
}

// Next returns the next unused id and advances the counter.
func (c *UniqueIdCounter[T]) Next() T {
	if c.next == int64(^uint64(0)>>1) {
		panic(fmt.Sprintf("neat: id counter overflow at %d", c.next))
	}
	id := T(c.next)
	c.next++
	return id
}

// Reset returns the counter to its initial state. Ids already handed out are
// not retroactively invalidated; Reset is meant for use at the start of a
// fresh run, never mid-run.
func (c *UniqueIdCounter[T]) Reset() {
	c.next = 0
}

// nodePair is the key an InnovationCounter uses to recognize a structurally
// identical edge across independently-mutated genomes.
type nodePair struct {
	In, Out NodeId
}

// InnovationCounter hands out NodeId and EdgeId values for one evolutionary
// run and guarantees that any two genomes requesting an edge id for the same
// ordered (in, out) pair receive the same EdgeId, enabling alignment during
// crossover and distance computation. It is process-wide within a single run
// and must never be shared across two runs.
type InnovationCounter struct {
	nodes   UniqueIdCounter[NodeId]
	edges   UniqueIdCounter[EdgeId]
	history map[nodePair]EdgeId
}

// NewInnovationCounter creates an empty innovation counter.
func NewInnovationCounter() *InnovationCounter {
	return &InnovationCounter{
		history: make(map[nodePair]EdgeId),
	}
}

// NextNodeId allocates a fresh, never-reused NodeId.
func (ic *InnovationCounter) NextNodeId() NodeId {
	return ic.nodes.Next()
}

// EdgeIdFor returns the EdgeId previously issued for the (in, out) pair, or
// allocates and records a new one if this is the first time any genome in
// the run has created an edge between these two nodes. This lookup never
// fails.
func (ic *InnovationCounter) EdgeIdFor(in, out NodeId) EdgeId {
	key := nodePair{in, out}
	if id, ok := ic.history[key]; ok {
		return id
	}
	id := ic.edges.Next()
	ic.history[key] = id
	return id
}

// Seen reports whether an edge id has already been issued for (in, out),
// without allocating one.
func (ic *InnovationCounter) Seen(in, out NodeId) (EdgeId, bool) {
	id, ok := ic.history[nodePair{in, out}]
	return id, ok
}
