package neat

import "errors"

// Sentinel errors for the engine's structural and precondition failures.
// Failures are reported through these rather than panics; only id-counter
// overflow panics. Network.Validate reports a broken invariant as a false
// result, and the engine does not abort on it.
var (
	// ErrUnknownNode is returned when an operation references a NodeId not
	// present in the network.
	ErrUnknownNode = errors.New("neat: unknown node id")

	// ErrUnknownEdge is returned when an operation references an EdgeId not
	// present in the network.
	ErrUnknownEdge = errors.New("neat: unknown edge id")

	// ErrUnknownActivation is returned when an operation references an
	// ActivationId not present in the registry.
	ErrUnknownActivation = errors.New("neat: unknown activation id")

	// ErrAlreadyConnected is returned by AddEdgeAt when the two endpoints
	// already share an edge in either direction.
	ErrAlreadyConnected = errors.New("neat: nodes already connected")

	// ErrWouldCreateCycle is returned by AddEdgeAt on a feed-forward network
	// when the requested edge would introduce a directed cycle.
	ErrWouldCreateCycle = errors.New("neat: edge would create a cycle")

	// ErrInvalidDirection is returned by AddEdgeAt when the destination is an
	// input or bias node (on any network), or, on a feed-forward network,
	// when the source is an output node.
	ErrInvalidDirection = errors.New("neat: invalid edge direction")

	// ErrNoCandidates is returned by a selector or mutator operation that
	// finds no eligible genome, node, or edge to act on.
	ErrNoCandidates = errors.New("neat: no eligible candidates")

	// ErrSelectorMisuse is returned when a GenomeSelector method is called
	// out of its required sequence (pre_selection not called, wrong mode,
	// or called after post_selection).
	ErrSelectorMisuse = errors.New("neat: selector used out of sequence")

	// ErrDegeneratePopulation describes the case where every candidate
	// genome had non-positive fitness. It is a diagnostic, not a hard
	// failure: no function returns it; the selector falls back to uniform
	// selection and EvolveGeneration prints it to stderr.
	ErrDegeneratePopulation = errors.New("neat: population fitness is degenerate")
)
