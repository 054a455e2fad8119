package neat

import (
	"fmt"
	"math"
)

// EvaluatorType selects how an Evaluator decides it has run a baked
// network enough times for a recurrent signal to settle. The source this
// engine is modeled on split this into two separate evaluator classes with
// overlapping responsibilities; this consolidates them into one type with
// an explicit mode.
type EvaluatorType int

const (
	// IterationBased runs a fixed number of Evaluate passes, derived from
	// the baked network's own Depth() when Iterations is left at zero.
	IterationBased EvaluatorType = iota
	// ConvergenceBased runs until every output's activated value moves by
	// less than ConvergenceEpsilon between passes, or MaxIterations is hit.
	ConvergenceBased
)

// EvaluatorParams controls an Evaluator's stopping policy.
type EvaluatorParams struct {
	Type EvaluatorType

	// Iterations is the fixed pass count for IterationBased; zero derives
	// it from the network's Depth() at Run time instead.
	Iterations int

	// ConvergenceEpsilon and MaxIterations bound ConvergenceBased: stop
	// early once every output stabilizes within epsilon, but never run
	// past the iteration cap (a network with a sustained oscillation
	// would otherwise never stop).
	ConvergenceEpsilon float64
	MaxIterations      int
}

// DefaultEvaluatorParams returns the specification's default: a fixed
// number of iteration-based passes, one per the network's own depth.
func DefaultEvaluatorParams() EvaluatorParams {
	return EvaluatorParams{Type: IterationBased, MaxIterations: 20, ConvergenceEpsilon: 1e-6}
}

// Evaluator wraps a BakedNetwork with a stopping policy so recurrent
// networks, whose single Evaluate call only advances state by one step,
// can be driven to a settled (or bounded) result in one call.
type Evaluator struct {
	net    *BakedNetwork
	params EvaluatorParams
}

// NewEvaluator builds an Evaluator over net using params.
func NewEvaluator(net *BakedNetwork, params EvaluatorParams) *Evaluator {
	return &Evaluator{net: net, params: params}
}

// Run drives the underlying baked network according to the evaluator's
// policy. Callers must call net.SetNodeValue for every input/bias node
// first.
func (e *Evaluator) Run() error {
	switch e.params.Type {
	case ConvergenceBased:
		return e.runConvergence()
	default:
		return e.runIterations()
	}
}

func (e *Evaluator) runIterations() error {
	n := e.params.Iterations
	if n <= 0 {
		n = e.net.Depth()
	}
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		if err := e.net.Evaluate(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Evaluator) runConvergence() error {
	maxIter := e.params.MaxIterations
	if maxIter <= 0 {
		maxIter = 20
	}
	eps := e.params.ConvergenceEpsilon
	if eps <= 0 {
		eps = 1e-6
	}

	prev := e.net.OutputValues()
	for i := 0; i < maxIter; i++ {
		if err := e.net.Evaluate(); err != nil {
			return err
		}
		cur := e.net.OutputValues()
		if outputsConverged(prev, cur, eps) {
			return nil
		}
		prev = cur
	}
	return nil
}

func outputsConverged(prev, cur []float64, eps float64) bool {
	if len(prev) != len(cur) {
		return false
	}
	for i := range cur {
		if math.Abs(cur[i]-prev[i]) >= eps {
			return false
		}
	}
	return true
}

// EvaluateBakedGenome sets g's baked network's input (and bias, if
// present) values and drives it with an Evaluator built from params. It
// rebuilds the baked snapshot first if the genome's topology changed
// since the last bake.
func EvaluateBakedGenome(g *Genome, inputs []float64, biasValue float64, params EvaluatorParams) error {
	inputIds := g.Net.InputNodes()
	if len(inputIds) != len(inputs) {
		return fmt.Errorf("neat: expected %d inputs, got %d", len(inputIds), len(inputs))
	}

	baked, err := g.Baked()
	if err != nil {
		return err
	}
	for i, id := range inputIds {
		if err := baked.SetNodeValue(id, inputs[i]); err != nil {
			return err
		}
	}
	if g.BiasNode != InvalidNodeId {
		if err := baked.SetNodeValue(g.BiasNode, biasValue); err != nil {
			return err
		}
	}

	return NewEvaluator(baked, params).Run()
}
