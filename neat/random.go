package neat

import "math/rand"

// RandomSource is the capability every stochastic operator in the engine
// draws from. A Generation uses its own source (GenerationConfig.Random)
// for selection and species bookkeeping; the mutator and crossover draw
// from the sources set in MutationParams.Random and CrossoverParams.Random.
// A run's sequence of random decisions is reproducible from the seeds of
// those sources, which may all be the same source.
type RandomSource interface {
	// Real01 returns a uniform value in [0, 1).
	Real01() float64

	// Real returns a uniform value in [min, max). Implementations must
	// never return max: the weight-mutation code depends on this.
	Real(min, max float64) float64

	// Integer returns a uniform value in [min, max], inclusive of both ends.
	Integer(min, max int) int

	// Boolean returns true or false with equal probability.
	Boolean() bool
}

// DefaultRandom is the engine's standard RandomSource, backed by a
// private *rand.Rand so that two Generations never share mutable rand state.
type DefaultRandom struct {
	r *rand.Rand
}

// NewDefaultRandom creates a RandomSource seeded deterministically.
func NewDefaultRandom(seed int64) *DefaultRandom {
	return &DefaultRandom{r: rand.New(rand.NewSource(seed))}
}

func (d *DefaultRandom) Real01() float64 {
	return d.r.Float64()
}

func (d *DefaultRandom) Real(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + d.r.Float64()*(max-min)
}

func (d *DefaultRandom) Integer(min, max int) int {
	if max <= min {
		return min
	}
	return min + d.r.Intn(max-min+1)
}

func (d *DefaultRandom) Boolean() bool {
	return d.r.Float64() < 0.5
}
