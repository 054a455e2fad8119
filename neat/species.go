package neat

// Species is a cluster of genomes grouped by genetic distance from a
// rolling representative. The representative is always a value copy, not
// a pointer to a live member, so a species survives even if its current
// representative genome is later discarded.
type Species struct {
	Id             SpeciesId
	representative *Genome
	members        []*GenomeData
	bestFitness    float64
	prevBestFitness float64
	stagnation     int
	reproducible   bool
}

// NewSpecies creates an empty species around representative, which is
// cloned so the species owns its own snapshot.
func NewSpecies(id SpeciesId, representative *Genome) *Species {
	return &Species{
		Id:             id,
		representative: representative.Clone(representative.Id),
		reproducible:   true,
	}
}

// NewSpeciesFromMember creates a species whose first member is g, with
// the representative set to a clone of g.
func NewSpeciesFromMember(id SpeciesId, g *GenomeData) *Species {
	s := NewSpecies(id, g.Genome)
	s.members = append(s.members, g)
	s.bestFitness = g.Fitness
	s.reproducible = true
	return s
}

func (s *Species) Representative() *Genome { return s.representative }
func (s *Species) Members() []*GenomeData  { return s.members }
func (s *Species) BestFitness() float64    { return s.bestFitness }
func (s *Species) Stagnation() int         { return s.stagnation }
func (s *Species) Reproducible() bool      { return s.reproducible }
func (s *Species) SetReproducible(v bool)  { s.reproducible = v }

// TryAddGenome inserts g if its distance to the representative is within
// threshold, updating the species' current-generation best fitness.
func (s *Species) TryAddGenome(g *GenomeData, threshold float64, distParams CalcDistParams) bool {
	if g.Genome.CalcDistance(s.representative, distParams) > threshold {
		return false
	}
	s.AddGenome(g)
	return true
}

// AddGenome appends g unconditionally and updates best fitness.
func (s *Species) AddGenome(g *GenomeData) {
	s.members = append(s.members, g)
	if g.Fitness > s.bestFitness {
		s.bestFitness = g.Fitness
	}
}

// PreNewGeneration clears membership and resets the current-generation
// best ahead of re-speciation; the representative persists across the
// reset.
func (s *Species) PreNewGeneration() {
	s.members = nil
	s.bestFitness = 0
}

// PostNewGeneration picks a new representative uniformly at random from
// the surviving members and updates stagnation: reset to zero if best
// improved over the previous generation, otherwise incremented.
func (s *Species) PostNewGeneration(rng RandomSource) {
	if len(s.members) > 0 {
		pick := s.members[rng.Integer(0, len(s.members)-1)]
		s.representative = pick.Genome.Clone(pick.Genome.Id)
	}
	if s.bestFitness > s.prevBestFitness {
		s.stagnation = 0
	} else {
		s.stagnation++
	}
	s.prevBestFitness = s.bestFitness
}
