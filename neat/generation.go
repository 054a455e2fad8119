package neat

import (
	"fmt"
	"os"
	"sort"
)

// GenerationParams collects the parameters the generation loop itself
// consumes, as opposed to those handed down to mutation or crossover.
type GenerationParams struct {
	MaxStagnantCount           int     // default 15
	InterSpeciesCrossOverRate  float64 // default 0.001
	SpeciationDistanceThreshold float64 // default 3.0
	CalcDistParams             CalcDistParams
}

// DefaultGenerationParams returns the specification's defaults.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		MaxStagnantCount:            15,
		InterSpeciesCrossOverRate:   0.001,
		SpeciationDistanceThreshold: 3.0,
		CalcDistParams:              DefaultCalcDistParams(),
	}
}

// GenerationConfig is everything NewGeneration needs to build the first
// generation from an archetype.
type GenerationConfig struct {
	NumGenomes        int
	GenomeConfig      GenomeConfig
	MinWeight         float64
	MaxWeight         float64
	FitnessCalculator FitnessCalculator
	MutationParams    MutationParams
	CrossoverParams   CrossoverParams
	MinMembersInSpeciesToCopyChampion int // default 5
	GenerationParams  GenerationParams
	Random            RandomSource
	Registry          *ActivationRegistry
}

// FitnessCalculator is the external collaborator invoked once per genome
// per generation. It must not structurally modify the genome.
type FitnessCalculator interface {
	CalcFitness(g *Genome) (float64, error)
}

// EvaluateGenome is a convenience the fitness calculator may use: it sets
// the genome's input values (and bias, if present) and runs its mutable
// network evaluator.
func EvaluateGenome(g *Genome, inputs []float64, biasValue float64) error {
	inputIds := g.Net.InputNodes()
	if len(inputIds) != len(inputs) {
		return fmt.Errorf("neat: expected %d inputs, got %d", len(inputIds), len(inputs))
	}
	values := make(map[NodeId]float64, len(inputs)+1)
	for i, id := range inputIds {
		values[id] = inputs[i]
	}
	if g.BiasNode != InvalidNodeId {
		values[g.BiasNode] = biasValue
	}
	if err := g.Net.SetAllNodeValues(values); err != nil {
		return err
	}
	return g.Net.Evaluate()
}

// Generation orchestrates the per-epoch pipeline described in the
// specification: champion-carry, crossover and cloning generators,
// mutation, fitness evaluation, then re-speciation.
type Generation struct {
	Id GenerationId

	cfg    GenerationConfig
	random RandomSource

	current  []*GenomeData
	previous []*GenomeData

	species         map[SpeciesId]*Species
	genomeToSpecies map[GenomeId]SpeciesId

	genomeIds  UniqueIdCounter[GenomeId]
	speciesIds UniqueIdCounter[SpeciesId]

	mutator *Mutator
}

// NewGeneration builds N copies of an archetype genome (per cfg's
// GenomeConfig), each with uniformly random initial edge weights in
// [MinWeight, MaxWeight], groups them into one initial species, and
// computes their initial fitness.
func NewGeneration(cfg GenerationConfig) (*Generation, error) {
	if cfg.Random == nil {
		return nil, fmt.Errorf("neat: GenerationConfig.Random is required")
	}
	if cfg.FitnessCalculator == nil {
		return nil, fmt.Errorf("neat: GenerationConfig.FitnessCalculator is required")
	}
	if cfg.MinMembersInSpeciesToCopyChampion == 0 {
		cfg.MinMembersInSpeciesToCopyChampion = 5
	}

	g := &Generation{
		cfg:             cfg,
		random:          cfg.Random,
		species:         make(map[SpeciesId]*Species),
		genomeToSpecies: make(map[GenomeId]SpeciesId),
		mutator:         NewMutator(cfg.MutationParams),
	}

	var genomes []*GenomeData
	for i := 0; i < cfg.NumGenomes; i++ {
		gid := g.genomeIds.Next()
		weights := func() float64 { return cfg.Random.Real(cfg.MinWeight, cfg.MaxWeight) }
		genome, err := NewGenome(gid, cfg.GenomeConfig, cfg.Registry, weights)
		if err != nil {
			return nil, err
		}
		gd := &GenomeData{Id: gid, Genome: genome}
		fitness, err := cfg.FitnessCalculator.CalcFitness(genome)
		if err != nil {
			return nil, err
		}
		gd.Fitness = fitness
		genomes = append(genomes, gd)
	}
	g.current = genomes

	sid := g.speciesIds.Next()
	rep := genomes[cfg.Random.Integer(0, len(genomes)-1)]
	sp := NewSpeciesFromMember(sid, rep)
	for _, gd := range genomes {
		if gd.Id != rep.Id {
			sp.AddGenome(gd)
		}
		g.genomeToSpecies[gd.Id] = sid
	}
	g.species[sid] = sp

	return g, nil
}

// NewGenerationFromGenomes builds a Generation directly from an externally
// supplied genome list, grouping them into one initial species exactly as
// NewGeneration does, but computing fitness rather than generating new
// random genomes.
func NewGenerationFromGenomes(cfg GenerationConfig, genomes []*Genome) (*Generation, error) {
	if cfg.Random == nil {
		return nil, fmt.Errorf("neat: GenerationConfig.Random is required")
	}
	if cfg.MinMembersInSpeciesToCopyChampion == 0 {
		cfg.MinMembersInSpeciesToCopyChampion = 5
	}
	g := &Generation{
		cfg:             cfg,
		random:          cfg.Random,
		species:         make(map[SpeciesId]*Species),
		genomeToSpecies: make(map[GenomeId]SpeciesId),
		mutator:         NewMutator(cfg.MutationParams),
	}

	var data []*GenomeData
	for _, genome := range genomes {
		gid := g.genomeIds.Next()
		genome.Id = gid
		fitness, err := cfg.FitnessCalculator.CalcFitness(genome)
		if err != nil {
			return nil, err
		}
		data = append(data, &GenomeData{Id: gid, Genome: genome, Fitness: fitness})
	}
	g.current = data

	sid := g.speciesIds.Next()
	rep := data[cfg.Random.Integer(0, len(data)-1)]
	sp := NewSpeciesFromMember(sid, rep)
	for _, gd := range data {
		if gd.Id != rep.Id {
			sp.AddGenome(gd)
		}
		g.genomeToSpecies[gd.Id] = sid
	}
	g.species[sid] = sp
	return g, nil
}

// Current returns the current generation's genome data list.
func (g *Generation) Current() []*GenomeData { return g.current }

// Species returns the live species map.
func (g *Generation) Species() map[SpeciesId]*Species { return g.species }

// EvolveGeneration runs one full pipeline step: pre-update, selection,
// the fixed-order generators, mutation, fitness evaluation, then
// re-speciation. See the specification's generation loop for the exact
// sequencing and why it matters (the mutation dedup log depends on
// genomes being processed in list order).
func (g *Generation) EvolveGeneration() error {
	// 1. pre-update
	g.mutator.ResetGeneration()
	for _, gd := range g.current {
		gd.Protected = false
	}

	// 2. create selector over the soon-to-be-previous genomes
	selector := NewSpeciesSelector(g.current, g.genomeToSpecies, g.species, g.cfg.GenerationParams.MaxStagnantCount, g.cfg.GenerationParams.InterSpeciesCrossOverRate, g.random)
	if selector.fallback != nil {
		fmt.Fprintf(os.Stderr, "neat: %v; selecting uniformly\n", ErrDegeneratePopulation)
	}

	// 3. swap buffers
	g.previous = g.current
	g.current = nil

	n := g.cfg.NumGenomes
	budget := n

	// 4a. species-champion generator
	for _, sp := range orderedSpecies(g.species) {
		if !sp.Reproducible() || len(sp.Members()) < g.cfg.MinMembersInSpeciesToCopyChampion {
			continue
		}
		best := championOf(sp)
		if best == nil || budget <= 0 {
			continue
		}
		gid := g.genomeIds.Next()
		clone := best.Genome.Clone(gid)
		g.current = append(g.current, &GenomeData{Id: gid, Genome: clone, Fitness: best.Fitness, Protected: true})
		budget--
	}

	crossoverCount := int(float64(n) * crossoverRateFromParams(g.cfg))
	if crossoverCount > budget {
		crossoverCount = budget
	}

	if crossoverCount > 0 {
		if err := selector.PreSelection(crossoverCount, SelectTwo); err != nil {
			return err
		}
		for i := 0; i < crossoverCount; i++ {
			p1, p2, err := selector.SelectTwoGenomes()
			if err != nil {
				break
			}
			a, b := p1, p2
			sameFitness := a.Fitness == b.Fitness
			if b.Fitness > a.Fitness {
				a, b = b, a
			}
			gid := g.genomeIds.Next()
			child, err := Crossover(gid, a.Genome, b.Genome, sameFitness, g.cfg.CrossoverParams)
			if err != nil {
				return err
			}
			g.current = append(g.current, &GenomeData{Id: gid, Genome: child})
			budget--
		}
		selector.PostSelection()
	}

	if budget > 0 {
		if err := selector.PreSelection(budget, SelectOne); err != nil {
			return err
		}
		for budget > 0 {
			parent, err := selector.SelectGenome()
			if err != nil {
				break
			}
			gid := g.genomeIds.Next()
			clone := parent.Genome.Clone(gid)
			g.current = append(g.current, &GenomeData{Id: gid, Genome: clone})
			budget--
		}
		selector.PostSelection()
	}

	// 5. mutation
	for _, gd := range g.current {
		if gd.Protected {
			continue
		}
		if err := g.mutator.Mutate(gd.Genome); err != nil {
			return err
		}
	}

	// 6. fitness evaluation
	for _, gd := range g.current {
		fitness, err := g.cfg.FitnessCalculator.CalcFitness(gd.Genome)
		if err != nil {
			return err
		}
		gd.Fitness = fitness
	}

	// 7. post-update / re-speciation
	g.respeciate()

	// 8. advance generation id
	g.Id++
	return nil
}

func crossoverRateFromParams(cfg GenerationConfig) float64 {
	return cfg.CrossoverParams.NumCrossOverGenomesRate
}

func championOf(sp *Species) *GenomeData {
	var best *GenomeData
	for _, m := range sp.Members() {
		if best == nil || m.Fitness > best.Fitness {
			best = m
		}
	}
	return best
}

func orderedSpecies(m map[SpeciesId]*Species) []*Species {
	var ids []SpeciesId
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*Species, len(ids))
	for i, id := range ids {
		out[i] = m[id]
	}
	return out
}

func (g *Generation) respeciate() {
	if len(g.species) > 1 {
		for id, sp := range g.species {
			if sp.Stagnation() >= g.cfg.GenerationParams.MaxStagnantCount {
				delete(g.species, id)
			}
		}
	}
	if len(g.species) == 0 {
		// guard against the pathological all-species-stagnant case: keep
		// nothing to speciate into below would leave every genome
		// unassigned, so fall through and let the loop below create fresh
		// species as needed.
		fmt.Fprintln(os.Stderr, "neat: every species was stagnant and removed; re-speciating from scratch")
	}

	for _, sp := range g.species {
		sp.PreNewGeneration()
	}

	g.genomeToSpecies = make(map[GenomeId]SpeciesId)
	for _, gd := range g.current {
		placed := false
		for _, sp := range orderedSpecies(g.species) {
			if sp.TryAddGenome(gd, g.cfg.GenerationParams.SpeciationDistanceThreshold, g.cfg.GenerationParams.CalcDistParams) {
				g.genomeToSpecies[gd.Id] = sp.Id
				placed = true
				break
			}
		}
		if !placed {
			sid := g.speciesIds.Next()
			sp := NewSpeciesFromMember(sid, gd)
			g.species[sid] = sp
			g.genomeToSpecies[gd.Id] = sid
		}
	}

	for id, sp := range g.species {
		if len(sp.Members()) == 0 {
			delete(g.species, id)
		}
	}

	for _, sp := range g.species {
		sp.PostNewGeneration(g.random)
		sp.SetReproducible(sp.Stagnation() < g.cfg.GenerationParams.MaxStagnantCount)
	}
	if len(g.species) == 1 {
		for _, sp := range g.species {
			sp.SetReproducible(true)
		}
	}

	sort.SliceStable(g.current, func(i, j int) bool {
		si, sj := g.genomeToSpecies[g.current[i].Id], g.genomeToSpecies[g.current[j].Id]
		if si != sj {
			return si < sj
		}
		return g.current[i].Fitness > g.current[j].Fitness
	})
}
