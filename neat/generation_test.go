package neat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// edgeCountFitness scores a genome by its edge count, so that structural
// mutations (add-node, add-edge) are visible in the next generation's
// fitness values; champion genomes left unmutated keep an identical score.
type edgeCountFitness struct{}

func (edgeCountFitness) CalcFitness(g *Genome) (float64, error) {
	return float64(g.Net.NumEdges()), nil
}

func newGenerationTestConfig(ic *InnovationCounter, reg *ActivationRegistry, numGenomes int) GenerationConfig {
	return GenerationConfig{
		NumGenomes: numGenomes,
		GenomeConfig: GenomeConfig{
			NumInputNodes:     2,
			NumOutputNodes:    1,
			InnovationCounter: ic,
			NetworkType:       General,
		},
		MinWeight:         -1,
		MaxWeight:         1,
		FitnessCalculator: edgeCountFitness{},
		MutationParams: MutationParams{
			WeightMutationRate:         0.5,
			WeightMutationNewValRate:   0.1,
			WeightMutationPerturbation: 0.3,
			WeightMutationValMin:       -3,
			WeightMutationValMax:       3,
			AddNodeMutationRate:        0.1,
			AddEdgeMutationRate:        0.2,
			RemoveEdgeMutationRate:     0.05,
			NewEdgeMinWeight:           -1,
			NewEdgeMaxWeight:           1,
			Random:                     NewDefaultRandom(3),
		},
		CrossoverParams: CrossoverParams{
			DisablingEdgeRate:         0.75,
			MatchingEdgeSelectionRate: 0.5,
			NumCrossOverGenomesRate:   0.3,
			Random:                    NewDefaultRandom(4),
		},
		MinMembersInSpeciesToCopyChampion: 3,
		GenerationParams:                  DefaultGenerationParams(),
		Random:                            NewDefaultRandom(1),
		Registry:                          reg,
	}
}

func TestNewGenerationBuildsInitialPopulationAndSpecies(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	ic := NewInnovationCounter()
	cfg := newGenerationTestConfig(ic, reg, 12)

	gen, err := NewGeneration(cfg)
	require.NoError(t, err)
	require.Len(t, gen.Current(), 12)
	require.Len(t, gen.Species(), 1)

	for _, gd := range gen.Current() {
		require.Equal(t, float64(gd.Genome.Net.NumEdges()), gd.Fitness)
	}
}

func TestNewGenerationRequiresRandomAndFitnessCalculator(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	ic := NewInnovationCounter()
	cfg := newGenerationTestConfig(ic, reg, 4)

	cfg.Random = nil
	_, err := NewGeneration(cfg)
	require.Error(t, err)

	cfg = newGenerationTestConfig(ic, reg, 4)
	cfg.FitnessCalculator = nil
	_, err = NewGeneration(cfg)
	require.Error(t, err)
}

func TestEvolveGenerationProducesNextGenerationOfSameSize(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	ic := NewInnovationCounter()
	cfg := newGenerationTestConfig(ic, reg, 12)
	gen, err := NewGeneration(cfg)
	require.NoError(t, err)

	require.NoError(t, gen.EvolveGeneration())
	require.Len(t, gen.Current(), 12)
	require.Equal(t, GenerationId(1), gen.Id)

	for _, gd := range gen.Current() {
		require.True(t, gd.Genome.Net.Validate())
	}
}

// TestEvolveGenerationPreservesChampionFitness covers the specification's
// champion-preservation scenario: with a single large species, the
// best-fitness genome is cloned unmutated into the next generation, so its
// exact fitness score reappears.
func TestEvolveGenerationPreservesChampionFitness(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	ic := NewInnovationCounter()
	cfg := newGenerationTestConfig(ic, reg, 12)
	gen, err := NewGeneration(cfg)
	require.NoError(t, err)

	var best float64
	for _, gd := range gen.Current() {
		if gd.Fitness > best {
			best = gd.Fitness
		}
	}

	require.NoError(t, gen.EvolveGeneration())

	var bestNext float64
	for _, gd := range gen.Current() {
		if gd.Fitness > bestNext {
			bestNext = gd.Fitness
		}
	}
	require.GreaterOrEqual(t, bestNext, best)
}

func TestEvolveGenerationSortsBySpeciesThenFitnessDescending(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	ic := NewInnovationCounter()
	cfg := newGenerationTestConfig(ic, reg, 12)
	gen, err := NewGeneration(cfg)
	require.NoError(t, err)
	require.NoError(t, gen.EvolveGeneration())

	current := gen.Current()
	for i := 1; i < len(current); i++ {
		prevSpecies := gen.genomeToSpecies[current[i-1].Id]
		species := gen.genomeToSpecies[current[i].Id]
		if prevSpecies == species {
			require.GreaterOrEqual(t, current[i-1].Fitness, current[i].Fitness)
		} else {
			require.Less(t, prevSpecies, species)
		}
	}
}

func TestEvolveGenerationMultipleGenerationsStayValid(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	ic := NewInnovationCounter()
	cfg := newGenerationTestConfig(ic, reg, 20)
	gen, err := NewGeneration(cfg)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, gen.EvolveGeneration())
		require.Len(t, gen.Current(), 20)
		for _, gd := range gen.Current() {
			require.True(t, gd.Genome.Net.Validate())
		}
	}
	require.Equal(t, GenerationId(5), gen.Id)
}

func TestEvaluateGenomeRejectsMismatchedInputCount(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	ic := NewInnovationCounter()
	cfg := GenomeConfig{NumInputNodes: 2, NumOutputNodes: 1, InnovationCounter: ic, NetworkType: FeedForward}
	g, err := NewGenome(GenomeId(1), cfg, reg, func() float64 { return 0.1 })
	require.NoError(t, err)

	err = EvaluateGenome(g, []float64{1}, 0)
	require.Error(t, err)
}

func TestNewGenerationFromGenomesAssignsFreshIdsAndFitness(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	ic := NewInnovationCounter()
	cfg := newGenerationTestConfig(ic, reg, 3)

	var seeds []*Genome
	for i := 0; i < 3; i++ {
		g, err := NewGenome(GenomeId(100+i), cfg.GenomeConfig, reg, func() float64 { return 0.4 })
		require.NoError(t, err)
		seeds = append(seeds, g)
	}

	gen, err := NewGenerationFromGenomes(cfg, seeds)
	require.NoError(t, err)
	require.Len(t, gen.Current(), 3)
	for _, gd := range gen.Current() {
		require.Equal(t, float64(gd.Genome.Net.NumEdges()), gd.Fitness)
	}
}
