package neat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func selectorTestGenomes(t *testing.T, n int, ic *InnovationCounter, reg *ActivationRegistry) []*GenomeData {
	t.Helper()
	cfg := GenomeConfig{
		NumInputNodes:     2,
		NumOutputNodes:    1,
		InnovationCounter: ic,
		NetworkType:       General,
	}
	var out []*GenomeData
	for i := 0; i < n; i++ {
		g, err := NewGenome(GenomeId(i), cfg, reg, func() float64 { return 0.1 })
		require.NoError(t, err)
		out = append(out, &GenomeData{Id: g.Id, Genome: g, Fitness: float64(i + 1)})
	}
	return out
}

func TestUniformSelectorRequiresNonEmptyPool(t *testing.T) {
	s := NewUniformSelector(nil, NewDefaultRandom(1))
	err := s.PreSelection(1, SelectOne)
	require.ErrorIs(t, err, ErrNoCandidates)
}

func TestUniformSelectorSelectTwoDistinct(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	ic := NewInnovationCounter()
	genomes := selectorTestGenomes(t, 5, ic, reg)
	s := NewUniformSelector(genomes, NewDefaultRandom(1))
	require.NoError(t, s.PreSelection(3, SelectTwo))
	for i := 0; i < 10; i++ {
		g1, g2, err := s.SelectTwoGenomes()
		require.NoError(t, err)
		require.NotEqual(t, g1.Id, g2.Id)
	}
}

func TestSelectorMisuseBeforePreSelection(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	ic := NewInnovationCounter()
	genomes := selectorTestGenomes(t, 3, ic, reg)
	s := NewUniformSelector(genomes, NewDefaultRandom(1))
	_, err := s.SelectGenome()
	require.ErrorIs(t, err, ErrSelectorMisuse)
}

func TestSelectorMisuseAfterPostSelection(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	ic := NewInnovationCounter()
	genomes := selectorTestGenomes(t, 3, ic, reg)
	s := NewUniformSelector(genomes, NewDefaultRandom(1))
	require.NoError(t, s.PreSelection(1, SelectOne))
	s.PostSelection()
	_, err := s.SelectGenome()
	require.ErrorIs(t, err, ErrSelectorMisuse)
}

// TestSpeciesSelectorFallsBackToUniformWhenDegenerate matches the
// specification's degenerate-population failure semantics: all-zero fitness
// degrades the selector to uniform rather than erroring.
func TestSpeciesSelectorFallsBackToUniformWhenDegenerate(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	ic := NewInnovationCounter()
	genomes := selectorTestGenomes(t, 4, ic, reg)
	for _, g := range genomes {
		g.Fitness = 0
	}
	toSpecies := map[GenomeId]SpeciesId{}
	for _, g := range genomes {
		toSpecies[g.Id] = SpeciesId(1)
	}
	species := map[SpeciesId]*Species{
		1: NewSpeciesFromMember(SpeciesId(1), genomes[0]),
	}

	sel := NewSpeciesSelector(genomes, toSpecies, species, 15, 0.001, NewDefaultRandom(1))
	require.NoError(t, sel.PreSelection(2, SelectOne))
	g, err := sel.SelectGenome()
	require.NoError(t, err)
	require.NotNil(t, g)
}

// TestSpeciesSelectorProportionalToSharedFitness is property 6: selection
// probability within a single species should match a survivor's fitness
// divided by the summed fitness of all survivors,
// measured empirically over many draws. With 4 members the median-cut rule
// discards the single weakest member (its fitness is strictly below the
// median), so only the top 3 ever get drawn.
func TestSpeciesSelectorProportionalToSharedFitness(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	ic := NewInnovationCounter()
	genomes := selectorTestGenomes(t, 4, ic, reg) // fitness 1, 2, 3, 4
	toSpecies := map[GenomeId]SpeciesId{}
	for _, g := range genomes {
		toSpecies[g.Id] = SpeciesId(1)
	}
	species := map[SpeciesId]*Species{1: NewSpeciesFromMember(SpeciesId(1), genomes[0])}
	for _, g := range genomes[1:] {
		species[1].AddGenome(g)
	}

	counts := make(map[GenomeId]int)
	const trials = 20000
	for i := 0; i < trials; i++ {
		sel := NewSpeciesSelector(genomes, toSpecies, species, 15, 0, NewDefaultRandom(int64(i)))
		require.NoError(t, sel.PreSelection(1, SelectOne))
		g, err := sel.SelectGenome()
		require.NoError(t, err)
		counts[g.Id]++
		sel.PostSelection()
	}

	weakest := genomes[0] // fitness 1, cut by the median rule
	require.Zero(t, counts[weakest.Id])

	survivors := genomes[1:] // fitness 2, 3, 4
	total := 2.0 + 3.0 + 4.0
	for _, g := range survivors {
		want := g.Fitness / total
		got := float64(counts[g.Id]) / float64(trials)
		require.InDelta(t, want, got, 0.03, "genome %d: want ~%.3f got %.3f", g.Id, want, got)
	}
}

func TestSpeciesSelectorSelectTwoDistinct(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	ic := NewInnovationCounter()
	genomes := selectorTestGenomes(t, 6, ic, reg)
	toSpecies := map[GenomeId]SpeciesId{}
	for _, g := range genomes {
		toSpecies[g.Id] = SpeciesId(1)
	}
	species := map[SpeciesId]*Species{1: NewSpeciesFromMember(SpeciesId(1), genomes[0])}
	for _, g := range genomes[1:] {
		species[1].AddGenome(g)
	}

	sel := NewSpeciesSelector(genomes, toSpecies, species, 15, 0.001, NewDefaultRandom(2))
	require.NoError(t, sel.PreSelection(20, SelectTwo))
	for i := 0; i < 4; i++ {
		g1, g2, err := sel.SelectTwoGenomes()
		require.NoError(t, err)
		require.NotEqual(t, g1.Id, g2.Id)
	}
}

// TestSpeciesSelectorSelectTwoGuaranteesDistinctWithSingleMemberSpecies
// matches spec.md's "guarantee g1 != g2": a species whose bucket is too
// small to supply both parents on its own must still produce a distinct
// pair by drawing the second parent from elsewhere in the population.
func TestSpeciesSelectorSelectTwoGuaranteesDistinctWithSingleMemberSpecies(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	ic := NewInnovationCounter()
	lone := selectorTestGenomes(t, 1, ic, reg)
	others := selectorTestGenomes(t, 3, ic, reg)
	for i, g := range others {
		g.Id += 100
		g.Fitness = float64(i + 1)
	}
	all := append(append([]*GenomeData{}, lone...), others...)

	toSpecies := map[GenomeId]SpeciesId{lone[0].Id: 1}
	for _, g := range others {
		toSpecies[g.Id] = 2
	}
	species := map[SpeciesId]*Species{
		1: NewSpeciesFromMember(SpeciesId(1), lone[0]),
		2: NewSpeciesFromMember(SpeciesId(2), others[0]),
	}
	for _, g := range others[1:] {
		species[2].AddGenome(g)
	}

	sel := NewSpeciesSelector(all, toSpecies, species, 15, 0, NewDefaultRandom(1))
	require.NoError(t, sel.PreSelection(20, SelectTwo))
	for i := 0; i < 10; i++ {
		g1, g2, err := sel.SelectTwoGenomes()
		require.NoError(t, err)
		require.NotEqual(t, g1.Id, g2.Id)
	}
}

func TestSpeciesSelectorExcludesStagnantSpeciesUnlessAllAre(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	ic := NewInnovationCounter()
	genomesA := selectorTestGenomes(t, 2, ic, reg)
	genomesB := selectorTestGenomes(t, 2, ic, reg)
	for _, g := range genomesB {
		g.Id += 100
	}
	all := append(append([]*GenomeData{}, genomesA...), genomesB...)

	toSpecies := map[GenomeId]SpeciesId{}
	for _, g := range genomesA {
		toSpecies[g.Id] = 1
	}
	for _, g := range genomesB {
		toSpecies[g.Id] = 2
	}
	spA := NewSpeciesFromMember(SpeciesId(1), genomesA[0])
	spA.AddGenome(genomesA[1])
	spA.stagnation = 20 // stagnant beyond threshold
	spB := NewSpeciesFromMember(SpeciesId(2), genomesB[0])
	spB.AddGenome(genomesB[1])

	species := map[SpeciesId]*Species{1: spA, 2: spB}
	sel := NewSpeciesSelector(all, toSpecies, species, 15, 0, NewDefaultRandom(1))
	require.NoError(t, sel.PreSelection(10, SelectOne))
	for i := 0; i < 10; i++ {
		g, err := sel.SelectGenome()
		require.NoError(t, err)
		require.Equal(t, SpeciesId(2), toSpecies[g.Id])
	}

	// once every species is stagnant the stagnation filter is dropped, so
	// selection still draws from the species rather than falling back
	spB.stagnation = 20
	sel = NewSpeciesSelector(all, toSpecies, species, 15, 0, NewDefaultRandom(1))
	require.Nil(t, sel.fallback)
	require.NoError(t, sel.PreSelection(10, SelectOne))
	g, err := sel.SelectGenome()
	require.NoError(t, err)
	require.NotNil(t, g)
}
