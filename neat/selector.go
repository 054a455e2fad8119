package neat

import (
	"fmt"
	"sort"
)

// GenomeData is a per-generation wrapper around a genome, carrying the
// bookkeeping the selector and generation loop need but that does not
// belong on the genome itself: its id, this generation's fitness, and
// whether it is protected from mutation (a carried champion).
type GenomeData struct {
	Id        GenomeId
	Genome    *Genome
	Fitness   float64
	Protected bool
}

// SelectionMode fixes what a GenomeSelector's pre-selection call commits
// the selector to producing: one genome per SelectGenome call, or a pair
// per SelectTwoGenomes call.
type SelectionMode int

const (
	SelectOne SelectionMode = iota
	SelectTwo
)

// GenomeSelector is the abstract selection contract every generator in
// the generation loop draws from. PreSelection must be called exactly
// once, establishing a mode, before any Select call; no Select call is
// valid after PostSelection.
type GenomeSelector interface {
	PreSelection(n int, mode SelectionMode) error
	SelectGenome() (*GenomeData, error)
	SelectTwoGenomes() (*GenomeData, *GenomeData, error)
	PostSelection()
}

// UniformSelector ignores fitness entirely and returns uniformly random
// genomes from the pool it was built over. It is both a selector in its
// own right and the species selector's fallback when every genome has
// non-positive fitness.
type UniformSelector struct {
	pool    []*GenomeData
	random  RandomSource
	mode    SelectionMode
	active  bool
}

func NewUniformSelector(pool []*GenomeData, rng RandomSource) *UniformSelector {
	return &UniformSelector{pool: pool, random: rng}
}

func (s *UniformSelector) PreSelection(n int, mode SelectionMode) error {
	if len(s.pool) == 0 {
		return fmt.Errorf("%w: empty genome pool", ErrNoCandidates)
	}
	s.mode = mode
	s.active = true
	return nil
}

func (s *UniformSelector) SelectGenome() (*GenomeData, error) {
	if !s.active || s.mode != SelectOne {
		return nil, ErrSelectorMisuse
	}
	return s.pool[s.random.Integer(0, len(s.pool)-1)], nil
}

func (s *UniformSelector) SelectTwoGenomes() (*GenomeData, *GenomeData, error) {
	if !s.active || s.mode != SelectTwo {
		return nil, nil, ErrSelectorMisuse
	}
	if len(s.pool) < 2 {
		g := s.pool[0]
		return g, g, nil
	}
	g1 := s.pool[s.random.Integer(0, len(s.pool)-1)]
	g2 := g1
	for g2.Id == g1.Id {
		g2 = s.pool[s.random.Integer(0, len(s.pool)-1)]
	}
	return g1, g2, nil
}

func (s *UniformSelector) PostSelection() { s.active = false }

// speciesBucket is one species' view inside a SpeciesSelector: its sorted
// (descending fitness) surviving members, their fitness-shared cumulative
// sum, and the remaining selection quota assigned by PreSelection.
type speciesBucket struct {
	speciesId  SpeciesId
	members    []*GenomeData
	cumulative []float64 // cumulative fitness-shared sum, parallel to members
	sumFitness float64
	quota      int
}

// SpeciesSelector is the fitness-shared, species-aware selector described
// in the specification: candidates are grouped by species, fitness-shared
// within their original species size, and sampled proportionally to each
// species' shared fitness sum.
type SpeciesSelector struct {
	buckets       []speciesBucket
	interBuckets  []speciesBucket // same buckets, used for the inter-species reserve
	interCumulative []float64
	interSum      float64
	interQuota    int
	interRate     float64
	random        RandomSource
	mode          SelectionMode
	active        bool
	current       int // index into buckets of the species currently being drawn from
	fallback      *UniformSelector
}

// NewSpeciesSelector groups genomes by species via genomeToSpecies,
// builds each species' fitness-shared cumulative vector, and falls back
// to a uniform selector if no candidate survives either filtering pass.
// interSpeciesRate is the share of each PreSelection batch reserved for
// cross-species pairs, taken from the caller's GenerationParams.
func NewSpeciesSelector(genomes []*GenomeData, genomeToSpecies map[GenomeId]SpeciesId, species map[SpeciesId]*Species, maxStagnantCount int, interSpeciesRate float64, rng RandomSource) *SpeciesSelector {
	s := &SpeciesSelector{random: rng, interRate: interSpeciesRate}

	build := func(includeStagnant bool) map[SpeciesId][]*GenomeData {
		grouped := make(map[SpeciesId][]*GenomeData)
		for _, g := range genomes {
			if g.Fitness <= 0 {
				continue
			}
			sid, ok := genomeToSpecies[g.Id]
			if !ok {
				continue
			}
			sp := species[sid]
			if sp != nil && !includeStagnant && sp.Stagnation() >= maxStagnantCount {
				continue
			}
			grouped[sid] = append(grouped[sid], g)
		}
		return grouped
	}

	grouped := build(false)
	if len(grouped) == 0 {
		grouped = build(true)
	}
	if len(grouped) == 0 {
		s.fallback = NewUniformSelector(genomes, rng)
		return s
	}

	// original species sizes, for explicit fitness sharing
	originalSize := make(map[SpeciesId]int)
	for _, g := range genomes {
		if sid, ok := genomeToSpecies[g.Id]; ok {
			originalSize[sid]++
		}
	}

	var ids []SpeciesId
	for sid := range grouped {
		ids = append(ids, sid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, sid := range ids {
		members := grouped[sid]
		sort.SliceStable(members, func(i, j int) bool { return members[i].Fitness > members[j].Fitness })
		if len(members) > 2 {
			median := members[len(members)/2].Fitness
			if members[len(members)-1].Fitness < median {
				members = members[:len(members)-1]
			}
		}
		share := 1.0
		if n := originalSize[sid]; n > 0 {
			share = 1.0 / float64(n)
		}
		var cum []float64
		var total float64
		for _, m := range members {
			total += m.Fitness * share
			cum = append(cum, total)
		}
		s.buckets = append(s.buckets, speciesBucket{speciesId: sid, members: members, cumulative: cum, sumFitness: total})
	}
	return s
}

func (s *SpeciesSelector) PreSelection(n int, mode SelectionMode) error {
	if s.fallback != nil {
		return s.fallback.PreSelection(n, mode)
	}
	s.mode = mode
	s.active = true
	s.current = 0

	var totalFitness float64
	for _, b := range s.buckets {
		totalFitness += b.sumFitness
	}
	if totalFitness <= 0 {
		s.fallback = NewUniformSelector(allMembers(s.buckets), s.random)
		return s.fallback.PreSelection(n, mode)
	}

	interReserve := int(float64(n) * s.interRate)
	if mode == SelectTwo && s.interRate > 0 && interReserve < 1 {
		interReserve = 1
	}
	if interReserve > n {
		interReserve = n
	}
	remaining := n - interReserve

	for i := range s.buckets {
		b := &s.buckets[i]
		q := 0
		if totalFitness > 0 {
			q = int(float64(remaining) * (b.sumFitness / totalFitness))
		}
		b.quota = q
	}

	s.interQuota = interReserve
	s.interBuckets = s.buckets
	var cum []float64
	var total float64
	for _, b := range s.buckets {
		total += b.sumFitness
		cum = append(cum, total)
	}
	s.interCumulative = cum
	s.interSum = total
	return nil
}

func allMembers(buckets []speciesBucket) []*GenomeData {
	var out []*GenomeData
	for _, b := range buckets {
		out = append(out, b.members...)
	}
	return out
}

func (s *SpeciesSelector) advanceToQuota() {
	for s.current < len(s.buckets) && s.buckets[s.current].quota <= 0 {
		s.current++
	}
}

func sampleBucket(b *speciesBucket, rng RandomSource) *GenomeData {
	if len(b.members) == 0 {
		return nil
	}
	if b.sumFitness <= 0 {
		return b.members[rng.Integer(0, len(b.members)-1)]
	}
	target := rng.Real(0, b.sumFitness)
	idx := sort.SearchFloat64s(b.cumulative, target)
	if idx >= len(b.members) {
		idx = len(b.members) - 1
	}
	return b.members[idx]
}

func (s *SpeciesSelector) SelectGenome() (*GenomeData, error) {
	if s.fallback != nil {
		return s.fallback.SelectGenome()
	}
	if !s.active || s.mode != SelectOne {
		return nil, ErrSelectorMisuse
	}
	s.advanceToQuota()
	if s.current >= len(s.buckets) {
		// quotas are rounded down, so they can run out before n draws;
		// the remaining draws sample across all species by shared fitness
		b := pickInterBucket(s.buckets, s.interCumulative, s.interSum, s.random)
		if b == nil {
			return nil, ErrNoCandidates
		}
		return sampleBucket(b, s.random), nil
	}
	b := &s.buckets[s.current]
	g := sampleBucket(b, s.random)
	b.quota--
	return g, nil
}

func (s *SpeciesSelector) SelectTwoGenomes() (*GenomeData, *GenomeData, error) {
	if s.fallback != nil {
		return s.fallback.SelectTwoGenomes()
	}
	if !s.active || s.mode != SelectTwo {
		return nil, nil, ErrSelectorMisuse
	}
	if s.interQuota > 0 {
		s.interQuota--
		g1 := sampleBucket(pickInterBucket(s.interBuckets, s.interCumulative, s.interSum, s.random), s.random)
		g2 := sampleBucket(pickInterBucket(s.interBuckets, s.interCumulative, s.interSum, s.random), s.random)
		for attempts := 0; attempts < 10 && g2 != nil && g1 != nil && g2.Id == g1.Id; attempts++ {
			g2 = sampleBucket(pickInterBucket(s.interBuckets, s.interCumulative, s.interSum, s.random), s.random)
		}
		if g1 != nil && g2 != nil && g2.Id == g1.Id {
			g2 = s.anyDistinctGenome(g1.Id, s.random)
		}
		if g1 != nil && g2 != nil {
			return g1, g2, nil
		}
	}
	s.advanceToQuota()
	if s.current >= len(s.buckets) {
		return nil, nil, ErrNoCandidates
	}
	b := &s.buckets[s.current]
	if len(b.members) < 2 {
		g1 := sampleBucket(b, s.random)
		b.quota--
		g2 := s.anyDistinctGenome(g1.Id, s.random)
		if g2 == nil {
			g2 = g1
		}
		return g1, g2, nil
	}
	g1 := sampleBucket(b, s.random)
	g2 := g1
	for attempts := 0; attempts < 10 && g2.Id == g1.Id; attempts++ {
		g2 = sampleBucket(b, s.random)
	}
	b.quota--
	return g1, g2, nil
}

// anyDistinctGenome scans every bucket for a genome other than exclude,
// used when a single bucket can't supply two distinct parents on its own.
// Candidates are collected first and picked uniformly so the result isn't
// biased toward whichever bucket happens to be first.
func (s *SpeciesSelector) anyDistinctGenome(exclude GenomeId, rng RandomSource) *GenomeData {
	var candidates []*GenomeData
	for i := range s.buckets {
		for _, m := range s.buckets[i].members {
			if m.Id != exclude {
				candidates = append(candidates, m)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[rng.Integer(0, len(candidates)-1)]
}

func pickInterBucket(buckets []speciesBucket, cumulative []float64, sum float64, rng RandomSource) *speciesBucket {
	if len(buckets) == 0 || sum <= 0 {
		return nil
	}
	target := rng.Real(0, sum)
	idx := sort.SearchFloat64s(cumulative, target)
	if idx >= len(buckets) {
		idx = len(buckets) - 1
	}
	return &buckets[idx]
}

func (s *SpeciesSelector) PostSelection() {
	if s.fallback != nil {
		s.fallback.PostSelection()
		return
	}
	s.active = false
}
