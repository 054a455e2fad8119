package neat

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Hyperparameters is every tunable value LoadHyperparameters reads from an
// INI file, grouped by section the way the engine's own configuration
// structures are grouped.
type Hyperparameters struct {
	Population PopulationSection `ini:"Population"`
	Genome     GenomeSection     `ini:"Genome"`
	Mutation   MutationSection   `ini:"Mutation"`
	Crossover  CrossoverSection  `ini:"Crossover"`
	Speciation SpeciationSection `ini:"Speciation"`
}

// PopulationSection controls Generation construction.
type PopulationSection struct {
	NumGenomes                        int     `ini:"num_genomes"`
	MinWeight                         float64 `ini:"min_weight"`
	MaxWeight                         float64 `ini:"max_weight"`
	MinMembersInSpeciesToCopyChampion int     `ini:"min_members_in_species_to_copy_champion"`
	RandomSeed                        int64   `ini:"random_seed"`
}

// GenomeSection controls GenomeConfig.
type GenomeSection struct {
	NumInputNodes  int    `ini:"num_input_nodes"`
	NumOutputNodes int    `ini:"num_output_nodes"`
	CreateBiasNode bool   `ini:"create_bias_node"`
	BiasValue      float64 `ini:"bias_value"`
	FeedForward    bool   `ini:"feed_forward"`
}

// MutationSection controls MutationParams.
type MutationSection struct {
	WeightMutationRate         float64 `ini:"weight_mutation_rate"`
	WeightMutationNewValRate   float64 `ini:"weight_mutation_new_val_rate"`
	WeightMutationPerturbation float64 `ini:"weight_mutation_perturbation"`
	WeightMutationValMin       float64 `ini:"weight_mutation_val_min"`
	WeightMutationValMax       float64 `ini:"weight_mutation_val_max"`
	AddNodeMutationRate        float64 `ini:"add_node_mutation_rate"`
	AddEdgeMutationRate        float64 `ini:"add_edge_mutation_rate"`
	RemoveEdgeMutationRate     float64 `ini:"remove_edge_mutation_rate"`
	ChangeActivationRate       float64 `ini:"change_activation_rate"`
	NewEdgeMinWeight           float64 `ini:"new_edge_min_weight"`
	NewEdgeMaxWeight           float64 `ini:"new_edge_max_weight"`
	MutatedGenomesRate         float64 `ini:"mutated_genomes_rate"`
}

// CrossoverSection controls CrossoverParams.
type CrossoverSection struct {
	DisablingEdgeRate         float64 `ini:"disabling_edge_rate"`
	MatchingEdgeSelectionRate float64 `ini:"matching_edge_selection_rate"`
	NumCrossOverGenomesRate   float64 `ini:"num_cross_over_genomes_rate"`
}

// SpeciationSection controls GenerationParams and CalcDistParams.
type SpeciationSection struct {
	MaxStagnantCount            int     `ini:"max_stagnant_count"`
	InterSpeciesCrossOverRate   float64 `ini:"inter_species_cross_over_rate"`
	SpeciationDistanceThreshold float64 `ini:"speciation_distance_threshold"`
	DisjointFactor              float64 `ini:"disjoint_factor"`
	WeightFactor                float64 `ini:"weight_factor"`
	EdgeNormalizationThreshold  int     `ini:"edge_normalization_threshold"`
}

// LoadHyperparameters reads an INI file into a Hyperparameters value,
// section by section, then applies the specification's defaults to any
// zero-valued field a section left unset.
func LoadHyperparameters(path string) (*Hyperparameters, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("neat: loading hyperparameters from %q: %w", path, err)
	}

	hp := &Hyperparameters{}
	sections := []struct {
		name string
		dst  interface{}
	}{
		{"Population", &hp.Population},
		{"Genome", &hp.Genome},
		{"Mutation", &hp.Mutation},
		{"Crossover", &hp.Crossover},
		{"Speciation", &hp.Speciation},
	}
	for _, s := range sections {
		if err := cfg.Section(s.name).MapTo(s.dst); err != nil {
			return nil, fmt.Errorf("neat: mapping [%s] section: %w", s.name, err)
		}
	}

	applyDefaults(hp)
	return hp, nil
}

func applyDefaults(hp *Hyperparameters) {
	if hp.Population.NumGenomes == 0 {
		hp.Population.NumGenomes = 150
	}
	if hp.Population.MinMembersInSpeciesToCopyChampion == 0 {
		hp.Population.MinMembersInSpeciesToCopyChampion = 5
	}
	if hp.Population.MaxWeight == 0 && hp.Population.MinWeight == 0 {
		hp.Population.MinWeight, hp.Population.MaxWeight = -1, 1
	}
	if hp.Genome.BiasValue == 0 && hp.Genome.CreateBiasNode {
		hp.Genome.BiasValue = 1
	}
	if hp.Crossover.DisablingEdgeRate == 0 {
		hp.Crossover.DisablingEdgeRate = 0.75
	}
	if hp.Crossover.MatchingEdgeSelectionRate == 0 {
		hp.Crossover.MatchingEdgeSelectionRate = 0.5
	}
	if hp.Speciation.MaxStagnantCount == 0 {
		hp.Speciation.MaxStagnantCount = 15
	}
	if hp.Speciation.InterSpeciesCrossOverRate == 0 {
		hp.Speciation.InterSpeciesCrossOverRate = 0.001
	}
	if hp.Speciation.SpeciationDistanceThreshold == 0 {
		hp.Speciation.SpeciationDistanceThreshold = 3.0
	}
	if hp.Speciation.DisjointFactor == 0 {
		hp.Speciation.DisjointFactor = 1.0
	}
	if hp.Speciation.WeightFactor == 0 {
		hp.Speciation.WeightFactor = 0.4
	}
	if hp.Speciation.EdgeNormalizationThreshold == 0 {
		hp.Speciation.EdgeNormalizationThreshold = 20
	}
}

// GenerationParams builds a GenerationParams from the Speciation section.
func (hp *Hyperparameters) GenerationParams() GenerationParams {
	return GenerationParams{
		MaxStagnantCount:            hp.Speciation.MaxStagnantCount,
		InterSpeciesCrossOverRate:   hp.Speciation.InterSpeciesCrossOverRate,
		SpeciationDistanceThreshold: hp.Speciation.SpeciationDistanceThreshold,
		CalcDistParams: CalcDistParams{
			DisjointFactor:             hp.Speciation.DisjointFactor,
			WeightFactor:               hp.Speciation.WeightFactor,
			EdgeNormalizationThreshold: hp.Speciation.EdgeNormalizationThreshold,
		},
	}
}

// MutationParams builds a MutationParams from the Mutation section, given
// the capabilities (activation provider, random source) the section
// itself cannot describe.
func (hp *Hyperparameters) MutationParams(provider ActivationProvider, rng RandomSource) MutationParams {
	m := hp.Mutation
	return MutationParams{
		WeightMutationRate:         m.WeightMutationRate,
		WeightMutationNewValRate:   m.WeightMutationNewValRate,
		WeightMutationPerturbation: m.WeightMutationPerturbation,
		WeightMutationValMin:       m.WeightMutationValMin,
		WeightMutationValMax:       m.WeightMutationValMax,
		AddNodeMutationRate:        m.AddNodeMutationRate,
		AddEdgeMutationRate:        m.AddEdgeMutationRate,
		RemoveEdgeMutationRate:     m.RemoveEdgeMutationRate,
		ChangeActivationRate:       m.ChangeActivationRate,
		NewEdgeMinWeight:           m.NewEdgeMinWeight,
		NewEdgeMaxWeight:           m.NewEdgeMaxWeight,
		MutatedGenomesRate:         m.MutatedGenomesRate,
		ActivationProvider:         provider,
		Random:                     rng,
	}
}

// CrossoverParams builds a CrossoverParams from the Crossover section.
func (hp *Hyperparameters) CrossoverParams(rng RandomSource) CrossoverParams {
	c := hp.Crossover
	return CrossoverParams{
		DisablingEdgeRate:         c.DisablingEdgeRate,
		MatchingEdgeSelectionRate: c.MatchingEdgeSelectionRate,
		NumCrossOverGenomesRate:   c.NumCrossOverGenomesRate,
		Random:                    rng,
	}
}

// GenomeConfig builds a GenomeConfig from the Genome section, given the
// innovation counter and activation provider the section cannot describe.
func (hp *Hyperparameters) GenomeConfig(counter *InnovationCounter, provider ActivationProvider) GenomeConfig {
	kind := General
	if hp.Genome.FeedForward {
		kind = FeedForward
	}
	return GenomeConfig{
		NumInputNodes:      hp.Genome.NumInputNodes,
		NumOutputNodes:     hp.Genome.NumOutputNodes,
		CreateBiasNode:     hp.Genome.CreateBiasNode,
		BiasValue:          hp.Genome.BiasValue,
		InnovationCounter:  counter,
		ActivationProvider: provider,
		NetworkType:        kind,
	}
}
