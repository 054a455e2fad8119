// Package neat is the repository root of neatcore, a NeuroEvolution of
// Augmenting Topologies (NEAT) engine: a population-based search over
// directed weighted graphs that jointly evolves network topology and weights.
//
// The implementation lives in the neat subpackage; this file only documents
// the module layout.
//
// Basic usage:
//
//	hp, err := neat.LoadHyperparameters("path/to/config.ini")
//	if err != nil {
//		log.Fatalf("loading hyperparameters: %v", err)
//	}
//
//	rng := neat.NewDefaultRandom(hp.Population.RandomSeed)
//	registry := neat.NewDefaultActivationRegistry()
//	sigmoid, _ := registry.GetByName("sigmoid")
//	provider, err := neat.NewDefaultActivationProvider(registry, sigmoid.Id)
//	if err != nil {
//		log.Fatalf("creating activation provider: %v", err)
//	}
//
//	gen, err := neat.NewGeneration(neat.GenerationConfig{
//		NumGenomes:        hp.Population.NumGenomes,
//		GenomeConfig:      hp.GenomeConfig(neat.NewInnovationCounter(), provider),
//		MinWeight:         hp.Population.MinWeight,
//		MaxWeight:         hp.Population.MaxWeight,
//		FitnessCalculator: myFitness, // any neat.FitnessCalculator
//		MutationParams:    hp.MutationParams(provider, rng),
//		CrossoverParams:   hp.CrossoverParams(rng),
//		MinMembersInSpeciesToCopyChampion: hp.Population.MinMembersInSpeciesToCopyChampion,
//		GenerationParams:  hp.GenerationParams(),
//		Random:            rng,
//		Registry:          registry,
//	})
//	if err != nil {
//		log.Fatalf("creating generation: %v", err)
//	}
//
//	for i := 0; i < 200; i++ {
//		if err := gen.EvolveGeneration(); err != nil {
//			log.Fatalf("evolving generation %d: %v", i, err)
//		}
//	}
package neat
