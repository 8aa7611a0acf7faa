package opt

import (
	"cmp"
	"fmt"
	"math/rand"
	"slices"
	"strings"
)

// MutationMode chooses which route a mutation may reorder.
type MutationMode int

const (
	// MutateAnyRoute swaps two stops in a random route holding at least two.
	MutateAnyRoute MutationMode = iota
	// MutateFirstRoute only ever touches the first vehicle's route.
	MutateFirstRoute
)

func (m MutationMode) String() string {
	if m == MutateFirstRoute {
		return "first-route"
	}
	return "any-route"
}

// ParseMutationMode accepts "any-route" (or "") and "first-route".
func ParseMutationMode(s string) (MutationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any-route", "any":
		return MutateAnyRoute, nil
	case "first-route", "first":
		return MutateFirstRoute, nil
	}
	return MutateAnyRoute, fmt.Errorf("unknown mutation mode %q (allowed: any-route, first-route)", s)
}

type GeneticParams struct {
	PopulationSize int
	Generations    int
	MutationRate   float64
	Mutation       MutationMode
	Elite          int // individuals copied unchanged each generation
	ParentPool     int // parents are drawn from this many top-ranked individuals
}

func DefaultGeneticParams() GeneticParams {
	return GeneticParams{PopulationSize: 30, Generations: 100, MutationRate: 0.1, Elite: 2, ParentPool: 10}
}

func (g GeneticParams) withDefaults() GeneticParams {
	d := DefaultGeneticParams()
	if g.PopulationSize <= 0 {
		g.PopulationSize = d.PopulationSize
	}
	if g.Generations <= 0 {
		g.Generations = d.Generations
	}
	g.MutationRate = min(max(g.MutationRate, 0), 1)
	if g.Elite <= 0 {
		g.Elite = d.Elite
	}
	if g.ParentPool <= 0 {
		g.ParentPool = d.ParentPool
	}
	return g
}

type GeneticMetrics struct {
	Generations        int
	Evaluations        int
	Mutations          int
	InitialBestFitness float64
	BestFitness        float64
	History            []GenerationSnapshot
}

type GenerationSnapshot struct {
	Generation  int
	BestFitness float64
	MeanFitness float64
}

type individual struct {
	sol     Solution
	fitness float64
}

// Evolve runs the genetic search and returns the lowest-fitness individual
// of the final population.
func Evolve(p Problem, params GeneticParams, rng *rand.Rand, progress ProgressFunc) (Solution, GeneticMetrics) {
	params = params.withDefaults()
	var m GeneticMetrics
	pop := make([]individual, params.PopulationSize)
	for i := range pop {
		sol := Repair(p, greedySeed(p, rng))
		pop[i] = individual{sol: sol, fitness: Fitness(p, sol)}
	}
	m.Evaluations += len(pop)
	m.InitialBestFitness = fittest(pop).fitness

	for g := 1; g <= params.Generations; g++ {
		pop = nextGeneration(p, pop, params, rng, &m)
		m.Generations = g
		snap := GenerationSnapshot{Generation: g, BestFitness: fittest(pop).fitness, MeanFitness: meanFitness(pop)}
		m.History = append(m.History, snap)
		if progress != nil {
			best := fittest(pop)
			progress(Progress{Algorithm: AlgoGenetic, Step: g, BestDistance: Distance(p, best.sol), BestPriority: PriorityScore(p, best.sol, SumPriority), BestFitness: best.fitness})
		}
	}
	best := fittest(pop)
	m.BestFitness = best.fitness
	return best.sol, m
}

// greedySeed shuffles the packages and first-fits them in vehicle order;
// packages that fit nowhere are left out.
func greedySeed(p Problem, rng *rand.Rand) Solution {
	s := EmptySolution(p)
	loads := make([]float64, len(p.Vehicles))
	for _, idx := range rng.Perm(len(p.Packages)) {
		w := p.Packages[idx].Weight
		for vi := range loads {
			if loads[vi]+w <= p.Vehicles[vi].Capacity {
				s.Plans[vi].Order = append(s.Plans[vi].Order, idx)
				loads[vi] += w
				break
			}
		}
	}
	return s
}

// nextGeneration ranks pop, keeps the elite unchanged and breeds the rest.
func nextGeneration(p Problem, pop []individual, params GeneticParams, rng *rand.Rand, m *GeneticMetrics) []individual {
	ranked := slices.Clone(pop)
	slices.SortStableFunc(ranked, func(a, b individual) int { return cmp.Compare(a.fitness, b.fitness) })

	n := len(ranked)
	next := make([]individual, 0, n)
	next = append(next, ranked[:min(params.Elite, n)]...)
	pool := min(params.ParentPool, n)
	for len(next) < n {
		p1 := ranked[rng.Intn(pool)].sol
		p2 := ranked[rng.Intn(pool)].sol
		child := crossover(p1, p2, rng)
		if mutate(child, params, rng) {
			m.Mutations++
		}
		child = Repair(p, child)
		next = append(next, individual{sol: child, fitness: Fitness(p, child)})
		m.Evaluations++
	}
	return next
}

// crossover takes each vehicle's whole route from either parent with equal
// probability. Routes are copied, never shared.
func crossover(a, b Solution, rng *rand.Rand) Solution {
	child := Solution{Plans: make([]RoutePlan, len(a.Plans))}
	for i := range a.Plans {
		src := a.Plans[i]
		if rng.Float64() < 0.5 && i < len(b.Plans) {
			src = b.Plans[i]
		}
		child.Plans[i] = RoutePlan{VehicleID: src.VehicleID, Order: append([]int(nil), src.Order...)}
	}
	return child
}

func mutate(s Solution, params GeneticParams, rng *rand.Rand) bool {
	if rng.Float64() >= params.MutationRate {
		return false
	}
	vi := -1
	switch params.Mutation {
	case MutateFirstRoute:
		if len(s.Plans) > 0 && len(s.Plans[0].Order) > 1 {
			vi = 0
		}
	default:
		vi = pickPlan(s, 2, rng)
	}
	if vi < 0 {
		return false
	}
	swapPositions(s.Plans[vi].Order, rng)
	return true
}

// fittest returns the first individual with the lowest fitness.
func fittest(pop []individual) individual {
	best := pop[0]
	for _, ind := range pop[1:] {
		if ind.fitness < best.fitness {
			best = ind
		}
	}
	return best
}

func meanFitness(pop []individual) float64 {
	total := 0.0
	for _, ind := range pop {
		total += ind.fitness
	}
	return total / float64(len(pop))
}
