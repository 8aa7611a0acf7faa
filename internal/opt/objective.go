package opt

import "math"

// PriorityMode selects how priorities are folded into a score. The two
// strategies deliberately use different conventions.
type PriorityMode int

const (
	// PositionWeighted sums k*priority for the package at 1-based position k
	// of each route. Used by annealing.
	PositionWeighted PriorityMode = iota
	// SumPriority sums the priority of every assigned package. Used as the
	// genetic fitness bonus.
	SumPriority
)

func (m PriorityMode) String() string {
	switch m {
	case PositionWeighted:
		return "position-weighted"
	case SumPriority:
		return "sum"
	}
	return "unknown"
}

// UnassignedWeightPenalty multiplies the weight of unassigned packages in
// Fitness.
const UnassignedWeightPenalty = 10.0

// Score pairs the two objective components of a solution.
type Score struct {
	Distance float64
	Priority float64
}

func euclid(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// routeDistance is the closed tour depot -> order... -> depot.
func routeDistance(p Problem, order []int) float64 {
	if len(order) == 0 {
		return 0
	}
	total := 0.0
	prev := Depot
	for _, idx := range order {
		loc := p.Packages[idx].Loc
		total += euclid(prev, loc)
		prev = loc
	}
	return total + euclid(prev, Depot)
}

// Distance is the summed round-trip length of every plan.
func Distance(p Problem, s Solution) float64 {
	total := 0.0
	for _, pl := range s.Plans {
		total += routeDistance(p, pl.Order)
	}
	return total
}

// PriorityScore folds package priorities according to mode.
func PriorityScore(p Problem, s Solution, mode PriorityMode) float64 {
	score := 0.0
	for _, pl := range s.Plans {
		for k, idx := range pl.Order {
			prio := float64(p.Packages[idx].Priority)
			if mode == PositionWeighted {
				score += float64(k+1) * prio
			} else {
				score += prio
			}
		}
	}
	return score
}

// Evaluate computes distance and priority score in one call.
func Evaluate(p Problem, s Solution, mode PriorityMode) Score {
	return Score{Distance: Distance(p, s), Priority: PriorityScore(p, s, mode)}
}

// Fitness is the genetic objective; lower is better.
func Fitness(p Problem, s Solution) float64 {
	unassigned := 0.0
	for _, idx := range s.Unassigned(p) {
		unassigned += p.Packages[idx].Weight
	}
	return Distance(p, s) + UnassignedWeightPenalty*unassigned - PriorityScore(p, s, SumPriority)
}
