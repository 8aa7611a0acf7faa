package opt

import (
	"math"
	"math/rand"
	"slices"
)

// MoveKind identifies an annealing neighborhood move.
type MoveKind int

const (
	MoveRelocate MoveKind = iota
	MoveSwapBetween
	MoveReorder
	numMoveKinds
)

var moveNames = [numMoveKinds]string{"move", "swap_between", "reorder"}

func (k MoveKind) String() string {
	if k < 0 || k >= numMoveKinds {
		return "unknown"
	}
	return moveNames[k]
}

type AnnealParams struct {
	InitialTemp  float64
	Cooling      float64 // multiplier per temperature step, in (0,1)
	StopTemp     float64
	ItersPerTemp int
	SwapAttempts int // draws allowed to find a valid swap_between pair
}

// DefaultAnnealParams mirrors the reference schedule: 1000 -> 1 at 0.95,
// 100 iterations per step.
func DefaultAnnealParams() AnnealParams {
	return AnnealParams{InitialTemp: 1000, Cooling: 0.95, StopTemp: 1, ItersPerTemp: 100, SwapAttempts: 10}
}

func (a AnnealParams) withDefaults() AnnealParams {
	d := DefaultAnnealParams()
	if !(a.InitialTemp > 0) {
		a.InitialTemp = d.InitialTemp
	}
	if !(a.Cooling > 0 && a.Cooling < 1) {
		a.Cooling = d.Cooling
	}
	if !(a.StopTemp > 0) {
		a.StopTemp = d.StopTemp
	}
	if a.ItersPerTemp <= 0 {
		a.ItersPerTemp = d.ItersPerTemp
	}
	if a.SwapAttempts <= 0 {
		a.SwapAttempts = d.SwapAttempts
	}
	return a
}

type AnnealMetrics struct {
	Iterations       int
	TempSteps        int
	Improvements     int // best replaced
	AcceptedBetter   int
	AcceptedPriority int
	AcceptedWorse    int
	Rejected         int
	NoOpMoves        int
	MoveSelects      [numMoveKinds]int
	InitialDistance  float64
	BestDistance     float64
	BestPriority     float64
	FinalTemp        float64
	BestHistory      []BestEvent
	Snapshots        []TempSnapshot
}

// BestEvent records a replacement of the best-known solution.
type BestEvent struct {
	Iteration int
	Distance  float64
	Priority  float64
}

type TempSnapshot struct {
	Step            int
	Temp            float64
	CurrentDistance float64
	BestDistance    float64
}

// RandomAssign visits packages in random order and gives each to the first
// vehicle, in a freshly shuffled vehicle order, that still has room.
// Packages that fit nowhere stay unassigned.
func RandomAssign(p Problem, rng *rand.Rand) Solution {
	s := EmptySolution(p)
	loads := make([]float64, len(p.Vehicles))
	vorder := make([]int, len(p.Vehicles))
	for i := range vorder {
		vorder[i] = i
	}
	for _, idx := range rng.Perm(len(p.Packages)) {
		w := p.Packages[idx].Weight
		rng.Shuffle(len(vorder), func(i, j int) { vorder[i], vorder[j] = vorder[j], vorder[i] })
		for _, vi := range vorder {
			if loads[vi]+w <= p.Vehicles[vi].Capacity {
				s.Plans[vi].Order = append(s.Plans[vi].Order, idx)
				loads[vi] += w
				break
			}
		}
	}
	return s
}

// Anneal runs simulated annealing from a random feasible assignment and
// returns the best solution seen.
func Anneal(p Problem, params AnnealParams, rng *rand.Rand, progress ProgressFunc) (Solution, AnnealMetrics) {
	params = params.withDefaults()
	curr := RandomAssign(p, rng)
	currScore := Evaluate(p, curr, PositionWeighted)
	best, bestScore := curr, currScore

	m := AnnealMetrics{
		InitialDistance: currScore.Distance,
		BestHistory:     []BestEvent{{Iteration: 0, Distance: bestScore.Distance, Priority: bestScore.Priority}},
	}
	temp := params.InitialTemp
	for temp > params.StopTemp {
		for i := 0; i < params.ItersPerTemp; i++ {
			m.Iterations++
			cand, kind, changed := neighbor(p, curr, params.SwapAttempts, rng)
			m.MoveSelects[kind]++
			if !changed {
				m.NoOpMoves++
				continue
			}
			candScore := Evaluate(p, cand, PositionWeighted)
			dDist := currScore.Distance - candScore.Distance
			dPrio := currScore.Priority - candScore.Priority
			switch {
			case dDist > 0:
				curr, currScore = cand, candScore
				m.AcceptedBetter++
				if candScore.Distance < bestScore.Distance ||
					(candScore.Distance == bestScore.Distance && candScore.Priority <= bestScore.Priority) {
					best, bestScore = cand, candScore
					m.Improvements++
					m.BestHistory = append(m.BestHistory, BestEvent{Iteration: m.Iterations, Distance: bestScore.Distance, Priority: bestScore.Priority})
				}
			case dPrio > 0:
				curr, currScore = cand, candScore
				m.AcceptedPriority++
			case rng.Float64() < math.Exp(dDist/temp):
				curr, currScore = cand, candScore
				m.AcceptedWorse++
			default:
				m.Rejected++
			}
		}
		m.TempSteps++
		m.Snapshots = append(m.Snapshots, TempSnapshot{Step: m.TempSteps, Temp: temp, CurrentDistance: currScore.Distance, BestDistance: bestScore.Distance})
		if progress != nil {
			progress(Progress{Algorithm: AlgoAnneal, Step: m.TempSteps, Temperature: temp, BestDistance: bestScore.Distance, BestPriority: bestScore.Priority})
		}
		temp *= params.Cooling
	}
	m.FinalTemp = temp
	m.BestDistance = bestScore.Distance
	m.BestPriority = bestScore.Priority
	return best, m
}

// neighbor applies one random move to a copy of cur. changed is false when
// no legal move existed and the copy equals cur.
func neighbor(p Problem, cur Solution, swapAttempts int, rng *rand.Rand) (Solution, MoveKind, bool) {
	next := cur.Clone()
	kind := MoveKind(rng.Intn(int(numMoveKinds)))
	var changed bool
	switch kind {
	case MoveRelocate:
		changed = relocate(p, next, rng)
	case MoveSwapBetween:
		changed = swapBetween(p, next, swapAttempts, rng)
	case MoveReorder:
		vi := pickPlan(next, 2, rng)
		if vi >= 0 {
			swapPositions(next.Plans[vi].Order, rng)
			changed = true
		}
	}
	return next, kind, changed
}

// pickPlan returns a random plan index holding at least minLen packages, or -1.
func pickPlan(s Solution, minLen int, rng *rand.Rand) int {
	var eligible []int
	for vi, pl := range s.Plans {
		if len(pl.Order) >= minLen {
			eligible = append(eligible, vi)
		}
	}
	if len(eligible) == 0 {
		return -1
	}
	return eligible[rng.Intn(len(eligible))]
}

// swapPositions exchanges two distinct random positions; len(order) >= 2.
func swapPositions(order []int, rng *rand.Rand) {
	i := rng.Intn(len(order))
	j := rng.Intn(len(order) - 1)
	if j >= i {
		j++
	}
	order[i], order[j] = order[j], order[i]
}

// relocate moves one random package to the first other vehicle with room.
func relocate(p Problem, s Solution, rng *rand.Rand) bool {
	src := pickPlan(s, 1, rng)
	if src < 0 {
		return false
	}
	pos := rng.Intn(len(s.Plans[src].Order))
	idx := s.Plans[src].Order[pos]
	w := p.Packages[idx].Weight
	for vi := range s.Plans {
		if vi == src || s.Load(p, vi)+w > p.Vehicles[vi].Capacity {
			continue
		}
		s.Plans[src].Order = slices.Delete(s.Plans[src].Order, pos, pos+1)
		s.Plans[vi].Order = append(s.Plans[vi].Order, idx)
		return true
	}
	return false
}

// swapBetween exchanges one package between two distinct non-empty vehicles
// when both stay within capacity, retrying up to attempts draws.
func swapBetween(p Problem, s Solution, attempts int, rng *rand.Rand) bool {
	n := len(s.Plans)
	if n < 2 {
		return false
	}
	for try := 0; try < attempts; try++ {
		a, b := rng.Intn(n), rng.Intn(n)
		if a == b || len(s.Plans[a].Order) == 0 || len(s.Plans[b].Order) == 0 {
			continue
		}
		ia, ib := rng.Intn(len(s.Plans[a].Order)), rng.Intn(len(s.Plans[b].Order))
		pa, pb := s.Plans[a].Order[ia], s.Plans[b].Order[ib]
		wa, wb := p.Packages[pa].Weight, p.Packages[pb].Weight
		if loadWithout(p, s.Plans[a].Order, ia)+wb > p.Vehicles[a].Capacity ||
			loadWithout(p, s.Plans[b].Order, ib)+wa > p.Vehicles[b].Capacity {
			continue
		}
		s.Plans[a].Order = append(slices.Delete(s.Plans[a].Order, ia, ia+1), pb)
		s.Plans[b].Order = append(slices.Delete(s.Plans[b].Order, ib, ib+1), pa)
		return true
	}
	return false
}

// loadWithout sums the route weight skipping position skip, in route order,
// so that adding one more weight matches Solution.Load after an append.
func loadWithout(p Problem, order []int, skip int) float64 {
	w := 0.0
	for i, idx := range order {
		if i != skip {
			w += p.Packages[idx].Weight
		}
	}
	return w
}
