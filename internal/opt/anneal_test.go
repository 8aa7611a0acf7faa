package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomAssignIsFeasible(t *testing.T) {
	rng := newRNG(1)
	for _, p := range []Problem{scenarioTwo(), tenPackages(), overbooked()} {
		for i := 0; i < 50; i++ {
			requireFeasible(t, p, RandomAssign(p, rng))
		}
	}
}

func TestAnnealAssignsEveryPackageWhenCapacityAllows(t *testing.T) {
	p := scenarioTwo()
	for seed := int64(1); seed <= 5; seed++ {
		best, m := Anneal(p, DefaultAnnealParams(), newRNG(seed), nil)
		requireFeasible(t, p, best)
		assert.Empty(t, best.Unassigned(p), "seed %d", seed)
		assert.InDelta(t, Distance(p, best), m.BestDistance, 1e-9)
		assert.InDelta(t, PriorityScore(p, best, PositionWeighted), m.BestPriority, 1e-9)
		assert.LessOrEqual(t, m.BestDistance, m.InitialDistance)
	}
}

func TestAnnealKeepsInvariants(t *testing.T) {
	for name, p := range map[string]Problem{"ten": tenPackages(), "overbooked": overbooked()} {
		t.Run(name, func(t *testing.T) {
			best, _ := Anneal(p, quickAnneal(), newRNG(42), nil)
			requireFeasible(t, p, best)
		})
	}
}

func TestAnnealBestNeverRegresses(t *testing.T) {
	_, m := Anneal(tenPackages(), quickAnneal(), newRNG(3), nil)
	require.NotEmpty(t, m.BestHistory)
	for i := 1; i < len(m.BestHistory); i++ {
		prev, cur := m.BestHistory[i-1], m.BestHistory[i]
		assert.LessOrEqual(t, cur.Distance, prev.Distance, "replacement %d", i)
		if cur.Distance == prev.Distance {
			assert.LessOrEqual(t, cur.Priority, prev.Priority)
		}
	}
	assert.Equal(t, m.BestHistory[len(m.BestHistory)-1].Distance, m.BestDistance)
}

func TestAnnealIsReproducible(t *testing.T) {
	p := tenPackages()
	a, ma := Anneal(p, quickAnneal(), newRNG(99), nil)
	b, mb := Anneal(p, quickAnneal(), newRNG(99), nil)
	assert.Equal(t, a, b)
	assert.Equal(t, ma.BestDistance, mb.BestDistance)
	assert.Equal(t, ma.Iterations, mb.Iterations)
}

func TestAnnealScheduleAndProgress(t *testing.T) {
	params := AnnealParams{InitialTemp: 10, Cooling: 0.5, StopTemp: 1, ItersPerTemp: 20}
	var steps []Progress
	_, m := Anneal(scenarioTwo(), params, newRNG(5), func(pr Progress) { steps = append(steps, pr) })
	// 10, 5, 2.5, 1.25 then 0.625 stops
	assert.Equal(t, 4, m.TempSteps)
	assert.Equal(t, 80, m.Iterations)
	assert.InDelta(t, 0.625, m.FinalTemp, 1e-12)
	require.Len(t, steps, 4)
	assert.Equal(t, AlgoAnneal, steps[0].Algorithm)
	assert.Equal(t, 10.0, steps[0].Temperature)
	assert.Len(t, m.Snapshots, 4)
	total := 0
	for _, n := range m.MoveSelects {
		total += n
	}
	assert.Equal(t, m.Iterations, total)
	assert.Equal(t, m.Iterations, m.AcceptedBetter+m.AcceptedPriority+m.AcceptedWorse+m.Rejected+m.NoOpMoves)
}

func TestAnnealDegenerateInputs(t *testing.T) {
	for name, p := range map[string]Problem{
		"no vehicles": {Packages: scenarioTwo().Packages},
		"no packages": {Vehicles: scenarioTwo().Vehicles},
	} {
		t.Run(name, func(t *testing.T) {
			best, m := Anneal(p, quickAnneal(), newRNG(1), nil)
			requireFeasible(t, p, best)
			assert.Equal(t, 0.0, m.BestDistance)
			assert.Equal(t, 0.0, m.BestPriority)
			assert.Equal(t, m.Iterations, m.NoOpMoves)
		})
	}
}

func TestNeighborLeavesCurrentUntouched(t *testing.T) {
	p := tenPackages()
	rng := newRNG(11)
	cur := RandomAssign(p, rng)
	snapshot := cur.Clone()
	for i := 0; i < 200; i++ {
		next, _, _ := neighbor(p, cur, 10, rng)
		requireFeasible(t, p, next)
		assert.ElementsMatch(t, flatten(cur), flatten(next))
	}
	assert.Equal(t, snapshot, cur)
}

func TestSwapBetweenRespectsCapacity(t *testing.T) {
	p := Problem{
		Packages: []Package{pkg("heavy", 1, 1, 9, 1), pkg("light", 2, 2, 1, 1)},
		Vehicles: []Vehicle{{ID: "small", Capacity: 1}, {ID: "big", Capacity: 9}},
	}
	s := Solution{Plans: []RoutePlan{{VehicleID: "small", Order: []int{1}}, {VehicleID: "big", Order: []int{0}}}}
	assert.False(t, swapBetween(p, s, 50, newRNG(2)))
	assert.Equal(t, []int{1}, s.Plans[0].Order)
}

func TestReorderNeedsTwoStops(t *testing.T) {
	p := scenarioOne()
	s := Solution{Plans: []RoutePlan{{VehicleID: "v1", Order: []int{0}}}}
	assert.Equal(t, -1, pickPlan(s, 2, newRNG(1)))
	assert.False(t, relocate(p, s.Clone(), newRNG(1)), "no other vehicle to move to")
}

func flatten(s Solution) []int {
	var out []int
	for _, pl := range s.Plans {
		out = append(out, pl.Order...)
	}
	return out
}
