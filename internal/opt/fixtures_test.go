package opt

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func pkg(id string, x, y, w float64, prio int) Package {
	return Package{ID: id, Loc: Point{X: x, Y: y}, Weight: w, Priority: prio}
}

func scenarioOne() Problem {
	return Problem{
		Packages: []Package{pkg("p1", 3, 4, 10, 1)},
		Vehicles: []Vehicle{{ID: "v1", Capacity: 10}},
	}
}

// scenarioTwo is two vehicles (60, 75) and seven packages weighing 77 total.
func scenarioTwo() Problem {
	return Problem{
		Packages: []Package{
			pkg("1", 5, 10, 10, 1),
			pkg("2", 20, 25, 15, 2),
			pkg("3", 35, 15, 5, 3),
			pkg("4", 40, 30, 12, 1),
			pkg("5", 55, 5, 8, 4),
			pkg("6", 60, 40, 18, 2),
			pkg("7", 10, 50, 9, 5),
		},
		Vehicles: []Vehicle{{ID: "v1", Capacity: 60}, {ID: "v2", Capacity: 75}},
	}
}

func tenPackages() Problem {
	return Problem{
		Packages: []Package{
			pkg("1", 10, 20, 10, 2),
			pkg("2", 30, 40, 20, 1),
			pkg("3", 70, 80, 15, 3),
			pkg("4", 15, 60, 25, 2),
			pkg("5", 50, 10, 5, 4),
			pkg("6", 60, 30, 20, 2),
			pkg("7", 5, 90, 10, 5),
			pkg("8", 85, 25, 12, 3),
			pkg("9", 25, 5, 8, 1),
			pkg("10", 95, 90, 18, 2),
		},
		Vehicles: []Vehicle{{ID: "v1", Capacity: 70}, {ID: "v2", Capacity: 80}, {ID: "v3", Capacity: 60}},
	}
}

// overbooked cannot carry every package: 6 x 20kg into 2 x 50kg.
func overbooked() Problem {
	p := Problem{Vehicles: []Vehicle{{ID: "a", Capacity: 50}, {ID: "b", Capacity: 50}}}
	for i := 0; i < 6; i++ {
		p.Packages = append(p.Packages, pkg(fmt.Sprintf("o%d", i), float64(10*i), float64(5*i), 20, 1+i%5))
	}
	return p
}

func newRNG(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }

func quickAnneal() AnnealParams {
	return AnnealParams{InitialTemp: 100, Cooling: 0.9, StopTemp: 1, ItersPerTemp: 50, SwapAttempts: 10}
}

func quickGenetic() GeneticParams {
	return GeneticParams{PopulationSize: 20, Generations: 40, MutationRate: 0.2, Elite: 2, ParentPool: 10}
}

func requireFeasible(t *testing.T, p Problem, s Solution) {
	t.Helper()
	require.NoError(t, s.Check(p))
}

// fractionalLoad has weights whose float sum lands just above capacity:
// 0.2+0.15+1.1 == 1.4500000000000002 > 1.45.
func fractionalLoad() Problem {
	return Problem{
		Packages: []Package{pkg("P1", 1, 0, 0.2, 3), pkg("P2", 2, 0, 0.15, 2), pkg("P3", 3, 0, 1.1, 1)},
		Vehicles: []Vehicle{{ID: "v", Capacity: 1.45}},
	}
}
