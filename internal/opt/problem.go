package opt

import (
	"errors"
	"fmt"
)

// Point is a planar location in the same unit as route distances.
type Point struct{ X, Y float64 }

// Depot is where every route starts and ends.
var Depot = Point{}

type Package struct {
	ID       string
	Loc      Point
	Weight   float64
	Priority int
}

type Vehicle struct {
	ID       string
	Capacity float64
}

// Problem is the read-only input shared by every Solution of a run.
type Problem struct {
	Packages []Package
	Vehicles []Vehicle
}

// Validate reports malformed packages or vehicles. Empty fleets and empty
// package lists are valid and yield empty solutions.
func (p Problem) Validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(p.Packages))
	for i, pkg := range p.Packages {
		if pkg.ID == "" {
			errs = append(errs, fmt.Errorf("package %d: id is required", i))
		} else if _, dup := seen[pkg.ID]; dup {
			errs = append(errs, fmt.Errorf("package %q: duplicate id", pkg.ID))
		}
		seen[pkg.ID] = struct{}{}
		if !(pkg.Weight > 0) {
			errs = append(errs, fmt.Errorf("package %q: weight must be > 0", pkg.ID))
		}
		if pkg.Priority < 1 {
			errs = append(errs, fmt.Errorf("package %q: priority must be >= 1", pkg.ID))
		}
	}
	vseen := make(map[string]struct{}, len(p.Vehicles))
	for i, v := range p.Vehicles {
		if v.ID == "" {
			errs = append(errs, fmt.Errorf("vehicle %d: id is required", i))
		} else if _, dup := vseen[v.ID]; dup {
			errs = append(errs, fmt.Errorf("vehicle %q: duplicate id", v.ID))
		}
		vseen[v.ID] = struct{}{}
		if !(v.Capacity > 0) {
			errs = append(errs, fmt.Errorf("vehicle %q: capacity must be > 0", v.ID))
		}
	}
	return errors.Join(errs...)
}

// RoutePlan is one vehicle's visit order. Order holds indices into
// Problem.Packages.
type RoutePlan struct {
	VehicleID string
	Order     []int
}

// Solution has exactly one plan per vehicle, in Problem.Vehicles order.
type Solution struct {
	Plans []RoutePlan
}

// EmptySolution returns a solution with one empty plan per vehicle.
func EmptySolution(p Problem) Solution {
	plans := make([]RoutePlan, len(p.Vehicles))
	for i, v := range p.Vehicles {
		plans[i] = RoutePlan{VehicleID: v.ID, Order: []int{}}
	}
	return Solution{Plans: plans}
}

// Clone returns a deep copy; the result shares no slices with s.
func (s Solution) Clone() Solution {
	out := Solution{Plans: make([]RoutePlan, len(s.Plans))}
	for i, pl := range s.Plans {
		out.Plans[i] = RoutePlan{VehicleID: pl.VehicleID, Order: append([]int(nil), pl.Order...)}
	}
	return out
}

// Load is the total weight carried by plan vi.
func (s Solution) Load(p Problem, vi int) float64 {
	w := 0.0
	for _, idx := range s.Plans[vi].Order {
		w += p.Packages[idx].Weight
	}
	return w
}

func (s Solution) loads(p Problem) []float64 {
	out := make([]float64, len(s.Plans))
	for vi := range s.Plans {
		out[vi] = s.Load(p, vi)
	}
	return out
}

// Assigned marks which packages appear in any plan.
func (s Solution) Assigned(p Problem) []bool {
	in := make([]bool, len(p.Packages))
	for _, pl := range s.Plans {
		for _, idx := range pl.Order {
			if idx >= 0 && idx < len(in) {
				in[idx] = true
			}
		}
	}
	return in
}

// Unassigned lists package indices absent from every plan, in Problem order.
func (s Solution) Unassigned(p Problem) []int {
	out := []int{}
	for i, ok := range s.Assigned(p) {
		if !ok {
			out = append(out, i)
		}
	}
	return out
}

// Check verifies the plan count, index range, uniqueness and capacity
// invariants.
func (s Solution) Check(p Problem) error {
	if len(s.Plans) != len(p.Vehicles) {
		return fmt.Errorf("solution has %d plans for %d vehicles", len(s.Plans), len(p.Vehicles))
	}
	seen := make([]bool, len(p.Packages))
	for vi, pl := range s.Plans {
		load := 0.0
		for _, idx := range pl.Order {
			if idx < 0 || idx >= len(p.Packages) {
				return fmt.Errorf("vehicle %q: package index %d out of range", p.Vehicles[vi].ID, idx)
			}
			if seen[idx] {
				return fmt.Errorf("package %q assigned more than once", p.Packages[idx].ID)
			}
			seen[idx] = true
			load += p.Packages[idx].Weight
		}
		if load > p.Vehicles[vi].Capacity {
			return fmt.Errorf("vehicle %q: load %.2f exceeds capacity %.2f", p.Vehicles[vi].ID, load, p.Vehicles[vi].Capacity)
		}
	}
	return nil
}
