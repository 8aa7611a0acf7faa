package opt

// VehicleRoute is one vehicle's final stops with the load recomputed from
// them.
type VehicleRoute struct {
	VehicleID string
	Capacity  float64
	Load      float64
	Distance  float64
	Packages  []Package
}

// Result is the presentation-ready form of a solution.
type Result struct {
	Mode       PriorityMode
	Routes     []VehicleRoute
	Unassigned []Package
	Distance   float64
	Priority   float64
	Fitness    float64
}

// Summarize converts s into per-vehicle routes and scores it, using mode for
// the priority score.
func Summarize(p Problem, s Solution, mode PriorityMode) Result {
	res := Result{Mode: mode, Routes: make([]VehicleRoute, 0, len(s.Plans))}
	for vi, pl := range s.Plans {
		vr := VehicleRoute{VehicleID: pl.VehicleID, Capacity: p.Vehicles[vi].Capacity, Packages: make([]Package, 0, len(pl.Order))}
		for _, idx := range pl.Order {
			vr.Packages = append(vr.Packages, p.Packages[idx])
			vr.Load += p.Packages[idx].Weight
		}
		vr.Distance = routeDistance(p, pl.Order)
		res.Routes = append(res.Routes, vr)
	}
	for _, idx := range s.Unassigned(p) {
		res.Unassigned = append(res.Unassigned, p.Packages[idx])
	}
	res.Distance = Distance(p, s)
	res.Priority = PriorityScore(p, s, mode)
	res.Fitness = Fitness(p, s)
	return res
}
