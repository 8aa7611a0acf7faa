package opt

import "slices"

// Repair returns a feasible copy of s: duplicates and out-of-range indices
// are dropped (first occurrence in vehicle order wins), overloaded plans shed
// tail packages, and unassigned packages are placed first-fit by descending
// priority. Packages already placed keep their relative order.
func Repair(p Problem, s Solution) Solution {
	out := EmptySolution(p)
	seen := make([]bool, len(p.Packages))
	loads := make([]float64, len(p.Vehicles))
	for vi := range out.Plans {
		if vi >= len(s.Plans) {
			continue
		}
		for _, idx := range s.Plans[vi].Order {
			if idx < 0 || idx >= len(p.Packages) || seen[idx] {
				continue
			}
			seen[idx] = true
			out.Plans[vi].Order = append(out.Plans[vi].Order, idx)
			loads[vi] += p.Packages[idx].Weight
		}
		for loads[vi] > p.Vehicles[vi].Capacity && len(out.Plans[vi].Order) > 0 {
			last := len(out.Plans[vi].Order) - 1
			idx := out.Plans[vi].Order[last]
			out.Plans[vi].Order = out.Plans[vi].Order[:last]
			loads[vi] = out.Load(p, vi)
			seen[idx] = false
		}
	}

	unassigned := []int{}
	for i, ok := range seen {
		if !ok {
			unassigned = append(unassigned, i)
		}
	}
	slices.SortStableFunc(unassigned, func(a, b int) int {
		return p.Packages[b].Priority - p.Packages[a].Priority
	})
	for _, idx := range unassigned {
		w := p.Packages[idx].Weight
		for vi := range out.Plans {
			if loads[vi]+w <= p.Vehicles[vi].Capacity {
				out.Plans[vi].Order = append(out.Plans[vi].Order, idx)
				loads[vi] += w
				break
			}
		}
	}
	return out
}
