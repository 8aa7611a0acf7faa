package opt

// ImproveOrder2Opt applies 2-opt to a depot-closed tour over points and
// returns the improved order. order indexes into points.
func ImproveOrder2Opt(points []Point, order []int, iterations int) []int {
	if iterations <= 0 {
		iterations = 1
	}
	best := append([]int(nil), order...)
	bestDist := tourDistance(points, best)
	n := len(order)
	for it := 0; it < iterations; it++ {
		improved := false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				newOrder := twoOptSwap(best, i, k)
				d := tourDistance(points, newOrder)
				if d+1e-9 < bestDist {
					best = newOrder
					bestDist = d
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	// reverse i..k
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}

func tourDistance(points []Point, order []int) float64 {
	if len(order) == 0 {
		return 0
	}
	total := 0.0
	prev := Depot
	for _, idx := range order {
		total += euclid(prev, points[idx])
		prev = points[idx]
	}
	return total + euclid(prev, Depot)
}

// Polish runs 2-opt on every route of s. Assignment is unchanged, so the
// result stays feasible; it never lengthens a route.
func Polish(p Problem, s Solution, iterations int) Solution {
	points := make([]Point, len(p.Packages))
	for i, pkg := range p.Packages {
		points[i] = pkg.Loc
	}
	out := s.Clone()
	for vi := range out.Plans {
		if len(out.Plans[vi].Order) > 2 {
			out.Plans[vi].Order = ImproveOrder2Opt(points, out.Plans[vi].Order, iterations)
		}
	}
	return out
}
