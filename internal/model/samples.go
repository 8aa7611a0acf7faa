package model

import "sort"

var samples = map[string]ProblemIn{
	// one package at (3,4): a 3-4-5 triangle there and back
	"scenario1": {
		Packages: []PackageIn{{ID: "1", X: 3, Y: 4, Weight: 10, Priority: 1}},
		Vehicles: []VehicleIn{{ID: "V1", Capacity: 10}},
	},
	"scenario2": {
		Packages: []PackageIn{
			{ID: "1", X: 5, Y: 10, Weight: 10, Priority: 1},
			{ID: "2", X: 20, Y: 25, Weight: 15, Priority: 2},
			{ID: "3", X: 35, Y: 15, Weight: 5, Priority: 3},
			{ID: "4", X: 40, Y: 30, Weight: 12, Priority: 1},
			{ID: "5", X: 55, Y: 5, Weight: 8, Priority: 4},
			{ID: "6", X: 60, Y: 40, Weight: 18, Priority: 2},
			{ID: "7", X: 10, Y: 50, Weight: 9, Priority: 5},
		},
		Vehicles: []VehicleIn{{ID: "V1", Capacity: 60}, {ID: "V2", Capacity: 75}},
	},
	"ten-packages": {
		Packages: []PackageIn{
			{ID: "1", X: 10, Y: 20, Weight: 10, Priority: 2},
			{ID: "2", X: 30, Y: 40, Weight: 20, Priority: 1},
			{ID: "3", X: 70, Y: 80, Weight: 15, Priority: 3},
			{ID: "4", X: 15, Y: 60, Weight: 25, Priority: 2},
			{ID: "5", X: 50, Y: 10, Weight: 5, Priority: 4},
			{ID: "6", X: 60, Y: 30, Weight: 20, Priority: 2},
			{ID: "7", X: 5, Y: 90, Weight: 10, Priority: 5},
			{ID: "8", X: 85, Y: 25, Weight: 12, Priority: 3},
			{ID: "9", X: 25, Y: 5, Weight: 8, Priority: 1},
			{ID: "10", X: 95, Y: 90, Weight: 18, Priority: 2},
		},
		Vehicles: []VehicleIn{{ID: "V1", Capacity: 70}, {ID: "V2", Capacity: 80}, {ID: "V3", Capacity: 60}},
	},
}

// Sample returns a copy of a built-in problem.
func Sample(name string) (ProblemIn, bool) {
	s, ok := samples[name]
	if !ok {
		return ProblemIn{}, false
	}
	return ProblemIn{
		Packages: append([]PackageIn(nil), s.Packages...),
		Vehicles: append([]VehicleIn(nil), s.Vehicles...),
	}, true
}

func SampleNames() []string {
	names := make([]string, 0, len(samples))
	for n := range samples {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
