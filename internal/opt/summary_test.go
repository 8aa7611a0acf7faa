package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	p := scenarioTwo()
	s := EmptySolution(p)
	s.Plans[0].Order = []int{6, 4}
	s.Plans[1].Order = []int{2}

	res := Summarize(p, s, SumPriority)
	require.Len(t, res.Routes, 2)
	assert.Equal(t, "v1", res.Routes[0].VehicleID)
	assert.Equal(t, 17.0, res.Routes[0].Load)
	assert.Equal(t, []string{"7", "5"}, []string{res.Routes[0].Packages[0].ID, res.Routes[0].Packages[1].ID})
	assert.Equal(t, 75.0, res.Routes[1].Capacity)
	assert.Len(t, res.Unassigned, 4)
	assert.Equal(t, 12.0, res.Priority)
	assert.InDelta(t, res.Routes[0].Distance+res.Routes[1].Distance, res.Distance, 1e-9)
	assert.InDelta(t, Fitness(p, s), res.Fitness, 1e-9)
	assert.Equal(t, "sum", res.Mode.String())
}
