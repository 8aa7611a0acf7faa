package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelroute/internal/opt"
)

func TestDecodeProblemJSONAndYAML(t *testing.T) {
	jsonDoc := []byte(`{"packages":[{"id":"a","x":1,"y":2,"weight":3,"priority":4}],"vehicles":[{"id":"v","capacity":5}]}`)
	yamlDoc := []byte(`
packages:
  - id: a
    x: 1
    y: 2
    weight: 3
    priority: 4
vehicles:
  - id: v
    capacity: 5
`)
	fromJSON, err := DecodeProblem(jsonDoc)
	require.NoError(t, err)
	fromYAML, err := DecodeProblem(yamlDoc)
	require.NoError(t, err)
	assert.Equal(t, fromJSON, fromYAML)
	assert.Equal(t, PackageIn{ID: "a", X: 1, Y: 2, Weight: 3, Priority: 4}, fromJSON.Packages[0])
}

func TestDecodeProblemRejectsUnknownFields(t *testing.T) {
	tests := map[string]string{
		"json":  `{"packages":[],"trucks":[]}`,
		"yaml":  "packages: []\ntrucks: []\n",
		"empty": "   ",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeProblem([]byte(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidProblem)
		})
	}
}

func TestLoadProblemFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vehicles:\n  - id: v\n    capacity: 1\n"), 0o600))
	in, err := LoadProblemFile(path)
	require.NoError(t, err)
	assert.Len(t, in.Vehicles, 1)

	_, err = LoadProblemFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "load problem")
}

func TestToProblemValidates(t *testing.T) {
	in := ProblemIn{
		Packages: []PackageIn{{ID: "a", Weight: 0, Priority: 1}},
		Vehicles: []VehicleIn{{ID: "v", Capacity: 1}},
	}
	_, err := in.ToProblem()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidProblem)
	assert.ErrorContains(t, err, "weight must be > 0")

	in.Packages[0].Weight = 1
	p, err := in.ToProblem()
	require.NoError(t, err)
	assert.Equal(t, opt.Point{X: 0, Y: 0}, p.Packages[0].Loc)
	assert.Equal(t, "v", p.Vehicles[0].ID)
}

func TestSamplesAreValid(t *testing.T) {
	assert.Equal(t, []string{"scenario1", "scenario2", "ten-packages"}, SampleNames())
	for _, name := range SampleNames() {
		in, ok := Sample(name)
		require.True(t, ok)
		_, err := in.ToProblem()
		require.NoError(t, err, name)
	}
	_, ok := Sample("nope")
	assert.False(t, ok)

	a, _ := Sample("scenario2")
	a.Packages[0].ID = "changed"
	b, _ := Sample("scenario2")
	assert.Equal(t, "1", b.Packages[0].ID)
}

func TestValidAlgorithm(t *testing.T) {
	for _, a := range []string{"anneal", "genetic", "both"} {
		assert.True(t, ValidAlgorithm(a), a)
	}
	assert.False(t, ValidAlgorithm("greedy"))
	assert.False(t, ValidAlgorithm(""))
}

func TestNewAlgoResult(t *testing.T) {
	in, _ := Sample("scenario1")
	p, err := in.ToProblem()
	require.NoError(t, err)
	sol := opt.Solution{Plans: []opt.RoutePlan{{VehicleID: "V1", Order: []int{0}}}}
	res := NewAlgoResult(opt.AlgoAnneal, opt.Summarize(p, sol, opt.PositionWeighted), opt.RunStats{Iterations: 7}, 1500*time.Microsecond)

	assert.Equal(t, "anneal", res.Algorithm)
	assert.Equal(t, "position-weighted", res.PriorityMode)
	assert.InDelta(t, 10.0, res.Distance, 1e-9)
	assert.Equal(t, []string{"1"}, res.Routes[0].Packages)
	assert.Equal(t, 10.0, res.Routes[0].Load)
	assert.NotNil(t, res.Unassigned)
	assert.Empty(t, res.Unassigned)
	assert.Equal(t, 7, res.Iterations)
	assert.Equal(t, int64(1), res.DurationMs)
}
