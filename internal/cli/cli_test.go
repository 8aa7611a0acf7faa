package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"parcelroute/internal/api"
	"parcelroute/internal/config"
	"parcelroute/internal/model"
)

var quickFlags = []string{"--initial-temperature", "50", "--cooling-rate", "0.8", "--iterations-per-temperature", "10", "--population-size", "10", "--generations", "8"}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "routeopt dev")
}

func TestSamplesCommand(t *testing.T) {
	stdout, _, err := executeCLI(t, "samples")
	require.NoError(t, err)
	assert.Contains(t, stdout, "scenario2")
	assert.Contains(t, stdout, "7 packages")
}

func TestSolveSampleText(t *testing.T) {
	args := append([]string{"solve", "--sample", "scenario2", "--seed", "42"}, quickFlags...)
	stdout, _, err := executeCLI(t, args...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "seed: 42")
	assert.Contains(t, stdout, "anneal")
	assert.Contains(t, stdout, "genetic")
	assert.Contains(t, stdout, "Comparison")
	assert.Contains(t, stdout, "depot -> ")
}

func TestSolveJSONIsReproducible(t *testing.T) {
	args := append([]string{"solve", "--sample", "ten-packages", "--seed", "7", "-o", "json"}, quickFlags...)
	decode := func() model.Run {
		stdout, _, err := executeCLI(t, args...)
		require.NoError(t, err)
		var run model.Run
		require.NoError(t, json.Unmarshal([]byte(stdout), &run))
		return run
	}
	a, b := decode(), decode()
	assert.NotEqual(t, a.ID, b.ID)
	require.Len(t, a.Results, 2)
	require.Len(t, b.Results, 2)
	for i := range a.Results {
		assert.Equal(t, a.Results[i].Routes, b.Results[i].Routes)
		assert.Equal(t, a.Results[i].Distance, b.Results[i].Distance)
		assert.Equal(t, a.Results[i].Unassigned, b.Results[i].Unassigned)
	}
}

func TestSolveProblemFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "problem.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`packages:
  - {id: a, x: 1, y: 2, weight: 3, priority: 1}
  - {id: b, x: 4, y: 4, weight: 3, priority: 2}
vehicles:
  - {id: van, capacity: 10}
`), 0o644))

	args := append([]string{"solve", "-p", path, "-a", "genetic", "--seed", "3", "-o", "yaml"}, quickFlags...)
	stdout, _, err := executeCLI(t, args...)
	require.NoError(t, err)
	var run model.Run
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &run))
	assert.Equal(t, "genetic", run.Algorithm)
	require.Len(t, run.Results, 1)
	assert.Empty(t, run.Results[0].Unassigned)
	assert.ElementsMatch(t, []string{"a", "b"}, run.Results[0].Routes[0].Packages)
}

func TestSolveConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routeopt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("algorithm: genetic\nseed: 11\ngenetic:\n  population_size: 8\n  generations: 5\n"), 0o644))

	stdout, _, err := executeCLI(t, "solve", "--config", path, "--sample", "scenario2", "-o", "json")
	require.NoError(t, err)
	var run model.Run
	require.NoError(t, json.Unmarshal([]byte(stdout), &run))
	assert.Equal(t, int64(11), run.Seed)
	require.Len(t, run.Results, 1)
	assert.Equal(t, 5, run.Results[0].Iterations)

	// flags win over the file
	stdout, _, err = executeCLI(t, "solve", "--config", path, "--sample", "scenario2", "-o", "json", "--generations", "3")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), &run))
	assert.Equal(t, 3, run.Results[0].Iterations)
}

func TestSolveErrors(t *testing.T) {
	cases := map[string][]string{
		"no problem":     {"solve"},
		"both sources":   {"solve", "--sample", "scenario1", "-p", "x.json"},
		"unknown sample": {"solve", "--sample", "nope"},
		"missing file":   {"solve", "-p", filepath.Join(t.TempDir(), "missing.json")},
		"bad output":     {"solve", "--sample", "scenario1", "-o", "xml"},
		"bad cooling":    {"solve", "--sample", "scenario1", "--cooling-rate", "2"},
		"bad algorithm":  {"solve", "--sample", "scenario1", "-a", "tabu"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := executeCLI(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestSolveSearchTuningFlags(t *testing.T) {
	stdout, _, err := executeCLI(t, "solve", "--sample", "scenario2", "--seed", "3", "-o", "json",
		"--iterations-per-temperature", "5", "--generations", "3", "--swap-attempts", "4", "--parent-pool", "2")
	require.NoError(t, err)
	var run model.Run
	require.NoError(t, json.Unmarshal([]byte(stdout), &run))
	assert.Len(t, run.Results, 2)

	_, _, err = executeCLI(t, "solve", "--sample", "scenario1", "--swap-attempts", "0")
	assert.ErrorContains(t, err, "annealing.swap_attempts")
	_, _, err = executeCLI(t, "solve", "--sample", "scenario1", "--parent-pool", "-1")
	assert.ErrorContains(t, err, "genetic.parent_pool")
}

func TestWatchCompletedRun(t *testing.T) {
	cfg := config.Default()
	cfg.Annealing.IterationsPerTemperature = 5
	cfg.Genetic.Generations = 3
	srv, err := api.NewServer(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	p, _ := model.Sample("scenario2")
	body, err := json.Marshal(model.RunRequest{Problem: p, Algorithm: "anneal"})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/v1/runs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run model.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))

	stdout, _, err := executeCLI(t, "watch", run.ID, "--server", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, stdout, "run "+run.ID+" completed")

	_, _, err = executeCLI(t, "watch", "missing", "--server", ts.URL)
	assert.ErrorContains(t, err, "not found")
}

func TestStreamURL(t *testing.T) {
	got, err := streamURL("https://api.example.com/base/", "r 1")
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com/base/v1/runs/r%201/stream", got)
	got, err = streamURL("http://localhost:8080", "a%b")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/v1/runs/a%25b/stream", got)
	_, err = streamURL("ftp://x", "r")
	assert.Error(t, err)
}

func TestFormatEvent(t *testing.T) {
	line := formatEvent(api.Event{Type: api.EventRunProgress, Data: map[string]any{"algorithm": "anneal", "step": 3.0, "temperature": 857.375, "bestDistance": 10.5}})
	assert.Contains(t, line, "step    3")
	assert.Contains(t, line, "T=857.375")
	line = formatEvent(api.Event{Type: api.EventRunProgress, Data: map[string]any{"algorithm": "genetic", "step": 9.0, "bestFitness": 99.0}})
	assert.Contains(t, line, "fitness 99.00")
}

func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
