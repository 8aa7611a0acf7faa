package opt

import (
	"sort"
	"sync"
	"time"
)

const (
	AlgoAnneal  = "anneal"
	AlgoGenetic = "genetic"
)

// Progress is reported once per temperature step (anneal) or generation
// (genetic).
type Progress struct {
	Algorithm    string
	Step         int
	Temperature  float64 // anneal only
	BestDistance float64
	BestPriority float64
	BestFitness  float64 // genetic only
}

type ProgressFunc func(Progress)

// RunStats is the flat per-run summary kept for admin views.
type RunStats struct {
	Algo          string
	Iterations    int // inner iterations or generations
	Improvements  int
	AcceptedWorse int
	Evaluations   int
	BestDistance  float64
	BestPriority  float64
	BestFitness   float64
	Duration      time.Duration
	RecordedAt    time.Time
}

func (m AnnealMetrics) Stats() RunStats {
	return RunStats{
		Algo:          AlgoAnneal,
		Iterations:    m.Iterations,
		Improvements:  m.Improvements,
		AcceptedWorse: m.AcceptedWorse,
		Evaluations:   m.Iterations - m.NoOpMoves,
		BestDistance:  m.BestDistance,
		BestPriority:  m.BestPriority,
	}
}

func (m GeneticMetrics) Stats() RunStats {
	improvements := 0
	prev := m.InitialBestFitness
	for _, h := range m.History {
		if h.BestFitness < prev {
			improvements++
			prev = h.BestFitness
		}
	}
	return RunStats{
		Algo:         AlgoGenetic,
		Iterations:   m.Generations,
		Improvements: improvements,
		Evaluations:  m.Evaluations,
		BestFitness:  m.BestFitness,
	}
}

type key struct {
	RunID string
	Algo  string
}

var (
	mu    sync.Mutex
	store = map[key]RunStats{}
)

func RecordMetrics(runID, algo string, m RunStats) {
	if m.RecordedAt.IsZero() {
		m.RecordedAt = time.Now().UTC()
	}
	mu.Lock()
	store[key{RunID: runID, Algo: algo}] = m
	mu.Unlock()
}

// GetMetrics returns the recorded stats of a run keyed by algorithm.
func GetMetrics(runID string) map[string]RunStats {
	mu.Lock()
	defer mu.Unlock()
	out := map[string]RunStats{}
	for k, v := range store {
		if k.RunID == runID {
			out[k.Algo] = v
		}
	}
	return out
}

// PruneMetrics keeps at most keep entries, dropping the oldest.
func PruneMetrics(keep int) {
	mu.Lock()
	defer mu.Unlock()
	if len(store) <= keep {
		return
	}
	keys := make([]key, 0, len(store))
	for k := range store {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return store[keys[i]].RecordedAt.Before(store[keys[j]].RecordedAt) })
	for _, k := range keys[:len(keys)-keep] {
		delete(store, k)
	}
}
