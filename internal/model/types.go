package model

import (
	"errors"
	"fmt"
	"time"

	"parcelroute/internal/opt"
)

// ErrInvalidProblem wraps every validation failure of an incoming problem.
var ErrInvalidProblem = errors.New("invalid problem")

const AlgorithmBoth = "both"

// Run status values.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ValidAlgorithm reports whether s names a strategy or "both".
func ValidAlgorithm(s string) bool {
	switch s {
	case opt.AlgoAnneal, opt.AlgoGenetic, AlgorithmBoth:
		return true
	}
	return false
}

type PackageIn struct {
	ID       string  `json:"id" yaml:"id"`
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
	Weight   float64 `json:"weight" yaml:"weight"`
	Priority int     `json:"priority" yaml:"priority"`
}

type VehicleIn struct {
	ID       string  `json:"id" yaml:"id"`
	Capacity float64 `json:"capacity" yaml:"capacity"`
}

// ProblemIn is the wire and file form of a problem.
type ProblemIn struct {
	Packages []PackageIn `json:"packages" yaml:"packages"`
	Vehicles []VehicleIn `json:"vehicles" yaml:"vehicles"`
}

// ToProblem converts and validates. Errors wrap ErrInvalidProblem.
func (in ProblemIn) ToProblem() (opt.Problem, error) {
	p := opt.Problem{
		Packages: make([]opt.Package, 0, len(in.Packages)),
		Vehicles: make([]opt.Vehicle, 0, len(in.Vehicles)),
	}
	for _, pk := range in.Packages {
		p.Packages = append(p.Packages, opt.Package{ID: pk.ID, Loc: opt.Point{X: pk.X, Y: pk.Y}, Weight: pk.Weight, Priority: pk.Priority})
	}
	for _, v := range in.Vehicles {
		p.Vehicles = append(p.Vehicles, opt.Vehicle{ID: v.ID, Capacity: v.Capacity})
	}
	if err := p.Validate(); err != nil {
		return opt.Problem{}, fmt.Errorf("%w: %w", ErrInvalidProblem, err)
	}
	return p, nil
}

// Params overrides the configured strategy parameters for one run. Zero
// values keep the configured value; MutationRate is a pointer since 0 is a
// meaningful rate.
type Params struct {
	InitialTemperature       float64  `json:"initialTemperature,omitempty" yaml:"initial_temperature,omitempty"`
	CoolingRate              float64  `json:"coolingRate,omitempty" yaml:"cooling_rate,omitempty"`
	StoppingTemperature      float64  `json:"stoppingTemperature,omitempty" yaml:"stopping_temperature,omitempty"`
	IterationsPerTemperature int      `json:"iterationsPerTemperature,omitempty" yaml:"iterations_per_temperature,omitempty"`
	SwapAttempts             int      `json:"swapAttempts,omitempty" yaml:"swap_attempts,omitempty"`
	PopulationSize           int      `json:"populationSize,omitempty" yaml:"population_size,omitempty"`
	Generations              int      `json:"generations,omitempty" yaml:"generations,omitempty"`
	MutationRate             *float64 `json:"mutationRate,omitempty" yaml:"mutation_rate,omitempty"`
	MutationMode             string   `json:"mutationMode,omitempty" yaml:"mutation_mode,omitempty"`
	Elite                    int      `json:"elite,omitempty" yaml:"elite,omitempty"`
	ParentPool               int      `json:"parentPool,omitempty" yaml:"parent_pool,omitempty"`
}

type RunRequest struct {
	Problem        ProblemIn `json:"problem"`
	Algorithm      string    `json:"algorithm,omitempty"`
	Seed           *int64    `json:"seed,omitempty"`
	Params         *Params   `json:"params,omitempty"`
	Polish         *bool     `json:"polish,omitempty"`
	Async          bool      `json:"async,omitempty"`
	CallbackURL    string    `json:"callbackUrl,omitempty"`
	CallbackSecret string    `json:"callbackSecret,omitempty"`
}

// Run is one planner invocation and, once finished, its per-algorithm
// results.
type Run struct {
	ID          string       `json:"id" yaml:"id"`
	Status      string       `json:"status" yaml:"status"`
	Algorithm   string       `json:"algorithm" yaml:"algorithm"`
	Seed        int64        `json:"seed" yaml:"seed"`
	Polish      bool         `json:"polish" yaml:"polish"`
	Problem     ProblemIn    `json:"problem" yaml:"problem"`
	Results     []AlgoResult `json:"results,omitempty" yaml:"results,omitempty"`
	Error       string       `json:"error,omitempty" yaml:"error,omitempty"`
	CallbackURL string       `json:"callbackUrl,omitempty" yaml:"callback_url,omitempty"`
	CreatedAt   time.Time    `json:"createdAt" yaml:"created_at"`
	CompletedAt *time.Time   `json:"completedAt,omitempty" yaml:"completed_at,omitempty"`

	// not persisted
	CallbackSecret string `json:"-" yaml:"-"`
}

// Done reports whether the run reached a terminal status.
func (r Run) Done() bool { return r.Status == StatusCompleted || r.Status == StatusFailed }

type RouteOut struct {
	VehicleID string   `json:"vehicleId" yaml:"vehicle_id"`
	Capacity  float64  `json:"capacity" yaml:"capacity"`
	Load      float64  `json:"load" yaml:"load"`
	Distance  float64  `json:"distance" yaml:"distance"`
	Packages  []string `json:"packages" yaml:"packages"`
}

type AlgoResult struct {
	Algorithm    string     `json:"algorithm" yaml:"algorithm"`
	PriorityMode string     `json:"priorityMode" yaml:"priority_mode"`
	Distance     float64    `json:"distance" yaml:"distance"`
	Priority     float64    `json:"priority" yaml:"priority"`
	Fitness      float64    `json:"fitness" yaml:"fitness"`
	Routes       []RouteOut `json:"routes" yaml:"routes"`
	Unassigned   []string   `json:"unassigned" yaml:"unassigned"`
	Iterations   int        `json:"iterations" yaml:"iterations"`
	Improvements int        `json:"improvements" yaml:"improvements"`
	Evaluations  int        `json:"evaluations" yaml:"evaluations"`
	DurationMs   int64      `json:"durationMs" yaml:"duration_ms"`
}

// NewAlgoResult flattens a summarized solution into its wire form.
func NewAlgoResult(algo string, res opt.Result, stats opt.RunStats, dur time.Duration) AlgoResult {
	out := AlgoResult{
		Algorithm:    algo,
		PriorityMode: res.Mode.String(),
		Distance:     res.Distance,
		Priority:     res.Priority,
		Fitness:      res.Fitness,
		Routes:       make([]RouteOut, 0, len(res.Routes)),
		Unassigned:   make([]string, 0, len(res.Unassigned)),
		Iterations:   stats.Iterations,
		Improvements: stats.Improvements,
		Evaluations:  stats.Evaluations,
		DurationMs:   dur.Milliseconds(),
	}
	for _, r := range res.Routes {
		ro := RouteOut{VehicleID: r.VehicleID, Capacity: r.Capacity, Load: r.Load, Distance: r.Distance, Packages: make([]string, 0, len(r.Packages))}
		for _, pk := range r.Packages {
			ro.Packages = append(ro.Packages, pk.ID)
		}
		out.Routes = append(out.Routes, ro)
	}
	for _, pk := range res.Unassigned {
		out.Unassigned = append(out.Unassigned, pk.ID)
	}
	return out
}
