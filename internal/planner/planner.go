// Package planner turns run requests into optimizer invocations: it merges
// per-run parameters over the configuration, runs one or both strategies,
// persists the run and reports progress through hooks.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"parcelroute/internal/config"
	"parcelroute/internal/metrics"
	"parcelroute/internal/model"
	"parcelroute/internal/opt"
	"parcelroute/internal/store"
)

// ErrInvalidRequest wraps request errors that are not problem validation
// failures (bad algorithm, out-of-range parameters).
var ErrInvalidRequest = errors.New("invalid run request")

// Hooks are optional callbacks. Progress may be called concurrently from
// both strategies of a compare run.
type Hooks struct {
	Progress  func(runID string, p opt.Progress)
	Completed func(ctx context.Context, run model.Run)
}

type Planner struct {
	cfg   config.Config
	store store.Store
	hooks Hooks
	now   func() time.Time
	wg    sync.WaitGroup
}

func New(cfg config.Config, st store.Store, hooks Hooks) *Planner {
	return &Planner{cfg: cfg, store: st, hooks: hooks, now: time.Now}
}

// Config returns the base configuration runs start from.
func (p *Planner) Config() config.Config { return p.cfg }

type job struct {
	run     model.Run
	problem opt.Problem
	cfg     config.Config
}

// prepare validates req and builds a pending run.
func (p *Planner) prepare(req model.RunRequest) (job, error) {
	prob, err := req.Problem.ToProblem()
	if err != nil {
		return job{}, err
	}
	cfg := p.cfg.WithParams(req.Params)
	if req.Algorithm != "" {
		cfg.Algorithm = req.Algorithm
	}
	if req.Polish != nil {
		cfg.Polish = *req.Polish
	}
	if err := cfg.Validate(); err != nil {
		return job{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	seed := cfg.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	if seed == 0 {
		seed = p.now().UnixNano()
	}
	run := model.Run{
		ID:             uuid.New().String(),
		Status:         model.StatusPending,
		Algorithm:      cfg.Algorithm,
		Seed:           seed,
		Polish:         cfg.Polish,
		Problem:        req.Problem,
		CallbackURL:    req.CallbackURL,
		CallbackSecret: req.CallbackSecret,
		CreatedAt:      p.now().UTC(),
	}
	return job{run: run, problem: prob, cfg: cfg}, nil
}

// Solve runs req to completion and returns the finished run.
func (p *Planner) Solve(ctx context.Context, req model.RunRequest) (model.Run, error) {
	j, err := p.prepare(req)
	if err != nil {
		return model.Run{}, err
	}
	if err := p.store.SaveRun(ctx, j.run); err != nil {
		return model.Run{}, fmt.Errorf("solve: %w", err)
	}
	return p.execute(ctx, j)
}

// Submit stores a pending run and executes it in the background. The
// returned run is the pending snapshot.
func (p *Planner) Submit(ctx context.Context, req model.RunRequest) (model.Run, error) {
	j, err := p.prepare(req)
	if err != nil {
		return model.Run{}, err
	}
	if err := p.store.SaveRun(ctx, j.run); err != nil {
		return model.Run{}, fmt.Errorf("submit: %w", err)
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// detached from the request; runs are bounded by their parameters
		if _, err := p.execute(context.WithoutCancel(ctx), j); err != nil {
			log.Printf("run_id=%s err=%v", j.run.ID, err)
		}
	}()
	return j.run, nil
}

// Wait blocks until every submitted run finished.
func (p *Planner) Wait() { p.wg.Wait() }

func algorithmsFor(a string) []string {
	if a == model.AlgorithmBoth {
		return []string{opt.AlgoAnneal, opt.AlgoGenetic}
	}
	return []string{a}
}

func (p *Planner) execute(ctx context.Context, j job) (run model.Run, err error) {
	run = j.run
	start := p.now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		log.Printf("run_id=%s algo=%s seed=%d status=%s dur=%dms", run.ID, run.Algorithm, run.Seed, status, time.Since(start).Milliseconds())
	}()

	run.Status = model.StatusRunning
	if err := p.store.SaveRun(ctx, run); err != nil {
		return run, fmt.Errorf("execute %s: %w", run.ID, err)
	}

	algos := algorithmsFor(j.cfg.Algorithm)
	results := make([]model.AlgoResult, len(algos))
	g, gctx := errgroup.WithContext(ctx)
	for i, algo := range algos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.runOne(run.ID, algo, j.problem, j.cfg, run.Seed+int64(i))
			return gctx.Err()
		})
	}
	runErr := g.Wait()

	done := p.now().UTC()
	run.CompletedAt = &done
	if runErr != nil {
		run.Status = model.StatusFailed
		run.Error = runErr.Error()
	} else {
		run.Status = model.StatusCompleted
		run.Results = results
	}
	// persist and notify even when the caller went away
	detached := context.WithoutCancel(ctx)
	if err := p.store.SaveRun(detached, run); err != nil {
		return run, fmt.Errorf("execute %s: %w", run.ID, err)
	}
	if p.hooks.Completed != nil {
		p.hooks.Completed(detached, run)
	}
	if runErr != nil {
		return run, fmt.Errorf("execute %s: %w", run.ID, runErr)
	}
	return run, nil
}

// runOne executes a single strategy with its own generator.
func (p *Planner) runOne(runID, algo string, prob opt.Problem, cfg config.Config, seed int64) model.AlgoResult {
	start := time.Now()
	rng := rand.New(rand.NewSource(seed))
	progress := func(pr opt.Progress) {
		if p.hooks.Progress != nil {
			p.hooks.Progress(runID, pr)
		}
	}

	var sol opt.Solution
	var stats opt.RunStats
	mode := opt.PositionWeighted
	switch algo {
	case opt.AlgoGenetic:
		best, m := opt.Evolve(prob, cfg.GeneticParams(), rng, progress)
		sol, stats, mode = best, m.Stats(), opt.SumPriority
		metrics.ObserveGenetic(m)
	default:
		best, m := opt.Anneal(prob, cfg.AnnealParams(), rng, progress)
		sol, stats = best, m.Stats()
		metrics.ObserveAnneal(m)
	}
	if cfg.Polish {
		sol = opt.Polish(prob, sol, cfg.PolishIterations)
	}

	res := opt.Summarize(prob, sol, mode)
	dur := time.Since(start)
	stats.Duration = dur
	stats.BestDistance, stats.BestPriority, stats.BestFitness = res.Distance, res.Priority, res.Fitness
	opt.RecordMetrics(runID, algo, stats)
	if keep := cfg.Server.MetricsKeep; keep > 0 {
		opt.PruneMetrics(keep)
	}
	metrics.ObserveRun(algo, "ok", dur, res.Distance, len(res.Unassigned))
	log.Printf("run_id=%s algo=%s dist=%.2f prio=%.0f unassigned=%d dur=%dms", runID, algo, res.Distance, res.Priority, len(res.Unassigned), dur.Milliseconds())
	return model.NewAlgoResult(algo, res, stats, dur)
}
