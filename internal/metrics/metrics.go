package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parcelroute/internal/opt"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)

	// OptimizerRuns counts finished strategy runs by algorithm and status
	OptimizerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "optimizer_runs_total", Help: "Optimizer runs by algorithm and status."},
		[]string{"algorithm", "status"},
	)
	OptimizerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "optimizer_run_duration_seconds", Help: "Wall time of one strategy run.", Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}},
		[]string{"algorithm"},
	)
	// OptimizerBestDistance is the best route distance of the latest run
	OptimizerBestDistance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "optimizer_best_distance", Help: "Total distance of the latest best solution."},
		[]string{"algorithm"},
	)
	OptimizerUnassigned = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "optimizer_unassigned_packages", Help: "Packages left unassigned by the latest run."},
		[]string{"algorithm"},
	)
	// AnnealMoves counts neighbour moves by kind and acceptance outcome
	AnnealMoves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "anneal_moves_total", Help: "Annealing neighbour moves by kind."},
		[]string{"move"},
	)
	AnnealOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "anneal_outcomes_total", Help: "Annealing candidate outcomes."},
		[]string{"outcome"},
	)
	GeneticEvaluations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "genetic_evaluations_total", Help: "Fitness evaluations performed by the genetic search."},
	)
	GeneticMutations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "genetic_mutations_total", Help: "Mutations applied by the genetic search."},
	)
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func(){
		Registry.MustRegister(HTTPRequests, HTTPDuration)
		Registry.MustRegister(WebhookDeliveries, WebhookLatency)
		Registry.MustRegister(OptimizerRuns, OptimizerDuration, OptimizerBestDistance, OptimizerUnassigned)
		Registry.MustRegister(AnnealMoves, AnnealOutcomes, GeneticEvaluations, GeneticMutations)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	RegisterDefault()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

func ObserveAnneal(m opt.AnnealMetrics) {
	for k, n := range m.MoveSelects {
		AnnealMoves.WithLabelValues(opt.MoveKind(k).String()).Add(float64(n))
	}
	AnnealOutcomes.WithLabelValues("better").Add(float64(m.AcceptedBetter))
	AnnealOutcomes.WithLabelValues("priority").Add(float64(m.AcceptedPriority))
	AnnealOutcomes.WithLabelValues("worse").Add(float64(m.AcceptedWorse))
	AnnealOutcomes.WithLabelValues("rejected").Add(float64(m.Rejected))
	AnnealOutcomes.WithLabelValues("noop").Add(float64(m.NoOpMoves))
}

func ObserveGenetic(m opt.GeneticMetrics) {
	GeneticEvaluations.Add(float64(m.Evaluations))
	GeneticMutations.Add(float64(m.Mutations))
}

// ObserveRun records one finished strategy run.
func ObserveRun(algo, status string, dur time.Duration, bestDistance float64, unassigned int) {
	OptimizerRuns.WithLabelValues(algo, status).Inc()
	OptimizerDuration.WithLabelValues(algo).Observe(dur.Seconds())
	OptimizerBestDistance.WithLabelValues(algo).Set(bestDistance)
	OptimizerUnassigned.WithLabelValues(algo).Set(float64(unassigned))
}
