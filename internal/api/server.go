package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"parcelroute/internal/config"
	"parcelroute/internal/metrics"
	"parcelroute/internal/model"
	"parcelroute/internal/opt"
	"parcelroute/internal/planner"
	"parcelroute/internal/store"
	"parcelroute/internal/webhooks"
)

type Server struct {
	Config  config.Config
	Store   store.Store
	Planner *planner.Planner
	Pub     *webhooks.Publisher
	Broker  EventBroker
}

// NewServer creates a Server. If no database URL is configured it uses the
// in-memory store; without a Redis URL events stay in-process.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.Server.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.Server.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.Server.Migrate {
			if err := sp.MigrateDir(cfg.Server.MigrationsDir); err != nil {
				_ = sp.Close()
				return nil, err
			}
		}
		s = sp
	}
	var broker EventBroker = NewBroker()
	if cfg.Server.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.Server.RedisURL)
		if err != nil {
			log.Printf("redis broker unavailable, using in-process events: %v", err)
		} else {
			broker = rb
		}
	}
	return newServer(cfg, s, broker), nil
}

func newServer(cfg config.Config, st store.Store, broker EventBroker) *Server {
	metrics.RegisterDefault()
	srv := &Server{Config: cfg, Store: st, Broker: broker, Pub: webhooks.NewPublisher(st)}
	srv.Planner = planner.New(cfg, st, planner.Hooks{Progress: srv.publishProgress, Completed: srv.runCompleted})
	return srv
}

// Routes returns the API handler with logging, metrics and rate limiting.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Runs
	mux.HandleFunc("/v1/runs", s.RunsHandler)
	mux.HandleFunc("/v1/runs/", s.RunByIDHandler) // includes /stream, /metrics, /deliveries
	mux.HandleFunc("/v1/optimizer/config", s.OptimizerConfigHandler)

	// Health and admin
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.HandleFunc("/debug/vars", s.DebugJSON)
	mux.Handle("/metrics", metrics.Handler())

	var h http.Handler = mux
	h = rateLimit(s.Config.Server.RateRPS, s.Config.Server.RateBurst, h)
	h = metricsMiddleware(h)
	return logMiddleware(h)
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store, s.Config.Server.WebhookMaxAttempts)
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests and background runs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Config.Server.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.NewWebhookWorker().Start(ctx)

	errc := make(chan error, 1)
	go func() {
		log.Printf("API listening on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Planner.Wait()
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the store and broker connections.
func (s *Server) Close() error {
	var errs []error
	for _, c := range []any{s.Broker, s.Store} {
		if cl, ok := c.(io.Closer); ok {
			errs = append(errs, cl.Close())
		}
	}
	return errors.Join(errs...)
}

func (s *Server) publishProgress(runID string, p opt.Progress) {
	data := map[string]any{
		"runId":        runID,
		"algorithm":    p.Algorithm,
		"step":         p.Step,
		"bestDistance": p.BestDistance,
		"bestPriority": p.BestPriority,
	}
	if p.Algorithm == opt.AlgoAnneal {
		data["temperature"] = p.Temperature
	} else {
		data["bestFitness"] = p.BestFitness
	}
	s.Broker.Publish(runID, Event{Type: EventRunProgress, Data: data})
}

func (s *Server) runCompleted(ctx context.Context, run model.Run) {
	s.Broker.Publish(run.ID, completedEvent(run))
	if err := s.Pub.RunCompleted(ctx, run); err != nil {
		log.Printf("run_id=%s webhook: %v", run.ID, err)
	}
}
