//go:build postgres_integration

package store

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"parcelroute/internal/model"
)

func TestPostgresConnectivityAndMigrate(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	p, err := NewPostgres(dsn)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	defer p.Close()
	if err := p.Ping(t.Context()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := p.MigrateDir("../../db/migrations"); err != nil {
		t.Fatalf("MigrateDir: %v", err)
	}

	run := model.Run{
		ID: uuid.New().String(), Status: model.StatusRunning, Algorithm: "anneal", Seed: 1,
		Problem:   model.ProblemIn{Vehicles: []model.VehicleIn{{ID: "v", Capacity: 1}}},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := p.SaveRun(t.Context(), run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	now := time.Now().UTC()
	run.Status = model.StatusCompleted
	run.CompletedAt = &now
	run.Results = []model.AlgoResult{{Algorithm: "anneal", Routes: []model.RouteOut{}, Unassigned: []string{}}}
	if err := p.SaveRun(t.Context(), run); err != nil {
		t.Fatalf("SaveRun update: %v", err)
	}

	got, err := p.GetRun(t.Context(), run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != model.StatusCompleted || len(got.Results) != 1 || got.CompletedAt == nil {
		t.Fatalf("unexpected run: %+v", got)
	}
	if _, err := p.GetRun(t.Context(), "missing"); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, _, err := p.ListRuns(t.Context(), "", 1); err != nil {
		t.Fatalf("ListRuns: %v", err)
	}

	if _, err := p.EnqueueWebhook(t.Context(), run.ID, "run.completed", "http://localhost/hook", "s", []byte(`{"id":"evt_`+run.ID+`"}`)); err != nil {
		t.Fatalf("EnqueueWebhook: %v", err)
	}
	due, err := p.FetchDueWebhookDeliveries(t.Context(), 10)
	if err != nil || len(due) == 0 {
		t.Fatalf("FetchDue: %v %d", err, len(due))
	}
}
