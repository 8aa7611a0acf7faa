package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"parcelroute/internal/model"
	"parcelroute/internal/store"
)

const EventRunCompleted = "run.completed"

type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// RunCompleted enqueues a run.completed event for the run's callback URL.
// Runs without a callback are ignored.
func (p *Publisher) RunCompleted(ctx context.Context, run model.Run) error {
	if run.CallbackURL == "" {
		return nil
	}
	payload := map[string]any{
		"id":   "evt_" + run.ID,
		"type": EventRunCompleted,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": summary(run),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", EventRunCompleted, err)
	}
	if _, err := p.Store.EnqueueWebhook(ctx, run.ID, EventRunCompleted, run.CallbackURL, run.CallbackSecret, body); err != nil {
		return fmt.Errorf("enqueue %s event: %w", EventRunCompleted, err)
	}
	return nil
}

// summary drops the echoed problem; receivers fetch the full run by id.
func summary(run model.Run) map[string]any {
	results := make([]map[string]any, 0, len(run.Results))
	for _, r := range run.Results {
		results = append(results, map[string]any{
			"algorithm":  r.Algorithm,
			"distance":   r.Distance,
			"priority":   r.Priority,
			"fitness":    r.Fitness,
			"unassigned": r.Unassigned,
		})
	}
	out := map[string]any{"runId": run.ID, "status": run.Status, "results": results}
	if run.Error != "" {
		out["error"] = run.Error
	}
	return out
}
