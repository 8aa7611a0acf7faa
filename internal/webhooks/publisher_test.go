package webhooks

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelroute/internal/model"
	"parcelroute/internal/store"
)

func TestRunCompletedEnqueuesForCallback(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	p := NewPublisher(st)

	require.NoError(t, p.RunCompleted(ctx, model.Run{ID: "r0", Status: model.StatusCompleted}))
	list, _ := st.ListWebhookDeliveries(ctx, "")
	assert.Empty(t, list, "no callback, no delivery")

	run := model.Run{
		ID:             "r1",
		Status:         model.StatusCompleted,
		CallbackURL:    "http://example.test/hook",
		CallbackSecret: "s3",
		Results:        []model.AlgoResult{{Algorithm: "anneal", Distance: 12.5, Unassigned: []string{"7"}}},
	}
	require.NoError(t, p.RunCompleted(ctx, run))
	list, err := st.ListWebhookDeliveries(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, EventRunCompleted, list[0].EventType)
	assert.Equal(t, "s3", list[0].Secret)

	var body struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			RunID   string           `json:"runId"`
			Results []map[string]any `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(list[0].Payload, &body))
	assert.Equal(t, "evt_r1", body.ID)
	assert.Equal(t, "r1", body.Data.RunID)
	require.Len(t, body.Data.Results, 1)
	assert.Equal(t, 12.5, body.Data.Results[0]["distance"])
}

func TestSignAndVerify(t *testing.T) {
	sig := SignHMAC("k", []byte("body"))
	assert.True(t, VerifyHMAC("k", []byte("body"), sig))
	assert.False(t, VerifyHMAC("other", []byte("body"), sig))
	assert.False(t, VerifyHMAC("k", []byte("body"), "not-hex"))
}
