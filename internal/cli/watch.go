package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"parcelroute/internal/api"
	"parcelroute/internal/model"
)

func newWatchCmd() *cobra.Command {
	var server string
	var raw bool

	cmd := &cobra.Command{
		Use:   "watch RUN_ID",
		Short: "Follow the progress events of a run on a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchRun(cmd.Context(), cmd.OutOrStdout(), server, args[0], raw)
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "API base URL")
	cmd.Flags().BoolVar(&raw, "raw", false, "print events as JSON lines")
	return cmd
}

func streamURL(server, id string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("server url must be http(s) or ws(s), got %q", server)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/runs/" + id + "/stream"
	return u.String(), nil
}

func watchRun(ctx context.Context, w io.Writer, server, id string, raw bool) error {
	target, err := streamURL(server, id)
	if err != nil {
		return err
	}
	c, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("run %s not found", id)
		}
		return fmt.Errorf("connect %s: %w", target, err)
	}
	defer func() { _ = c.Close() }()

	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		var evt api.Event
		if err := json.Unmarshal(msg, &evt); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if raw {
			_, err = fmt.Fprintln(w, string(msg))
		} else {
			_, err = fmt.Fprintln(w, formatEvent(evt))
		}
		if err != nil {
			return err
		}
		if evt.Type == api.EventRunCompleted {
			if evt.Data["status"] == model.StatusFailed {
				return fmt.Errorf("run %s failed: %v", id, evt.Data["error"])
			}
			return nil
		}
	}
}

func formatEvent(evt api.Event) string {
	d := evt.Data
	num := func(k string) float64 {
		f, _ := d[k].(float64)
		return f
	}
	switch evt.Type {
	case api.EventRunProgress:
		if d["algorithm"] == "anneal" {
			return fmt.Sprintf("anneal   step %4.0f  T=%.3f  distance %.2f  priority %.2f", num("step"), num("temperature"), num("bestDistance"), num("bestPriority"))
		}
		return fmt.Sprintf("%-8v gen  %4.0f  fitness %.2f  distance %.2f", d["algorithm"], num("step"), num("bestFitness"), num("bestDistance"))
	case api.EventRunCompleted:
		return fmt.Sprintf("run %v %v", d["runId"], d["status"])
	default:
		return evt.Type
	}
}
