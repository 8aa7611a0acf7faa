package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"parcelroute/internal/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

const (
	streamPingEvery = 20 * time.Second
	streamPollEvery = time.Second
	writeWait       = 5 * time.Second
)

// streamRun pushes run.progress events over a websocket and finishes with a
// single run.completed event. The store is polled as well so a terminal
// event dropped by a full subscriber buffer still ends the stream.
func (s *Server) streamRun(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := s.Store.GetRun(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	// subscribe before the handshake so a connected client misses nothing
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	finish := func(run model.Run) {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(completedEvent(run)); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"))
	}
	// the run may have finished before the subscription
	if run, err := s.Store.GetRun(r.Context(), id); err == nil && run.Done() {
		finish(run)
		return
	}

	// drain client frames so close and pong are processed
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingEvery)
	defer ping.Stop()
	poll := time.NewTicker(streamPollEvery)
	defer poll.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-poll.C:
			run, err := s.Store.GetRun(r.Context(), id)
			if err != nil {
				log.Printf("run_id=%s stream poll: %v", id, err)
				continue
			}
			if run.Done() {
				finish(run)
				return
			}
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if evt.Type == EventRunCompleted {
				if run, err := s.Store.GetRun(r.Context(), id); err == nil {
					finish(run)
					return
				}
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}
}
