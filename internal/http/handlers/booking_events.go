package handlers

import (
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/medicare-hms/portal-booking/internal/wizard"
)

// eventMessage is one frame on the session event stream. The first frame is
// always a snapshot; every later frame names a transition, after which the
// host re-reads the snapshot endpoint if it needs details.
type eventMessage struct {
	Type     string           `json:"type"` // "snapshot" or "event"
	Event    wizard.Event     `json:"event,omitempty"`
	Snapshot *wizard.Snapshot `json:"snapshot,omitempty"`
}

// HandleEvents streams wizard transition events over a websocket so the
// host UI can reveal each newly unlocked step as it happens.
func (h *BookingSessions) HandleEvents(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveEvents(conn, s)
	}).ServeHTTP(w, r)
}

func (h *BookingSessions) serveEvents(conn *websocket.Conn, s *bookingSession) {
	snap := s.wizard.Snapshot()
	if err := websocket.JSON.Send(conn, eventMessage{Type: "snapshot", Snapshot: &snap}); err != nil {
		return
	}

	events, cancel := s.subscribe()
	defer cancel()

	// Reader goroutine exists only to notice the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var discard eventMessage
			if err := websocket.JSON.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	h.logger.Debug("event stream opened", "session_id", s.id)
	for {
		select {
		case e, ok := <-events:
			if !ok {
				// Session retired; the host saw the final transition.
				return
			}
			if err := websocket.JSON.Send(conn, eventMessage{Type: "event", Event: e}); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
