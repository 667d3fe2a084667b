package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleLogs follows the process log. A WebSocket client gets one text
// message per line; anyone else gets a chunked text/plain stream.
func (s *APIServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logBroadcaster == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Unavailable", Message: "live logs disabled"})
		return
	}

	if websocket.IsWebSocketUpgrade(r) {
		s.streamLogsWS(w, r)
		return
	}
	s.streamLogsChunked(w, r)
}

// forwardLines copies lines to send until the subscription closes, send
// fails or done fires.
func (s *APIServer) forwardLines(done <-chan struct{}, send func([]byte) error) {
	lines := s.logBroadcaster.Subscribe()
	defer s.logBroadcaster.Unsubscribe(lines)

	for {
		select {
		case <-done:
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := send(line); err != nil {
				return
			}
		}
	}
}

func (s *APIServer) streamLogsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client
		slog.Warn("logs websocket upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	s.forwardLines(gone, func(line []byte) error {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, line)
	})
}

func (s *APIServer) streamLogsChunked(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "OperationFailed", Message: "streaming unsupported"})
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.forwardLines(r.Context().Done(), func(line []byte) error {
		if _, err := w.Write(line); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
}
